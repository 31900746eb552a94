package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis             Redis  `yaml:"redis"`
	SQLiteStoragePath string `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./matches.db"`
	Game              Game   `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Game holds the rule and orchestration knobs of a room.
type Game struct {
	BoardSize          int           `yaml:"board-size" env:"GAME_BOARD_SIZE" env-default:"15"`
	WinLength          int           `yaml:"win-length" env:"GAME_WIN_LENGTH" env-default:"5"`
	GracePeriod        time.Duration `yaml:"grace-period" env:"GAME_GRACE_PERIOD" env-default:"10s"`
	Retention          time.Duration `yaml:"retention" env:"GAME_RETENTION" env-default:"1m"`
	RatingDelta        int           `yaml:"rating-delta" env:"GAME_RATING_DELTA" env-default:"25"`
	PersistenceRetries uint64        `yaml:"persistence-retries" env:"GAME_PERSISTENCE_RETRIES" env-default:"3"`
	RetryInterval      time.Duration `yaml:"retry-interval" env:"GAME_RETRY_INTERVAL" env-default:"200ms"`
	ResumeInterval     time.Duration `yaml:"resume-interval" env:"GAME_RESUME_INTERVAL" env-default:"5s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
