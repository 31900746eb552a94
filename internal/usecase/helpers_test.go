package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testSettings() Settings {
	return Settings{
		BoardSize:          entity.DefaultBoardSize,
		WinLength:          entity.DefaultWinLength,
		GracePeriod:        50 * time.Millisecond,
		Retention:          time.Hour,
		PersistenceRetries: 3,
		RetryInterval:      time.Millisecond,
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events map[string][]entity.Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(map[string][]entity.Event)}
}

func (that *recordingNotifier) Notify(participantID string, event entity.Event) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.events[participantID] = append(that.events[participantID], event)
}

func (that *recordingNotifier) Count(participantID, eventType string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	count := 0
	for _, event := range that.events[participantID] {
		if event.Type == eventType {
			count++
		}
	}

	return count
}

// memorySeries is an in-process persistence service. The next failures calls answer ErrPersistenceUnavailable.
type memorySeries struct {
	mu       sync.Mutex
	series   map[string]*entity.Series
	applied  map[string]bool
	failures int
	calls    map[string]int
	seq      int
}

func newMemorySeries() *memorySeries {
	return &memorySeries{
		series:  make(map[string]*entity.Series),
		applied: make(map[string]bool),
		calls:   make(map[string]int),
	}
}

func (that *memorySeries) FailNext(n int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.failures = n
}

func (that *memorySeries) Calls(method string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.calls[method]
}

func (that *memorySeries) CreateSeries(_ context.Context, participantA, participantB string) (*entity.Series, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.fail("CreateSeries"); err != nil {
		return nil, err
	}

	that.seq++
	series := entity.NewSeries(fmt.Sprintf("series-%d", that.seq), participantA, participantB, entity.MarkFirst, time.Now())
	that.series[series.ID] = series

	return series.Clone(), nil
}

func (that *memorySeries) EndGame(_ context.Context, seriesID, matchID, winnerID string, _ time.Duration) (*entity.SeriesResult, error) {
	return that.apply("EndGame", seriesID, matchID, func(series *entity.Series) (bool, error) {
		return series.RecordGameResult(series.CurrentGameNumber, winnerID, time.Now())
	})
}

func (that *memorySeries) Forfeit(_ context.Context, seriesID, matchID, participantID string) (*entity.SeriesResult, error) {
	return that.apply("Forfeit", seriesID, matchID, func(series *entity.Series) (bool, error) {
		return false, series.Forfeit(participantID, time.Now())
	})
}

func (that *memorySeries) Abandon(_ context.Context, seriesID, matchID string) (*entity.SeriesResult, error) {
	return that.apply("Abandon", seriesID, matchID, func(series *entity.Series) (bool, error) {
		return false, series.Abandon(time.Now())
	})
}

func (that *memorySeries) GetSeries(_ context.Context, seriesID string) (*entity.Series, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	series, ok := that.series[seriesID]
	if !ok {
		return nil, apperror.ErrSeriesNotFound
	}

	return series.Clone(), nil
}

func (that *memorySeries) apply(
	method, seriesID, matchID string,
	apply func(series *entity.Series) (bool, error),
) (*entity.SeriesResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.fail(method); err != nil {
		return nil, err
	}

	if that.applied[matchID] {
		return nil, apperror.ErrDuplicateResult
	}

	series, ok := that.series[seriesID]
	if !ok {
		return nil, apperror.ErrSeriesNotFound
	}

	next, err := apply(series)
	if err != nil {
		return nil, err
	}

	that.applied[matchID] = true

	return &entity.SeriesResult{Series: series.Clone(), NextGameReady: next}, nil
}

func (that *memorySeries) fail(method string) error {
	that.calls[method]++

	if that.failures > 0 {
		that.failures--
		return fmt.Errorf("%w: redis down", apperror.ErrPersistenceUnavailable)
	}

	return nil
}

// lostReplySeries stores the next lost EndGame results and still answers ErrPersistenceUnavailable.
type lostReplySeries struct {
	*memorySeries

	mu   sync.Mutex
	lost int
}

func (that *lostReplySeries) LoseNext(n int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.lost = n
}

func (that *lostReplySeries) EndGame(
	ctx context.Context,
	seriesID, matchID, winnerID string,
	duration time.Duration,
) (*entity.SeriesResult, error) {
	result, err := that.memorySeries.EndGame(ctx, seriesID, matchID, winnerID, duration)

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.lost > 0 {
		that.lost--
		return nil, fmt.Errorf("%w: reply lost", apperror.ErrPersistenceUnavailable)
	}

	return result, err
}

type memoryArchive struct {
	mu      sync.Mutex
	records map[string]*entity.MatchRecord
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{records: make(map[string]*entity.MatchRecord)}
}

func (that *memoryArchive) Save(_ context.Context, record *entity.MatchRecord) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.records[record.ID] = record

	return nil
}

func (that *memoryArchive) Get(id string) (*entity.MatchRecord, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	record, ok := that.records[id]

	return record, ok
}

type mockResolver struct {
	mock.Mock
}

func (that *mockResolver) ResolveTimeout(ctx context.Context, roomID, departedID string) error {
	args := that.Called(ctx, roomID, departedID)
	return args.Error(0)
}

func (that *mockResolver) ResolveBothGone(ctx context.Context, roomID string) error {
	args := that.Called(ctx, roomID)
	return args.Error(0)
}

type testEnv struct {
	manager  *RoomManager
	series   *memorySeries
	archive  *memoryArchive
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		series:   newMemorySeries(),
		archive:  newMemoryArchive(),
		notifier: newRecordingNotifier(),
	}

	env.manager = NewRoomManager(testLogger(), testSettings(), env.series, env.archive, env.notifier)
	t.Cleanup(env.manager.Shutdown)

	return env
}

// newLostReplyEnv - a test env whose rooms report to a lostReplySeries.
func newLostReplyEnv(t *testing.T, settings Settings) (*testEnv, *lostReplySeries) {
	t.Helper()

	env := &testEnv{
		series:   newMemorySeries(),
		archive:  newMemoryArchive(),
		notifier: newRecordingNotifier(),
	}

	series := &lostReplySeries{memorySeries: env.series}
	env.manager = NewRoomManager(testLogger(), settings, series, env.archive, env.notifier)
	t.Cleanup(env.manager.Shutdown)

	return env, series
}

// marks - who plays first and second in the room right now.
func marks(t *testing.T, snapshot *entity.RoomSnapshot) (string, string) {
	t.Helper()

	var first, second string
	for _, participant := range snapshot.Participants {
		switch participant.Mark {
		case entity.MarkFirst:
			first = participant.ID
		case entity.MarkSecond:
			second = participant.ID
		}
	}

	require.NotEmpty(t, first)
	require.NotEmpty(t, second)

	return first, second
}

func pos(x, y int) entity.Position {
	return entity.Position{X: x, Y: y}
}

// playFive - first plays a horizontal five on row y while second answers on row y+2.
func playFive(ctx context.Context, t *testing.T, room *Room, first, second string, y int) {
	t.Helper()

	for x := 0; x < 5; x++ {
		require.NoError(t, room.Move(ctx, first, pos(x, y), entity.MarkFirst))

		if x < 4 {
			require.NoError(t, room.Move(ctx, second, pos(x, y+2), entity.MarkSecond))
		}
	}
}
