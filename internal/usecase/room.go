package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/gomoku"
)

const (
	roomInboxSize  = 64
	archiveTimeout = 5 * time.Second
)

// seriesService is the persistence service that owns series results and ratings.
type seriesService interface {
	CreateSeries(ctx context.Context, participantA, participantB string) (*entity.Series, error)
	EndGame(ctx context.Context, seriesID, matchID, winnerID string, duration time.Duration) (*entity.SeriesResult, error)
	Forfeit(ctx context.Context, seriesID, matchID, participantID string) (*entity.SeriesResult, error)
	Abandon(ctx context.Context, seriesID, matchID string) (*entity.SeriesResult, error)
	GetSeries(ctx context.Context, seriesID string) (*entity.Series, error)
}

type matchArchive interface {
	Save(ctx context.Context, record *entity.MatchRecord) error
}

// Notifier delivers events to a connected participant. Delivery to an offline participant is dropped.
type Notifier interface {
	Notify(participantID string, event entity.Event)
}

// Settings are the rule and orchestration knobs shared by every room.
// ResumeInterval is how long a frozen room waits before reporting its pending result again; zero disables it.
type Settings struct {
	BoardSize          int
	WinLength          int
	GracePeriod        time.Duration
	Retention          time.Duration
	PersistenceRetries uint64
	RetryInterval      time.Duration
	ResumeInterval     time.Duration
}

type gamePhase uint8

const (
	phaseOpening gamePhase = iota + 1
	phaseMainGame
)

type seat struct {
	id        string
	mark      entity.Mark
	connected bool
}

type roomMsg interface{ isRoomMsg() }

type joinMsg struct {
	participantID string
	reply         chan error
}

func (joinMsg) isRoomMsg() {}

type placeStoneMsg struct {
	participantID string
	pos           entity.Position
	reply         chan error
}

func (placeStoneMsg) isRoomMsg() {}

type makeChoiceMsg struct {
	participantID string
	choice        entity.OpeningChoice
	reply         chan error
}

func (makeChoiceMsg) isRoomMsg() {}

type moveMsg struct {
	participantID string
	pos           entity.Position
	mark          entity.Mark
	reply         chan error
}

func (moveMsg) isRoomMsg() {}

type forfeitMsg struct {
	participantID string
	reason        string
	absentOnly    bool
	reply         chan error
}

func (forfeitMsg) isRoomMsg() {}

type abandonMsg struct {
	absentOnly bool
	reply      chan error
}

func (abandonMsg) isRoomMsg() {}

type resumeMsg struct {
	reply chan error
}

func (resumeMsg) isRoomMsg() {}

type presenceMsg struct {
	participantID string
	connected     bool
}

func (presenceMsg) isRoomMsg() {}

type snapshotMsg struct {
	reply chan *entity.RoomSnapshot
}

func (snapshotMsg) isRoomMsg() {}

type closeMsg struct{}

func (closeMsg) isRoomMsg() {}

type roomParams struct {
	ID           string
	Mode         entity.Mode
	Participants []string
	UseOpening   bool
	Series       *entity.Series
}

// Room is a single-writer actor: one goroutine owns the state below and applies commands in arrival order.
// Series calls run inside the actor, so commands that arrive meanwhile wait in the inbox.
type Room struct {
	id     string
	mode   entity.Mode
	logger *slog.Logger

	settings Settings
	rules    gomoku.Rules
	series   seriesService
	archive  matchArchive
	notifier Notifier
	finished func(roomID string, participants []string)
	now      func() time.Time

	inbox chan roomMsg
	done  chan struct{}

	seats         []*seat
	board         *entity.Board
	moves         []entity.Move
	opening       *entity.OpeningState
	openingLog    []entity.OpeningAction
	useOpening    bool
	currentSeries *entity.Series
	phase         gamePhase
	status        entity.RoomStatus
	turn          entity.Mark
	gameNumber    int
	lastReported  int
	sequence      uint64
	createdAt     time.Time
	gameStartedAt time.Time
	win           *entity.WinResult
	winnerID      string
	pending       *pendingGame
}

// pendingGame is a finished game whose result the series has not acknowledged yet.
type pendingGame struct {
	record *entity.MatchRecord
	win    *entity.WinResult
}

func newRoom(
	logger *slog.Logger,
	params roomParams,
	settings Settings,
	series seriesService,
	archive matchArchive,
	notifier Notifier,
	finished func(roomID string, participants []string),
) *Room {
	room := &Room{
		id:     params.ID,
		mode:   params.Mode,
		logger: logger.With("component", "room", "room_id", params.ID),

		settings: settings,
		rules:    gomoku.NewRules(settings.WinLength),
		series:   series,
		archive:  archive,
		notifier: notifier,
		finished: finished,
		now:      time.Now,

		inbox: make(chan roomMsg, roomInboxSize),
		done:  make(chan struct{}),

		board:         entity.NewBoard(settings.BoardSize),
		useOpening:    params.UseOpening,
		currentSeries: params.Series,
		status:        entity.RoomWaiting,
		gameNumber:    1,
	}

	room.createdAt = room.now()

	for _, id := range params.Participants {
		room.seats = append(room.seats, &seat{id: id, connected: true})
	}

	if len(room.seats) == 2 {
		room.startGame()
	}

	go room.loop()

	return room
}

func (that *Room) ID() string {
	return that.id
}

func (that *Room) Join(ctx context.Context, participantID string) error {
	reply := make(chan error, 1)
	return that.ask(ctx, joinMsg{participantID: participantID, reply: reply}, reply)
}

// PlaceStone - places a tentative stone of the balanced opening.
func (that *Room) PlaceStone(ctx context.Context, participantID string, pos entity.Position) error {
	reply := make(chan error, 1)
	return that.ask(ctx, placeStoneMsg{participantID: participantID, pos: pos, reply: reply}, reply)
}

// MakeChoice - applies an opening choice.
func (that *Room) MakeChoice(ctx context.Context, participantID string, choice entity.OpeningChoice) error {
	reply := make(chan error, 1)
	return that.ask(ctx, makeChoiceMsg{participantID: participantID, choice: choice, reply: reply}, reply)
}

// Move - plays a main game stone. mark is the side the sender claims to play.
func (that *Room) Move(ctx context.Context, participantID string, pos entity.Position, mark entity.Mark) error {
	reply := make(chan error, 1)
	return that.ask(ctx, moveMsg{participantID: participantID, pos: pos, mark: mark, reply: reply}, reply)
}

// Forfeit - the participant loses the current game and, with a series, the whole series.
func (that *Room) Forfeit(ctx context.Context, participantID, reason string) error {
	reply := make(chan error, 1)
	return that.ask(ctx, forfeitMsg{participantID: participantID, reason: reason, reply: reply}, reply)
}

// ForfeitAbsent - forfeits a participant who lost the link, unless the room already sees them back.
func (that *Room) ForfeitAbsent(ctx context.Context, participantID string) error {
	reply := make(chan error, 1)
	msg := forfeitMsg{participantID: participantID, reason: entity.FinishReasonDisconnect, absentOnly: true, reply: reply}

	return that.ask(ctx, msg, reply)
}

// Abandon - closes the room as a draw without rating changes.
func (that *Room) Abandon(ctx context.Context) error {
	reply := make(chan error, 1)
	return that.ask(ctx, abandonMsg{reply: reply}, reply)
}

// AbandonAbsent - abandons the room only while nobody in it is connected.
func (that *Room) AbandonAbsent(ctx context.Context) error {
	reply := make(chan error, 1)
	return that.ask(ctx, abandonMsg{absentOnly: true, reply: reply}, reply)
}

// Resume - reports the result that froze the room again. A room that is not frozen on a pending result is left as is.
func (that *Room) Resume(ctx context.Context) error {
	reply := make(chan error, 1)
	return that.ask(ctx, resumeMsg{reply: reply}, reply)
}

func (that *Room) SetConnected(ctx context.Context, participantID string, connected bool) error {
	return that.send(ctx, presenceMsg{participantID: participantID, connected: connected})
}

func (that *Room) Snapshot(ctx context.Context) (*entity.RoomSnapshot, error) {
	reply := make(chan *entity.RoomSnapshot, 1)
	if err := that.send(ctx, snapshotMsg{reply: reply}); err != nil {
		return nil, err
	}

	select {
	case snapshot := <-reply:
		return snapshot, nil
	case <-that.done:
		return nil, apperror.ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close - stops the actor. Commands sent afterwards fail with ErrRoomClosed.
func (that *Room) Close() {
	select {
	case that.inbox <- closeMsg{}:
	case <-that.done:
	}
}

func (that *Room) Done() <-chan struct{} {
	return that.done
}

func (that *Room) send(ctx context.Context, msg roomMsg) error {
	select {
	case that.inbox <- msg:
		return nil
	case <-that.done:
		return apperror.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (that *Room) ask(ctx context.Context, msg roomMsg, reply chan error) error {
	if err := that.send(ctx, msg); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-that.done:
		return apperror.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (that *Room) loop() {
	defer close(that.done)

	for msg := range that.inbox {
		switch msg := msg.(type) {
		case joinMsg:
			msg.reply <- that.handleJoin(msg.participantID)
		case placeStoneMsg:
			msg.reply <- that.handlePlaceStone(msg.participantID, msg.pos)
		case makeChoiceMsg:
			msg.reply <- that.handleMakeChoice(msg.participantID, msg.choice)
		case moveMsg:
			msg.reply <- that.handleMove(msg.participantID, msg.pos, msg.mark)
		case forfeitMsg:
			msg.reply <- that.handleForfeit(msg.participantID, msg.reason, msg.absentOnly)
		case abandonMsg:
			msg.reply <- that.handleAbandon(msg.absentOnly)
		case resumeMsg:
			msg.reply <- that.handleResume()
		case presenceMsg:
			if s := that.seatOf(msg.participantID); s != nil {
				s.connected = msg.connected
			}
		case snapshotMsg:
			msg.reply <- that.snapshot()
		case closeMsg:
			that.status = entity.RoomClosed
			that.broadcast(entity.EventRoomClosed, nil)
			return
		}
	}
}

func (that *Room) handleJoin(participantID string) error {
	if that.seatOf(participantID) != nil {
		return nil
	}

	if that.status != entity.RoomWaiting || len(that.seats) >= 2 {
		return fmt.Errorf("%w: %s", apperror.ErrRoomFull, that.id)
	}

	that.seats = append(that.seats, &seat{id: participantID, connected: true})
	that.startGame()

	return nil
}

func (that *Room) handlePlaceStone(participantID string, pos entity.Position) error {
	if err := that.checkPlayable(participantID, phaseOpening); err != nil {
		return err
	}

	if that.board.Occupied(pos) {
		return fmt.Errorf("%w: %s", apperror.ErrOccupied, pos)
	}

	if err := that.opening.Place(participantID, pos, that.board.Size(), that.now()); err != nil {
		return fmt.Errorf("failed to place stone: %w", err)
	}

	that.broadcast(entity.EventStonePlaced, entity.OpeningPayload{Opening: that.opening.Clone()})

	return nil
}

func (that *Room) handleMakeChoice(participantID string, choice entity.OpeningChoice) error {
	if err := that.checkPlayable(participantID, phaseOpening); err != nil {
		return err
	}

	if err := that.opening.Choose(participantID, choice, that.now()); err != nil {
		return fmt.Errorf("failed to make choice: %w", err)
	}

	that.broadcast(entity.EventChoiceMade, entity.OpeningPayload{Opening: that.opening.Clone()})

	if that.opening.IsComplete() {
		that.commitOpening()
		that.broadcast(entity.EventOpeningComplete, that.snapshot())
	}

	return nil
}

// commitOpening - puts the tentative stones on the board and hands the game to the assigned sides.
func (that *Room) commitOpening() {
	now := that.now()

	for _, stone := range that.opening.TentativeStones {
		mark := entity.PlacementMark(stone.PlacementOrder)

		if err := that.board.Place(stone.Position, mark); err != nil {
			that.logger.Error("failed to commit opening stone", "position", stone.Position, "error", err)
			continue
		}

		that.sequence++
		that.moves = append(that.moves, entity.Move{
			Position:  stone.Position,
			Mark:      mark,
			AuthorID:  stone.PlacedBy,
			Sequence:  that.sequence,
			Timestamp: now,
		})
	}

	assignment := that.opening.FinalAssignment
	that.seatOf(assignment.FirstMoverID).mark = entity.MarkFirst
	that.seatOf(assignment.SecondMoverID).mark = entity.MarkSecond

	that.openingLog = append([]entity.OpeningAction(nil), that.opening.Log...)
	that.turn = that.opening.NextMark()
	that.phase = phaseMainGame
}

func (that *Room) handleMove(participantID string, pos entity.Position, mark entity.Mark) error {
	if err := that.checkPlayable(participantID, phaseMainGame); err != nil {
		return err
	}

	player := that.seatOf(participantID)
	if player.mark != mark || that.turn != mark {
		return fmt.Errorf("%w: %s to move", apperror.ErrNotYourTurn, that.turn)
	}

	next, win, err := that.rules.Play(that.board, pos, mark)
	if err != nil {
		return fmt.Errorf("failed to make move: %w", err)
	}

	that.board = next
	that.sequence++

	move := entity.Move{
		Position:  pos,
		Mark:      mark,
		AuthorID:  participantID,
		Sequence:  that.sequence,
		Timestamp: that.now(),
	}
	that.moves = append(that.moves, move)

	payload := entity.MovePayload{Move: move, Win: win}
	if win != nil {
		payload.WinnerID = participantID
	}

	that.broadcast(entity.EventMoveMade, payload)

	switch {
	case win != nil:
		that.win = win
		that.finishGame(participantID, entity.FinishReasonFive)
	case that.board.Full():
		that.finishGame("", entity.FinishReasonBoardFull)
	default:
		that.turn = that.turn.Opposite()
	}

	return nil
}

func (that *Room) handleForfeit(participantID, reason string, absentOnly bool) error {
	if err := that.checkResolvable(); err != nil {
		return err
	}

	s := that.seatOf(participantID)
	if s == nil {
		return fmt.Errorf("%w: %s", apperror.ErrNotParticipant, participantID)
	}

	if absentOnly && s.connected {
		return fmt.Errorf("%w: %s", apperror.ErrParticipantOnline, participantID)
	}

	if err := that.settlePending(); err != nil {
		return fmt.Errorf("failed to forfeit series: %w", err)
	}

	winnerID := that.opponentOf(participantID)
	record := that.matchRecord(winnerID, reason)

	if that.currentSeries == nil {
		that.winnerID = winnerID
		that.saveRecord(record)
		that.broadcast(entity.EventGameOver, entity.GameOverPayload{
			GameNumber: that.gameNumber,
			WinnerID:   winnerID,
			Reason:     reason,
		})
		that.finish()

		return nil
	}

	seriesID := that.currentSeries.ID
	result, err := that.recordSeries(func(ctx context.Context) (*entity.SeriesResult, error) {
		return that.series.Forfeit(ctx, seriesID, record.ID, participantID)
	})
	if err == nil {
		err = checkSeriesComplete(result.Series)
	}

	if err != nil {
		that.freeze(err)
		return fmt.Errorf("failed to forfeit series: %w", err)
	}

	that.lastReported = that.gameNumber
	that.currentSeries = result.Series
	that.winnerID = winnerID
	that.saveRecord(record)

	that.broadcast(entity.EventSeriesForfeited, entity.GameOverPayload{
		GameNumber:    that.gameNumber,
		WinnerID:      winnerID,
		Reason:        reason,
		Series:        result.Series.Clone(),
		RatingChanges: result.RatingChanges,
	})
	that.finish()

	return nil
}

func (that *Room) handleAbandon(absentOnly bool) error {
	if err := that.checkResolvable(); err != nil {
		return err
	}

	if absentOnly {
		for _, s := range that.seats {
			if s.connected {
				return fmt.Errorf("%w: %s", apperror.ErrParticipantOnline, s.id)
			}
		}
	}

	if err := that.settlePending(); err != nil {
		return fmt.Errorf("failed to abandon series: %w", err)
	}

	record := that.matchRecord("", entity.FinishReasonBothGone)

	if that.currentSeries != nil {
		seriesID := that.currentSeries.ID
		result, err := that.recordSeries(func(ctx context.Context) (*entity.SeriesResult, error) {
			return that.series.Abandon(ctx, seriesID, record.ID)
		})
		if err == nil {
			err = checkSeriesComplete(result.Series)
		}

		if err != nil {
			that.freeze(err)
			return fmt.Errorf("failed to abandon series: %w", err)
		}

		that.lastReported = that.gameNumber
		that.currentSeries = result.Series
	}

	that.winnerID = ""
	that.saveRecord(record)
	that.broadcast(entity.EventGameOver, entity.GameOverPayload{
		GameNumber: that.gameNumber,
		Reason:     entity.FinishReasonBothGone,
		Series:     that.seriesClone(),
	})
	that.finish()

	return nil
}

// finishGame - archives the game, reports it to the series and starts the next game when there is one.
func (that *Room) finishGame(winnerID, reason string) {
	log := that.logger.With("method", "finishGame")

	that.winnerID = winnerID
	record := that.matchRecord(winnerID, reason)
	that.saveRecord(record)

	if that.currentSeries == nil {
		that.broadcast(entity.EventGameOver, entity.GameOverPayload{
			GameNumber: that.gameNumber,
			WinnerID:   winnerID,
			Reason:     reason,
			Win:        that.win,
		})
		that.finish()

		return
	}

	if that.lastReported >= that.gameNumber {
		log.Warn("game already reported", "game_number", that.gameNumber)
		return
	}

	that.pending = &pendingGame{record: record, win: that.win}
	if err := that.reportPending(); err != nil {
		that.freeze(err)
	}
}

// reportPending - sends the pending game to the series. On success the room moves on as if the game had just ended;
// on failure the pending game is kept for the next attempt.
func (that *Room) reportPending() error {
	pending := that.pending
	seriesID := that.currentSeries.ID

	result, err := that.recordSeries(func(ctx context.Context) (*entity.SeriesResult, error) {
		return that.series.EndGame(ctx, seriesID, pending.record.ID, pending.record.WinnerID, pending.record.Duration)
	})
	if err != nil {
		return err
	}

	that.pending = nil
	that.lastReported = pending.record.GameNumber
	that.currentSeries = result.Series

	that.broadcast(entity.EventGameOver, entity.GameOverPayload{
		GameNumber:    pending.record.GameNumber,
		WinnerID:      pending.record.WinnerID,
		Reason:        pending.record.FinishReason,
		Win:           pending.win,
		Series:        result.Series.Clone(),
		RatingChanges: result.RatingChanges,
	})
	that.broadcast(entity.EventSeriesUpdated, result.Series.Clone())

	if !result.NextGameReady {
		that.finish()
		return nil
	}

	that.gameNumber = result.Series.CurrentGameNumber
	that.startGame()
	that.broadcast(entity.EventNextGame, that.snapshot())

	return nil
}

// settlePending - a forfeit or an abandon first lands the result that froze the room,
// so it is never recorded under the match id of a game the series already counted.
func (that *Room) settlePending() error {
	if that.pending == nil {
		return nil
	}

	if err := that.reportPending(); err != nil {
		return err
	}

	if that.status == entity.RoomFinished {
		return fmt.Errorf("%w: series ended with the last game", apperror.ErrGameFinished)
	}

	return nil
}

func (that *Room) handleResume() error {
	if that.status != entity.RoomFrozen || that.pending == nil {
		return nil
	}

	if err := that.reportPending(); err != nil {
		that.logger.Error("failed to resume room", "game_number", that.pending.record.GameNumber, "error", err)
		that.scheduleResume()

		return fmt.Errorf("failed to resume room: %w", err)
	}

	return nil
}

// scheduleResume - asks the actor to report the pending game again after ResumeInterval.
func (that *Room) scheduleResume() {
	if that.settings.ResumeInterval <= 0 || that.pending == nil {
		return
	}

	time.AfterFunc(that.settings.ResumeInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		// failures are logged and rescheduled by the actor
		_ = that.Resume(ctx)
	})
}

// startGame - resets the board and decides who opens: the series' first side, or a coin flip.
func (that *Room) startGame() {
	that.board = entity.NewBoard(that.settings.BoardSize)
	that.moves = nil
	that.win = nil
	that.winnerID = ""
	that.openingLog = nil
	that.gameStartedAt = that.now()
	that.status = entity.RoomPlaying

	if that.currentSeries != nil {
		for _, s := range that.seats {
			s.mark = that.currentSeries.SideOf(s.id)
		}
	} else {
		first := rand.IntN(len(that.seats))
		for i, s := range that.seats {
			if i == first {
				s.mark = entity.MarkFirst
			} else {
				s.mark = entity.MarkSecond
			}
		}
	}

	if !that.useOpening {
		that.opening = nil
		that.phase = phaseMainGame
		that.turn = entity.MarkFirst
		that.broadcast(entity.EventRoomState, that.snapshot())

		return
	}

	opener := that.seatWithMark(entity.MarkFirst)
	that.opening = entity.NewOpening(opener.id, that.opponentOf(opener.id))
	that.phase = phaseOpening
	that.turn = entity.MarkNone
	that.broadcast(entity.EventRoomState, that.snapshot())
}

func (that *Room) finish() {
	that.status = entity.RoomFinished
	that.turn = entity.MarkNone

	if that.currentSeries != nil && that.currentSeries.IsComplete() {
		that.broadcast(entity.EventSeriesComplete, that.currentSeries.Clone())
	}

	if that.finished != nil {
		that.finished(that.id, that.participantIDs())
	}
}

func (that *Room) freeze(err error) {
	that.logger.Error("room frozen, series result is not recorded", "game_number", that.gameNumber, "error", err)

	that.status = entity.RoomFrozen
	that.broadcast(entity.EventRoomFrozen, entity.ErrorPayload{
		Reason:  "persistence_unavailable",
		Message: err.Error(),
	})

	that.scheduleResume()
}

// checkSeriesComplete - a forfeit or an abandon must leave the stored series complete.
func checkSeriesComplete(series *entity.Series) error {
	if series.IsComplete() {
		return nil
	}

	return fmt.Errorf("%w: series %s is %s", apperror.ErrSeriesOutOfSync, series.ID, series.Status)
}

func (that *Room) recordSeries(call seriesCall) (*entity.SeriesResult, error) {
	return retrySeriesCall(
		context.Background(),
		that.logger,
		that.settings.PersistenceRetries,
		that.settings.RetryInterval,
		that.currentSeries.ID,
		that.series.GetSeries,
		call,
	)
}

// saveRecord - fire and forget; a failed archive write is only logged.
func (that *Room) saveRecord(record *entity.MatchRecord) {
	if that.archive == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		if err := that.archive.Save(ctx, record); err != nil {
			that.logger.Error("failed to archive match", "match_id", record.ID, "error", err)
		}
	}()
}

func (that *Room) matchRecord(winnerID, reason string) *entity.MatchRecord {
	now := that.now()

	record := &entity.MatchRecord{
		ID:           fmt.Sprintf("%s-g%d", that.id, that.gameNumber),
		RoomID:       that.id,
		GameNumber:   that.gameNumber,
		Moves:        append([]entity.Move(nil), that.moves...),
		FinalBoard:   that.board.Clone(),
		OpeningLog:   that.openingLog,
		WinnerID:     winnerID,
		Duration:     now.Sub(that.gameStartedAt),
		FinishedAt:   now,
		FinishReason: reason,
	}

	if that.opening != nil && record.OpeningLog == nil {
		record.OpeningLog = append([]entity.OpeningAction(nil), that.opening.Log...)
	}

	if that.currentSeries != nil {
		record.SeriesID = that.currentSeries.ID
	}

	for i, s := range that.seats {
		if i < len(record.Participants) {
			record.Participants[i] = s.id
		}
	}

	return record
}

func (that *Room) checkResolvable() error {
	switch that.status {
	case entity.RoomPlaying, entity.RoomFrozen:
		return nil
	case entity.RoomWaiting:
		return fmt.Errorf("%w: waiting for an opponent", apperror.ErrInvalidPhase)
	default:
		return fmt.Errorf("%w: room is %s", apperror.ErrGameFinished, that.status)
	}
}

func (that *Room) checkPlayable(participantID string, phase gamePhase) error {
	switch that.status {
	case entity.RoomFrozen:
		return apperror.ErrRoomFrozen
	case entity.RoomFinished, entity.RoomClosed:
		return apperror.ErrGameFinished
	case entity.RoomWaiting:
		return fmt.Errorf("%w: waiting for an opponent", apperror.ErrInvalidPhase)
	}

	if that.seatOf(participantID) == nil {
		return fmt.Errorf("%w: %s", apperror.ErrNotParticipant, participantID)
	}

	if that.phase != phase {
		return fmt.Errorf("%w: opening is not finished", apperror.ErrInvalidPhase)
	}

	return nil
}

func (that *Room) snapshot() *entity.RoomSnapshot {
	snapshot := &entity.RoomSnapshot{
		ID:         that.id,
		Mode:       that.mode,
		Status:     that.status,
		Board:      that.board.Clone(),
		Moves:      append([]entity.Move(nil), that.moves...),
		Turn:       that.turn,
		Series:     that.seriesClone(),
		GameNumber: that.gameNumber,
		Sequence:   that.sequence,
		Win:        that.win,
		WinnerID:   that.winnerID,
		CreatedAt:  that.createdAt,
	}

	if that.opening != nil {
		snapshot.Opening = that.opening.Clone()
	}

	for _, s := range that.seats {
		snapshot.Participants = append(snapshot.Participants, entity.Participant{
			ID:        s.id,
			Mark:      s.mark,
			Connected: s.connected,
		})
	}

	return snapshot
}

func (that *Room) broadcast(eventType string, payload any) {
	if that.notifier == nil {
		return
	}

	event := entity.Event{Type: eventType, RoomID: that.id, Payload: payload}
	for _, s := range that.seats {
		that.notifier.Notify(s.id, event)
	}
}

func (that *Room) seriesClone() *entity.Series {
	if that.currentSeries == nil {
		return nil
	}

	return that.currentSeries.Clone()
}

func (that *Room) seatOf(participantID string) *seat {
	for _, s := range that.seats {
		if s.id == participantID {
			return s
		}
	}

	return nil
}

func (that *Room) seatWithMark(mark entity.Mark) *seat {
	for _, s := range that.seats {
		if s.mark == mark {
			return s
		}
	}

	return that.seats[0]
}

func (that *Room) opponentOf(participantID string) string {
	for _, s := range that.seats {
		if s.id != participantID {
			return s.id
		}
	}

	return ""
}

func (that *Room) participantIDs() []string {
	ids := make([]string, 0, len(that.seats))
	for _, s := range that.seats {
		ids = append(ids, s.id)
	}

	return ids
}
