package gomoku

import (
	"fmt"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

const (
	ReasonOverline    = "overline"
	ReasonDoubleFour  = "double-four"
	ReasonDoubleThree = "double-three"
)

// Directions are the four scan axes: horizontal, vertical and the two diagonals.
var Directions = [4]entity.Position{
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: 1, Y: 1},
	{X: 1, Y: -1},
}

type Forbidden struct {
	Forbidden bool   `json:"forbidden"`
	Reason    string `json:"reason,omitempty"`
}

// Rules binds the engine to one room's settings.
type Rules struct {
	WinLength   int
	Constrained entity.Mark
}

// CheckWinLength rejects win lengths the forbidden-move detection cannot evaluate.
// Overline, four and three detection are defined around an exact five.
func CheckWinLength(winLength int) error {
	if winLength != fiveLength {
		return fmt.Errorf("%w: %d, only %d is supported", apperror.ErrWinLength, winLength, fiveLength)
	}

	return nil
}

// NewRules - builds the rules for a room. A non-positive win length means the default;
// any other value must pass CheckWinLength.
func NewRules(winLength int) Rules {
	if winLength <= 0 {
		winLength = entity.DefaultWinLength
	}

	return Rules{WinLength: winLength, Constrained: entity.MarkFirst}
}

// Play validates a main-game placement and returns the new board plus the win it makes, if any.
// The input board is never modified.
func (that Rules) Play(board *entity.Board, pos entity.Position, mark entity.Mark) (*entity.Board, *entity.WinResult, error) {
	if !board.InBounds(pos) {
		return nil, nil, fmt.Errorf("%w: %s", apperror.ErrOutOfBounds, pos)
	}

	if board.Occupied(pos) {
		return nil, nil, fmt.Errorf("%w: %s", apperror.ErrOccupied, pos)
	}

	if verdict := DetectForbidden(board, pos, mark, that.Constrained); verdict.Forbidden {
		return nil, nil, fmt.Errorf("%w: %s", apperror.ErrForbiddenMove, verdict.Reason)
	}

	next, err := ApplyMove(board, pos, mark)
	if err != nil {
		return nil, nil, err
	}

	win, ok := DetectWin(next, pos, that.WinLength)
	if !ok {
		return next, nil, nil
	}

	return next, &win, nil
}

// ApplyMove returns a copy of board with mark placed on pos.
func ApplyMove(board *entity.Board, pos entity.Position, mark entity.Mark) (*entity.Board, error) {
	next := board.Clone()
	if err := next.Place(pos, mark); err != nil {
		return nil, fmt.Errorf("failed to apply move: %w", err)
	}

	return next, nil
}

// DetectWin looks for a run of at least winLength through last only.
func DetectWin(board *entity.Board, last entity.Position, winLength int) (entity.WinResult, bool) {
	mark := board.At(last)
	if mark == entity.MarkNone {
		return entity.WinResult{}, false
	}

	for _, dir := range Directions {
		start := last
		for {
			prev := entity.Position{X: start.X - dir.X, Y: start.Y - dir.Y}
			if board.At(prev) != mark {
				break
			}
			start = prev
		}

		var line []entity.Position
		for pos := start; board.At(pos) == mark; pos = (entity.Position{X: pos.X + dir.X, Y: pos.Y + dir.Y}) {
			line = append(line, pos)
		}

		if len(line) >= winLength {
			return entity.WinResult{Mark: mark, Line: line}, true
		}
	}

	return entity.WinResult{}, false
}
