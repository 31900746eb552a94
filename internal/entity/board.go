package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
)

const (
	DefaultBoardSize = 15
	DefaultWinLength = 5
)

// Mark is the stone colour. The first mark (black) moves first and is the constrained side.
type Mark uint8

const (
	MarkNone Mark = iota
	MarkFirst
	MarkSecond
)

func (m Mark) String() string {
	switch m {
	case MarkFirst:
		return "first"
	case MarkSecond:
		return "second"
	default:
		return ""
	}
}

// Opposite returns the other colour. MarkNone stays MarkNone.
func (m Mark) Opposite() Mark {
	switch m {
	case MarkFirst:
		return MarkSecond
	case MarkSecond:
		return MarkFirst
	default:
		return MarkNone
	}
}

func (m Mark) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mark) UnmarshalText(text []byte) error {
	mark, err := ParseMark(string(text))
	if err != nil {
		return err
	}

	*m = mark

	return nil
}

var ErrUnknownMark = errors.New("unknown mark")

func ParseMark(value string) (Mark, error) {
	switch value {
	case "first", "black":
		return MarkFirst, nil
	case "second", "white":
		return MarkSecond, nil
	case "":
		return MarkNone, nil
	default:
		return MarkNone, fmt.Errorf("%w: %q", ErrUnknownMark, value)
	}
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Stone is a placed mark, used for wire snapshots of the sparse board.
type Stone struct {
	Position Position `json:"position"`
	Mark     Mark     `json:"mark"`
}

// Board is a sparse N×N grid. A position is set at most once.
type Board struct {
	size  int
	cells map[Position]Mark
}

func NewBoard(size int) *Board {
	if size <= 0 {
		size = DefaultBoardSize
	}

	return &Board{
		size:  size,
		cells: make(map[Position]Mark),
	}
}

func (that *Board) Size() int {
	return that.size
}

func (that *Board) InBounds(pos Position) bool {
	return pos.X >= 0 && pos.X < that.size && pos.Y >= 0 && pos.Y < that.size
}

// At returns the mark on pos, MarkNone when the cell is empty or off the board.
func (that *Board) At(pos Position) Mark {
	return that.cells[pos]
}

func (that *Board) Occupied(pos Position) bool {
	_, ok := that.cells[pos]
	return ok
}

// Place sets pos to mark. Out-of-bounds is reported before occupancy.
func (that *Board) Place(pos Position, mark Mark) error {
	if !that.InBounds(pos) {
		return fmt.Errorf("%w: %s on %dx%d", apperror.ErrOutOfBounds, pos, that.size, that.size)
	}

	if that.Occupied(pos) {
		return fmt.Errorf("%w: %s", apperror.ErrOccupied, pos)
	}

	that.cells[pos] = mark

	return nil
}

func (that *Board) Clone() *Board {
	cells := make(map[Position]Mark, len(that.cells))
	for pos, mark := range that.cells {
		cells[pos] = mark
	}

	return &Board{size: that.size, cells: cells}
}

func (that *Board) Len() int {
	return len(that.cells)
}

func (that *Board) Full() bool {
	return len(that.cells) >= that.size*that.size
}

// Stones lists every placed stone ordered by row then column.
func (that *Board) Stones() []Stone {
	stones := make([]Stone, 0, len(that.cells))
	for pos, mark := range that.cells {
		stones = append(stones, Stone{Position: pos, Mark: mark})
	}

	sort.Slice(stones, func(i, j int) bool {
		if stones[i].Position.Y != stones[j].Position.Y {
			return stones[i].Position.Y < stones[j].Position.Y
		}
		return stones[i].Position.X < stones[j].Position.X
	})

	return stones
}

type boardJSON struct {
	Size   int     `json:"size"`
	Stones []Stone `json:"stones"`
}

func (that *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(boardJSON{Size: that.size, Stones: that.Stones()})
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var raw boardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal board: %w", err)
	}

	board := NewBoard(raw.Size)
	for _, stone := range raw.Stones {
		if err := board.Place(stone.Position, stone.Mark); err != nil {
			return fmt.Errorf("invalid stone: %w", err)
		}
	}

	*that = *board

	return nil
}
