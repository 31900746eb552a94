package gomoku

import "github.com/rocketscienceinc/gomoku-backend/internal/entity"

const (
	fiveLength = entity.DefaultWinLength
	radius     = 5
	lineLength = 2*radius + 1
	center     = radius
)

type cell uint8

const (
	cellEmpty cell = iota
	cellOwn
	cellBlocked
)

// line is a window of cells through the simulated stone along one direction; index center is the stone.
type line [lineLength]cell

// DetectForbidden reports whether placing mark on pos breaks the constrained-side rules.
// Only constrained is ever restricted. An exact five always wins and is never forbidden.
func DetectForbidden(board *entity.Board, pos entity.Position, mark, constrained entity.Mark) Forbidden {
	if mark != constrained || !board.InBounds(pos) || board.Occupied(pos) {
		return Forbidden{}
	}

	sim := board.Clone()
	if err := sim.Place(pos, mark); err != nil {
		return Forbidden{}
	}

	lines := make([]line, 0, len(Directions))
	for _, dir := range Directions {
		lines = append(lines, readLine(sim, pos, dir, mark))
	}

	for _, l := range lines {
		if l.run() == fiveLength {
			return Forbidden{}
		}
	}

	for _, l := range lines {
		if l.run() > fiveLength {
			return Forbidden{Forbidden: true, Reason: ReasonOverline}
		}
	}

	fours, threes := 0, 0
	for _, l := range lines {
		if n := l.fours(); n > 0 {
			fours += n
			continue
		}

		if l.hasOpenThree() {
			threes++
		}
	}

	switch {
	case fours >= 2:
		return Forbidden{Forbidden: true, Reason: ReasonDoubleFour}
	case threes >= 2:
		return Forbidden{Forbidden: true, Reason: ReasonDoubleThree}
	default:
		return Forbidden{}
	}
}

func readLine(board *entity.Board, pos, dir entity.Position, mark entity.Mark) line {
	var l line

	for i := range l {
		offset := i - center
		p := entity.Position{X: pos.X + offset*dir.X, Y: pos.Y + offset*dir.Y}

		switch {
		case !board.InBounds(p):
			l[i] = cellBlocked
		case board.At(p) == mark:
			l[i] = cellOwn
		case board.Occupied(p):
			l[i] = cellBlocked
		default:
			l[i] = cellEmpty
		}
	}

	return l
}

// run is the length of the contiguous own stones through the center.
func (l line) run() int {
	n := 1
	for i := center - 1; i >= 0 && l[i] == cellOwn; i-- {
		n++
	}

	for i := center + 1; i < lineLength && l[i] == cellOwn; i++ {
		n++
	}

	return n
}

// fours counts the distinct four-stone groups through the center that one more stone turns into an exact five.
// An open four is one group; X.XXX.X holds two.
func (l line) fours() int {
	groups := make(map[uint16]struct{})

	for start := center - fiveLength + 1; start <= center; start++ {
		own, empty := 0, 0
		var mask uint16

		for i := start; i < start+fiveLength; i++ {
			switch l[i] {
			case cellOwn:
				own++
				mask |= 1 << i
			case cellEmpty:
				empty++
			}
		}

		if own != fiveLength-1 || empty != 1 {
			continue
		}

		if l[start-1] == cellOwn || l[start+fiveLength] == cellOwn {
			continue
		}

		groups[mask] = struct{}{}
	}

	return len(groups)
}

// hasOpenThree reports whether one more stone on this line makes a straight four through the center.
// The completing stone is not itself checked for being forbidden.
func (l line) hasOpenThree() bool {
	for i := range l {
		if l[i] != cellEmpty {
			continue
		}

		filled := l
		filled[i] = cellOwn

		if filled.hasStraightFour() {
			return true
		}
	}

	return false
}

// hasStraightFour reports four contiguous own stones through the center with both ends open
// and neither completion becoming an overline.
func (l line) hasStraightFour() bool {
	for start := center - 3; start <= center; start++ {
		if start-2 < 0 || start+5 >= lineLength {
			continue
		}

		contiguous := true
		for i := start; i < start+4; i++ {
			if l[i] != cellOwn {
				contiguous = false
				break
			}
		}

		if !contiguous {
			continue
		}

		if l[start-1] == cellEmpty && l[start+4] == cellEmpty && l[start-2] != cellOwn && l[start+5] != cellOwn {
			return true
		}
	}

	return false
}
