package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
)

// OpeningPhase is a step of the balanced start (swap2) protocol. Phases only move forward.
type OpeningPhase uint8

const (
	PhasePlacement OpeningPhase = iota
	PhaseChoice
	PhaseExtraPlacement
	PhaseFinalChoice
	PhaseComplete
)

var openingPhaseNames = map[OpeningPhase]string{
	PhasePlacement:      "placement",
	PhaseChoice:         "choice",
	PhaseExtraPlacement: "extra_placement",
	PhaseFinalChoice:    "final_choice",
	PhaseComplete:       "complete",
}

func (p OpeningPhase) String() string {
	return openingPhaseNames[p]
}

func (p OpeningPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *OpeningPhase) UnmarshalText(text []byte) error {
	for phase, name := range openingPhaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}

	return fmt.Errorf("%w: unknown opening phase %q", apperror.ErrInvalidPhase, text)
}

type OpeningChoice uint8

const (
	ChoiceNone OpeningChoice = iota
	ChoiceTakeBlack
	ChoiceTakeWhite
	ChoicePlaceMore
)

var openingChoiceNames = map[OpeningChoice]string{
	ChoiceTakeBlack: "take_black",
	ChoiceTakeWhite: "take_white",
	ChoicePlaceMore: "place_more",
}

func (c OpeningChoice) String() string {
	return openingChoiceNames[c]
}

func (c OpeningChoice) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *OpeningChoice) UnmarshalText(text []byte) error {
	choice, err := ParseOpeningChoice(string(text))
	if err != nil {
		return err
	}

	*c = choice

	return nil
}

func ParseOpeningChoice(value string) (OpeningChoice, error) {
	switch value {
	case "take_black", "take-black":
		return ChoiceTakeBlack, nil
	case "take_white", "take-white":
		return ChoiceTakeWhite, nil
	case "place_more", "place-more", "place_two_more":
		return ChoicePlaceMore, nil
	default:
		return ChoiceNone, fmt.Errorf("%w: %q", apperror.ErrInvalidChoice, value)
	}
}

type openingRole uint8

const (
	roleFirst openingRole = iota + 1
	roleSecond
)

// phaseActor says who may act in each phase.
var phaseActor = map[OpeningPhase]openingRole{
	PhasePlacement:      roleFirst,
	PhaseChoice:         roleSecond,
	PhaseExtraPlacement: roleSecond,
	PhaseFinalChoice:    roleFirst,
}

// placementQuota closes a placement phase once the tentative stone count is reached.
var placementQuota = map[OpeningPhase]struct {
	stones int
	next   OpeningPhase
}{
	PhasePlacement:      {stones: 3, next: PhaseChoice},
	PhaseExtraPlacement: {stones: 5, next: PhaseFinalChoice},
}

// choiceTransitions is the legal option set of each choice phase and where each option leads.
var choiceTransitions = map[OpeningPhase]map[OpeningChoice]OpeningPhase{
	PhaseChoice: {
		ChoiceTakeBlack: PhaseComplete,
		ChoiceTakeWhite: PhaseComplete,
		ChoicePlaceMore: PhaseExtraPlacement,
	},
	PhaseFinalChoice: {
		ChoiceTakeBlack: PhaseComplete,
		ChoiceTakeWhite: PhaseComplete,
	},
}

// PlacementMark is the colour of a tentative stone: orders 1, 3, 4 are black, 2 and 5 are white.
func PlacementMark(order int) Mark {
	switch order {
	case 2, 5:
		return MarkSecond
	default:
		return MarkFirst
	}
}

type TentativeStone struct {
	Position       Position `json:"position"`
	PlacementOrder int      `json:"placement_order"`
	PlacedBy       string   `json:"placed_by"`
}

type Assignment struct {
	FirstMoverID  string `json:"first_mover_id"`
	SecondMoverID string `json:"second_mover_id"`
}

const (
	OpeningActionPlace  = "place"
	OpeningActionChoose = "choose"
)

// OpeningAction is one accepted step, kept for auditing the outcome of the opening.
type OpeningAction struct {
	Kind          string        `json:"kind"`
	ParticipantID string        `json:"participant_id"`
	Phase         OpeningPhase  `json:"phase"`
	Position      *Position     `json:"position,omitempty"`
	Choice        OpeningChoice `json:"choice,omitempty"`
	At            time.Time     `json:"at"`
}

type OpeningState struct {
	Phase               OpeningPhase     `json:"phase"`
	TentativeStones     []TentativeStone `json:"tentative_stones"`
	ActiveParticipantID string           `json:"active_participant_id"`
	FirstParticipantID  string           `json:"first_participant_id"`
	SecondParticipantID string           `json:"second_participant_id"`
	FinalAssignment     *Assignment      `json:"final_assignment,omitempty"`
	Log                 []OpeningAction  `json:"log"`
}

// NewOpening starts the protocol with first placing the initial three stones.
func NewOpening(firstID, secondID string) *OpeningState {
	return &OpeningState{
		Phase:               PhasePlacement,
		TentativeStones:     make([]TentativeStone, 0, 5),
		ActiveParticipantID: firstID,
		FirstParticipantID:  firstID,
		SecondParticipantID: secondID,
	}
}

func (that *OpeningState) IsComplete() bool {
	return that.Phase == PhaseComplete
}

// Place records a tentative stone for the active participant.
func (that *OpeningState) Place(participantID string, pos Position, boardSize int, at time.Time) error {
	quota, ok := placementQuota[that.Phase]
	if !ok {
		return fmt.Errorf("%w: cannot place a stone during %s", apperror.ErrInvalidPhase, that.Phase)
	}

	if err := that.checkActor(participantID); err != nil {
		return err
	}

	if pos.X < 0 || pos.X >= boardSize || pos.Y < 0 || pos.Y >= boardSize {
		return fmt.Errorf("%w: %s", apperror.ErrOutOfBounds, pos)
	}

	for _, stone := range that.TentativeStones {
		if stone.Position == pos {
			return fmt.Errorf("%w: %s", apperror.ErrOccupied, pos)
		}
	}

	that.TentativeStones = append(that.TentativeStones, TentativeStone{
		Position:       pos,
		PlacementOrder: len(that.TentativeStones) + 1,
		PlacedBy:       participantID,
	})

	that.Log = append(that.Log, OpeningAction{
		Kind:          OpeningActionPlace,
		ParticipantID: participantID,
		Phase:         that.Phase,
		Position:      &pos,
		At:            at,
	})

	if len(that.TentativeStones) == quota.stones {
		that.advance(quota.next)
	}

	return nil
}

// Choose applies a choice of the active participant in Choice or FinalChoice.
func (that *OpeningState) Choose(participantID string, choice OpeningChoice, at time.Time) error {
	options, ok := choiceTransitions[that.Phase]
	if !ok {
		return fmt.Errorf("%w: cannot choose during %s", apperror.ErrInvalidPhase, that.Phase)
	}

	if err := that.checkActor(participantID); err != nil {
		return err
	}

	next, ok := options[choice]
	if !ok {
		return fmt.Errorf("%w: %q is not allowed during %s", apperror.ErrInvalidChoice, choice, that.Phase)
	}

	that.Log = append(that.Log, OpeningAction{
		Kind:          OpeningActionChoose,
		ParticipantID: participantID,
		Phase:         that.Phase,
		Choice:        choice,
		At:            at,
	})

	if next == PhaseComplete {
		that.assign(participantID, choice)
	}

	that.advance(next)

	return nil
}

// Stones returns the tentative stones with their colours, in placement order.
func (that *OpeningState) Stones() []Stone {
	stones := make([]Stone, 0, len(that.TentativeStones))
	for _, stone := range that.TentativeStones {
		stones = append(stones, Stone{Position: stone.Position, Mark: PlacementMark(stone.PlacementOrder)})
	}

	return stones
}

// NextMark is the colour to move once the opening is committed: the opposite of the last stone.
func (that *OpeningState) NextMark() Mark {
	if len(that.TentativeStones) == 0 {
		return MarkFirst
	}

	last := that.TentativeStones[len(that.TentativeStones)-1]

	return PlacementMark(last.PlacementOrder).Opposite()
}

func (that *OpeningState) Clone() *OpeningState {
	clone := *that
	clone.TentativeStones = append([]TentativeStone(nil), that.TentativeStones...)
	clone.Log = append([]OpeningAction(nil), that.Log...)

	if that.FinalAssignment != nil {
		assignment := *that.FinalAssignment
		clone.FinalAssignment = &assignment
	}

	return &clone
}

func (that *OpeningState) checkActor(participantID string) error {
	if participantID != that.ActiveParticipantID {
		return fmt.Errorf("%w: waiting for %s", apperror.ErrNotYourTurn, that.ActiveParticipantID)
	}

	return nil
}

func (that *OpeningState) advance(next OpeningPhase) {
	if next < that.Phase {
		panic(errors.New("opening phase cannot move backwards"))
	}

	that.Phase = next

	switch phaseActor[next] {
	case roleFirst:
		that.ActiveParticipantID = that.FirstParticipantID
	case roleSecond:
		that.ActiveParticipantID = that.SecondParticipantID
	default:
		that.ActiveParticipantID = ""
	}
}

func (that *OpeningState) assign(chooserID string, choice OpeningChoice) {
	other := that.FirstParticipantID
	if chooserID == that.FirstParticipantID {
		other = that.SecondParticipantID
	}

	if choice == ChoiceTakeBlack {
		that.FinalAssignment = &Assignment{FirstMoverID: chooserID, SecondMoverID: other}
		return
	}

	that.FinalAssignment = &Assignment{FirstMoverID: other, SecondMoverID: chooserID}
}
