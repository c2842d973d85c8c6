package pager

import "fmt"

// Direction is the side of the loaded range a page is fetched for.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// ParseDirection accepts "forward"/"next" and "backward"/"prev".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "forward", "next":
		return Forward, nil
	case "backward", "prev", "previous":
		return Backward, nil
	default:
		return Forward, fmt.Errorf("unknown direction %q", s)
	}
}

// State is the load state of a pager for its current search term.
type State int

const (
	Idle State = iota
	LoadingForward
	LoadingBackward
	Error
	Exhausted // no forward page left; backward loads still allowed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingForward:
		return "loading_forward"
	case LoadingBackward:
		return "loading_backward"
	case Error:
		return "error"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
