package engine

// State is the phase a Processor is in.
type State int

const (
	Scanning State = iota
	Matched
	NoMatch
	Complete
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "SCANNING"
	case Matched:
		return "MATCHED"
	case NoMatch:
		return "NO_MATCH"
	case Complete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}
