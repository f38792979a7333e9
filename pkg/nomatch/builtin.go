package nomatch

import (
	"github.com/amitshokeen/streamflyer/pkg/modify"
	"github.com/amitshokeen/streamflyer/pkg/tokens"
)

// Terminate stops transforming at the first position nothing matches.
// The remainder of the buffer and the stream pass through unchanged.
func Terminate() Handler {
	return Funcs{
		Modification: func(ev Event, _ modify.AfterModification) (*modify.AfterModification, error) {
			am := modify.Stop(ev.Buffer, ev.FirstModifiable)
			return &am, nil
		},
	}
}

// Counter counts the events it sees and always abstains. It is not safe for
// concurrent use; give each stream its own Counter.
type Counter struct {
	NoMatches int // scans that found nothing
	Gaps      int // matches preceded by unmatched text
}

func (c *Counter) ProcessNoMatch(Event, modify.AfterModification) (*modify.AfterModification, error) {
	c.NoMatches++
	return nil, nil
}

func (c *Counter) ProcessNoMatchResult(_ Event, m *tokens.Match) (*tokens.Match, error) {
	if m != nil {
		c.Gaps++
	}
	return nil, nil
}

// TextObserver returns a handler that passes unmatched text to fn as it is
// finalized, and otherwise abstains. Text before a match is reported from the
// match hook; text after the last match is reported with the range the
// default policy would finalize.
func TextObserver(fn func(string)) Handler {
	return Funcs{
		Modification: func(ev Event, def modify.AfterModification) (*modify.AfterModification, error) {
			if end := ev.FirstModifiable + def.Skip; end > ev.Start {
				fn(ev.Buffer.Slice(ev.Start, end))
			}
			return nil, nil
		},
		Match: func(ev Event, m *tokens.Match) (*tokens.Match, error) {
			if m != nil && m.Start() > ev.Start {
				fn(ev.Buffer.Slice(ev.Start, m.Start()))
			}
			return nil, nil
		},
	}
}
