package nomatch

import (
	"github.com/amitshokeen/streamflyer/pkg/modify"
)

// Default is the policy applied when every handler abstains. It finalizes
// the text the matcher proved dead and then:
//   - at end of stream, stops once the buffer is exhausted;
//   - otherwise asks for more input when nothing is left to scan;
//   - otherwise scans again from the first position that may start a match.
//
// An Again directive always moves past Start, so the policy cannot livelock.
func Default(ev Event) modify.AfterModification {
	skip := ev.Start - ev.FirstModifiable + ev.SafeSkip
	exhausted := ev.FirstModifiable+skip >= ev.Buffer.Len()

	if ev.EOS {
		if ev.SafeSkip == 0 || exhausted {
			return modify.Stop(ev.Buffer, ev.FirstModifiable)
		}
		return modify.ModifyAgainImmediately(skip)
	}
	if ev.SafeSkip == 0 {
		return modify.FetchMoreInput(ev.Start - ev.FirstModifiable)
	}
	if exhausted {
		return modify.FetchMoreInput(skip)
	}
	return modify.ModifyAgainImmediately(skip)
}
