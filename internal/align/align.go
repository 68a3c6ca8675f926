// Package align attaches transcript utterances to sampled frames by
// timestamp so each storyboard frame carries the dialogue spoken while it
// was on screen.
package align

import (
	"github.com/frameforge/frameforge/internal/sampler"
	"github.com/frameforge/frameforge/internal/storyboard"
)

// Attach maps frame numbers to the dialogue lines spoken during them.
// An utterance is attached to every frame whose timestamp falls inside
// [start, end). When no frame lands inside the utterance window, the line
// goes to the nearest frame at or before the utterance start; an utterance
// that precedes every frame goes to the first frame. Frames without
// dialogue have no map entry.
//
// Both sequences must be ordered by time: frames by timestamp, utterances
// by start. A single cursor advances over the frames as the utterance
// windows advance, so the merge is one forward pass.
func Attach(frames []sampler.Frame, utterances []storyboard.Utterance) map[int][]string {
	lines := make(map[int][]string)
	if len(frames) == 0 {
		return lines
	}

	i := 0
	for _, u := range utterances {
		if u.Text == "" {
			continue
		}

		// Advance to the first frame at or after the utterance start.
		for i < len(frames) && frames[i].Timestamp < u.StartSeconds {
			i++
		}

		j := i
		for j < len(frames) && frames[j].Timestamp < u.EndSeconds {
			lines[frames[j].Number] = append(lines[frames[j].Number], u.Text)
			j++
		}
		if j > i {
			continue
		}

		// Empty window. Attach to the frame at the start if one sits there,
		// otherwise to the last frame before it.
		switch {
		case i < len(frames) && frames[i].Timestamp == u.StartSeconds:
			lines[frames[i].Number] = append(lines[frames[i].Number], u.Text)
		case i > 0:
			lines[frames[i-1].Number] = append(lines[frames[i-1].Number], u.Text)
		default:
			lines[frames[0].Number] = append(lines[frames[0].Number], u.Text)
		}
	}

	return lines
}
