package storyboard

import (
	"fmt"

	"github.com/frameforge/frameforge/internal/jobs"
)

// FrameInput is the sampler's view of one frame, before enrichment data is
// folded in.
type FrameInput struct {
	Number    int
	Timestamp float64
	Scene     *int
}

// AssembleInput collects every stage's output for final assembly. Captions,
// Dialogue, and FrameURLs are keyed by frame number.
type AssembleInput struct {
	JobID            string
	DurationSeconds  float64
	ExtractionMethod string
	HasAudio         bool
	Language         string
	Frames           []FrameInput
	Captions         map[int]string
	Dialogue         map[int][]string
	FrameURLs        map[int]string
	Screenplay       *Screenplay
}

// Assemble merges the stage outputs into an immutable StoryboardResult.
// It cross-checks the invariants every downstream consumer relies on: a
// non-empty frame sequence with strictly increasing timestamps, and a
// caption and reference URL for every frame. A violation means a pipeline
// bug, reported as an internal error.
func Assemble(in AssembleInput) (*StoryboardResult, error) {
	if len(in.Frames) == 0 {
		return nil, jobs.Internal("storyboard has no frames", nil)
	}

	frames := make([]Frame, 0, len(in.Frames))
	prev := -1.0
	for i, f := range in.Frames {
		if i > 0 && f.Timestamp <= prev {
			return nil, jobs.Internal(
				fmt.Sprintf("frame timestamps not strictly increasing: %.3f after %.3f", f.Timestamp, prev), nil)
		}
		prev = f.Timestamp

		url, ok := in.FrameURLs[f.Number]
		if !ok || url == "" {
			return nil, jobs.Internal(fmt.Sprintf("frame %d has no reference URL", f.Number), nil)
		}

		caption, ok := in.Captions[f.Number]
		if !ok || caption == "" {
			return nil, jobs.Internal(fmt.Sprintf("frame %d has no caption", f.Number), nil)
		}

		dialogue := in.Dialogue[f.Number]
		if dialogue == nil {
			dialogue = []string{}
		}

		frames = append(frames, Frame{
			FrameNumber:      f.Number,
			TimestampSeconds: f.Timestamp,
			SceneNumber:      f.Scene,
			FrameURL:         url,
			Caption:          caption,
			DialogueLines:    dialogue,
		})
	}

	return &StoryboardResult{
		JobID:                in.JobID,
		TotalFrames:          len(frames),
		VideoDurationSeconds: in.DurationSeconds,
		ExtractionMethod:     in.ExtractionMethod,
		HasAudio:             in.HasAudio,
		Language:             in.Language,
		Frames:               frames,
		Screenplay:           in.Screenplay,
	}, nil
}
