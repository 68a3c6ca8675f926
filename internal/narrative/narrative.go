// Package narrative turns the enriched frame timeline into a screenplay
// treatment. Synthesis is best effort: when it fails or times out the job
// ships without a screenplay.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/frameforge/frameforge/internal/storyboard"
)

// Generation methods.
const (
	// MethodCaptions builds the screenplay from the caption and dialogue
	// timeline. Cheap and the default.
	MethodCaptions = "captions"

	// MethodVideo uploads the source video for direct multimodal analysis.
	// Slower and pricier, but sees motion and composition the captions miss.
	MethodVideo = "video"
)

// maxTimelineFrames bounds the number of frames included in a captions
// prompt. Beyond this the timeline is strategically sampled to keep the
// prompt representative without ballooning.
const maxTimelineFrames = 15

// FrameContext is one frame's contribution to the synthesis prompt.
type FrameContext struct {
	Number    int
	Timestamp float64
	Caption   string
	Dialogue  []string
}

// Request carries everything a synthesizer might need. VideoPath is only
// consulted by the video method.
type Request struct {
	Method          string
	Frames          []FrameContext
	VideoPath       string
	DurationSeconds float64
}

// Synthesizer produces a screenplay treatment for a video.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*storyboard.Screenplay, error)
}

// screenplayResponse mirrors the strict JSON the model is asked to return.
type screenplayResponse struct {
	Logline        string `json:"logline"`
	Synopsis       string `json:"synopsis"`
	Screenplay     string `json:"screenplay"`
	SceneBreakdown string `json:"scene_breakdown"`
	VisualStyle    string `json:"visual_style"`
	Themes         string `json:"themes"`
}

// normalize converts a parsed response into the public Screenplay shape.
// Missing fields stay empty strings so consumers never see absent keys.
func normalize(resp screenplayResponse, model, method string) *storyboard.Screenplay {
	return &storyboard.Screenplay{
		Logline:          strings.TrimSpace(resp.Logline),
		Synopsis:         strings.TrimSpace(resp.Synopsis),
		ScreenplayText:   strings.TrimSpace(resp.Screenplay),
		SceneBreakdown:   strings.TrimSpace(resp.SceneBreakdown),
		VisualStyle:      strings.TrimSpace(resp.VisualStyle),
		Themes:           strings.TrimSpace(resp.Themes),
		ModelUsed:        model,
		GenerationMethod: method,
	}
}

// sampleTimeline reduces long frame sequences to maxTimelineFrames entries:
// the opening five, five spread across the middle, and the closing five.
// Beginnings and endings carry the most narrative signal; the middle is
// thinned evenly.
func sampleTimeline(frames []FrameContext) []FrameContext {
	if len(frames) <= maxTimelineFrames {
		return frames
	}

	const edge = 5
	middle := frames[edge : len(frames)-edge]
	step := len(middle) / edge

	sampled := make([]FrameContext, 0, maxTimelineFrames)
	sampled = append(sampled, frames[:edge]...)
	for i := 0; i < edge; i++ {
		sampled = append(sampled, middle[i*step])
	}
	sampled = append(sampled, frames[len(frames)-edge:]...)
	return sampled
}

// buildTimelinePrompt renders the frame timeline for the captions method.
func buildTimelinePrompt(frames []FrameContext, durationSeconds float64) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Video duration: %.1f seconds.\n", durationSeconds))
	sb.WriteString("Frame timeline:\n")

	for _, f := range sampleTimeline(frames) {
		sb.WriteString(fmt.Sprintf("[%.1fs] %s", f.Timestamp, f.Caption))
		if len(f.Dialogue) > 0 {
			sb.WriteString(fmt.Sprintf(" | Dialogue: %s", strings.Join(f.Dialogue, " / ")))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(screenplayInstructions)
	return sb.String()
}

// screenplayInstructions is appended to every synthesis prompt. The strict
// JSON contract lets the response be machine parsed.
const screenplayInstructions = `Based on this video, write a screenplay treatment.
Respond with ONLY a JSON object in this exact shape, no markdown fences:
{
  "logline": "one-sentence premise",
  "synopsis": "one-paragraph summary of the story",
  "screenplay": "a short screenplay treatment with scene headings and action lines",
  "scene_breakdown": "numbered list describing each distinct scene",
  "visual_style": "description of the cinematography and visual tone",
  "themes": "comma-separated list of the themes present"
}`
