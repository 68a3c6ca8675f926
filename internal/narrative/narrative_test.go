package narrative

import (
	"strings"
	"testing"

	"github.com/frameforge/frameforge/internal/jsonutil"
)

func makeFrames(n int) []FrameContext {
	frames := make([]FrameContext, n)
	for i := range frames {
		frames[i] = FrameContext{
			Number:    i + 1,
			Timestamp: float64(i) * 2,
			Caption:   "a scene",
		}
	}
	return frames
}

func TestSampleTimelineShortSequenceUntouched(t *testing.T) {
	frames := makeFrames(15)
	got := sampleTimeline(frames)
	if len(got) != 15 {
		t.Errorf("sampleTimeline() len = %d, want 15", len(got))
	}
}

func TestSampleTimelineLongSequence(t *testing.T) {
	frames := makeFrames(60)
	got := sampleTimeline(frames)

	if len(got) != maxTimelineFrames {
		t.Fatalf("sampleTimeline() len = %d, want %d", len(got), maxTimelineFrames)
	}
	// Opening and closing frames survive.
	for i := 0; i < 5; i++ {
		if got[i].Number != frames[i].Number {
			t.Errorf("opening frame %d = %d, want %d", i, got[i].Number, frames[i].Number)
		}
		if got[10+i].Number != frames[55+i].Number {
			t.Errorf("closing frame %d = %d, want %d", i, got[10+i].Number, frames[55+i].Number)
		}
	}
	// Sampled frames remain in order.
	for i := 1; i < len(got); i++ {
		if got[i].Number <= got[i-1].Number {
			t.Errorf("sampled frames out of order at %d: %d <= %d", i, got[i].Number, got[i-1].Number)
		}
	}
}

func TestBuildTimelinePrompt(t *testing.T) {
	frames := []FrameContext{
		{Number: 1, Timestamp: 0, Caption: "a knight draws a sword"},
		{Number: 2, Timestamp: 2, Caption: "the dragon lands", Dialogue: []string{"Stand back!", "It sees us."}},
	}

	prompt := buildTimelinePrompt(frames, 10.0)

	for _, want := range []string{
		"Video duration: 10.0 seconds.",
		"[0.0s] a knight draws a sword",
		"[2.0s] the dragon lands",
		"Dialogue: Stand back! / It sees us.",
		`"logline"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestNormalizeFillsMissingFields(t *testing.T) {
	raw := `{"logline": "A knight faces a dragon.", "themes": "courage, sacrifice"}`

	parsed, err := jsonutil.ParseJSON[screenplayResponse](raw)
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	sp := normalize(parsed, captionsModel, MethodCaptions)

	if sp.Logline != "A knight faces a dragon." {
		t.Errorf("Logline = %q", sp.Logline)
	}
	if sp.Synopsis != "" || sp.ScreenplayText != "" || sp.SceneBreakdown != "" || sp.VisualStyle != "" {
		t.Errorf("missing fields not normalized to empty strings: %+v", sp)
	}
	if sp.Themes != "courage, sacrifice" {
		t.Errorf("Themes = %q", sp.Themes)
	}
	if sp.ModelUsed != captionsModel || sp.GenerationMethod != MethodCaptions {
		t.Errorf("provenance = %q/%q", sp.ModelUsed, sp.GenerationMethod)
	}
}

func TestNormalizeHandlesFencedResponse(t *testing.T) {
	raw := "```json\n{\"logline\": \"Fenced.\", \"synopsis\": \"Still parses.\"}\n```"

	parsed, err := jsonutil.ParseJSON[screenplayResponse](raw)
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	sp := normalize(parsed, videoModel, MethodVideo)

	if sp.Logline != "Fenced." || sp.Synopsis != "Still parses." {
		t.Errorf("fenced response not parsed: %+v", sp)
	}
}

