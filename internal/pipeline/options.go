package pipeline

import (
	"fmt"
	"time"

	"github.com/frameforge/frameforge/internal/narrative"
	"github.com/frameforge/frameforge/internal/sampler"
)

// Options are the per-job knobs a client may set on upload.
type Options struct {
	// IntervalSeconds is the fixed sampling interval.
	IntervalSeconds float64

	// UseSceneDetection switches sampling to content-driven boundaries.
	UseSceneDetection bool

	// SceneThreshold is the content-change score (0-100) above which a
	// scene boundary is emitted.
	SceneThreshold float64

	// EnableAudio toggles audio transcription for videos that have an
	// audio stream.
	EnableAudio bool

	// WhisperModel overrides the whisper model size. Empty picks by
	// duration.
	WhisperModel string

	// EnableNarrative toggles screenplay synthesis.
	EnableNarrative bool

	// NarrativeMethod is captions or video.
	NarrativeMethod string

	// NarrativeTimeout bounds how long synthesis may delay the job.
	NarrativeTimeout time.Duration

	// CaptionWorkers sizes the captioning worker pool.
	CaptionWorkers int
}

// DefaultOptions returns the options used when the client sets nothing.
func DefaultOptions() Options {
	return Options{
		IntervalSeconds:  sampler.DefaultIntervalSeconds,
		SceneThreshold:   sampler.DefaultSceneThreshold,
		EnableAudio:      true,
		EnableNarrative:  true,
		NarrativeMethod:  narrative.MethodCaptions,
		NarrativeTimeout: 2 * time.Minute,
		CaptionWorkers:   0,
	}
}

// validWhisperModels are the model sizes clients may request.
var validWhisperModels = map[string]bool{
	"":       true,
	"base":   true,
	"small":  true,
	"medium": true,
}

// Validate rejects option combinations the pipeline cannot honor.
func (o Options) Validate() error {
	if o.IntervalSeconds <= 0 || o.IntervalSeconds > 10 {
		return fmt.Errorf("interval_seconds must be in (0, 10], got %v", o.IntervalSeconds)
	}
	if o.SceneThreshold <= 0 || o.SceneThreshold > 100 {
		return fmt.Errorf("scene_threshold must be in (0, 100], got %v", o.SceneThreshold)
	}
	if o.NarrativeMethod != narrative.MethodCaptions && o.NarrativeMethod != narrative.MethodVideo {
		return fmt.Errorf("narrative_method must be %q or %q, got %q",
			narrative.MethodCaptions, narrative.MethodVideo, o.NarrativeMethod)
	}
	if o.NarrativeTimeout <= 0 {
		return fmt.Errorf("narrative timeout must be positive, got %v", o.NarrativeTimeout)
	}
	if !validWhisperModels[o.WhisperModel] {
		return fmt.Errorf("whisper_model must be base, small, or medium, got %q", o.WhisperModel)
	}
	return nil
}
