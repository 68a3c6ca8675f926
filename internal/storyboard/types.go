// Package storyboard defines the storyboard data model and the assembler
// that merges sampler, enrichment, narrative, and publisher outputs into a
// single immutable result.
package storyboard

// Extraction methods reported on a StoryboardResult.
const (
	MethodFixedInterval  = "fixed_interval"
	MethodSceneDetection = "scene_detection"
)

// Utterance is one transcribed speech segment with its time bounds.
type Utterance struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Text         string  `json:"text"`
	Language     string  `json:"language,omitempty"`
}

// Frame is the public projection of one sampled video instant: the local
// image has been replaced by a published reference URL and enrichment data
// has been attached.
type Frame struct {
	FrameNumber      int      `json:"frame_number"`
	TimestampSeconds float64  `json:"timestamp_seconds"`
	SceneNumber      *int     `json:"scene_number,omitempty"`
	FrameURL         string   `json:"frame_url"`
	Caption          string   `json:"caption"`
	DialogueLines    []string `json:"dialogue_lines"`
}

// Screenplay is the narrative synthesis output. All fields are plain strings;
// a sub-field the model did not produce stays an empty string, never an
// omitted key.
type Screenplay struct {
	Logline          string `json:"logline"`
	Synopsis         string `json:"synopsis"`
	ScreenplayText   string `json:"screenplay_text"`
	SceneBreakdown   string `json:"scene_breakdown"`
	VisualStyle      string `json:"visual_style"`
	Themes           string `json:"themes"`
	ModelUsed        string `json:"model_used"`
	GenerationMethod string `json:"generation_method"`
}

// StoryboardResult is a job's final output. It is never mutated after
// assembly.
type StoryboardResult struct {
	JobID                string      `json:"job_id"`
	TotalFrames          int         `json:"total_frames"`
	VideoDurationSeconds float64     `json:"video_duration_seconds"`
	ExtractionMethod     string      `json:"extraction_method"`
	HasAudio             bool        `json:"has_audio"`
	Language             string      `json:"language,omitempty"`
	Frames               []Frame     `json:"frames"`
	Screenplay           *Screenplay `json:"screenplay"`
}
