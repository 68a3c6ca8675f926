package narrative

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/frameforge/frameforge/internal/jsonutil"
	"github.com/frameforge/frameforge/internal/media"
	"github.com/frameforge/frameforge/internal/metrics"
	"github.com/frameforge/frameforge/internal/storyboard"
)

const (
	// captionsModel handles the text-only timeline prompt.
	captionsModel = "gemini-3-flash-preview"

	// videoModel handles direct video analysis, which needs the stronger
	// multimodal model.
	videoModel = "gemini-3-pro-preview"

	uploadPollingInterval = 5 * time.Second
	uploadTimeout         = 10 * time.Minute
)

// Gemini synthesizes screenplays with the Gemini API.
type Gemini struct {
	client *genai.Client
}

// NewGemini returns a Gemini synthesizer.
func NewGemini(client *genai.Client) *Gemini {
	return &Gemini{client: client}
}

// Synthesize dispatches to the captions or video method. Unknown methods
// fall back to captions.
func (g *Gemini) Synthesize(ctx context.Context, req Request) (*storyboard.Screenplay, error) {
	switch req.Method {
	case MethodVideo:
		return g.synthesizeFromVideo(ctx, req)
	case MethodCaptions:
		return g.synthesizeFromCaptions(ctx, req)
	default:
		log.Warn().Str("method", req.Method).Msg("Unknown narrative method, using captions")
		return g.synthesizeFromCaptions(ctx, req)
	}
}

func (g *Gemini) synthesizeFromCaptions(ctx context.Context, req Request) (*storyboard.Screenplay, error) {
	if len(req.Frames) == 0 {
		return nil, fmt.Errorf("no frames available for caption-based synthesis")
	}

	prompt := buildTimelinePrompt(req.Frames, req.DurationSeconds)

	log.Info().
		Int("frames", len(req.Frames)).
		Int("prompt_length", len(prompt)).
		Str("model", captionsModel).
		Msg("Synthesizing screenplay from captions")

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}

	callStart := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, captionsModel, contents, nil)
	duration := time.Since(callStart)
	if err != nil {
		return nil, fmt.Errorf("failed to generate screenplay: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("received empty response from Gemini API")
	}

	metrics.New("FrameForge").
		Dimension("Operation", "narrativeCaptions").
		Metric("GeminiCallMs", float64(duration.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls").
		Flush()

	return g.parseScreenplay(resp.Text(), captionsModel, MethodCaptions)
}

func (g *Gemini) synthesizeFromVideo(ctx context.Context, req Request) (*storyboard.Screenplay, error) {
	if req.VideoPath == "" {
		return nil, fmt.Errorf("video method requires a source video path")
	}

	file, err := g.uploadVideo(ctx, req.VideoPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if _, err := g.client.Files.Delete(ctx, file.Name, nil); err != nil {
			log.Warn().Err(err).Str("name", file.Name).Msg("Failed to delete uploaded video")
		}
	}()

	log.Info().
		Str("model", videoModel).
		Str("file", file.Name).
		Msg("Synthesizing screenplay from video")

	parts := []*genai.Part{
		{
			FileData: &genai.FileData{
				MIMEType: media.ContentTypeForVideo(req.VideoPath),
				FileURI:  file.URI,
			},
		},
		{Text: screenplayInstructions},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	callStart := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, videoModel, contents, nil)
	duration := time.Since(callStart)
	if err != nil {
		return nil, fmt.Errorf("failed to generate screenplay from video: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("received empty response from Gemini API")
	}

	metrics.New("FrameForge").
		Dimension("Operation", "narrativeVideo").
		Metric("GeminiCallMs", float64(duration.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls").
		Flush()

	return g.parseScreenplay(resp.Text(), videoModel, MethodVideo)
}

func (g *Gemini) parseScreenplay(raw, model, method string) (*storyboard.Screenplay, error) {
	parsed, err := jsonutil.ParseJSON[screenplayResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse screenplay response: %w", err)
	}
	return normalize(parsed, model, method), nil
}

// uploadVideo pushes the source video through the Files API and waits for
// server-side processing to finish.
func (g *Gemini) uploadVideo(ctx context.Context, videoPath string) (*genai.File, error) {
	f, err := os.Open(videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat video: %w", err)
	}

	log.Debug().
		Str("path", videoPath).
		Int64("size_bytes", info.Size()).
		Msg("Uploading video to Gemini Files API")

	uploadStart := time.Now()
	file, err := g.client.Files.Upload(ctx, f, &genai.UploadFileConfig{
		MIMEType: media.ContentTypeForVideo(videoPath),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}

	deadline := time.Now().Add(uploadTimeout)
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout waiting for video processing after %v", uploadTimeout)
		}

		log.Debug().Str("state", string(file.State)).Msg("Video still processing, waiting...")
		time.Sleep(uploadPollingInterval)

		file, err = g.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get file state: %w", err)
		}
	}

	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("video processing failed")
	}

	totalUploadTime := time.Since(uploadStart)
	log.Info().
		Str("name", file.Name).
		Dur("total_time", totalUploadTime).
		Msg("Video ready for inference")

	metrics.New("FrameForge").
		Dimension("Operation", "filesApiUpload").
		Metric("GeminiFilesApiUploadMs", float64(totalUploadTime.Milliseconds()), metrics.UnitMilliseconds).
		Metric("GeminiFilesApiUploadBytes", float64(info.Size()), metrics.UnitBytes).
		Count("GeminiApiCalls").
		Flush()

	return file, nil
}
