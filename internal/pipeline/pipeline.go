// Package pipeline orchestrates a storyboard job from probed upload to
// assembled result: sampling, then concurrent captioning, publishing, and
// transcription, then alignment, narrative synthesis, and assembly.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/frameforge/frameforge/internal/align"
	"github.com/frameforge/frameforge/internal/caption"
	"github.com/frameforge/frameforge/internal/jobs"
	"github.com/frameforge/frameforge/internal/media"
	"github.com/frameforge/frameforge/internal/metrics"
	"github.com/frameforge/frameforge/internal/narrative"
	"github.com/frameforge/frameforge/internal/publish"
	"github.com/frameforge/frameforge/internal/sampler"
	"github.com/frameforge/frameforge/internal/storyboard"
	"github.com/frameforge/frameforge/internal/transcribe"
)

// FrameSampler plans and extracts storyboard frames for a video.
type FrameSampler interface {
	Sample(ctx context.Context, videoPath, workDir string, durationSeconds float64, cfg sampler.Config) (*sampler.Result, error)
}

// Pipeline wires the stage implementations for one deployment. Captioner,
// Transcriber, and Synthesizer may be nil when their backing tool is not
// configured; the affected stages degrade instead of failing jobs.
type Pipeline struct {
	Sampler     FrameSampler
	Captioner   caption.Captioner
	Transcriber transcribe.Transcriber
	Synthesizer narrative.Synthesizer
	Publisher   publish.Publisher

	// Probe overrides media probing, for tests. Nil means ffprobe.
	Probe func(ctx context.Context, videoPath string) (*media.Probe, error)
}

// Readiness reports which stages have their backing tools available.
type Readiness struct {
	FFmpeg        bool `json:"ffmpeg"`
	FFprobe       bool `json:"ffprobe"`
	Captioning    bool `json:"captioning"`
	Transcription bool `json:"transcription"`
	Narrative     bool `json:"narrative"`
}

// Readiness checks the pipeline's external tools. A degraded pipeline still
// serves jobs; missing stages surface as sentinel captions, has_audio=false,
// or a nil screenplay.
func (p *Pipeline) Readiness() Readiness {
	r := Readiness{
		FFmpeg:     media.CheckFFmpegAvailable() == nil,
		FFprobe:    media.CheckFFprobeAvailable() == nil,
		Captioning: p.Captioner != nil,
		Narrative:  p.Synthesizer != nil,
	}
	if p.Transcriber != nil {
		r.Transcription = true
		if w, ok := p.Transcriber.(*transcribe.WhisperCLI); ok {
			r.Transcription = w.CheckWhisperAvailable() == nil
		}
	}
	return r
}

// Run executes one job end to end. workDir must be a job-private directory;
// the caller owns its cleanup. The returned result is complete and
// immutable, or the error carries a jobs.Error kind.
func (p *Pipeline) Run(ctx context.Context, jobID, videoPath, workDir string, opts Options) (*storyboard.StoryboardResult, error) {
	jobStart := time.Now()
	rec := metrics.New("FrameForge").
		Dimension("Operation", "storyboardJob").
		Property("JobID", jobID)

	probeFn := p.Probe
	if probeFn == nil {
		probeFn = media.ProbeVideo
	}

	probe, err := probeFn(ctx, videoPath)
	if err != nil {
		return nil, jobs.InvalidMedia("video could not be probed", err)
	}
	if probe.DurationSeconds <= 0 {
		return nil, jobs.InvalidMedia(
			fmt.Sprintf("video has invalid duration %.3fs", probe.DurationSeconds), nil)
	}

	log.Info().
		Str("job_id", jobID).
		Float64("duration_s", probe.DurationSeconds).
		Bool("has_audio", probe.HasAudio).
		Str("codec", probe.Codec).
		Msg("Starting storyboard job")

	sampleStart := time.Now()
	sampleRes, err := p.Sampler.Sample(ctx, videoPath, workDir, probe.DurationSeconds, sampler.Config{
		IntervalSeconds:   opts.IntervalSeconds,
		UseSceneDetection: opts.UseSceneDetection,
		SceneThreshold:    opts.SceneThreshold,
	})
	if err != nil {
		return nil, jobs.InvalidMedia("frame extraction failed", err)
	}
	rec.Duration("SampleStage", time.Since(sampleStart))

	// Captioning, frame publishing, and transcription are independent once
	// frames exist; run them concurrently and barrier before alignment.
	var (
		wg         sync.WaitGroup
		captions   map[int]string
		captionDur time.Duration
		frameURLs  map[int]string
		publishErr error
		publishDur time.Duration
		transcript *transcribe.Transcript
		transcrDur time.Duration
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		start := time.Now()
		captions = p.captionFrames(ctx, sampleRes.Frames, opts.CaptionWorkers)
		captionDur = time.Since(start)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		start := time.Now()
		frameURLs, publishErr = p.Publisher.PublishFrames(ctx, jobID, sampleRes.Frames)
		publishDur = time.Since(start)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := p.Publisher.PublishSource(ctx, jobID, videoPath, media.ContentTypeForVideo(videoPath)); err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("Source video publish failed, continuing")
		}
	}()

	if probe.HasAudio && opts.EnableAudio && p.Transcriber != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			t, err := p.Transcriber.Transcribe(ctx, videoPath, workDir, opts.WhisperModel)
			transcrDur = time.Since(start)
			if err != nil {
				log.Warn().Err(err).Str("job_id", jobID).Msg("Transcription failed, storyboard will have no dialogue")
				return
			}
			transcript = t
		}()
	}

	wg.Wait()

	rec.Duration("CaptionStage", captionDur).Duration("PublishStage", publishDur)
	if transcrDur > 0 {
		rec.Duration("TranscribeStage", transcrDur)
	}

	if publishErr != nil {
		return nil, jobs.PublishFailed("frame publishing failed", publishErr)
	}

	hasAudio := transcript != nil
	language := ""
	var dialogue map[int][]string
	if transcript != nil {
		language = transcript.Language
		dialogue = align.Attach(sampleRes.Frames, transcript.Utterances)
	}

	var screenplay *storyboard.Screenplay
	if opts.EnableNarrative && p.Synthesizer != nil {
		screenplay = p.synthesize(ctx, jobID, videoPath, probe.DurationSeconds, sampleRes.Frames, captions, dialogue, opts, rec)
	}

	frameInputs := make([]storyboard.FrameInput, len(sampleRes.Frames))
	for i, f := range sampleRes.Frames {
		frameInputs[i] = storyboard.FrameInput{Number: f.Number, Timestamp: f.Timestamp, Scene: f.Scene}
	}

	result, err := storyboard.Assemble(storyboard.AssembleInput{
		JobID:            jobID,
		DurationSeconds:  probe.DurationSeconds,
		ExtractionMethod: sampleRes.Method,
		HasAudio:         hasAudio,
		Language:         language,
		Frames:           frameInputs,
		Captions:         captions,
		Dialogue:         dialogue,
		FrameURLs:        frameURLs,
		Screenplay:       screenplay,
	})
	if err != nil {
		return nil, err
	}

	rec.Duration("JobTotal", time.Since(jobStart)).
		Metric("TotalFrames", float64(result.TotalFrames), metrics.UnitCount).
		Count("StoryboardJobs").
		Flush()

	log.Info().
		Str("job_id", jobID).
		Int("total_frames", result.TotalFrames).
		Str("method", result.ExtractionMethod).
		Bool("has_audio", result.HasAudio).
		Bool("has_screenplay", result.Screenplay != nil).
		Dur("duration", time.Since(jobStart)).
		Msg("Storyboard job complete")

	return result, nil
}

// captionFrames runs the caption pool, or fills every frame with the
// sentinel when no captioner is configured.
func (p *Pipeline) captionFrames(ctx context.Context, frames []sampler.Frame, workers int) map[int]string {
	if p.Captioner == nil {
		captions := make(map[int]string, len(frames))
		for _, f := range frames {
			captions[f.Number] = caption.SentinelCaption
		}
		return captions
	}
	return caption.CaptionAll(ctx, p.Captioner, frames, workers)
}

// synthesize runs narrative synthesis under its own deadline. Failure or
// timeout returns nil; the job ships without a screenplay.
func (p *Pipeline) synthesize(
	ctx context.Context,
	jobID, videoPath string,
	durationSeconds float64,
	frames []sampler.Frame,
	captions map[int]string,
	dialogue map[int][]string,
	opts Options,
	rec *metrics.Recorder,
) *storyboard.Screenplay {
	narrCtx, cancel := context.WithTimeout(ctx, opts.NarrativeTimeout)
	defer cancel()

	frameCtxs := make([]narrative.FrameContext, len(frames))
	for i, f := range frames {
		frameCtxs[i] = narrative.FrameContext{
			Number:    f.Number,
			Timestamp: f.Timestamp,
			Caption:   captions[f.Number],
			Dialogue:  dialogue[f.Number],
		}
	}

	narrStart := time.Now()
	screenplay, err := p.Synthesizer.Synthesize(narrCtx, narrative.Request{
		Method:          opts.NarrativeMethod,
		Frames:          frameCtxs,
		VideoPath:       videoPath,
		DurationSeconds: durationSeconds,
	})
	rec.Duration("NarrativeStage", time.Since(narrStart))
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("Narrative synthesis failed, storyboard will have no screenplay")
		return nil
	}
	return screenplay
}
