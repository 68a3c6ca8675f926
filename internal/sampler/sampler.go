// Package sampler decides which video timestamps become storyboard frames
// and extracts them as JPEG images using ffmpeg.
//
// Two modes are supported: fixed-interval sampling and content-driven scene
// detection. Scene detection compares color histograms of a low-rate decode
// ladder; when it finds no boundary at all it falls back to fixed-interval
// sampling so a decodable video never produces an empty storyboard.
package sampler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/frameforge/frameforge/internal/storyboard"
)

const (
	// frameJPEGQuality controls the JPEG quality for extracted frames.
	// qscale:v 2 is high quality (~95% JPEG).
	frameJPEGQuality = "2"

	// DefaultIntervalSeconds is used when the caller leaves the fixed
	// sampling interval unset.
	DefaultIntervalSeconds = 2.0

	// DefaultSceneThreshold is the default content-change score above which
	// a scene boundary is emitted. Scores run 0-100; lower thresholds emit
	// more scenes.
	DefaultSceneThreshold = 27.0

	// ladderFPS is the decode rate for the scene-detection ladder. Two
	// frames per second bounds the histogram workload while keeping scene
	// boundary timestamps within half a second of the real cut.
	ladderFPS = 2.0

	// maxScenes caps the number of scene boundaries honored per job.
	maxScenes = 50
)

// Config selects the sampling mode and its parameters.
type Config struct {
	IntervalSeconds   float64
	UseSceneDetection bool
	SceneThreshold    float64
}

// Frame is one sampled instant: its position in the sequence, its timestamp,
// an optional scene number, and the local path of the extracted JPEG.
type Frame struct {
	Number    int
	Timestamp float64
	Scene     *int
	Path      string
}

// Result is an ordered, non-empty frame sequence plus the extraction method
// actually used (scene detection may have fallen back to fixed interval).
type Result struct {
	Frames []Frame
	Method string
}

// Extractor samples frames from video files with ffmpeg.
type Extractor struct{}

// NewExtractor returns a ready Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Sample extracts frames from the video at videoPath into a directory under
// workDir. Timestamps in the returned sequence are strictly increasing and
// the sequence is never empty; an empty outcome is reported as an error.
func (e *Extractor) Sample(ctx context.Context, videoPath, workDir string, durationSeconds float64, cfg Config) (*Result, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("video duration must be positive, got %.3f", durationSeconds)
	}

	if cfg.IntervalSeconds <= 0 {
		cfg.IntervalSeconds = DefaultIntervalSeconds
	}
	if cfg.SceneThreshold <= 0 {
		cfg.SceneThreshold = DefaultSceneThreshold
	}

	frameDir := filepath.Join(workDir, "frames")
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}

	if cfg.UseSceneDetection {
		result, err := e.sampleScenes(ctx, videoPath, workDir, frameDir, durationSeconds, cfg)
		if err == nil {
			return result, nil
		}
		log.Warn().Err(err).Msg("Scene detection failed, falling back to fixed interval")
	}

	return e.sampleFixedInterval(ctx, videoPath, frameDir, durationSeconds, cfg.IntervalSeconds)
}

// PlanFixedInterval returns the timestamps for fixed-interval sampling:
// t = 0, interval, 2*interval, ... while t < duration. A video shorter than
// one interval still yields the single timestamp 0.
func PlanFixedInterval(durationSeconds, intervalSeconds float64) []float64 {
	if durationSeconds <= 0 || intervalSeconds <= 0 {
		return nil
	}
	var times []float64
	for t := 0.0; t < durationSeconds; t += intervalSeconds {
		times = append(times, t)
	}
	return times
}

func (e *Extractor) sampleFixedInterval(ctx context.Context, videoPath, frameDir string, durationSeconds, intervalSeconds float64) (*Result, error) {
	times := PlanFixedInterval(durationSeconds, intervalSeconds)
	if len(times) == 0 {
		return nil, fmt.Errorf("no frame timestamps planned for duration %.3fs", durationSeconds)
	}

	log.Info().
		Float64("duration_s", durationSeconds).
		Float64("interval_s", intervalSeconds).
		Int("planned_frames", len(times)).
		Msg("Extracting frames at fixed interval")

	frames := make([]Frame, 0, len(times))
	for idx, ts := range times {
		number := idx + 1
		outPath := filepath.Join(frameDir, fmt.Sprintf("frame_%04d.jpg", number))
		if err := extractFrameAt(ctx, videoPath, outPath, ts); err != nil {
			return nil, fmt.Errorf("failed to extract frame at %.3fs: %w", ts, err)
		}
		frames = append(frames, Frame{Number: number, Timestamp: ts, Path: outPath})
	}

	log.Info().Int("total_frames", len(frames)).Msg("Fixed-interval extraction complete")

	return &Result{Frames: frames, Method: storyboard.MethodFixedInterval}, nil
}

func (e *Extractor) sampleScenes(ctx context.Context, videoPath, workDir, frameDir string, durationSeconds float64, cfg Config) (*Result, error) {
	log.Info().
		Float64("threshold", cfg.SceneThreshold).
		Msg("Sampling frames with scene detection")

	ladderDir := filepath.Join(workDir, "ladder")
	ladderPaths, err := decodeLadder(ctx, videoPath, ladderDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(ladderDir); err != nil {
			log.Warn().Err(err).Str("dir", ladderDir).Msg("Failed to remove ladder directory")
		}
	}()

	scores, err := sceneScores(ladderPaths)
	if err != nil {
		return nil, err
	}

	timestamps, method := PlanScenes(scores, cfg.SceneThreshold, ladderFPS, durationSeconds, cfg.IntervalSeconds)
	if method == storyboard.MethodFixedInterval {
		// The non-empty storyboard guarantee: a clip with no detected cut
		// still gets a fixed-interval storyboard.
		log.Warn().
			Int("ladder_frames", len(ladderPaths)).
			Float64("threshold", cfg.SceneThreshold).
			Msg("No scene boundaries detected, using fixed-interval fallback")
		return e.sampleFixedInterval(ctx, videoPath, frameDir, durationSeconds, cfg.IntervalSeconds)
	}

	log.Info().Int("scenes", len(timestamps)).Msg("Scene boundaries detected")

	frames := make([]Frame, 0, len(timestamps))
	for idx, ts := range timestamps {
		number := idx + 1
		scene := number
		outPath := filepath.Join(frameDir, fmt.Sprintf("scene_%04d.jpg", number))
		if err := extractFrameAt(ctx, videoPath, outPath, ts); err != nil {
			return nil, fmt.Errorf("failed to extract scene frame at %.3fs: %w", ts, err)
		}
		frames = append(frames, Frame{Number: number, Timestamp: ts, Scene: &scene, Path: outPath})
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("scene detection produced no frames")
	}

	return &Result{Frames: frames, Method: storyboard.MethodSceneDetection}, nil
}

// PlanScenes turns ladder scores into the timestamps to extract and the
// extraction method actually used. When no score clears the threshold the
// plan falls back to fixed-interval timestamps, so a decodable video never
// yields an empty storyboard. Scene counts are capped at maxScenes.
func PlanScenes(scores []float64, threshold, fps, durationSeconds, intervalSeconds float64) ([]float64, string) {
	boundaries := DetectBoundaries(scores, threshold)
	if len(boundaries) == 0 {
		return PlanFixedInterval(durationSeconds, intervalSeconds), storyboard.MethodFixedInterval
	}

	timestamps := SceneTimestamps(boundaries, fps, durationSeconds)
	if len(timestamps) > maxScenes {
		timestamps = timestamps[:maxScenes]
	}
	return timestamps, storyboard.MethodSceneDetection
}

// SceneTimestamps converts ladder boundary indices into frame timestamps.
// A frame for scene 1 at t=0 is always included, even when the first real
// cut comes later. Timestamps are strictly increasing and bounded by the
// clip duration.
func SceneTimestamps(boundaries []int, fps, durationSeconds float64) []float64 {
	times := []float64{0}
	for _, idx := range boundaries {
		ts := float64(idx) / fps
		if ts <= times[len(times)-1] || ts >= durationSeconds {
			continue
		}
		times = append(times, ts)
	}
	return times
}

// DetectBoundaries returns the ladder indices whose content-change score
// exceeds the threshold. scores[i] compares ladder frames i and i+1, so a
// boundary at index i means the cut happens at ladder frame i+1.
func DetectBoundaries(scores []float64, threshold float64) []int {
	var boundaries []int
	for i, score := range scores {
		if score > threshold {
			boundaries = append(boundaries, i+1)
		}
	}
	return boundaries
}

// decodeLadder extracts low-rate JPEG frames used only for boundary scoring.
func decodeLadder(ctx context.Context, videoPath, ladderDir string) ([]string, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: scene detection requires ffmpeg: %w", err)
	}

	if err := os.MkdirAll(ladderDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ladder directory: %w", err)
	}

	pattern := filepath.Join(ladderDir, "ladder_%06d.jpg")
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%.2f", ladderFPS),
		"-qscale:v", frameJPEGQuality,
		"-vsync", "0",
		"-y", pattern,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ladder decode failed: %w\nOutput: %s", err, string(output))
	}

	paths, err := collectLadderPaths(ladderDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("ladder decode produced no frames for %s", filepath.Base(videoPath))
	}
	return paths, nil
}

// collectLadderPaths returns sorted paths to all ladder frames in a directory.
func collectLadderPaths(ladderDir string) ([]string, error) {
	entries, err := os.ReadDir(ladderDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ladder directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "ladder_") && strings.HasSuffix(name, ".jpg") {
			paths = append(paths, filepath.Join(ladderDir, name))
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// extractFrameAt extracts a single high-quality JPEG at the given timestamp.
func extractFrameAt(ctx context.Context, videoPath, outPath string, timestamp float64) error {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found: frame extraction requires ffmpeg: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-ss", fmt.Sprintf("%.3f", timestamp),
		"-i", videoPath,
		"-vframes", "1",
		"-qscale:v", frameJPEGQuality,
		"-y", outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg frame extraction failed: %w\nOutput: %s", err, string(output))
	}

	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("frame not found after extraction: %w", err)
	}
	return nil
}
