// Package media wraps ffprobe-based video inspection and the upload boundary
// rules (size limit, container allowlist) enforced before a job is created.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Probe contains the stream properties the pipeline needs from a video file.
type Probe struct {
	DurationSeconds float64
	Width           int
	Height          int
	FrameRate       float64
	Codec           string
	HasAudio        bool
	AudioCodec      string
	AudioSampleRate int
}

// ffprobeOutput represents the JSON structure from ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

type ffprobeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	SampleRate string `json:"sample_rate"`
}

// CheckFFprobeAvailable checks if ffprobe is available in the system PATH.
// Call at startup to validate video inspection capability.
func CheckFFprobeAvailable() error {
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		return fmt.Errorf("ffprobe not found in PATH: video inspection will be unavailable. Install FFmpeg with: brew install ffmpeg (macOS) or apt install ffmpeg (Linux)")
	}
	log.Debug().Str("path", path).Msg("ffprobe found")
	return nil
}

// CheckFFmpegAvailable checks if ffmpeg is available in the system PATH.
func CheckFFmpegAvailable() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: frame extraction will be unavailable")
	}
	log.Debug().Str("path", path).Msg("ffmpeg found")
	return nil
}

// ProbeVideo inspects a video file using ffprobe.
//
// Requires ffprobe (part of FFmpeg) on the system. ffprobe handles every
// container format the boundary accepts (MP4, MOV, AVI, WebM, MKV) and
// returns clean JSON for parsing.
//
// A file ffprobe cannot parse, or one with no video stream, returns an error;
// callers treat that as undecodable media.
func ProbeVideo(ctx context.Context, filePath string) (*Probe, error) {
	log.Debug().Str("path", filePath).Msg("Probing video with ffprobe")

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	result := &Probe{}

	if probe.Format.Duration != "" {
		result.DurationSeconds, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	}

	hasVideoStream := false
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			hasVideoStream = true
			if result.Width == 0 {
				result.Width = stream.Width
				result.Height = stream.Height
			}
			if result.Codec == "" {
				result.Codec = stream.CodecName
			}
			if result.FrameRate == 0 && stream.RFrameRate != "" {
				result.FrameRate = parseFrameRate(stream.RFrameRate)
			}
		case "audio":
			result.HasAudio = true
			if result.AudioCodec == "" {
				result.AudioCodec = stream.CodecName
			}
			if result.AudioSampleRate == 0 && stream.SampleRate != "" {
				result.AudioSampleRate, _ = strconv.Atoi(stream.SampleRate)
			}
		}
	}

	if !hasVideoStream {
		return nil, fmt.Errorf("no video stream found in %s", filePath)
	}

	log.Info().
		Float64("duration_s", result.DurationSeconds).
		Int("width", result.Width).
		Int("height", result.Height).
		Float64("frame_rate", result.FrameRate).
		Str("codec", result.Codec).
		Bool("has_audio", result.HasAudio).
		Msg("Video probed via ffprobe")

	return result, nil
}

// parseFrameRate parses frame rate from ffprobe format (e.g., "60/1" -> 60.0)
func parseFrameRate(value string) float64 {
	parts := strings.Split(value, "/")
	if len(parts) == 2 {
		num, _ := strconv.ParseFloat(parts[0], 64)
		den, _ := strconv.ParseFloat(parts[1], 64)
		if den != 0 {
			return num / den
		}
	}
	rate, _ := strconv.ParseFloat(value, 64)
	return rate
}
