// Package transcribe extracts the audio track from a video and turns it
// into timestamped utterances using the whisper CLI.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/frameforge/frameforge/internal/storyboard"
)

// minUtteranceSeconds filters out whisper segments too short to carry real
// speech. Sub-second segments are almost always breaths or noise.
const minUtteranceSeconds = 1.0

// Transcript is the speech content of a video: the detected language and
// the utterances ordered by start time.
type Transcript struct {
	Language   string
	Utterances []storyboard.Utterance
}

// Transcriber produces a transcript for a video file. model selects the
// whisper model size; empty picks by audio duration.
type Transcriber interface {
	Transcribe(ctx context.Context, videoPath, workDir, model string) (*Transcript, error)
}

// WhisperCLI transcribes by shelling out to the whisper command line tool.
type WhisperCLI struct {
	// BinPath is the whisper executable. Defaults to "whisper" on PATH.
	BinPath string
}

// NewWhisperCLI returns a WhisperCLI using the given binary path, or the
// PATH default when binPath is empty.
func NewWhisperCLI(binPath string) *WhisperCLI {
	if binPath == "" {
		binPath = "whisper"
	}
	return &WhisperCLI{BinPath: binPath}
}

// CheckWhisperAvailable reports whether the whisper binary can be found.
func (w *WhisperCLI) CheckWhisperAvailable() error {
	if _, err := exec.LookPath(w.BinPath); err != nil {
		return fmt.Errorf("whisper not found: transcription requires the whisper CLI: %w", err)
	}
	return nil
}

// Transcribe demuxes the audio track and runs whisper over it. The caller
// is expected to have checked that the video has an audio stream.
func (w *WhisperCLI) Transcribe(ctx context.Context, videoPath, workDir, model string) (*Transcript, error) {
	if err := w.CheckWhisperAvailable(); err != nil {
		return nil, err
	}

	audioPath := filepath.Join(workDir, "audio.wav")
	if err := ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(audioPath); err != nil {
			log.Warn().Err(err).Str("path", audioPath).Msg("Failed to remove extracted audio")
		}
	}()

	if model == "" {
		model = RecommendModel(audioDuration(ctx, audioPath))
	}

	log.Info().
		Str("model", model).
		Str("audio", filepath.Base(audioPath)).
		Msg("Transcribing audio with whisper")

	start := time.Now()
	binPath, err := exec.LookPath(w.BinPath)
	if err != nil {
		return nil, fmt.Errorf("whisper not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, binPath,
		audioPath,
		"--model", model,
		"--output_format", "json",
		"--output_dir", workDir,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w\nOutput: %s", err, string(output))
	}

	jsonPath := filepath.Join(workDir, "audio.json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("whisper output not found: %w", err)
	}

	transcript, err := ParseWhisperOutput(data)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("language", transcript.Language).
		Int("utterances", len(transcript.Utterances)).
		Dur("duration", time.Since(start)).
		Msg("Transcription complete")

	return transcript, nil
}

// ExtractAudio demuxes the audio track to 16 kHz mono PCM WAV, the input
// format whisper handles best.
func ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found: audio extraction requires ffmpeg: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y", outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg audio extraction failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

// RecommendModel picks a whisper model size by audio duration. Longer clips
// get the small model for accuracy; short clips stay on base for speed.
func RecommendModel(durationSeconds float64) string {
	if durationSeconds > 600 {
		return "small"
	}
	return "base"
}

// audioDuration probes the extracted WAV duration, returning 0 on failure
// so model selection degrades to the base model.
func audioDuration(ctx context.Context, audioPath string) float64 {
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return 0
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &duration); err != nil {
		return 0
	}
	return duration
}

// whisperOutput mirrors the JSON file whisper writes alongside the audio.
type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// ParseWhisperOutput decodes whisper JSON output into a Transcript,
// dropping segments shorter than minUtteranceSeconds.
func ParseWhisperOutput(data []byte) (*Transcript, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %w", err)
	}

	transcript := &Transcript{Language: out.Language}
	for _, seg := range out.Segments {
		if seg.End-seg.Start < minUtteranceSeconds {
			continue
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		transcript.Utterances = append(transcript.Utterances, storyboard.Utterance{
			StartSeconds: seg.Start,
			EndSeconds:   seg.End,
			Text:         text,
			Language:     out.Language,
		})
	}

	return transcript, nil
}
