package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/frameforge/frameforge/internal/media"
	"github.com/frameforge/frameforge/internal/narrative"
	"github.com/frameforge/frameforge/internal/pipeline"
	"github.com/frameforge/frameforge/internal/sampler"
	"github.com/frameforge/frameforge/internal/storyboard"
)

type stubSampler struct{}

func (stubSampler) Sample(_ context.Context, _, workDir string, durationSeconds float64, cfg sampler.Config) (*sampler.Result, error) {
	times := sampler.PlanFixedInterval(durationSeconds, cfg.IntervalSeconds)
	frames := make([]sampler.Frame, len(times))
	for i, ts := range times {
		path := filepath.Join(workDir, fmt.Sprintf("frame_%04d.jpg", i+1))
		if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
			return nil, err
		}
		frames[i] = sampler.Frame{Number: i + 1, Timestamp: ts, Path: path}
	}
	return &sampler.Result{Frames: frames, Method: storyboard.MethodFixedInterval}, nil
}

type stubPublisher struct{}

func (stubPublisher) PublishFrames(_ context.Context, jobID string, frames []sampler.Frame) (map[int]string, error) {
	urls := make(map[int]string, len(frames))
	for _, f := range frames {
		urls[f.Number] = fmt.Sprintf("https://example.com/%s/%d", jobID, f.Number)
	}
	return urls, nil
}

func (stubPublisher) PublishSource(_ context.Context, jobID, _, _ string) (string, error) {
	return "https://example.com/" + jobID + "/input", nil
}

func testApp(probeErr error) *App {
	return NewApp(&pipeline.Pipeline{
		Sampler:   stubSampler{},
		Publisher: stubPublisher{},
		Probe: func(context.Context, string) (*media.Probe, error) {
			if probeErr != nil {
				return nil, probeErr
			}
			return &media.Probe{DurationSeconds: 4.0, HasAudio: false}, nil
		},
	})
}

// multipartUpload builds a request with a video file part plus extra form
// fields.
func multipartUpload(t *testing.T, filename, contentType string, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("fake video bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadHappyPath(t *testing.T) {
	app := testApp(nil)
	rec := httptest.NewRecorder()

	app.Router().ServeHTTP(rec, multipartUpload(t, "clip.mp4", "video/mp4", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result storyboard.StoryboardResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	// 4s at the default 2s interval: frames at 0 and 2.
	if result.TotalFrames != 2 {
		t.Errorf("TotalFrames = %d, want 2", result.TotalFrames)
	}
	if result.JobID == "" {
		t.Error("JobID is empty")
	}
	if result.HasAudio {
		t.Error("HasAudio = true, want false")
	}
}

func TestUploadMissingFile(t *testing.T) {
	app := testApp(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("interval_seconds", "2")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	app.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadUnsupportedFormat(t *testing.T) {
	app := testApp(nil)
	rec := httptest.NewRecorder()

	app.Router().ServeHTTP(rec, multipartUpload(t, "notes.txt", "text/plain", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if body.Error.Kind != "invalid_media" {
		t.Errorf("error kind = %q, want invalid_media", body.Error.Kind)
	}
}

func TestUploadMalformedOption(t *testing.T) {
	app := testApp(nil)
	rec := httptest.NewRecorder()

	app.Router().ServeHTTP(rec, multipartUpload(t, "clip.mp4", "video/mp4", map[string]string{
		"interval_seconds": "often",
	}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadInvalidMediaIs422(t *testing.T) {
	app := testApp(errors.New("moov atom not found"))
	rec := httptest.NewRecorder()

	app.Router().ServeHTTP(rec, multipartUpload(t, "clip.mp4", "video/mp4", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if body.Error.Kind != "invalid_media" {
		t.Errorf("error kind = %q, want invalid_media", body.Error.Kind)
	}
}

func TestHealth(t *testing.T) {
	app := testApp(nil)
	rec := httptest.NewRecorder()

	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status   string             `json:"status"`
		Features pipeline.Readiness `json:"features"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.Features.Captioning || body.Features.Narrative {
		t.Error("captioning/narrative reported ready without clients configured")
	}
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		check   func(t *testing.T, opts pipeline.Options)
		wantErr bool
	}{
		{
			name:   "defaults",
			fields: nil,
			check: func(t *testing.T, opts pipeline.Options) {
				if opts.IntervalSeconds != 2.0 {
					t.Errorf("IntervalSeconds = %v, want 2.0", opts.IntervalSeconds)
				}
				if opts.UseSceneDetection {
					t.Error("UseSceneDetection = true, want false")
				}
				if !opts.EnableAudio || !opts.EnableNarrative {
					t.Error("audio/narrative not enabled by default")
				}
				if opts.NarrativeMethod != narrative.MethodCaptions {
					t.Errorf("NarrativeMethod = %q", opts.NarrativeMethod)
				}
			},
		},
		{
			name: "all fields set",
			fields: map[string]string{
				"interval_seconds":          "1.5",
				"use_scene_detection":       "true",
				"scene_threshold":           "35",
				"enable_audio_analysis":     "false",
				"whisper_model":             "small",
				"enable_narrative_analysis": "false",
				"narrative_method":          "video",
			},
			check: func(t *testing.T, opts pipeline.Options) {
				if opts.IntervalSeconds != 1.5 || !opts.UseSceneDetection || opts.SceneThreshold != 35 {
					t.Errorf("sampling options = %+v", opts)
				}
				if opts.EnableAudio || opts.EnableNarrative {
					t.Error("audio/narrative should be disabled")
				}
				if opts.WhisperModel != "small" || opts.NarrativeMethod != narrative.MethodVideo {
					t.Errorf("model options = %+v", opts)
				}
			},
		},
		{
			name:    "bad boolean",
			fields:  map[string]string{"use_scene_detection": "si"},
			wantErr: true,
		},
		{
			name:    "interval out of range",
			fields:  map[string]string{"interval_seconds": "60"},
			wantErr: true,
		},
		{
			name:    "unknown narrative method",
			fields:  map[string]string{"narrative_method": "poem"},
			wantErr: true,
		},
		{
			name:    "unknown whisper model",
			fields:  map[string]string{"whisper_model": "gigantic"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartUpload(t, "clip.mp4", "video/mp4", tt.fields)
			if err := req.ParseMultipartForm(multipartMemoryBytes); err != nil {
				t.Fatalf("parse form: %v", err)
			}

			opts, err := parseOptions(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, opts)
			}
		})
	}
}
