package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/frameforge/frameforge/internal/jobs"
	"github.com/frameforge/frameforge/internal/media"
	"github.com/frameforge/frameforge/internal/narrative"
	"github.com/frameforge/frameforge/internal/pipeline"
)

// multipartMemoryBytes is the in-memory buffer for multipart parsing;
// anything larger spills to disk.
const multipartMemoryBytes = 32 << 20

// upload accepts a video and runs a storyboard job synchronously. All
// boundary checks happen before a job workspace is created.
func (a *App) upload(w http.ResponseWriter, r *http.Request) {
	// The body bound leaves headroom for form fields; the binding size check
	// is on the file part itself below.
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadBytes+multipartMemoryBytes)

	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		writeError(w, http.StatusBadRequest, jobs.KindInvalidMedia,
			fmt.Sprintf("could not parse upload: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, jobs.KindInvalidMedia, "missing file field")
		return
	}
	defer file.Close()

	if err := media.ValidateSize(header.Size); err != nil {
		writeError(w, http.StatusBadRequest, jobs.KindInvalidMedia, err.Error())
		return
	}

	filename, err := media.SanitizeFilename(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, jobs.KindInvalidMedia, err.Error())
		return
	}
	if err := media.ValidateUpload(filename, header.Header.Get("Content-Type")); err != nil {
		writeError(w, http.StatusBadRequest, jobs.KindInvalidMedia, err.Error())
		return
	}

	opts, err := parseOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, jobs.KindInvalidMedia, err.Error())
		return
	}

	jobID := jobs.GenerateID("job-")
	ws, cleanup, err := jobs.NewWorkspace(jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, jobs.KindInternal, "could not create job workspace")
		return
	}
	defer cleanup()

	videoPath := filepath.Join(ws.Dir, filename)
	if err := saveUpload(file, videoPath); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to save upload")
		writeError(w, http.StatusInternalServerError, jobs.KindInternal, "could not store upload")
		return
	}

	result, err := a.pipeline.Run(r.Context(), jobID, videoPath, ws.Dir, opts)
	if err != nil {
		status, kind := statusForError(err)
		log.Error().Err(err).Str("job_id", jobID).Msg("Storyboard job failed")
		writeError(w, status, kind, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func saveUpload(src io.Reader, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("write upload file: %w", err)
	}
	return nil
}

// statusForError maps the fatal error taxonomy onto HTTP statuses.
func statusForError(err error) (int, jobs.Kind) {
	var jobErr *jobs.Error
	if errors.As(err, &jobErr) {
		switch jobErr.Kind {
		case jobs.KindInvalidMedia:
			return http.StatusUnprocessableEntity, jobErr.Kind
		case jobs.KindPublishFailed:
			return http.StatusInternalServerError, jobErr.Kind
		default:
			return http.StatusInternalServerError, jobErr.Kind
		}
	}
	return http.StatusInternalServerError, jobs.KindInternal
}

// parseOptions reads per-job options from the multipart form, applying
// defaults for anything unset.
func parseOptions(r *http.Request) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()

	if err := parseFloatField(r, "interval_seconds", &opts.IntervalSeconds); err != nil {
		return opts, err
	}
	if err := parseBoolField(r, "use_scene_detection", &opts.UseSceneDetection); err != nil {
		return opts, err
	}
	if err := parseFloatField(r, "scene_threshold", &opts.SceneThreshold); err != nil {
		return opts, err
	}
	if err := parseBoolField(r, "enable_audio_analysis", &opts.EnableAudio); err != nil {
		return opts, err
	}
	if err := parseBoolField(r, "enable_narrative_analysis", &opts.EnableNarrative); err != nil {
		return opts, err
	}
	if v := r.FormValue("whisper_model"); v != "" {
		opts.WhisperModel = v
	}
	if v := r.FormValue("narrative_method"); v != "" {
		if v != narrative.MethodCaptions && v != narrative.MethodVideo {
			return opts, fmt.Errorf("narrative_method must be %q or %q", narrative.MethodCaptions, narrative.MethodVideo)
		}
		opts.NarrativeMethod = v
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseFloatField(r *http.Request, name string, dst *float64) error {
	v := r.FormValue(name)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s must be a number, got %q", name, v)
	}
	*dst = parsed
	return nil
}

func parseBoolField(r *http.Request, name string, dst *bool) error {
	v := r.FormValue(name)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s must be a boolean, got %q", name, v)
	}
	*dst = parsed
	return nil
}
