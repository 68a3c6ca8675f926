package jobs

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// Workspace is a job's private temporary directory. The source video, the
// extracted frames, and the demuxed audio track all live under it, and it is
// owned exclusively by the job until cleanup.
type Workspace struct {
	JobID string
	Dir   string
}

// NewWorkspace creates a temporary directory for the job and returns it with
// a cleanup function. The cleanup function must run on every exit path,
// success or failure.
func NewWorkspace(jobID string) (*Workspace, func(), error) {
	dir, err := os.MkdirTemp("", "frameforge-job-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create job workspace: %w", err)
	}

	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("job", jobID).Str("dir", dir).Msg("Failed to remove job workspace")
		} else {
			log.Debug().Str("job", jobID).Str("dir", dir).Msg("Job workspace removed")
		}
	}

	return &Workspace{JobID: jobID, Dir: dir}, cleanup, nil
}
