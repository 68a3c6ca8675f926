// Package jobs provides job identity, the per-job temporary workspace, and
// the fatal error taxonomy shared by the pipeline and the transport layer.
package jobs

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID creates a new random job ID with the given prefix.
// The prefix should include a trailing dash, e.g. "video-".
func GenerateID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
