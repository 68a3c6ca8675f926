package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxUploadBytes is the maximum accepted video payload. Larger uploads are
// rejected before a job is created.
const MaxUploadBytes int64 = 150 * 1024 * 1024

// allowedContentTypes is the content-type allowlist for video uploads.
var allowedContentTypes = map[string]bool{
	"video/mp4":        true,
	"video/quicktime":  true,
	"video/webm":       true,
	"video/x-msvideo":  true,
	"video/x-matroska": true,
	"video/avi":        true,
}

// allowedExtensions backs up the content-type check for browsers that send
// application/octet-stream for less common containers.
var allowedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".avi":  true,
	".mkv":  true,
}

// ValidateSize checks the video payload size against MaxUploadBytes. The
// size must come from the file part itself, not the whole request body, so
// form-field overhead neither hides an oversized video nor rejects one
// exactly at the limit.
func ValidateSize(size int64) error {
	if size > MaxUploadBytes {
		return fmt.Errorf("video exceeds the %dMB upload limit", MaxUploadBytes/(1024*1024))
	}
	return nil
}

// ValidateUpload checks the declared content type and filename extension
// against the supported container formats. Returns nil when the upload may
// proceed to job creation.
func ValidateUpload(filename, contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if allowedContentTypes[ct] {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if allowedExtensions[ext] {
		return nil
	}

	return fmt.Errorf("unsupported video format: content type %q, extension %q", contentType, ext)
}

// ContentTypeForVideo maps a video filename to the content type used for
// storage and model uploads. Unknown extensions default to video/mp4.
func ContentTypeForVideo(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "video/mp4"
	}
}

// SanitizeFilename strips path components and rejects traversal sequences,
// returning a name safe to use inside the job workspace and storage keys.
func SanitizeFilename(name string) (string, error) {
	base := filepath.Base(name)
	if base == "" || base == "." || base == ".." || strings.ContainsAny(base, "/\\") {
		return "", fmt.Errorf("invalid filename %q", name)
	}
	if strings.Contains(base, "..") {
		return "", fmt.Errorf("filename contains invalid characters")
	}
	return base, nil
}
