package media

import (
	"math"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		wantErr     bool
	}{
		{"mp4", "clip.mp4", "video/mp4", false},
		{"quicktime", "clip.mov", "video/quicktime", false},
		{"webm", "clip.webm", "video/webm", false},
		{"content type with params", "clip.mp4", "video/mp4; codecs=avc1", false},
		{"octet-stream with known extension", "clip.mkv", "application/octet-stream", false},
		{"uppercase extension", "CLIP.MP4", "application/octet-stream", false},
		{"text file", "notes.txt", "text/plain", true},
		{"image", "photo.jpg", "image/jpeg", true},
		{"no extension no type", "video", "application/octet-stream", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.filename, tt.contentType)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUpload(%q, %q) error = %v, wantErr %v", tt.filename, tt.contentType, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		wantErr bool
	}{
		{"small file", 10 * 1024 * 1024, false},
		{"exactly at limit", MaxUploadBytes, false},
		{"one byte over", MaxUploadBytes + 1, true},
		{"far over", 2 * MaxUploadBytes, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSize(tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSize(%d) error = %v, wantErr %v", tt.size, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain name", "clip.mp4", "clip.mp4", false},
		{"path stripped", "/tmp/uploads/clip.mp4", "clip.mp4", false},
		{"traversal rejected", "../../etc/passwd", "", true},
		{"dot rejected", ".", "", true},
		{"empty rejected", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestContentTypeForVideo(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"clip.mp4", "video/mp4"},
		{"clip.MOV", "video/quicktime"},
		{"clip.webm", "video/webm"},
		{"clip.avi", "video/x-msvideo"},
		{"clip.mkv", "video/x-matroska"},
		{"clip.unknown", "video/mp4"},
	}
	for _, tt := range tests {
		if got := ContentTypeForVideo(tt.path); got != tt.want {
			t.Errorf("ContentTypeForVideo(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"60/1", 60.0},
		{"30000/1001", 29.97},
		{"25", 25.0},
		{"0/0", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		got := parseFrameRate(tt.input)
		if math.Abs(got-tt.want) > 0.01 {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
