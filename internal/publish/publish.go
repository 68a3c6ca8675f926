// Package publish uploads job artifacts to S3 and mints time-limited
// reference URLs for them.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/frameforge/frameforge/internal/sampler"
)

const (
	// DefaultURLTTL is how long a presigned frame URL stays valid.
	DefaultURLTTL = 60 * time.Minute

	maxPutAttempts = 3
	initialBackoff = 500 * time.Millisecond
)

// Publisher uploads artifacts and returns accessible URLs for them.
type Publisher interface {
	// PublishFrames uploads every frame image and returns a map from frame
	// number to its presigned URL. Any frame failing all retries is fatal.
	PublishFrames(ctx context.Context, jobID string, frames []sampler.Frame) (map[int]string, error)

	// PublishSource uploads the original video under the job's input prefix.
	PublishSource(ctx context.Context, jobID, videoPath, contentType string) (string, error)
}

// objectPutter is the slice of the S3 client the publisher writes through.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// objectPresigner is the slice of the presign client the publisher reads
// URLs from.
type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Publisher stores artifacts in a single bucket keyed by job ID.
type S3Publisher struct {
	client  objectPutter
	presign objectPresigner
	bucket  string
	urlTTL  time.Duration
}

// NewS3Publisher returns a publisher writing to the given bucket.
func NewS3Publisher(client *s3.Client, presign *s3.PresignClient, bucket string, urlTTL time.Duration) *S3Publisher {
	if urlTTL <= 0 {
		urlTTL = DefaultURLTTL
	}
	return &S3Publisher{client: client, presign: presign, bucket: bucket, urlTTL: urlTTL}
}

// FrameKey is the object key for one frame image. The frame number and
// timestamp in the name make keys deterministic for a given sampling plan,
// so re-running a job overwrites rather than duplicates.
func FrameKey(jobID string, frame sampler.Frame) string {
	return fmt.Sprintf("%s/frames/frame_%03d_%.1fs.jpg", jobID, frame.Number, frame.Timestamp)
}

// SourceKey is the object key for the original uploaded video.
func SourceKey(jobID, filename string) string {
	return fmt.Sprintf("%s/input/%s", jobID, filename)
}

// PublishFrames uploads frame images sequentially with bounded retries and
// returns the presigned URL for each.
func (p *S3Publisher) PublishFrames(ctx context.Context, jobID string, frames []sampler.Frame) (map[int]string, error) {
	urls := make(map[int]string, len(frames))

	start := time.Now()
	for _, frame := range frames {
		data, err := os.ReadFile(frame.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read frame %d: %w", frame.Number, err)
		}

		key := FrameKey(jobID, frame)
		if err := p.putWithRetry(ctx, key, data, "image/jpeg"); err != nil {
			return nil, fmt.Errorf("failed to publish frame %d: %w", frame.Number, err)
		}

		url, err := p.presignURL(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to presign frame %d: %w", frame.Number, err)
		}
		urls[frame.Number] = url
	}

	log.Info().
		Str("job_id", jobID).
		Int("frames", len(frames)).
		Dur("duration", time.Since(start)).
		Msg("Frames published")

	return urls, nil
}

// PublishSource uploads the original video. Callers treat failure here as
// degrading, not fatal.
func (p *S3Publisher) PublishSource(ctx context.Context, jobID, videoPath, contentType string) (string, error) {
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to read source video: %w", err)
	}

	key := SourceKey(jobID, filepath.Base(videoPath))
	if err := p.putWithRetry(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("failed to publish source video: %w", err)
	}

	url, err := p.presignURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to presign source video: %w", err)
	}

	log.Info().Str("job_id", jobID).Str("key", key).Msg("Source video published")
	return url, nil
}

// putWithRetry attempts the upload up to maxPutAttempts times with doubling
// backoff between attempts. Context cancellation cuts the retries short.
func (p *S3Publisher) putWithRetry(ctx context.Context, key string, data []byte, contentType string) error {
	backoff := initialBackoff

	var lastErr error
	for attempt := 1; attempt <= maxPutAttempts; attempt++ {
		_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &p.bucket,
			Key:         &key,
			Body:        bytes.NewReader(data),
			ContentType: &contentType,
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < maxPutAttempts {
			log.Warn().
				Err(err).
				Str("key", key).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("S3 PutObject failed, retrying")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}

	return fmt.Errorf("S3 PutObject failed after %d attempts: %w", maxPutAttempts, lastErr)
}

func (p *S3Publisher) presignURL(ctx context.Context, key string) (string, error) {
	result, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &p.bucket,
		Key:    &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = p.urlTTL
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}
