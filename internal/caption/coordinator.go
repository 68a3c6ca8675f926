package caption

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/frameforge/frameforge/internal/sampler"
)

// DefaultWorkers is the number of concurrent caption workers. Inference
// itself is serialized by the captioner's gate, so extra workers mostly
// overlap file reads with in-flight API calls.
const DefaultWorkers = 3

// CaptionAll captions every frame and returns a map from frame number to
// caption text. The map always has one entry per frame: failures are logged
// and replaced with SentinelCaption so a bad frame never sinks the job.
func CaptionAll(ctx context.Context, c Captioner, frames []sampler.Frame, workers int) map[int]string {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(frames) {
		workers = len(frames)
	}

	captions := make(map[int]string, len(frames))
	if len(frames) == 0 {
		return captions
	}

	log.Info().
		Int("frames", len(frames)).
		Int("workers", workers).
		Msg("Captioning frames")

	jobs := make(chan sampler.Frame)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for frame := range jobs {
				text := captionFrame(ctx, c, frame)
				mu.Lock()
				captions[frame.Number] = text
				mu.Unlock()
			}
		}()
	}

	for _, frame := range frames {
		jobs <- frame
	}
	close(jobs)
	wg.Wait()

	return captions
}

func captionFrame(ctx context.Context, c Captioner, frame sampler.Frame) string {
	imageData, err := os.ReadFile(frame.Path)
	if err != nil {
		log.Warn().
			Err(err).
			Int("frame", frame.Number).
			Str("path", frame.Path).
			Msg("Failed to read frame image, using sentinel caption")
		return SentinelCaption
	}

	text, err := c.Caption(ctx, imageData)
	if err != nil {
		log.Warn().
			Err(err).
			Int("frame", frame.Number).
			Msg("Failed to caption frame, using sentinel caption")
		return SentinelCaption
	}
	return text
}
