// Package caption generates a one-line visual description for each sampled
// frame. Captioning is best effort: a frame whose caption fails gets the
// sentinel text instead of failing the job.
package caption

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// SentinelCaption replaces the caption of any frame whose captioning call
// failed. Downstream consumers can rely on every frame having a caption.
const SentinelCaption = "Scene from the video"

// captionPrompt asks for a single dense sentence per frame.
const captionPrompt = "Describe this video frame in one concise sentence. " +
	"Focus on the visible subjects, setting, and action. " +
	"Respond with the sentence only, no preamble."

const (
	defaultModel       = "gemini-3-flash-preview"
	defaultCallTimeout = 30 * time.Second
)

// Captioner produces a caption for a single frame image.
type Captioner interface {
	Caption(ctx context.Context, imageData []byte) (string, error)
}

// Gemini captions frames with the Gemini API. Inference calls are
// serialized through a gate so concurrent frame workers never stack
// simultaneous vision requests.
type Gemini struct {
	client      *genai.Client
	model       string
	callTimeout time.Duration
	gate        chan struct{}
}

// NewGemini returns a Gemini captioner using the default flash model.
func NewGemini(client *genai.Client) *Gemini {
	return &Gemini{
		client:      client,
		model:       defaultModel,
		callTimeout: defaultCallTimeout,
		gate:        make(chan struct{}, 1),
	}
}

// Caption sends one JPEG frame to Gemini and returns the caption text.
func (g *Gemini) Caption(ctx context.Context, imageData []byte) (string, error) {
	select {
	case g.gate <- struct{}{}:
		defer func() { <-g.gate }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	parts := []*genai.Part{
		{
			InlineData: &genai.Blob{
				MIMEType: "image/jpeg",
				Data:     imageData,
			},
		},
		{Text: captionPrompt},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	callStart := time.Now()
	resp, err := g.client.Models.GenerateContent(callCtx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate caption: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("received empty response from Gemini API")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("caption response contained no text")
	}

	log.Debug().
		Int("caption_length", len(text)).
		Dur("duration", time.Since(callStart)).
		Msg("Frame caption generated")

	return text, nil
}
