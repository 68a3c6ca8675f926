// Command frameforge serves the video storyboard pipeline over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/frameforge/frameforge/internal/caption"
	"github.com/frameforge/frameforge/internal/config"
	"github.com/frameforge/frameforge/internal/logging"
	"github.com/frameforge/frameforge/internal/media"
	"github.com/frameforge/frameforge/internal/narrative"
	"github.com/frameforge/frameforge/internal/pipeline"
	"github.com/frameforge/frameforge/internal/publish"
	"github.com/frameforge/frameforge/internal/sampler"
	"github.com/frameforge/frameforge/internal/server"
	"github.com/frameforge/frameforge/internal/transcribe"
)

var addrFlag string

var rootCmd = &cobra.Command{
	Use:   "frameforge",
	Short: "Turn videos into storyboards with captions, dialogue, and a screenplay",
	Long: `FrameForge samples frames from uploaded videos, captions them, aligns
transcribed dialogue, and synthesizes a screenplay treatment into a single
storyboard document.

Examples:
  frameforge
  frameforge --addr :9090`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (overrides FRAMEFORGE_ADDR)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if addrFlag != "" {
		cfg.Addr = addrFlag
	}

	if err := media.CheckFFmpegAvailable(); err != nil {
		log.Fatal().Err(err).Msg("ffmpeg is required")
	}
	if err := media.CheckFFprobeAvailable(); err != nil {
		log.Fatal().Err(err).Msg("ffprobe is required")
	}

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS configuration")
	}
	s3Client := s3.NewFromConfig(awsCfg)
	presignClient := s3.NewPresignClient(s3Client)

	p := &pipeline.Pipeline{
		Sampler:   sampler.NewExtractor(),
		Publisher: publish.NewS3Publisher(s3Client, presignClient, cfg.Bucket, cfg.URLTTL),
	}

	if cfg.GeminiAPIKey != "" {
		geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.GeminiAPIKey})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		p.Captioner = caption.NewGemini(geminiClient)
		p.Synthesizer = narrative.NewGemini(geminiClient)
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, captions and screenplay disabled")
	}

	whisper := transcribe.NewWhisperCLI(cfg.WhisperBin)
	if err := whisper.CheckWhisperAvailable(); err != nil {
		log.Warn().Err(err).Msg("whisper not found, transcription disabled")
	} else {
		p.Transcriber = whisper
	}

	app := server.NewApp(p)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      app.Router(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 35 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Server shutdown did not complete cleanly")
		}
	}()

	log.Info().
		Str("addr", cfg.Addr).
		Str("bucket", cfg.Bucket).
		Msg("Starting storyboard server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
