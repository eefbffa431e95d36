package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtside/courtside-agent/internal/api"
	"github.com/courtside/courtside-agent/internal/config"
	"github.com/courtside/courtside-agent/internal/db"
	"github.com/courtside/courtside-agent/internal/detect"
	"github.com/courtside/courtside-agent/internal/exporter"
	"github.com/courtside/courtside-agent/internal/llm"
	"github.com/courtside/courtside-agent/internal/logging"
	"github.com/courtside/courtside-agent/internal/media"
	"github.com/courtside/courtside-agent/internal/playback"
	"github.com/courtside/courtside-agent/internal/store"
	"github.com/courtside/courtside-agent/internal/studio"
	"github.com/courtside/courtside-agent/internal/tts"
	"github.com/courtside/courtside-agent/internal/ui"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.MediaDir(), cfg.ExportsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting courtside agent", "version", Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   COURTSIDE AGENT v0.1.0                  ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	detector, model := buildModelClients(cfg, logger)
	speech, err := buildSpeech(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build speech synthesizer: %w", err)
	}

	controller := exporter.NewController(repo, exporter.Options{
		ExportsDir:   cfg.ExportsDir(),
		CaptureFPS:   cfg.CaptureFPS(),
		TimeScale:    cfg.ExportTimeScale(),
		SegmentGrace: cfg.SegmentGrace(),
	}, logger)

	studioSvc := studio.NewService(
		media.NewProber(),
		detector,
		model,
		speech,
		controller,
		studio.Options{
			MediaDir:  cfg.MediaDir(),
			Tick:      cfg.ExportTick(),
			TimeScale: cfg.ExportTimeScale(),
		},
		logger,
	)

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Studio:         studioSvc,
		Repository:     repo,
		Clips:          playback.NewClipServer(logger),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Logger:         logger,
		StartTime:      startTime,
		DeviceID:       deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Studio:  studioSvc,
			Logger:  logger,
			APIAddr: apiServer.Addr(),
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// buildModelClients wires the detection and chat collaborators. Without an
// API key both fall back to canned stubs so the agent stays usable offline.
func buildModelClients(cfg config.Config, logger *slog.Logger) (detect.Client, llm.Client) {
	if cfg.ModelAPIKey() == "" {
		logger.Warn("no model API key configured, using stub collaborators")
		return detect.NewStubClient(logger), llm.NewStubClient(logger)
	}
	logger.Info("model collaborators enabled", "model", cfg.ModelName())
	return detect.NewHTTPClient(cfg.ModelBaseURL(), cfg.ModelAPIKey(), cfg.ModelName(), logger),
		llm.NewHTTPClient(cfg.ModelBaseURL(), cfg.ModelAPIKey(), cfg.ModelName(), logger)
}

func buildSpeech(cfg config.Config, logger *slog.Logger) (tts.Synthesizer, error) {
	switch cfg.TTSProvider() {
	case "elevenlabs":
		if cfg.TTSAPIKey() == "" {
			return nil, fmt.Errorf("elevenlabs provider requires %s", config.EnvTTSAPIKey)
		}
		logger.Info("speech synthesis enabled", "provider", "elevenlabs")
		return tts.NewElevenLabs("", cfg.TTSAPIKey(), cfg.TTSVoiceID(), logger), nil
	case "polly":
		logger.Info("speech synthesis enabled", "provider", "polly", "region", cfg.TTSRegion())
		return tts.NewPolly(context.Background(), cfg.TTSRegion(), cfg.TTSVoiceID(), logger)
	case "stub", "":
		logger.Warn("using stub speech synthesizer")
		return tts.NewStub(logger), nil
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", cfg.TTSProvider())
	}
}

func ensureDeviceID(repo store.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo store.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
