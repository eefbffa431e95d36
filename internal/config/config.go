// Package config provides configuration management for the Courtside Agent.
// Configuration is loaded from environment variables with sensible defaults.
// A .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort     = 8798
	DefaultLogLevel = "info"
	DefaultDataDir  = ".courtside"

	// Environment variable names
	EnvPort     = "COURTSIDE_PORT"
	EnvLogLevel = "COURTSIDE_LOG_LEVEL"
	EnvDataDir  = "COURTSIDE_DATA_DIR"
	EnvHeadless = "COURTSIDE_HEADLESS"

	// Model (detection + chat + summarization) environment variable names
	EnvModelBaseURL = "COURTSIDE_MODEL_BASE_URL"
	EnvModelAPIKey  = "COURTSIDE_MODEL_API_KEY"
	EnvModelName    = "COURTSIDE_MODEL_NAME"

	// Speech synthesis environment variable names
	EnvTTSProvider = "COURTSIDE_TTS_PROVIDER"
	EnvTTSAPIKey   = "COURTSIDE_TTS_API_KEY"
	EnvTTSVoiceID  = "COURTSIDE_TTS_VOICE_ID"
	EnvTTSRegion   = "COURTSIDE_TTS_REGION"

	// Export tuning environment variable names
	EnvExportTimeScale = "COURTSIDE_EXPORT_TIME_SCALE"

	// Database filename
	DBFilename = "courtside.db"

	// Upload settings
	DefaultMaxUploadBytes = 256 * 1024 * 1024 // 256MB

	// Export defaults
	DefaultModelName       = "gemini-2.0-flash"
	DefaultTTSProvider     = "stub"
	DefaultCaptureFPS      = 15
	DefaultExportTickMs    = 40   // simulated playhead tick
	DefaultExportTimeScale = 1.0  // playhead seconds per wall-clock second
	DefaultSegmentGraceSec = 10   // stall guard slack past a segment's length
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	ExportsDir() string
	Headless() bool
	MaxUploadBytes() int64

	ModelBaseURL() string
	ModelAPIKey() string
	ModelName() string

	TTSProvider() string
	TTSAPIKey() string
	TTSVoiceID() string
	TTSRegion() string

	CaptureFPS() int
	ExportTick() time.Duration
	ExportTimeScale() float64
	SegmentGrace() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	dataDir        string
	headless       bool
	maxUploadBytes int64

	modelBaseURL string
	modelAPIKey  string
	modelName    string

	ttsProvider string
	ttsAPIKey   string
	ttsVoiceID  string
	ttsRegion   string

	exportTimeScale float64
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	// Best-effort: absent .env files are the normal case.
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:            DefaultPort,
		logLevel:        DefaultLogLevel,
		dataDir:         defaultDataDir(),
		maxUploadBytes:  DefaultMaxUploadBytes,
		modelName:       DefaultModelName,
		ttsProvider:     DefaultTTSProvider,
		exportTimeScale: DefaultExportTimeScale,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	cfg.modelBaseURL = os.Getenv(EnvModelBaseURL)
	cfg.modelAPIKey = os.Getenv(EnvModelAPIKey)
	if mn := os.Getenv(EnvModelName); mn != "" {
		cfg.modelName = mn
	}

	if tp := os.Getenv(EnvTTSProvider); tp != "" {
		switch tp {
		case "stub", "elevenlabs", "polly":
			cfg.ttsProvider = tp
		default:
			return nil, fmt.Errorf("invalid %s: must be stub, elevenlabs or polly", EnvTTSProvider)
		}
	}
	cfg.ttsAPIKey = os.Getenv(EnvTTSAPIKey)
	cfg.ttsVoiceID = os.Getenv(EnvTTSVoiceID)
	cfg.ttsRegion = os.Getenv(EnvTTSRegion)

	if ts := os.Getenv(EnvExportTimeScale); ts != "" {
		scale, err := strconv.ParseFloat(ts, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvExportTimeScale, err)
		}
		if scale <= 0 {
			return nil, fmt.Errorf("invalid %s: must be > 0", EnvExportTimeScale)
		}
		cfg.exportTimeScale = scale
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir returns the directory where the loaded clip is kept
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, "media")
}

// ExportsDir returns the directory where finished artifacts are written
func (c *EnvConfig) ExportsDir() string {
	return filepath.Join(c.dataDir, "exports")
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// MaxUploadBytes returns the size cap for uploaded clips
func (c *EnvConfig) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

func (c *EnvConfig) ModelBaseURL() string {
	return c.modelBaseURL
}

func (c *EnvConfig) ModelAPIKey() string {
	return c.modelAPIKey
}

func (c *EnvConfig) ModelName() string {
	return c.modelName
}

func (c *EnvConfig) TTSProvider() string {
	return c.ttsProvider
}

func (c *EnvConfig) TTSAPIKey() string {
	return c.ttsAPIKey
}

func (c *EnvConfig) TTSVoiceID() string {
	return c.ttsVoiceID
}

func (c *EnvConfig) TTSRegion() string {
	return c.ttsRegion
}

func (c *EnvConfig) CaptureFPS() int {
	return DefaultCaptureFPS
}

func (c *EnvConfig) ExportTick() time.Duration {
	return DefaultExportTickMs * time.Millisecond
}

// ExportTimeScale returns how many playhead seconds elapse per wall-clock
// second during export. 1.0 mirrors live capture.
func (c *EnvConfig) ExportTimeScale() float64 {
	return c.exportTimeScale
}

func (c *EnvConfig) SegmentGrace() time.Duration {
	return DefaultSegmentGraceSec * time.Second
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
