package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration. Every tunable the
// pipeline needs lives here; business logic never reads the environment
// directly.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Tasks    TasksConfig    `yaml:"tasks" envconfig:"TASKS"`
	External ExternalConfig `yaml:"external" envconfig:"EXTERNAL"`
	Scoring  ScoringConfig  `yaml:"scoring" envconfig:"SCORING"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains the webhook token and rate limiting settings.
type SecurityConfig struct {
	// PlatformToken is the shared secret the experiment platform sends in
	// the X-Platform-Token header on webhook deliveries.
	PlatformToken string          `yaml:"platform_token" envconfig:"PLATFORM_TOKEN" default:"tcnl-project"`
	RateLimit     RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/brainage.log"`
}

// PathsConfig contains the filesystem layout the pipeline works against.
type PathsConfig struct {
	// DataDir holds one subdirectory per task with the raw exports.
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	// ResultsDir holds the persisted per-subject canonical records.
	ResultsDir string `yaml:"results_dir" envconfig:"RESULTS_DIR" default:"integrated_results"`
	// ArtifactsDir holds the externally trained model and scaler files.
	ArtifactsDir string `yaml:"artifacts_dir" envconfig:"ARTIFACTS_DIR" default:"prediction"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// TasksConfig names the per-task data directories under DataDir. The
// directory name doubles as the task name the webhook projects map onto.
type TasksConfig struct {
	Exclusion   string `yaml:"exclusion" envconfig:"EXCLUSION" default:"ExclusionTask"`
	Ospan       string `yaml:"ospan" envconfig:"OSPAN" default:"OspanTask"`
	SpeechComp  string `yaml:"speechcomp" envconfig:"SPEECHCOMP" default:"SpeechComp"`
	GoFitts     string `yaml:"gofitts" envconfig:"GOFITTS" default:"GoFitts"`
	TextReading string `yaml:"textreading" envconfig:"TEXTREADING" default:"TextReading"`
}

// ExternalConfig configures the two external tool collaborators.
type ExternalConfig struct {
	// JavaBin and FittsJar run the Fitts'-law trace analyzer.
	JavaBin  string        `yaml:"java_bin" envconfig:"JAVA_BIN" default:"java"`
	FittsJar string        `yaml:"fitts_jar" envconfig:"FITTS_JAR" default:"GoFitts_modified.jar"`
	// TranscriberBin invokes the speech-to-word-timing tool on one audio file.
	TranscriberBin    string        `yaml:"transcriber_bin" envconfig:"TRANSCRIBER_BIN" default:"get_speechrate"`
	AnalyzeTimeout    time.Duration `yaml:"analyze_timeout" envconfig:"ANALYZE_TIMEOUT" default:"2m"`
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout" envconfig:"TRANSCRIBE_TIMEOUT" default:"5m"`
}

// ScoringConfig configures the scoring engine.
type ScoringConfig struct {
	// UseLegacyCorrection switches the age correction from the percentile
	// method (default) to the historical meanPAD/sdPAD table method.
	UseLegacyCorrection bool `yaml:"use_legacy_correction" envconfig:"USE_LEGACY_CORRECTION" default:"false"`
	// TotalParticipants is reported in response metadata.
	TotalParticipants int `yaml:"total_participants" envconfig:"TOTAL_PARTICIPANTS" default:"412"`
	// JobWorkers sizes the async job queue for reprocess/transcription jobs.
	JobWorkers int `yaml:"job_workers" envconfig:"JOB_WORKERS" default:"2"`
}

// Load loads configuration from environment variables with an optional YAML
// overlay (BRAINAGE_CONFIG_FILE or ./config.yaml). Environment values win.
func Load() (*Config, error) {
	var cfg Config

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("BRAINAGE", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func configFilePath() string {
	if p := os.Getenv("BRAINAGE_CONFIG_FILE"); p != "" {
		return p
	}
	return "config.yaml"
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Security.PlatformToken == "" {
		return fmt.Errorf("platform token must not be empty")
	}
	if c.Scoring.JobWorkers <= 0 {
		return fmt.Errorf("job workers must be positive: %d", c.Scoring.JobWorkers)
	}
	return nil
}

// TaskNames returns the configured task directory names in pipeline order.
func (c *Config) TaskNames() []string {
	return []string{
		c.Tasks.Exclusion,
		c.Tasks.Ospan,
		c.Tasks.SpeechComp,
		c.Tasks.GoFitts,
		c.Tasks.TextReading,
	}
}

// TaskDir returns the absolute data directory for the named task.
func (c *Config) TaskDir(task string) string {
	return filepath.Join(c.Paths.DataDir, task)
}

// EnsureDirectories creates the writable directories the pipeline needs.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.ResultsDir, c.Paths.LogsDir}
	for _, task := range c.TaskNames() {
		dirs = append(dirs, c.TaskDir(task))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
