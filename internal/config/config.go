package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/spf13/viper"

	"github.com/micasa/marketer/internal/errors"
)

// Service names accepted by Require.
const (
	ServiceOpenAI     = "openai"
	ServiceMidjourney = "midjourney"
	ServicePubler     = "publer"
	ServiceAdmin      = "admin"
)

// LoggerConfig controls log level and the optional JSON log file.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required|in:trace,debug,info,warn,error"`
	// Dir enables <dir>/marketer.log in addition to stderr. Empty means stderr only.
	Dir  string `mapstructure:"dir"`
	Mode uint32 `mapstructure:"mode"`
}

// OpenAIConfig configures the chat and image endpoints.
type OpenAIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url" validate:"required"`
	ChatModel  string        `mapstructure:"chat_model" validate:"required"`
	ImageModel string        `mapstructure:"image_model" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// MidjourneyConfig configures the userapi.ai Midjourney proxy.
type MidjourneyConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	// MotionStrength is the animation intensity, 1 (subtle) to 10.
	MotionStrength int `mapstructure:"motion_strength" validate:"min:1|max:10"`
}

// PublerConfig configures the social scheduling API.
type PublerConfig struct {
	APIKey      string   `mapstructure:"api_key"`
	WorkspaceID string   `mapstructure:"workspace_id"`
	BaseURL     string   `mapstructure:"base_url" validate:"required"`
	Platforms   []string `mapstructure:"platforms"`
	// SignatureID is attached to posts when set; otherwise FallbackHashtags are appended.
	SignatureID      string        `mapstructure:"signature_id"`
	FallbackHashtags string        `mapstructure:"fallback_hashtags"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	PollTimeout      time.Duration `mapstructure:"poll_timeout"`
	AutoDeleteAfter  time.Duration `mapstructure:"auto_delete_after"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// ScraperConfig configures the event listing scraper.
type ScraperConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"required"`
	Pages         int           `mapstructure:"pages" validate:"min:1"`
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FetchDetails  bool          `mapstructure:"fetch_details"`
	CacheMB       int           `mapstructure:"cache_mb"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
	DetailLimit   int           `mapstructure:"detail_limit"`
	RequestDelay  time.Duration `mapstructure:"request_delay"`
	EventsPerPost int           `mapstructure:"events_per_post"`
}

// ImagesConfig configures the asset generator.
type ImagesConfig struct {
	Dir       string `mapstructure:"dir" validate:"required"`
	Backend   string `mapstructure:"backend" validate:"required|in:dalle,midjourney"`
	Watermark string `mapstructure:"watermark"`
	// Animate also renders holiday_<date>_animated.mp4 when the backend can.
	Animate bool `mapstructure:"animate"`
}

// VideoConfig configures ffmpeg branding.
type VideoConfig struct {
	FFmpegPath string `mapstructure:"ffmpeg_path" validate:"required"`
	LogoPath   string `mapstructure:"logo_path"`
	// BrandedDir is where brand writes clips and publish video reads them.
	BrandedDir string `mapstructure:"branded_dir" validate:"required"`
}

// WebConfig configures the admin UI.
type WebConfig struct {
	Bind          string        `mapstructure:"bind" validate:"required"`
	Port          int           `mapstructure:"port" validate:"required|min:1|max:65535"`
	AdminUsername string        `mapstructure:"admin_username"`
	AdminPassword string        `mapstructure:"admin_password"`
	SecretKey     string        `mapstructure:"secret_key"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

// ArchiveConfig selects where store snapshots are kept.
type ArchiveConfig struct {
	Kind       string `mapstructure:"kind" validate:"required|in:local,s3"`
	Dir        string `mapstructure:"dir"`
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Region   string `mapstructure:"s3_region"`
	S3Prefix   string `mapstructure:"s3_prefix"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
}

// MetricsConfig toggles Prometheus counters.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MCPConfig controls MCP tool registration.
type MCPConfig struct {
	// DisabledTools lists tool names to exclude from registration.
	DisabledTools []string `mapstructure:"disabled_tools"`
}

// Config holds application configuration.
type Config struct {
	// BaseDir holds marketer.db and local snapshots. Defaults to ~/.marketer.
	BaseDir string `mapstructure:"base_dir"`
	// StorePath is the holiday store every command reads and writes by default.
	StorePath  string           `mapstructure:"store_path" validate:"required"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Midjourney MidjourneyConfig `mapstructure:"midjourney"`
	Publer     PublerConfig     `mapstructure:"publer"`
	Scraper    ScraperConfig    `mapstructure:"scraper"`
	Images     ImagesConfig     `mapstructure:"images"`
	Video      VideoConfig      `mapstructure:"video"`
	Web        WebConfig        `mapstructure:"web"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	MCP        MCPConfig        `mapstructure:"mcp"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"base_dir":              "MARKETER_BASE_DIR",
	"store_path":            "MARKETER_STORE_PATH",
	"logger.level":          "MARKETER_LOG_LEVEL",
	"openai.api_key":        "OPENAI_API_KEY",
	"midjourney.api_key":    "USERAPI_KEY",
	"publer.api_key":        "PUBLER_API_KEY",
	"publer.workspace_id":   "PUBLER_WORKSPACE_ID",
	"web.admin_username":    "ADMIN_USERNAME",
	"web.admin_password":    "ADMIN_PASSWORD",
	"web.secret_key":        "MARKETER_SECRET_KEY",
	"archive.s3_bucket":     "MARKETER_S3_BUCKET",
	"archive.s3_region":     "AWS_REGION",
	"images.backend":        "MARKETER_IMAGE_BACKEND",
	"scraper.fetch_details": "MARKETER_SCRAPER_DETAILS",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StorePath: "holiday_output.json",
		Logger: LoggerConfig{
			Level: "info",
			Mode:  0644,
		},
		OpenAI: OpenAIConfig{
			BaseURL:    "https://api.openai.com/v1",
			ChatModel:  "gpt-4",
			ImageModel: "dall-e-3",
			Timeout:    60 * time.Second,
		},
		Midjourney: MidjourneyConfig{
			BaseURL:        "https://api.userapi.ai",
			PollInterval:   12 * time.Second,
			PollTimeout:    300 * time.Second,
			MotionStrength: 5,
		},
		Publer: PublerConfig{
			BaseURL:          "https://app.publer.com/api/v1",
			Platforms:        []string{"facebook", "instagram"},
			FallbackHashtags: "#micasa #pensacola #furnished #rental",
			PollInterval:     5 * time.Second,
			PollTimeout:      60 * time.Second,
			AutoDeleteAfter:  24 * time.Hour,
			Timeout:          30 * time.Second,
		},
		Scraper: ScraperConfig{
			BaseURL:       "https://www.visitpensacola.com/events/",
			Pages:         2,
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Timeout:       30 * time.Second,
			CacheMB:       16,
			MaxBodyBytes:  5 * 1024 * 1024,
			DetailLimit:   10,
			EventsPerPost: 10,
		},
		Images: ImagesConfig{
			Dir:       "holiday_images",
			Backend:   "dalle",
			Watermark: "Micasa.rentals",
		},
		Video: VideoConfig{
			FFmpegPath: "ffmpeg",
			LogoPath:   "brandingburner/logo.png",
			BrandedDir: "branded_videos",
		},
		Web: WebConfig{
			Bind:       "127.0.0.1",
			Port:       5000,
			SessionTTL: 12 * time.Hour,
		},
		Archive: ArchiveConfig{
			Kind: "local",
		},
	}
}

// Load builds the configuration from defaults, baseDir/config.yaml, the nearest
// repo config found by walking upward from startDir, and environment variables.
// Later sources win. Either config file may be missing.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.marketer.
func Load(baseDir, startDir string) (*Config, error) {
	files := []string{filepath.Join(baseDir, "config.yaml")}
	if startDir != "" {
		if repo := FindRepoConfig(startDir); repo != "" {
			files = append(files, repo)
		}
	}
	cfg, err := LoadFiles(files...)
	if err != nil {
		return nil, err
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = baseDir
	}
	if cfg.Archive.Kind == "local" && cfg.Archive.Dir == "" {
		cfg.Archive.Dir = filepath.Join(cfg.BaseDir, "snapshots")
	}
	return cfg, nil
}

// LoadFiles reads the given YAML files in order (missing files are skipped),
// applies environment overrides and validates the result.
func LoadFiles(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	read := false
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.NewSetup(fmt.Sprintf("cannot read config %s: %v", p, err))
		}
		v.SetConfigFile(p)
		var err error
		if !read {
			err = v.ReadInConfig()
		} else {
			err = v.MergeInConfig()
		}
		if err != nil {
			return nil, errors.NewSetup(fmt.Sprintf("invalid config %s: %v", p, err))
		}
		read = true
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.NewSetup(fmt.Sprintf("unable to decode config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .marketer/config.yaml.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".marketer", "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return errors.NewSetup("invalid config: " + v.Errors.One())
	}
	if c.Archive.Kind == "s3" && c.Archive.S3Bucket == "" {
		return errors.NewSetup("invalid config: archive.s3_bucket is required when archive.kind is s3")
	}
	return nil
}

// Require returns a setup error naming every credential missing for the given services.
func (c *Config) Require(services ...string) error {
	var missing []string
	seen := make(map[string]bool, len(services))
	for _, s := range services {
		if seen[s] {
			continue
		}
		seen[s] = true
		switch s {
		case ServiceOpenAI:
			if strings.TrimSpace(c.OpenAI.APIKey) == "" {
				missing = append(missing, "OPENAI_API_KEY")
			}
		case ServiceMidjourney:
			if strings.TrimSpace(c.Midjourney.APIKey) == "" {
				missing = append(missing, "USERAPI_KEY")
			}
		case ServicePubler:
			if strings.TrimSpace(c.Publer.APIKey) == "" {
				missing = append(missing, "PUBLER_API_KEY")
			}
		case ServiceAdmin:
			if c.Web.AdminUsername == "" {
				missing = append(missing, "ADMIN_USERNAME")
			}
			if c.Web.AdminPassword == "" {
				missing = append(missing, "ADMIN_PASSWORD")
			}
			if c.Web.SecretKey == "" {
				missing = append(missing, "MARKETER_SECRET_KEY")
			}
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingCredentials(missing)
	}
	return nil
}

// ImageServices returns the services the configured image backend needs.
func (c *Config) ImageServices() []string {
	if c.Images.Backend == "midjourney" {
		return []string{ServiceMidjourney}
	}
	return []string{ServiceOpenAI}
}

// KeyStatus reports which credentials are present, for status pages.
func (c *Config) KeyStatus() map[string]bool {
	return map[string]bool{
		"openai":     c.OpenAI.APIKey != "",
		"midjourney": c.Midjourney.APIKey != "",
		"publer":     c.Publer.APIKey != "",
		"admin":      c.Web.AdminUsername != "" && c.Web.AdminPassword != "",
	}
}
