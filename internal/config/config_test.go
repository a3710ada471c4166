package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/micasa/marketer/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.OpenAI.ChatModel != def.OpenAI.ChatModel {
		t.Errorf("ChatModel = %q, want %q", cfg.OpenAI.ChatModel, def.OpenAI.ChatModel)
	}
	if cfg.BaseDir != tmpDir {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, tmpDir)
	}
	if cfg.Archive.Dir != filepath.Join(tmpDir, "snapshots") {
		t.Errorf("Archive.Dir = %q", cfg.Archive.Dir)
	}
	if cfg.Midjourney.PollTimeout != 300*time.Second {
		t.Errorf("PollTimeout = %v, want 300s", cfg.Midjourney.PollTimeout)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), `
openai:
  chat_model: gpt-4o
midjourney:
  poll_interval: 15s
scraper:
  pages: 3
`)

	cfg, err := Load(tmpDir, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o" {
		t.Errorf("ChatModel = %q, want gpt-4o", cfg.OpenAI.ChatModel)
	}
	if cfg.Midjourney.PollInterval != 15*time.Second {
		t.Errorf("PollInterval = %v, want 15s", cfg.Midjourney.PollInterval)
	}
	if cfg.Scraper.Pages != 3 {
		t.Errorf("Pages = %d, want 3", cfg.Scraper.Pages)
	}
	// Untouched keys keep their defaults.
	if cfg.OpenAI.ImageModel != "dall-e-3" {
		t.Errorf("ImageModel = %q, want dall-e-3", cfg.OpenAI.ImageModel)
	}
}

func TestLoad_RepoConfigOverridesGlobal(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir()
	writeFile(t, filepath.Join(globalDir, "config.yaml"), "images:\n  watermark: Global\n  dir: global_images\n")
	writeFile(t, filepath.Join(repoDir, ".marketer", "config.yaml"), "images:\n  watermark: Repo\n")

	nested := filepath.Join(repoDir, "a", "b")
	if err := os.MkdirAll(nested, 0700); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(globalDir, nested)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Images.Watermark != "Repo" {
		t.Errorf("Watermark = %q, want Repo", cfg.Images.Watermark)
	}
	if cfg.Images.Dir != "global_images" {
		t.Errorf("Dir = %q, want global_images", cfg.Images.Dir)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "openai:\n  api_key: from-file\n")
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("PUBLER_API_KEY", "publer-key")
	t.Setenv("MARKETER_LOG_LEVEL", "debug")

	cfg, err := Load(tmpDir, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpenAI.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", cfg.OpenAI.APIKey)
	}
	if cfg.Publer.APIKey != "publer-key" {
		t.Errorf("Publer.APIKey = %q", cfg.Publer.APIKey)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logger.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "openai: [unclosed\n")

	_, err := Load(tmpDir, "")
	if !errors.Is(err, errors.ErrSetup) {
		t.Fatalf("Load() error = %v, want SETUP_ERROR", err)
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "images:\n  backend: crayons\n")

	_, err := Load(tmpDir, "")
	if !errors.Is(err, errors.ErrSetup) {
		t.Fatalf("Load() error = %v, want SETUP_ERROR", err)
	}
}

func TestLoad_AnimationSettings(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "images:\n  animate: true\nmidjourney:\n  motion_strength: 8\nvideo:\n  branded_dir: clips\n")

	cfg, err := Load(tmpDir, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Images.Animate {
		t.Error("Animate = false, want true")
	}
	if cfg.Midjourney.MotionStrength != 8 {
		t.Errorf("MotionStrength = %d, want 8", cfg.Midjourney.MotionStrength)
	}
	if cfg.Video.BrandedDir != "clips" {
		t.Errorf("BrandedDir = %q, want clips", cfg.Video.BrandedDir)
	}

	def := DefaultConfig()
	if def.Images.Animate || def.Midjourney.MotionStrength != 5 {
		t.Errorf("defaults: animate=%v motion=%d", def.Images.Animate, def.Midjourney.MotionStrength)
	}
}

func TestLoad_MotionStrengthOutOfRange(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "midjourney:\n  motion_strength: 11\n")

	_, err := Load(tmpDir, "")
	if !errors.Is(err, errors.ErrSetup) {
		t.Fatalf("Load() error = %v, want SETUP_ERROR", err)
	}
}

func TestValidate_S3RequiresBucket(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Archive.Kind = "s3"
	if err := cfg.Validate(); !errors.Is(err, errors.ErrSetup) {
		t.Fatalf("Validate() error = %v, want SETUP_ERROR", err)
	}
	cfg.Archive.S3Bucket = "snapshots"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestRequire(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.Require(ServiceOpenAI, ServicePubler)
	if !errors.Is(err, errors.ErrSetup) {
		t.Fatalf("Require() error = %v, want SETUP_ERROR", err)
	}
	mErr := errors.As(err)
	missing := mErr.Details["missing"].([]string)
	if len(missing) != 2 || missing[0] != "OPENAI_API_KEY" || missing[1] != "PUBLER_API_KEY" {
		t.Errorf("missing = %v", missing)
	}

	cfg.OpenAI.APIKey = "k"
	cfg.Publer.APIKey = "k"
	if err := cfg.Require(ServiceOpenAI, ServicePubler); err != nil {
		t.Errorf("Require() error = %v, want nil", err)
	}
}

func TestRequire_RepeatedService(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.Require(append([]string{ServiceOpenAI}, cfg.ImageServices()...)...)
	missing := errors.As(err).Details["missing"].([]string)
	if len(missing) != 1 {
		t.Errorf("missing = %v, want OPENAI_API_KEY once", missing)
	}
}

func TestRequire_Admin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Web.AdminUsername = "admin"

	err := cfg.Require(ServiceAdmin)
	mErr := errors.As(err)
	if mErr == nil {
		t.Fatal("expected error")
	}
	missing := mErr.Details["missing"].([]string)
	if len(missing) != 2 {
		t.Errorf("missing = %v, want ADMIN_PASSWORD and MARKETER_SECRET_KEY", missing)
	}
}

func TestImageServices(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ImageServices(); len(got) != 1 || got[0] != ServiceOpenAI {
		t.Errorf("ImageServices() = %v", got)
	}
	cfg.Images.Backend = "midjourney"
	if got := cfg.ImageServices(); got[0] != ServiceMidjourney {
		t.Errorf("ImageServices() = %v", got)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	if got := FindRepoConfig(t.TempDir()); got != "" {
		t.Errorf("FindRepoConfig() = %q, want empty", got)
	}
}
