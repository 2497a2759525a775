package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/threemf/pkg/opc"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Codec.Precision != 6 {
		t.Errorf("expected precision 6, got %d", cfg.Codec.Precision)
	}
	if cfg.Codec.Relaxed {
		t.Error("expected strict reading by default")
	}
	if len(cfg.Codec.AttachmentRelationships) != 3 || cfg.Codec.AttachmentRelationships[0] != opc.RelTexture {
		t.Errorf("unexpected attachment relationships %v", cfg.Codec.AttachmentRelationships)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if !cfg.Export.GLTFBinary {
		t.Error("expected binary glTF by default")
	}
	if !cfg.Export.WeldSTL {
		t.Error("expected STL welding by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
codec:
  precision: 3
  relaxed: true
  attachment_relationships:
    - "http://example.com/rel/custom"

logging:
  level: "debug"
  log_file: "tmftool.log"

export:
  gltf_binary: false
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Codec.Precision != 3 {
		t.Errorf("expected precision 3, got %d", cfg.Codec.Precision)
	}
	if !cfg.Codec.Relaxed {
		t.Error("expected relaxed to be true")
	}
	if len(cfg.Codec.AttachmentRelationships) != 1 || cfg.Codec.AttachmentRelationships[0] != "http://example.com/rel/custom" {
		t.Errorf("unexpected attachment relationships %v", cfg.Codec.AttachmentRelationships)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "tmftool.log" {
		t.Errorf("expected log file 'tmftool.log', got %s", cfg.Logging.LogFile)
	}
	if cfg.Export.GLTFBinary {
		t.Error("expected gltf_binary to be false")
	}
	// Keys missing from the file keep their defaults.
	if !cfg.Export.WeldSTL {
		t.Error("expected weld_stl to keep its default")
	}
}

func TestLoadFromTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	tomlContent := `
[codec]
precision = 4

[logging]
level = "warn"

[export]
weld_stl = false
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Codec.Precision != 4 {
		t.Errorf("expected precision 4, got %d", cfg.Codec.Precision)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level 'warn', got %s", cfg.Logging.Level)
	}
	if cfg.Export.WeldSTL {
		t.Error("expected weld_stl to be false")
	}
	if !cfg.Export.GLTFBinary {
		t.Error("expected gltf_binary to keep its default")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
codec:
  precision: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[codec]\nprecision = 2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	path = findConfigFile()
	if filepath.Base(path) != "config.toml" {
		t.Errorf("expected to find config.toml in current directory, got %q", path)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "log file flag",
			setup: func() {
				*flagLogFile = "/tmp/tmftool.log"
			},
			verify: func(cfg *Config) {
				if cfg.Logging.LogFile != "/tmp/tmftool.log" {
					t.Errorf("expected log file /tmp/tmftool.log, got %s", cfg.Logging.LogFile)
				}
			},
			teardown: func() {
				*flagLogFile = ""
			},
		},
		{
			name: "precision flag",
			setup: func() {
				*flagPrecision = 9
			},
			verify: func(cfg *Config) {
				if cfg.Codec.Precision != 9 {
					t.Errorf("expected precision 9, got %d", cfg.Codec.Precision)
				}
			},
			teardown: func() {
				*flagPrecision = 0
			},
		},
		{
			name: "relaxed flag",
			setup: func() {
				*flagRelaxed = true
			},
			verify: func(cfg *Config) {
				if !cfg.Codec.Relaxed {
					t.Error("expected relaxed to be true with relaxed flag")
				}
			},
			teardown: func() {
				*flagRelaxed = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}

func TestSaveTo(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"out/config.yaml", "out/config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(tmpDir, name)

			cfg := Default()
			cfg.Codec.Precision = 8
			cfg.Logging.Level = "error"
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("failed to save config: %v", err)
			}

			loaded := Default()
			if err := loadFromFile(loaded, path); err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loaded.Codec.Precision != 8 {
				t.Errorf("expected precision 8, got %d", loaded.Codec.Precision)
			}
			if loaded.Logging.Level != "error" {
				t.Errorf("expected log level 'error', got %s", loaded.Logging.Level)
			}
		})
	}
}
