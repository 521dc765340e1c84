package config

import (
	"fmt"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Directories
	DataDir    string `envconfig:"FACEPREP_DATA_DIR" default:"data"`
	SourceDir  string `envconfig:"FACEPREP_SOURCE_DIR"`
	DestDir    string `envconfig:"FACEPREP_DEST_DIR"`
	CascadeDir string `envconfig:"FACEPREP_CASCADE_DIR"`

	// Extraction
	Workers int     `envconfig:"FACEPREP_WORKERS" default:"0"`
	Scale   float64 `envconfig:"FACEPREP_SCALE" default:"1.2"`

	// Bookkeeping
	LogLevel string `envconfig:"FACEPREP_LOG_LEVEL" default:"info"`
	Journal  bool   `envconfig:"FACEPREP_JOURNAL" default:"true"`
}

// Load reads the configuration from the environment. Directory
// settings left empty resolve to the conventional layout under the
// data directory.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.SourceDir == "" {
		cfg.SourceDir = filepath.Join(cfg.DataDir, "processing", "splits")
	}
	if cfg.DestDir == "" {
		cfg.DestDir = filepath.Join(cfg.DataDir, "processing", "faces")
	}
	if cfg.CascadeDir == "" {
		cfg.CascadeDir = filepath.Join(cfg.DataDir, "cascade")
	}
	return &cfg, nil
}
