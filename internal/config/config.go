package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the read-only knobs rockup honors. Everything has a working
// default; the file exists so editors and users can pin a version or point
// at a release mirror.
type Config struct {
	RootDir        string  `toml:"root_dir"`
	OverridePath   string  `toml:"override_path"`
	PinnedVersion  string  `toml:"pinned_version"`
	AutoUpdate     bool    `toml:"auto_update"`
	CheckUpdates   bool    `toml:"check_updates"`
	Keep           int     `toml:"keep"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Endpoint       string  `toml:"endpoint"`
	Product        Product `toml:"product"`
}

// Product names the release repository and the executable inside its assets.
type Product struct {
	Owner  string `toml:"owner"`
	Repo   string `toml:"repo"`
	Binary string `toml:"binary"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".rockup")

	return &Config{
		RootDir:        base,
		AutoUpdate:     true,
		CheckUpdates:   true,
		Keep:           5,
		TimeoutSeconds: 30,
		Product: Product{
			Owner:  "rockide",
			Repo:   "rockide",
			Binary: "rockide",
		},
	}
}

func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil
	}

	configPath := filepath.Join(home, ".rockup", "config.toml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// First run: persist the defaults so there is a file to edit.
		// A read-only home just means we run on defaults every time.
		_ = Save(cfg)
		return cfg, nil
	}

	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	home, _ := os.UserHomeDir()
	configPath := filepath.Join(home, ".rockup", "config.toml")

	os.MkdirAll(filepath.Dir(configPath), 0755)
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func (c *Config) StateDBPath() string { return filepath.Join(c.RootDir, "state.db") }

func (c *Config) ManifestPath() string { return filepath.Join(c.RootDir, "installed.json") }

func (c *Config) Timeout() time.Duration { return time.Duration(c.TimeoutSeconds) * time.Second }
