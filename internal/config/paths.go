package config

import (
	"os"
	"path/filepath"
)

type Paths struct {
	Home    string
	Config  string
	DataDir string
	LogDir  string
}

// Allow user to set app home through env variable
// otherwise default to ~/.local/share/boson

func ResolvePaths(homeOverride, configOverride string) (*Paths, error) {
	home := homeOverride
	if home == "" {
		home = os.Getenv("BOSON_HOME")
	}

	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		home = filepath.Join(userHome, ".local", "share", "boson")
	}

	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, err
	}

	cfgPath := configOverride
	if cfgPath == "" {
		cfgPath = filepath.Join(home, "config.yaml")
	}

	return &Paths{
		Home:    home,
		Config:  cfgPath,
		DataDir: filepath.Join(home, "data"),
		LogDir:  filepath.Join(home, "log"),
	}, nil
}

// DatabasePath is where a named database keeps its file
func (c *Config) DatabasePath(dbname string) string {
	return filepath.Join(c.DataDir, dbname, dbname+".db")
}

func (c *Config) LogPath(dbname string) string {
	return filepath.Join(c.LogDir, dbname+".log")
}
