package util

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type Configuration struct {
	Version   string `toml:"-"`
	BuildDate string `toml:"-"`
	Commit    string `toml:"-"`

	Prompt       string `toml:"prompt"`
	HistoryFile  string `toml:"history_file"`
	DebugJsonAST bool   `toml:"debug_ast_json"`
	DebugTxtAST  bool   `toml:"debug_ast_text"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Prompt:      ">> ",
		HistoryFile: ".lox_history",
	}
}

// LoadConfiguration overlays an optional TOML file onto the defaults.
// An empty path returns the defaults untouched.
func LoadConfiguration(path string) (Configuration, error) {
	cfg := DefaultConfiguration()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load config '%s': %w", path, err)
	}
	return cfg, nil
}
