package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load re-reads whatever config file viper is tracking and unmarshals it
// over the defaults. The watcher calls this for live reload; a missing
// file is not an error, it just yields the defaults.
func Load() (Config, error) {
	cfg := Defaults()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
