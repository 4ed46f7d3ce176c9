package config

import (
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch calls onChange with the reloaded configuration whenever v's config
// file is written. Invalid edits are logged and skipped.
func Watch(v *viper.Viper, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := FromViper(v)
		if err != nil {
			log.Warn("Ignoring invalid configuration", "path", e.Name, "err", err)
			return
		}
		log.Debug("Configuration reloaded", "path", e.Name, "voice", cfg.VoiceParams())
		onChange(cfg)
	})
	v.WatchConfig()
}

// NewFileViper returns a viper instance with defaults, reading path.
func NewFileViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v, nil
}
