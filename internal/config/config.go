// Package config loads server configuration from defaults, an optional
// file, and environment variables via spf13/viper, the same layered
// precedence the teacher's cobra/flag plumbing expects callers to build
// on top of.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"cubesnake.io/internal/room"
)

// Config is the full set of server-level settings a deployer can tune.
// Per-room settings (cube size, round length, tick rate) are separate —
// hosts adjust those live via set_settings — but the *defaults* new
// rooms start with are configurable here too.
type Config struct {
	Addr     string `mapstructure:"addr"`
	LogLevel string `mapstructure:"log_level"`

	DefaultCubeN        int `mapstructure:"default_cube_n"`
	DefaultRoundSeconds int `mapstructure:"default_round_seconds"`
	DefaultTickRate     int `mapstructure:"default_tick_rate"`
}

// EnvPrefix is the environment variable prefix viper binds under, e.g.
// CUBESNAKE_ADDR overrides Addr.
const EnvPrefix = "CUBESNAKE"

func defaults() Config {
	d := room.DefaultRoomSettings()
	return Config{
		Addr:                ":8080",
		LogLevel:            "info",
		DefaultCubeN:        d.CubeN,
		DefaultRoundSeconds: d.RoundSeconds,
		DefaultTickRate:     d.TickRate,
	}
}

// Load builds a Config from, in increasing precedence: built-in
// defaults, an optional config file at path (if non-empty), and
// CUBESNAKE_-prefixed environment variables. path may be empty.
func Load(path string) (Config, error) {
	v := viper.New()

	d := defaults()
	v.SetDefault("addr", d.Addr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("default_cube_n", d.DefaultCubeN)
	v.SetDefault("default_round_seconds", d.DefaultRoundSeconds)
	v.SetDefault("default_tick_rate", d.DefaultTickRate)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// RoomDefaults projects the server-wide defaults onto a room.RoomSettings,
// clamped to the valid range.
func (c Config) RoomDefaults() room.RoomSettings {
	return room.RoomSettings{
		CubeN:        c.DefaultCubeN,
		RoundSeconds: c.DefaultRoundSeconds,
		TickRate:     c.DefaultTickRate,
	}.Clamp()
}
