// Package config wires viper defaults, the config file and OPDROID_*
// environment variables into one place.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Keys used across the CLI. Flags bind onto the same names.
const (
	KeyProvider      = "provider"
	KeyModel         = "model"
	KeyDeviceSerial  = "device.serial"
	KeyMaxIterations = "agent.max_iterations"
	KeyMaxImages     = "agent.max_images"
	KeyMaxTokens     = "agent.max_tokens"
	KeyResizeMax     = "agent.resize_max"
	KeyCellSize      = "grid.cell_size"
	KeyMCPResizeMax  = "mcp.resize_max"
)

// DataDir returns the opdroid data directory (~/.opdroid).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".opdroid"), nil
}

// SetDefaults installs the default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyProvider, "")
	v.SetDefault(KeyModel, "")
	v.SetDefault(KeyDeviceSerial, "")
	v.SetDefault(KeyMaxIterations, 50)
	v.SetDefault(KeyMaxImages, 5)
	v.SetDefault(KeyMaxTokens, 4096)
	v.SetDefault(KeyResizeMax, 800)
	v.SetDefault(KeyCellSize, 40)
	v.SetDefault(KeyMCPResizeMax, 1024)
}

// Load reads the config file (optional) and enables OPDROID_ env
// overrides on the global viper. cfgFile overrides the default
// location when non-empty.
func Load(cfgFile string) error {
	SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dataDir, err := DataDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return err
		}
		viper.AddConfigPath(dataDir)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("OPDROID")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine; defaults and env carry the run.
	_ = viper.ReadInConfig()
	return nil
}
