package config

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"declare-server/internal/util"
)

// Config provides configuration for the Declare server
type Config struct {
	loaded bool
	JWT    struct {
		PublicKey  string `yaml:"publicKey" envconfig:"public_key"`
		PrivateKey string `yaml:"privateKey" envconfig:"private_key"`
	}
	Log struct {
		Level             string `yaml:"level"`
		DisableAccessLogs bool   `yaml:"disableAccessLogs" envconfig:"disable_access_logs"`
	}
	// KingConfirmSeconds is how long a seen king swap waits for
	// confirmation before it is cancelled
	KingConfirmSeconds int `yaml:"kingConfirmSeconds" envconfig:"king_confirm_seconds"`
}

const defaultKingConfirmSeconds = 6

var config Config

// Instance returns a singleton instance
// If the config hasn't been loaded, it will be loaded
func Instance() Config {
	if !config.loaded {
		if err := Load(); err != nil {
			panic(err)
		}
	}

	return config
}

// Load will load the configuration
// A missing config file is fine; the environment alone can configure
// the server.
func Load() error {
	config = Config{}

	configFile := util.Getenv("DECLARE_CONFIG_FILE", "config.yaml")
	file, err := os.Open(configFile)
	if err == nil {
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := envconfig.Process("declare", &config); err != nil {
		return err
	}

	if config.KingConfirmSeconds <= 0 {
		config.KingConfirmSeconds = defaultKingConfirmSeconds
	}

	config.loaded = true
	return nil
}
