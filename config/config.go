package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Limits LimitsConfig `mapstructure:"limits"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
}

type LimitsConfig struct {
	MaxMessageSize int64 `mapstructure:"max_message_size"`
}

// LoadConfig reads an optional config.yaml from path and overlays
// environment variables. PORT overrides the listen address, matching
// how the relay is deployed.
func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":3001")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("server.rpc_address", ":7001")
	viper.SetDefault("limits.max_message_size", 1<<20)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// The config file is optional; env and defaults are enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if port := viper.GetString("PORT"); port != "" {
		config.Server.HTTPAddress = fmt.Sprintf(":%s", port)
	}

	return config, nil
}
