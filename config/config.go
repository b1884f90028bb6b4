package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppConfig struct {
	App struct {
		Name string `mapstructure:"NAME"`
	}

	SERVER struct {
		BaseURL string `mapstructure:"BASE_URL"`
		WsURL   string `mapstructure:"WS_URL"`
	}

	AUTH struct {
		AccessToken   string `mapstructure:"ACCESS_TOKEN"`
		PublicKeyPath string `mapstructure:"PUBLIC_KEY_PATH"`
	}

	CACHE struct {
		Redis struct {
			Enabled  bool   `mapstructure:"ENABLED"`
			Addr     string `mapstructure:"ADDR"`
			Password string `mapstructure:"PASSWORD"`
		}
	}
}

var Conf *AppConfig

func LoadConfig() error {
	viper.SetConfigName("application")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("CHATSYNC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := viper.Unmarshal(&config); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	Conf = &config
	log.Info().Msg("configuration loaded...")
	return nil
}
