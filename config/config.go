package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type Config struct {
	Proxy string `toml:"proxy" mapstructure:"proxy"`

	Users []UserConfig `toml:"users" mapstructure:"users"`

	Log      logConfig      `toml:"log" mapstructure:"log"`
	DB       dbConfig       `toml:"db" mapstructure:"db"`
	Telegram telegramConfig `toml:"telegram" mapstructure:"telegram"`
	Batch    batchConfig    `toml:"batch" mapstructure:"batch"`
}

type UserConfig struct {
	ID    int64  `toml:"id" mapstructure:"id"`
	Phone string `toml:"phone" mapstructure:"phone"`
}

type logConfig struct {
	Level string `toml:"level" mapstructure:"level"`
}

type dbConfig struct {
	Path       string `toml:"path" mapstructure:"path"`
	Session    string `toml:"session" mapstructure:"session"`
	SessionDir string `toml:"session_dir" mapstructure:"session_dir"`
}

type telegramConfig struct {
	Token      string      `toml:"token" mapstructure:"token"`
	AppID      int         `toml:"app_id" mapstructure:"app_id"`
	AppHash    string      `toml:"app_hash" mapstructure:"app_hash"`
	RpcRetry   int         `toml:"rpc_retry" mapstructure:"rpc_retry"`
	FloodRetry int         `toml:"flood_retry" mapstructure:"flood_retry"`
	Proxy      proxyConfig `toml:"proxy" mapstructure:"proxy"`
}

type proxyConfig struct {
	Enable bool   `toml:"enable" mapstructure:"enable"`
	URL    string `toml:"url" mapstructure:"url"`
}

// batchConfig tunes the indexing engine cadences. The defaults match the
// documented behavior: re-check the batch record every 10 messages, report
// and checkpoint every 50, wait one second between copies.
type batchConfig struct {
	MessageDelay   int `toml:"message_delay" mapstructure:"message_delay"`
	CheckInterval  int `toml:"check_interval" mapstructure:"check_interval"`
	ReportInterval int `toml:"report_interval" mapstructure:"report_interval"`
}

var cfg *Config

func C() *Config {
	return cfg
}

func (c *Config) UserIDs() []int64 {
	ids := make([]int64, 0, len(c.Users))
	for _, u := range c.Users {
		ids = append(ids, u.ID)
	}
	return ids
}

func (c *Config) UserByID(id int64) (UserConfig, bool) {
	for _, u := range c.Users {
		if u.ID == id {
			return u, true
		}
	}
	return UserConfig{}, false
}

func Init(ctx context.Context, configFile string) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/topicdex/")
		viper.SetConfigType("toml")
	}
	viper.SetEnvPrefix("TOPICDEX")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("telegram.timeout", 60)
	viper.SetDefault("telegram.flood_retry", 5)
	viper.SetDefault("telegram.rpc_retry", 5)

	viper.SetDefault("log.level", "info")

	viper.SetDefault("db.path", "data/topicdex.db")
	viper.SetDefault("db.session", "data/session.db")
	viper.SetDefault("db.session_dir", "data/sessions")

	viper.SetDefault("batch.message_delay", 1)
	viper.SetDefault("batch.check_interval", 10)
	viper.SetDefault("batch.report_interval", 50)

	if configFile == "" {
		if err := viper.SafeWriteConfigAs("config.toml"); err != nil {
			if _, ok := err.(viper.ConfigFileAlreadyExistsError); !ok {
				return fmt.Errorf("error saving default config: %w", err)
			}
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error unmarshalling config file: %w", err)
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if cfg.Telegram.AppID == 0 || cfg.Telegram.AppHash == "" {
		return fmt.Errorf("telegram.app_id and telegram.app_hash are required")
	}
	if cfg.Batch.MessageDelay < 0 || cfg.Batch.CheckInterval < 1 || cfg.Batch.ReportInterval < 1 {
		return fmt.Errorf("invalid batch config: delay=%d check=%d report=%d",
			cfg.Batch.MessageDelay, cfg.Batch.CheckInterval, cfg.Batch.ReportInterval)
	}

	log.FromContext(ctx).Debugf("Loaded config with %d users", len(cfg.Users))
	return nil
}
