package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
	Debug    bool   `mapstructure:"debug"`

	PollingFrequencyMinutes int64         `mapstructure:"polling_frequency_minutes"`
	PollingInterval         time.Duration `mapstructure:"-"`

	ProvidersFile  string `mapstructure:"providers_file"`
	PublishersFile string `mapstructure:"publishers_file"`
	NotifyFile     string `mapstructure:"notify_file"`

	StorageType string `mapstructure:"storage_type"`
	CacheDir    string `mapstructure:"cache_dir"`
	BBoltPath   string `mapstructure:"bbolt_path"`
	SQLitePath  string `mapstructure:"sqlite_path"`

	IRC IRC `mapstructure:"irc"`
}

// IRC holds the chat connection and delivery settings.
type IRC struct {
	Channel        string `mapstructure:"channel"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	TLS            bool   `mapstructure:"tls"`
	TLSInsecure    bool   `mapstructure:"tls_insecure"`
	Nick           string `mapstructure:"nick"`
	Username       string `mapstructure:"username"`
	Gecos          string `mapstructure:"gecos"`
	Account        string `mapstructure:"account"`
	Password       string `mapstructure:"password"`
	ClientCertFile string `mapstructure:"client_cert_file"`

	CommandPrefix  string `mapstructure:"command_prefix"`
	SilentFirstRun bool   `mapstructure:"silent_first_run"`
	CounterSuffix  bool   `mapstructure:"counter_suffix"`
	QuitMessage    string `mapstructure:"quit_message"`

	FloodProtectWaitMs        int64 `mapstructure:"flood_protect_wait_ms"`
	CommandFloodProtectWaitMs int64 `mapstructure:"command_flood_protect_wait_ms"`
	PingIntervalSeconds       int64 `mapstructure:"ping_interval_seconds"`
	ReadyTimeoutSeconds       int64 `mapstructure:"ready_timeout_seconds"`
	QuitGraceMs               int64 `mapstructure:"quit_grace_ms"`

	FloodProtectWait        time.Duration `mapstructure:"-"`
	CommandFloodProtectWait time.Duration `mapstructure:"-"`
	PingInterval            time.Duration `mapstructure:"-"`
	ReadyTimeout            time.Duration `mapstructure:"-"`
	QuitGrace               time.Duration `mapstructure:"-"`
}

// Load reads configuration from command line flags, environment variables and config files.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	fs := pflag.NewFlagSet("outage-bot", pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "path to a YAML/JSON/TOML config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := strings.TrimSpace(*configFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	if *debug || os.Getenv("DEBUG") != "" {
		v.Set("debug", true)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "outage-bot")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_path", "./.logs")
	v.SetDefault("debug", false)
	v.SetDefault("polling_frequency_minutes", 7)
	v.SetDefault("providers_file", "./configs/providers.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("notify_file", "./.notify.json")
	v.SetDefault("storage_type", "file")
	v.SetDefault("cache_dir", "./.cache")
	v.SetDefault("bbolt_path", "./.cache/markers.db")
	v.SetDefault("sqlite_path", "./.cache/markers.sqlite")

	v.SetDefault("irc.channel", "")
	v.SetDefault("irc.host", "")
	v.SetDefault("irc.port", 6667)
	v.SetDefault("irc.tls", false)
	v.SetDefault("irc.tls_insecure", false)
	v.SetDefault("irc.nick", "")
	v.SetDefault("irc.username", "")
	v.SetDefault("irc.gecos", "")
	v.SetDefault("irc.account", "")
	v.SetDefault("irc.password", "")
	v.SetDefault("irc.client_cert_file", "")
	v.SetDefault("irc.command_prefix", "!outage")
	v.SetDefault("irc.silent_first_run", true)
	v.SetDefault("irc.counter_suffix", true)
	v.SetDefault("irc.quit_message", "outage-bot signing off")
	v.SetDefault("irc.flood_protect_wait_ms", 1500)
	v.SetDefault("irc.command_flood_protect_wait_ms", 600)
	v.SetDefault("irc.ping_interval_seconds", 60)
	v.SetDefault("irc.ready_timeout_seconds", 120)
	v.SetDefault("irc.quit_grace_ms", 2000)
}

func (cfg *Config) finalize() error {
	if cfg.PollingFrequencyMinutes <= 0 {
		return errors.New("invalid polling_frequency_minutes (must be positive minutes)")
	}
	cfg.PollingInterval = time.Duration(cfg.PollingFrequencyMinutes) * time.Minute

	irc := &cfg.IRC
	if irc.FloodProtectWaitMs < 0 {
		return errors.New("invalid irc.flood_protect_wait_ms (must not be negative)")
	}
	if irc.CommandFloodProtectWaitMs < 0 {
		return errors.New("invalid irc.command_flood_protect_wait_ms (must not be negative)")
	}
	if irc.PingIntervalSeconds <= 0 {
		return errors.New("invalid irc.ping_interval_seconds (must be positive seconds)")
	}
	if irc.ReadyTimeoutSeconds < 0 {
		return errors.New("invalid irc.ready_timeout_seconds (must not be negative)")
	}
	if irc.QuitGraceMs < 0 {
		return errors.New("invalid irc.quit_grace_ms (must not be negative)")
	}
	if irc.Port <= 0 || irc.Port > 65535 {
		return fmt.Errorf("invalid irc.port %d", irc.Port)
	}

	irc.FloodProtectWait = time.Duration(irc.FloodProtectWaitMs) * time.Millisecond
	irc.CommandFloodProtectWait = time.Duration(irc.CommandFloodProtectWaitMs) * time.Millisecond
	irc.PingInterval = time.Duration(irc.PingIntervalSeconds) * time.Second
	irc.ReadyTimeout = time.Duration(irc.ReadyTimeoutSeconds) * time.Second
	irc.QuitGrace = time.Duration(irc.QuitGraceMs) * time.Millisecond

	if irc.Username == "" {
		irc.Username = irc.Nick
	}
	if irc.Gecos == "" {
		irc.Gecos = irc.Nick
	}
	return nil
}
