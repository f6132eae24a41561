// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/wfunc/gombiful/game"
	"github.com/wfunc/gombiful/persistence"
	"github.com/wfunc/gombiful/rules"
	"github.com/wfunc/gombiful/session"
)

const EnvPrefix = "GOMBIFUL"

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Store    StoreConfig    `mapstructure:"store"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress      string        `mapstructure:"http_address"`
	RPCAddress       string        `mapstructure:"rpc_address"`
	PublicURL        string        `mapstructure:"public_url"`
	MetricsNamespace string        `mapstructure:"metrics_namespace"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type StoreConfig struct {
	Driver       string        `mapstructure:"driver"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
}

type GameConfig struct {
	rules.Config      `mapstructure:",squash"`
	MinPlayers        int           `mapstructure:"min_players"`
	MaxPlayers        int           `mapstructure:"max_players"`
	RevealDelay       time.Duration `mapstructure:"reveal_delay"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	PresenceAway      time.Duration `mapstructure:"presence_away"`
	PresenceOffline   time.Duration `mapstructure:"presence_offline"`
	SessionFreshness  time.Duration `mapstructure:"session_freshness"`
	CatalogPath       string        `mapstructure:"catalog_path"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":9090")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.metrics_namespace", "gombiful")
	v.SetDefault("server.read_timeout", 60*time.Second)

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "gombiful")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.dsn", "")
	v.SetDefault("database.postgres.max_open_conns", 25)

	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.idle_timeout", 30*time.Minute)
	v.SetDefault("store.reap_interval", time.Minute)

	r := rules.Defaults()
	v.SetDefault("game.winning_score", r.WinningScore)
	v.SetDefault("game.initial_tokens", r.InitialTokens)
	v.SetDefault("game.max_tokens", r.MaxTokens)
	v.SetDefault("game.streak_for_token", r.StreakForToken)
	v.SetDefault("game.token_cost_skip", r.TokenCostSkip)
	v.SetDefault("game.token_cost_auto", r.TokenCostAuto)

	g := game.DefaultSettings()
	th := session.DefaultThresholds()
	v.SetDefault("game.min_players", g.MinPlayers)
	v.SetDefault("game.max_players", g.MaxPlayers)
	v.SetDefault("game.reveal_delay", g.RevealDelay)
	v.SetDefault("game.heartbeat_interval", session.DefaultHeartbeatInterval)
	v.SetDefault("game.presence_away", th.Away)
	v.SetDefault("game.presence_offline", th.Offline)
	v.SetDefault("game.session_freshness", session.DefaultFreshness)
	v.SetDefault("game.catalog_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig reads config.yaml from path (a directory or a file), a .env
// file next to it, and GOMBIFUL_* environment overrides. A missing config
// file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	dir := path
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		v.SetConfigFile(path)
		dir = filepath.Dir(path)
	} else {
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if err := c.Game.Config.Validate(); err != nil {
		return err
	}
	if c.Game.MinPlayers < 1 || c.Game.MaxPlayers < c.Game.MinPlayers {
		return fmt.Errorf("config: need 1 <= min_players (%d) <= max_players (%d)", c.Game.MinPlayers, c.Game.MaxPlayers)
	}
	if c.Game.PresenceOffline < c.Game.PresenceAway {
		return fmt.Errorf("config: presence_offline must not be below presence_away")
	}
	return nil
}

// GameSettings converts the game section for game.NewService.
func (c *Config) GameSettings() game.Settings {
	s := game.DefaultSettings()
	s.Rules = c.Game.Config
	s.MinPlayers = c.Game.MinPlayers
	s.MaxPlayers = c.Game.MaxPlayers
	s.RevealDelay = c.Game.RevealDelay
	return s
}

func (c *Config) Thresholds() session.Thresholds {
	return session.Thresholds{Away: c.Game.PresenceAway, Offline: c.Game.PresenceOffline}
}

func (c *Config) PostgresOptions() persistence.Options {
	pg := c.Database.Postgres
	return persistence.Options{
		Host:        pg.Host,
		Port:        pg.Port,
		User:        pg.User,
		Password:    pg.Password,
		DBName:      pg.DBName,
		SSLMode:     pg.SSLMode,
		DSN:         pg.DSN,
		IdleTimeout: c.Store.IdleTimeout,
		MaxOpenConn: pg.MaxOpenConns,
	}
}
