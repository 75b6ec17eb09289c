package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/notepid/lapgame/internal/account"
	"github.com/notepid/lapgame/internal/bot"
	"github.com/notepid/lapgame/internal/reward"
	"github.com/notepid/lapgame/internal/spam"
)

// Config holds the server configuration. Server identity (name, operator,
// MOTD) lives in the database so the admin tool can edit it.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Paths   PathsConfig   `yaml:"paths"`
	Storage StorageConfig `yaml:"storage"`
	Game    GameConfig    `yaml:"game"`
}

// ServerConfig holds network listener settings.
type ServerConfig struct {
	TelnetPort  int `yaml:"telnet_port"`
	HealthPort  int `yaml:"health_port"`
	MaxSessions int `yaml:"max_sessions"`
}

// PathsConfig holds filesystem paths.
type PathsConfig struct {
	Data     string `yaml:"data"`
	Database string `yaml:"database"`
}

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

// StorageConfig selects where account snapshots go.
type StorageConfig struct {
	Backend       string         `yaml:"backend"`
	FlushInterval Duration       `yaml:"flush_interval"`
	File          FileConfig     `yaml:"file"`
	S3            S3Config       `yaml:"s3"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

// FileConfig configures the JSON file backend.
type FileConfig struct {
	Path string `yaml:"path"`
}

// S3Config configures the object store backend.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

// PostgresConfig configures the Postgres backend.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// GameConfig holds the game tuning.
type GameConfig struct {
	Claim        ClaimConfig        `yaml:"claim"`
	Periodic     PeriodicConfig     `yaml:"periodic"`
	Accrual      AccrualConfig      `yaml:"accrual"`
	Spam         SpamConfig         `yaml:"spam"`
	RewardWindow RewardWindowConfig `yaml:"reward_window"`
	Keywords     KeywordsConfig     `yaml:"keywords"`
	TopN         int                `yaml:"top_n"`
	ReplyUnknown bool               `yaml:"reply_unknown"`
}

type ClaimConfig struct {
	Amount      int64    `yaml:"amount"`
	Interval    Duration `yaml:"interval"`
	StreakEvery int64    `yaml:"streak_every"`
	StreakBonus int64    `yaml:"streak_bonus"`
}

type PeriodicConfig struct {
	Cadence    Duration `yaml:"cadence"`
	FirstDelay Duration `yaml:"first_delay"`
	Interval   Duration `yaml:"interval"`
	Bonus      int64    `yaml:"bonus"`
}

type AccrualConfig struct {
	Interval Duration `yaml:"interval"`
}

type SpamConfig struct {
	Window Duration `yaml:"window"`
	Limit  int      `yaml:"limit"`
	Block  Duration `yaml:"block"`
}

type RewardWindowConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Every    Duration `yaml:"every"`
	Duration Duration `yaml:"duration"`
	Bonus    int64    `yaml:"bonus"`
}

type KeywordsConfig struct {
	Claim  []string `yaml:"claim"`
	Status []string `yaml:"status"`
	Top    []string `yaml:"top"`
	Miner  []string `yaml:"miner"`
	Give   []string `yaml:"give"`
	Help   []string `yaml:"help"`
}

// Duration is a time.Duration written as a string such as "5m" or "30s".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", value.Line, err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration back as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when a field is not set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			TelnetPort:  2323,
			HealthPort:  2223,
			MaxSessions: 32,
		},
		Paths: PathsConfig{
			Data:     "./data",
			Database: "./data/lapgame.db",
		},
		Storage: StorageConfig{
			Backend:       BackendSQLite,
			FlushInterval: Duration(30 * time.Second),
			File:          FileConfig{Path: "./data/accounts.json"},
			S3:            S3Config{Key: "lapgame/accounts.json", Region: "us-east-1"},
		},
		Game: GameConfig{
			Claim: ClaimConfig{
				Amount:      1,
				Interval:    Duration(5 * time.Minute),
				StreakEvery: 10,
				StreakBonus: 5,
			},
			Periodic: PeriodicConfig{
				Cadence:    Duration(30 * time.Minute),
				FirstDelay: Duration(5 * time.Second),
				Interval:   Duration(30 * time.Minute),
				Bonus:      20,
			},
			Accrual: AccrualConfig{Interval: Duration(10 * time.Minute)},
			Spam: SpamConfig{
				Window: Duration(spam.DefaultWindow),
				Limit:  spam.DefaultLimit,
				Block:  Duration(spam.DefaultBlock),
			},
			RewardWindow: RewardWindowConfig{
				Enabled:  true,
				Every:    Duration(12 * time.Minute),
				Duration: Duration(60 * time.Second),
				Bonus:    15,
			},
			Keywords: KeywordsConfig{
				Claim:  []string{"lap"},
				Status: []string{"me", "stats"},
				Top:    []string{"top"},
				Miner:  []string{"miner"},
				Give:   []string{"give"},
				Help:   []string{"help"},
			},
			TopN: 5,
		},
	}
}

// Load reads and parses a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile:
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 backend")
		}
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("server.max_sessions must be at least 1")
	}
	g := c.Game
	if g.Claim.Amount < 1 {
		return fmt.Errorf("game.claim.amount must be positive")
	}
	if g.Claim.StreakEvery < 0 || g.Claim.StreakBonus < 0 {
		return fmt.Errorf("game.claim streak_every and streak_bonus must not be negative")
	}
	if g.Periodic.Bonus < 1 {
		return fmt.Errorf("game.periodic.bonus must be positive")
	}
	positive := map[string]Duration{
		"game.claim.interval":    g.Claim.Interval,
		"game.periodic.cadence":  g.Periodic.Cadence,
		"game.periodic.interval": g.Periodic.Interval,
		"game.accrual.interval":  g.Accrual.Interval,
		"storage.flush_interval": c.Storage.FlushInterval,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if g.RewardWindow.Enabled && (g.RewardWindow.Every <= 0 || g.RewardWindow.Duration <= 0 || g.RewardWindow.Bonus < 1) {
		return fmt.Errorf("game.reward_window every, duration and bonus must be positive")
	}
	if len(g.Keywords.Claim) == 0 {
		return fmt.Errorf("game.keywords.claim needs at least one word")
	}
	return nil
}

// Rules returns the account store tuning.
func (g GameConfig) Rules() account.Rules {
	return account.Rules{
		ClaimAmount:     g.Claim.Amount,
		ClaimInterval:   g.Claim.Interval.D(),
		StreakEvery:     g.Claim.StreakEvery,
		StreakBonus:     g.Claim.StreakBonus,
		AccrualInterval: g.Accrual.Interval.D(),
	}
}

// Reward returns the periodic reward settings.
func (g GameConfig) Reward() reward.Config {
	return reward.Config{
		Cadence:    g.Periodic.Cadence.D(),
		FirstDelay: g.Periodic.FirstDelay.D(),
		Interval:   g.Periodic.Interval.D(),
		Bonus:      g.Periodic.Bonus,
	}
}

// Window returns the reward window settings.
func (g GameConfig) Window() reward.WindowConfig {
	return reward.WindowConfig{
		Every:    g.RewardWindow.Every.D(),
		Duration: g.RewardWindow.Duration.D(),
		Bonus:    g.RewardWindow.Bonus,
	}
}

// SpamGuard returns the spam guard settings.
func (g GameConfig) SpamGuard() spam.Config {
	return spam.Config{
		Window: g.Spam.Window.D(),
		Limit:  g.Spam.Limit,
		Block:  g.Spam.Block.D(),
	}
}

// Bot returns the command engine settings.
func (g GameConfig) Bot() bot.Config {
	return bot.Config{
		Keywords: bot.Keywords{
			Claim:  g.Keywords.Claim,
			Status: g.Keywords.Status,
			Top:    g.Keywords.Top,
			Miner:  g.Keywords.Miner,
			Give:   g.Keywords.Give,
			Help:   g.Keywords.Help,
		},
		TopN:         g.TopN,
		ReplyUnknown: g.ReplyUnknown,
	}
}
