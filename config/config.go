package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wfunc/gravesugoroku/dice"
	"github.com/wfunc/gravesugoroku/game"
	"github.com/wfunc/gravesugoroku/room"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Game     GameConfig     `mapstructure:"game"`
	Physics  PhysicsConfig  `mapstructure:"physics"`
	Settle   SettleConfig   `mapstructure:"settle"`
	Movement MovementConfig `mapstructure:"movement"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	// Heartbeat is how often a UI must speak before it is dropped.
	Heartbeat time.Duration `mapstructure:"heartbeat"`
	// OrphanGrace keeps a table open this long after its UI leaves.
	OrphanGrace time.Duration `mapstructure:"orphan_grace"`
}

type DatabaseConfig struct {
	// Driver selects the archive backend: gorm, pq or none.
	Driver        string         `mapstructure:"driver"`
	ArchiveBuffer int            `mapstructure:"archive_buffer"`
	Postgres      PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File enables a rolling log file instead of stderr.
	File string `mapstructure:"file"`
}

type GameConfig struct {
	PlayerCount int     `mapstructure:"player_count"`
	GraveCount  int     `mapstructure:"grave_count"`
	GridSize    int     `mapstructure:"grid_size"`
	BoardSize   float64 `mapstructure:"board_size"`
	Seed        int64   `mapstructure:"seed"`
}

type PhysicsConfig struct {
	FixedStep   time.Duration `mapstructure:"fixed_step"`
	FrameStep   time.Duration `mapstructure:"frame_step"`
	Gravity     float64       `mapstructure:"gravity"`
	SpawnHeight float64       `mapstructure:"spawn_height"`
}

type SettleConfig struct {
	VelocityThreshold float64       `mapstructure:"velocity_threshold"`
	StopTime          time.Duration `mapstructure:"stop_time"`
	FallY             float64       `mapstructure:"fall_y"`
}

type MovementConfig struct {
	CellDuration time.Duration `mapstructure:"cell_duration"`
	Pause        time.Duration `mapstructure:"pause"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.metrics_address", ":9090")
	v.SetDefault("server.heartbeat", "30s")
	v.SetDefault("server.orphan_grace", "2m")

	v.SetDefault("database.driver", "none")
	v.SetDefault("database.archive_buffer", 256)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "sugoroku")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("game.player_count", 4)
	v.SetDefault("game.grave_count", 4)
	v.SetDefault("game.grid_size", 9)
	v.SetDefault("game.board_size", 9.0)
	v.SetDefault("game.seed", 0)

	v.SetDefault("physics.fixed_step", "20ms")
	v.SetDefault("physics.frame_step", "16ms")
	v.SetDefault("physics.gravity", -20.0)
	v.SetDefault("physics.spawn_height", 4.5)

	v.SetDefault("settle.velocity_threshold", 0.05)
	v.SetDefault("settle.stop_time", "300ms")
	v.SetDefault("settle.fall_y", -3.0)

	v.SetDefault("movement.cell_duration", "150ms")
	v.SetDefault("movement.pause", "50ms")
}

// LoadConfig reads config.yaml from path. A missing file is fine; defaults
// and SUGOROKU_* environment variables still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("sugoroku")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Game.PlayerCount < game.MinPlayers || c.Game.PlayerCount > game.MaxPlayers:
		return fmt.Errorf("%w: game.player_count %d", ErrInvalidConfig, c.Game.PlayerCount)
	case c.Game.GraveCount < 1:
		return fmt.Errorf("%w: game.grave_count %d", ErrInvalidConfig, c.Game.GraveCount)
	case c.Game.GridSize < 2:
		return fmt.Errorf("%w: game.grid_size %d", ErrInvalidConfig, c.Game.GridSize)
	case c.Game.BoardSize <= 0:
		return fmt.Errorf("%w: game.board_size %v", ErrInvalidConfig, c.Game.BoardSize)
	case c.Physics.FixedStep <= 0 || c.Physics.FrameStep <= 0:
		return fmt.Errorf("%w: physics steps must be positive", ErrInvalidConfig)
	case c.Settle.VelocityThreshold <= 0 || c.Settle.StopTime < 0:
		return fmt.Errorf("%w: settle thresholds", ErrInvalidConfig)
	case c.Server.OrphanGrace < 0:
		return fmt.Errorf("%w: server.orphan_grace %v", ErrInvalidConfig, c.Server.OrphanGrace)
	case c.Movement.CellDuration < 0 || c.Movement.Pause < 0:
		return fmt.Errorf("%w: movement timing", ErrInvalidConfig)
	}
	switch c.Database.Driver {
	case "gorm", "pq", "none":
	default:
		return fmt.Errorf("%w: database.driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	return nil
}

// RoomOptions builds the table options the server hands to new rooms.
func (c *Config) RoomOptions() room.Options {
	g := game.DefaultConfig()
	g.GraveCount = c.Game.GraveCount
	g.GridSize = c.Game.GridSize
	g.BoardSize = c.Game.BoardSize
	g.SpawnHeight = c.Physics.SpawnHeight
	g.Seed = c.Game.Seed
	g.Tracker = dice.TrackerConfig{
		VelocityThreshold: c.Settle.VelocityThreshold,
		StopTime:          c.Settle.StopTime,
		FallY:             c.Settle.FallY,
	}
	g.Movement = game.MovementConfig{
		CellDuration: c.Movement.CellDuration,
		Pause:        c.Movement.Pause,
	}

	return room.Options{
		Game:        g,
		PlayerCount: c.Game.PlayerCount,
		FixedStep:   c.Physics.FixedStep,
		FrameStep:   c.Physics.FrameStep,
		Gravity:     c.Physics.Gravity,
	}
}
