package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cron      CronConfig      `mapstructure:"cron"`
	Screening ScreeningConfig `mapstructure:"screening"`
	Importer  ImporterConfig  `mapstructure:"importer"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type CronConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ExpirationSweep   string `mapstructure:"expiration_sweep"`
	CycleRefresh      string `mapstructure:"cycle_refresh"`
	SnapshotRecompute string `mapstructure:"snapshot_recompute"`
}

// ScreeningConfig holds default indicator parameters used for per-ticker
// snapshots when a profile does not override them.
type ScreeningConfig struct {
	RSIPeriod       int     `mapstructure:"rsi_period"`
	BBPeriod        int     `mapstructure:"bb_period"`
	BBStdDev        float64 `mapstructure:"bb_std_dev"`
	MACDFast        int     `mapstructure:"macd_fast"`
	MACDSlow        int     `mapstructure:"macd_slow"`
	MACDSignal      int     `mapstructure:"macd_signal"`
	VolumeSMAPeriod int     `mapstructure:"volume_sma_period"`
	SMAPeriods      []int   `mapstructure:"sma_periods"`
	EMAPeriods      []int   `mapstructure:"ema_periods"`
	MaxHistoryBars  int     `mapstructure:"max_history_bars"`
}

type ImporterConfig struct {
	MaxRowErrors int `mapstructure:"max_row_errors"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.expiration_sweep", "@daily")
	v.SetDefault("cron.cycle_refresh", "@daily")
	v.SetDefault("cron.snapshot_recompute", "@every 6h")
	v.SetDefault("screening.rsi_period", 14)
	v.SetDefault("screening.bb_period", 20)
	v.SetDefault("screening.bb_std_dev", 2.0)
	v.SetDefault("screening.macd_fast", 12)
	v.SetDefault("screening.macd_slow", 26)
	v.SetDefault("screening.macd_signal", 9)
	v.SetDefault("screening.volume_sma_period", 20)
	v.SetDefault("screening.sma_periods", []int{20, 50, 200})
	v.SetDefault("screening.ema_periods", []int{9, 21})
	v.SetDefault("screening.max_history_bars", 400)
	v.SetDefault("importer.max_row_errors", 50)

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional; defaults plus WJ_* env vars are
		// enough to boot in dev.
		if !strings.Contains(err.Error(), "no such file") {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
