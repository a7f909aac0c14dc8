package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/LJTian/EstateNews/internal/collector"
	"github.com/spf13/viper"
)

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
	RateLimit   time.Duration `mapstructure:"rate_limit"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type Config struct {
	AppPort string `mapstructure:"app_port"`
	DataDir string `mapstructure:"data_dir"`

	// 两者为空时分别关闭翻译缓存与 Postgres 镜像
	PostgresDSN string `mapstructure:"postgres_dsn"`
	RedisAddr   string `mapstructure:"redis_addr"`

	CronSpec string `mapstructure:"cron_spec"`

	BasicAuthUser string `mapstructure:"basic_user"`
	BasicAuthPass string `mapstructure:"basic_pass"`

	WebRoot         string `mapstructure:"web_root"`
	FrontendOrigins string `mapstructure:"frontend_origins"`

	Translate        bool   `mapstructure:"translate"`
	TranslateTarget  string `mapstructure:"translate_target"`
	IncrementalPages int    `mapstructure:"incremental_pages"`

	Retry RetryConfig `mapstructure:"retry"`
}

var defaults = map[string]any{
	"app_port":           "9000",
	"data_dir":           "data",
	"postgres_dsn":       "",
	"redis_addr":         "",
	"cron_spec":          "0 */6 * * *",
	"basic_user":         "",
	"basic_pass":         "",
	"web_root":           "",
	"frontend_origins":   "http://localhost:5173,http://localhost:8080",
	"translate":          true,
	"translate_target":   "en",
	"incremental_pages":  1,
	"retry.max_attempts": 3,
	"retry.delay":        "5s",
	"retry.rate_limit":   "2s",
	"retry.timeout":      "30s",
}

// 与 key 名不一致的环境变量
var envAliases = map[string]string{
	"basic_user": "APP_BASIC_USER",
	"basic_pass": "APP_BASIC_PASS",
}

// Load 依次读取默认值、./config.yaml 或 ./config/config.yaml、环境变量
func Load() *Config {
	return load(".", "./config")
}

func load(paths ...string) *Config {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("warn: read config file: %v", err)
		}
	} else {
		log.Printf("config file: %s", v.ConfigFileUsed())
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		log.Printf("warn: decode config: %v", err)
	}
	if cfg.IncrementalPages < 1 {
		cfg.IncrementalPages = 1
	}

	log.Printf("config loaded: port=%s data=%s cron=%s translate=%v", cfg.AppPort, cfg.DataDir, cfg.CronSpec, cfg.Translate)
	return cfg
}

// Origins 把逗号分隔的前端来源拆成列表，为空时允许全部
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.FrontendOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func (c *Config) RetryPolicy() collector.RetryPolicy {
	p := collector.DefaultRetryPolicy()
	if c.Retry.MaxAttempts > 0 {
		p.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.Delay >= 0 {
		p.RetryDelay = c.Retry.Delay
	}
	if c.Retry.RateLimit >= 0 {
		p.RateLimit = c.Retry.RateLimit
	}
	if c.Retry.Timeout > 0 {
		p.Timeout = c.Retry.Timeout
	}
	return p
}

// Now returns current time, 方便后续做可测试封装
func Now() time.Time {
	return time.Now()
}
