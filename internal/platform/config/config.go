package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Cfg 是一个全局变量，保存加载后的应用配置
var Cfg *Config

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Freemium FreemiumConfig `mapstructure:"freemium"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode    string     `mapstructure:"mode"`
	Address string     `mapstructure:"address"`
	Cors    CorsConfig `mapstructure:"cors"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	Redis  RedisConfig  `mapstructure:"redis"`
	Sqlite SqliteConfig `mapstructure:"sqlite"`
}

// RedisConfig 定义了Redis的配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SqliteConfig 定义了SQLite的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// FreemiumConfig 定义了免费档的每日活动配额
// 这些是产品规则，允许通过配置调整；默认值与客户端展示的一致
type FreemiumConfig struct {
	// FreeDailyLimit 是免费订阅用户每个UTC日历日可完成的活动数
	FreeDailyLimit int `mapstructure:"freeDailyLimit"`
	// TrialDailyLimit 是试用期用户每日可完成的活动数
	TrialDailyLimit int `mapstructure:"trialDailyLimit"`
	// TrialDurationDays 是试用期的时长（天）
	TrialDurationDays int `mapstructure:"trialDurationDays"`
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在指定的路径中查找名为 config.yaml 的文件
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// 可以添加多个路径，Viper会按顺序查找
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// 允许通过环境变量覆盖配置，例如 SERVER_ADDRESS=:9090
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 未在配置文件中出现时的兜底默认值
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.sqlite.path", "brightbuddy.db")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("freemium.freeDailyLimit", 3)
	v.SetDefault("freemium.trialDailyLimit", 5)
	v.SetDefault("freemium.trialDurationDays", 7)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	Cfg = &cfg
	return Cfg, nil
}
