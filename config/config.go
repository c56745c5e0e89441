package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	OSS      OSSConfig      `mapstructure:"oss"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Models   []ModelConfig  `mapstructure:"models"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// StripeConfig 计费配置。SecretKey 和 WebhookSecret 是 server 启动的硬性要求，
// 缺失时直接启动失败，而不是等收到 webhook 才报错。
type StripeConfig struct {
	SecretKey     string       `mapstructure:"secret_key"`
	WebhookSecret string       `mapstructure:"webhook_secret"`
	FrontendURL   string       `mapstructure:"frontend_url"`
	Prices        PricesConfig `mapstructure:"prices"`
}

// PricesConfig Stripe Price ID 配置。
// 正式环境用 config.local.yaml 或环境变量覆盖为 Stripe 控制台里的真实 price_xxx。
type PricesConfig struct {
	ProMonthly  string `mapstructure:"pro_monthly"`
	ProYearly   string `mapstructure:"pro_yearly"`
	TeamMonthly string `mapstructure:"team_monthly"`
	TeamYearly  string `mapstructure:"team_yearly"`
	Tokens100K  string `mapstructure:"tokens_100k"`
	Tokens500K  string `mapstructure:"tokens_500k"`
	Tokens1M    string `mapstructure:"tokens_1m"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type QueueConfig struct {
	GenerationQueue string `mapstructure:"generation_queue"`
	MaxWorkers      int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// ModelConfig 生成模型配置，RequiredPlan 控制套餐可用性
type ModelConfig struct {
	Name         string `mapstructure:"name"`
	DisplayName  string `mapstructure:"display_name"`
	RequiredPlan string `mapstructure:"required_plan"`
	APIKey       string `mapstructure:"api_key"`
	Description  string `mapstructure:"description"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateBilling 校验计费必需的密钥，server 启动时调用
func (c *Config) ValidateBilling() error {
	if c.Stripe.SecretKey == "" {
		return errors.New("stripe.secret_key is required")
	}
	if c.Stripe.WebhookSecret == "" {
		return errors.New("stripe.webhook_secret is required")
	}
	return nil
}
