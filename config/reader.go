package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// OAuthClient - реквизиты одного OAuth-провайдера. Берутся только из
// окружения, в yaml секреты не кладем.
type OAuthClient struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// Secrets - секреты процесса, накладываются поверх yaml при загрузке
type Secrets struct {
	SessionSecret string      `env:"SESSION_SECRET"`
	RabbitURL     string      `env:"RABBITMQ_URL"`
	Google        OAuthClient `envPrefix:"GOOGLE_"`
	Kakao         OAuthClient `envPrefix:"KAKAO_"`
}

type ConfigSchema struct {
	Backend struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"backend"`
	Databases struct {
		Master   DBConfig   `yaml:"master"`
		Replicas []DBConfig `yaml:"replicas"`
	} `yaml:"db"`
	Redis RedisConfig `yaml:"redis"`
	Auth  struct {
		// Список включенных провайдеров: google, kakao.
		Providers []string `yaml:"providers"`
		// Куда уводим браузер после успешного callback
		PostLoginRedirect string `yaml:"post_login_redirect"`
	} `yaml:"auth"`
	Logs struct {
		Level string `yaml:"level"`
	} `yaml:"logs"`

	Secrets Secrets `yaml:"-"`
}

var AppConfig *ConfigSchema

// LoadConfig читает yaml-конфиг, накладывает секреты из окружения и
// валидирует результат. Отсутствие обязательного секрета - ошибка
// старта, а не запроса.
func LoadConfig(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	var cfg ConfigSchema
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	if err := env.Parse(&cfg.Secrets); err != nil {
		return fmt.Errorf("read secrets from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	AppConfig = &cfg
	return nil
}

// Validate проверяет, что без чего сервис не имеет права стартовать
func (c *ConfigSchema) Validate() error {
	if c.Databases.Master.Host == "" {
		return fmt.Errorf("db.master.host is required")
	}
	if c.Secrets.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	for _, p := range c.Auth.Providers {
		client, err := c.ProviderClient(p)
		if err != nil {
			return err
		}
		if client.ClientID == "" || client.ClientSecret == "" {
			return fmt.Errorf("oauth provider %q is enabled but its client id/secret are not set", p)
		}
	}
	return nil
}

// ProviderClient возвращает реквизиты включенного провайдера по имени
func (c *ConfigSchema) ProviderClient(name string) (*OAuthClient, error) {
	switch name {
	case "google":
		return &c.Secrets.Google, nil
	case "kakao":
		return &c.Secrets.Kakao, nil
	default:
		return nil, fmt.Errorf("unknown oauth provider %q", name)
	}
}
