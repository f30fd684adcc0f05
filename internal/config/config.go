package config

import (
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8080"`

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

type PostgresConfig struct {
	Host          string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port          int    `env:"POSTGRES_PORT" env-default:"5432"`
	User          string `env:"POSTGRES_USER" env-default:"postgres"`
	Password      string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DBName        string `env:"POSTGRES_DB" env-default:"marketplace"`
	MigrationsDir string `env:"MIGRATIONS_DIR" env-default:"./migrations"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `env:"REDIS_PASSWORD" env-default:""`
	CartTTL  time.Duration `env:"REDIS_CART_TTL" env-default:"15m"`
}

type KafkaConfig struct {
	Brokers string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BrokerList splits the comma-separated broker addresses.
func (k KafkaConfig) BrokerList() []string {
	return strings.Split(k.Brokers, ",")
}
