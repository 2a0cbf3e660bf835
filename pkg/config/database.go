package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host           string `env:"LB_PG_HOST" env-default:"localhost" yaml:"host"`
	Port           uint16 `env:"LB_PG_PORT" env-default:"5432" yaml:"port"`
	Database       string `env:"LB_PG_DATABASE" env-default:"legendboard" yaml:"database"`
	User           string `env:"LB_PG_USER" env-default:"legendboard" yaml:"user"`
	Password       string `env:"LB_PG_PASSWORD" env-default:"pwd" yaml:"password"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" env-default:"false" yaml:"migrate_on_start"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}
