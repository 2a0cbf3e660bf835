package config

import (
	"time"

	"github.com/tendant/legendboard/pkg/notification"
)

// EmailConfig holds SMTP email configuration
type EmailConfig struct {
	Host        string `env:"EMAIL_HOST" env-default:"localhost" yaml:"host"`
	Port        uint16 `env:"EMAIL_PORT" env-default:"1025" yaml:"port"`
	Username    string `env:"EMAIL_USERNAME" env-default:"noreply@example.com" yaml:"username"`
	Password    string `env:"EMAIL_PASSWORD" env-default:"pwd" yaml:"password"`
	From        string `env:"EMAIL_FROM" env-default:"noreply@example.com" yaml:"from"`
	TLS         bool   `env:"EMAIL_TLS" env-default:"false" yaml:"tls"`
	SendTimeout string `env:"EMAIL_SEND_TIMEOUT" env-default:"PT15S" yaml:"send_timeout"`
}

// ToSMTPConfig converts the config to a notification.SMTPConfig
func (e EmailConfig) ToSMTPConfig() notification.SMTPConfig {
	timeout, err := ParseDuration(e.SendTimeout)
	if err != nil {
		timeout = 15 * time.Second
	}
	return notification.SMTPConfig{
		Host:     e.Host,
		Port:     int(e.Port),
		Username: e.Username,
		Password: e.Password,
		From:     e.From,
		TLS:      e.TLS,
		Timeout:  timeout,
	}
}
