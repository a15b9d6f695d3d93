package notifier_config

import (
	"time"

	"github.com/heraldhq/herald/internal/intake"
	"github.com/heraldhq/herald/internal/obs"
	"github.com/heraldhq/herald/internal/outbound"
	pginfra "github.com/heraldhq/herald/internal/repository/postgres"
)

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Env    string `mapstructure:"env"`
	Ver    string `mapstructure:"ver"`
}

func (l Log) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{Level: l.Level, Pretty: l.Pretty, App: "notifier", Env: l.Env, Ver: l.Ver}
}

type OTEL struct {
	Enable      bool    `mapstructure:"enable"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Endpoint    string  `mapstructure:"otlp_endpoint"`
}

func (o OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      o.Enable,
		Endpoint:    o.Endpoint,
		ServiceName: o.ServiceName,
		SampleRatio: o.SampleRatio,
	}
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Notify struct {
	Enabled        bool          `mapstructure:"enabled"`
	QueueInterval  time.Duration `mapstructure:"queue_interval"`
	DigestInterval time.Duration `mapstructure:"digest_interval"`
}

type Config struct {
	DB     pginfra.Config        `mapstructure:"db"`
	Redis  Redis                 `mapstructure:"redis"`
	In     intake.ConsumerConfig `mapstructure:"kafka_in"`
	SMTP   outbound.SMTPConfig   `mapstructure:"smtp"`
	Chat   outbound.ChatConfig   `mapstructure:"chat"`
	Notify Notify                `mapstructure:"notify"`
	Server Server                `mapstructure:"server"`
	OTEL   OTEL                  `mapstructure:"otel"`
	Log    Log                   `mapstructure:"log"`
}
