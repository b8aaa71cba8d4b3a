package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const appID = "orderservice"

type config struct {
	ServeRESTAddress string `envconfig:"serve_rest_address" default:":8080"`
	ServeGRPCAddress string `envconfig:"serve_grpc_address" default:":8081"`

	DatabaseUser     string `envconfig:"database_user"`
	DatabasePassword string `envconfig:"database_password"`
	DatabaseHost     string `envconfig:"database_host" default:"127.0.0.1:3306"`
	DatabaseName     string `envconfig:"database_name" default:"orders"`
	DatabaseMaxConn  int    `envconfig:"database_max_conn" default:"10"`

	StripeSecretKey     string `envconfig:"stripe_secret_key"`
	StripeWebhookSecret string `envconfig:"stripe_webhook_secret"`
	PaymentCurrency     string `envconfig:"payment_currency" default:"usd"`
	FrontendURL         string `envconfig:"frontend_url" default:"http://localhost:3000"`

	EventBroker    string `envconfig:"event_broker" default:"log"`
	AMQPURL        string `envconfig:"amqp_url"`
	AMQPExchange   string `envconfig:"amqp_exchange" default:"orders"`
	KafkaBrokers   string `envconfig:"kafka_brokers"`
	KafkaTopic     string `envconfig:"kafka_topic" default:"orders"`
	OTLPEndpoint   string `envconfig:"otlp_endpoint"`
	ServiceVersion string `envconfig:"service_version" default:"dev"`

	RequestTimeout time.Duration `envconfig:"request_timeout" default:"10s"`
	LogLevel       string        `envconfig:"log_level" default:"info"`
}

func parseEnv() (*config, error) {
	c := new(config)
	if err := envconfig.Process("", c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	return c, nil
}
