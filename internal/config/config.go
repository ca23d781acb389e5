package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database  *dbConfig
	Service   *svcConfig
	Artifacts *artifactsConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"assetforge"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address               string        `envconfig:"ASSET_FORGE_ADDRESS" default:":8080"`
	MetricsAddress        string        `envconfig:"ASSET_FORGE_METRICS_ADDRESS" default:":8081"`
	BaseUrl               string        `envconfig:"ASSET_FORGE_BASE_URL" default:"http://localhost:8080"`
	LogLevel              string        `envconfig:"ASSET_FORGE_LOG_LEVEL" default:"info"`
	GenerationServiceUrl  string        `envconfig:"ASSET_FORGE_GENERATION_SERVICE_URL" default:"http://localhost:5001"`
	GenerationTimeout     time.Duration `envconfig:"ASSET_FORGE_GENERATION_TIMEOUT" default:"60s"`
	CallbackBaseUrl       string        `envconfig:"ASSET_FORGE_CALLBACK_BASE_URL" default:""`
	PollInterval          time.Duration `envconfig:"ASSET_FORGE_POLL_INTERVAL" default:"15s"`
	SweepConcurrency      int           `envconfig:"ASSET_FORGE_SWEEP_CONCURRENCY" default:"8"`
	MaterializeRetryLimit int           `envconfig:"ASSET_FORGE_MATERIALIZE_RETRY_LIMIT" default:"5"`
	MigrationFolder       string        `envconfig:"ASSET_FORGE_MIGRATIONS_FOLDER" default:""`
}

type artifactsConfig struct {
	Endpoint      string `envconfig:"ASSET_FORGE_S3_ENDPOINT" default:"localhost:9000"`
	Bucket        string `envconfig:"ASSET_FORGE_S3_BUCKET" default:"assets"`
	AccessKey     string `envconfig:"ASSET_FORGE_S3_ACCESS_KEY" default:""`
	SecretKey     string `envconfig:"ASSET_FORGE_S3_SECRET_KEY" default:""`
	UseSSL        bool   `envconfig:"ASSET_FORGE_S3_USE_SSL" default:"false"`
	PublicBaseUrl string `envconfig:"ASSET_FORGE_S3_PUBLIC_BASE_URL" default:""`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}
