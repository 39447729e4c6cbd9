package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port     string `envconfig:"PORT" default:"3000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error

	DBDriver    string `envconfig:"DB_DRIVER" default:"postgres"` // postgres|mysql|sqlite
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"168h"`
	Domain    string        `envconfig:"DOMAIN"`

	ClientURL      string   `envconfig:"CLIENT_URL"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`

	DefaultAlertThreshold  float64       `envconfig:"DEFAULT_ALERT_THRESHOLD" default:"40"`
	ThresholdSweepInterval time.Duration `envconfig:"THRESHOLD_SWEEP_INTERVAL" default:"1h"`

	UploadDir      string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	UploadMaxBytes int64  `envconfig:"UPLOAD_MAX_BYTES" default:"10485760"`
	PublicURL      string `envconfig:"PUBLIC_URL" default:"http://localhost:3000"`

	S3 S3Config `envconfig:"S3"`

	SMTP SMTPConfig `envconfig:"SMTP"`

	AMQPURL   string `envconfig:"AMQP_URL"`
	MailQueue string `envconfig:"MAIL_QUEUE" default:"mail"`

	RedisURL           string `envconfig:"REDIS_URL"`
	RateLimitPerMinute int64  `envconfig:"RATE_LIMIT_PER_MINUTE" default:"20"`

	Twilio TwilioConfig `envconfig:"TWILIO"`
}

type S3Config struct {
	Bucket          string `envconfig:"BUCKET"`
	Region          string `envconfig:"REGION" default:"us-east-1"`
	Endpoint        string `envconfig:"ENDPOINT"`
	AccessKeyID     string `envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"SECRET_ACCESS_KEY"`
	PublicURL       string `envconfig:"PUBLIC_URL"`
}

// Enabled reports whether enough S3 settings are present to attempt uploads.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type SMTPConfig struct {
	Host     string `envconfig:"HOST"`
	Port     int    `envconfig:"PORT" default:"587"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	From     string `envconfig:"FROM" default:"Its Done <no-reply@itsdone.app>"`
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type TwilioConfig struct {
	AccountSID string `envconfig:"ACCOUNT_SID"`
	AuthToken  string `envconfig:"AUTH_TOKEN"`
	From       string `envconfig:"FROM"`
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// LoadEnvFile loads variables from a .env file in the working directory.
// A missing file is not an error.
func LoadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Origins returns the CORS origins allowed to call the API.
func (c Config) Origins() []string {
	origins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	if c.ClientURL != "" {
		origins = append(origins, c.ClientURL)
	}

	for _, origin := range c.AllowedOrigins {
		if origin != "" {
			origins = append(origins, origin)
		}
	}

	return origins
}
