package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	APIAddr   string `env:"API_ADDR,default=:8080"`
	AdminAddr string `env:"ADMIN_ADDR,default=localhost:8081"`
	BaseURL   string `env:"BASE_URL,default=http://localhost:8080"`

	TokenExpiry time.Duration `env:"TOKEN_EXPIRY,default=24h"`

	UploadsPath    string `env:"UPLOADS_PATH,default=uploads"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES,default=10485760"`

	// When set, clients may only subscribe to rooms of conversations they
	// participate in. Off by default: the observed trust boundary allows
	// subscribing to any room id.
	SubscribeCheckMembership bool `env:"SUBSCRIBE_CHECK_MEMBERSHIP,default=false"`

	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `env:"VAPID_CONTACT,default=mailto:admin@localhost"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.TokenExpiry <= 0 {
		return fmt.Errorf("TOKEN_EXPIRY must be greater than 0")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be greater than 0")
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together")
	}
	return nil
}
