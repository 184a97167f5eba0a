package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11000"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"MAILWEAVE_POSTGRES_HOST,required"`
	Port            string `env:"MAILWEAVE_POSTGRES_PORT,required"`
	User            string `env:"MAILWEAVE_POSTGRES_USER,required"`
	DBName          string `env:"MAILWEAVE_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILWEAVE_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILWEAVE_POSTGRES_DB_MAX_CONN" envDefault:"50"`
	MaxIdleConn     int    `env:"MAILWEAVE_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"MAILWEAVE_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"MAILWEAVE_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MAILWEAVE_POSTGRES_SSL_MODE" envDefault:"disable"`
}

// IdentityConfig points at the external identity service: caller JWTs are
// verified against its JWKS, provider access tokens are fetched from its
// token endpoint.
type IdentityConfig struct {
	JWKSURL          string `env:"IDENTITY_JWKS_URL,required"`
	Issuer           string `env:"IDENTITY_ISSUER,required"`
	Audience         string `env:"IDENTITY_AUDIENCE" envDefault:"mailweave"`
	ProviderTokenURL string `env:"IDENTITY_PROVIDER_TOKEN_URL,required"`
	ServiceKey       string `env:"IDENTITY_SERVICE_KEY,required"`
}

type WebhookConfig struct {
	// PublicBaseURL is where the remote provider reaches us; the notification
	// endpoint path is appended to it when subscriptions are created.
	PublicBaseURL        string `env:"WEBHOOK_PUBLIC_BASE_URL,required"`
	RenewalWindowMinutes int    `env:"WEBHOOK_RENEWAL_WINDOW_MINUTES" envDefault:"60"`
}
