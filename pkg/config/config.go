package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Ledger        LedgerConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Stripe        StripeConfig
	FCM           FCMConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TIMEBANK_APP_ENV" required:"true"`
	Port         string `envconfig:"TIMEBANK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TIMEBANK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TIMEBANK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TIMEBANK_DB_DSN"`
	Driver string `envconfig:"TIMEBANK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TIMEBANK_DB_HOST"`
	LegacyPort     int    `envconfig:"TIMEBANK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TIMEBANK_DB_USER"`
	LegacyPassword string `envconfig:"TIMEBANK_DB_PASSWORD"`
	LegacyName     string `envconfig:"TIMEBANK_DB_NAME"`
	LegacySSLMode  string `envconfig:"TIMEBANK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TIMEBANK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TIMEBANK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TIMEBANK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TIMEBANK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TIMEBANK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TIMEBANK_REDIS_ADDR"`
	Password     string        `envconfig:"TIMEBANK_REDIS_PASSWORD"`
	DB           int           `envconfig:"TIMEBANK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TIMEBANK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TIMEBANK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TIMEBANK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TIMEBANK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TIMEBANK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TIMEBANK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TIMEBANK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TIMEBANK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TIMEBANK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TIMEBANK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TIMEBANK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TIMEBANK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TIMEBANK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TIMEBANK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TIMEBANK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TIMEBANK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TIMEBANK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TIMEBANK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TIMEBANK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TIMEBANK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TIMEBANK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TIMEBANK_AUTO_MIGRATE" default:"false"`
}

type LedgerConfig struct {
	// SignupGrantHours is credited as earned hours when an account registers,
	// so new members can request their first service.
	SignupGrantHours string `envconfig:"TIMEBANK_LEDGER_SIGNUP_GRANT_HOURS" default:"2"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TIMEBANK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TIMEBANK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TIMEBANK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LedgerTopic        string `envconfig:"TIMEBANK_PUBSUB_LEDGER_TOPIC" default:"tb-ledger-events"`
	LedgerSubscription string `envconfig:"TIMEBANK_PUBSUB_LEDGER_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"TIMEBANK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"TIMEBANK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"TIMEBANK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"TIMEBANK_OUTBOX_IDEMPOTENCY_TTL" default:"24h"`
}

type StripeConfig struct {
	APIKey              string `envconfig:"TIMEBANK_STRIPE_API_KEY"`
	Secret              string `envconfig:"TIMEBANK_STRIPE_SECRET"`
	Env                 string `envconfig:"TIMEBANK_STRIPE_ENV" default:"test"`
	SubscriptionPriceID string `envconfig:"TIMEBANK_STRIPE_SUBSCRIPTION_PRICE_ID"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type FCMConfig struct {
	CredentialsJSON string `envconfig:"TIMEBANK_FCM_CREDENTIALS_JSON"`
	CredentialsFile string `envconfig:"TIMEBANK_FCM_CREDENTIALS_FILE"`
}

func (f FCMConfig) Enabled() bool {
	return strings.TrimSpace(f.CredentialsJSON) != "" || strings.TrimSpace(f.CredentialsFile) != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
