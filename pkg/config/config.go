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
	Upstream      UpstreamConfig
	Bidding       BiddingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"KURUMART_APP_ENV" required:"true"`
	Port         string `envconfig:"KURUMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KURUMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KURUMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KURUMART_DB_DSN"`
	Driver string `envconfig:"KURUMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KURUMART_DB_HOST"`
	LegacyPort     int    `envconfig:"KURUMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KURUMART_DB_USER"`
	LegacyPassword string `envconfig:"KURUMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"KURUMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"KURUMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KURUMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KURUMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KURUMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KURUMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KURUMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KURUMART_REDIS_ADDR"`
	Password     string        `envconfig:"KURUMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"KURUMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KURUMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KURUMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KURUMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KURUMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KURUMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"KURUMART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"KURUMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"KURUMART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"KURUMART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KURUMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KURUMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KURUMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KURUMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KURUMART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"KURUMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"KURUMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"KURUMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KURUMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KURUMART_AUTO_MIGRATE" default:"false"`
}

// UpstreamConfig describes the auction-house endpoints the bid coordinator
// talks to: a websocket feed for broadcasts and an HTTP API for submissions.
type UpstreamConfig struct {
	FeedURL          string        `envconfig:"KURUMART_UPSTREAM_FEED_URL" required:"true"`
	APIURL           string        `envconfig:"KURUMART_UPSTREAM_API_URL" required:"true"`
	APIToken         string        `envconfig:"KURUMART_UPSTREAM_API_TOKEN"`
	DialTimeout      time.Duration `envconfig:"KURUMART_UPSTREAM_DIAL_TIMEOUT" default:"10s"`
	SubmitTimeout    time.Duration `envconfig:"KURUMART_UPSTREAM_SUBMIT_TIMEOUT" default:"15s"`
	ReconnectBase    time.Duration `envconfig:"KURUMART_UPSTREAM_RECONNECT_BASE" default:"1s"`
	ReconnectCeiling time.Duration `envconfig:"KURUMART_UPSTREAM_RECONNECT_CEILING" default:"30s"`
}

type BiddingConfig struct {
	EventBuffer    int `envconfig:"KURUMART_BIDDING_EVENT_BUFFER" default:"256"`
	SubscriberSeed int `envconfig:"KURUMART_BIDDING_SUBSCRIBER_SEED" default:"64"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"KURUMART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"KURUMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"KURUMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BidEventsTopic string `envconfig:"KURUMART_PUBSUB_BID_EVENTS_TOPIC" default:"km-bid-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KURUMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KURUMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KURUMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
