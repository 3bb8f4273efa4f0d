package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/zencounsel/counsel-api/pkg/messaging/redis"
	"github.com/zencounsel/counsel-api/pkg/worker"
)

// EnvPrefix namespaces every environment override, e.g. COUNSEL_DATABASE_HOST.
const EnvPrefix = "counsel"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Dynamo    DynamoConfig    `mapstructure:"dynamo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit" split_words:"true"`
	Booking   BookingConfig   `mapstructure:"booking"`
	Match     MatchConfig     `mapstructure:"match"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	RequestTimeout  time.Duration `mapstructure:"requestTimeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" split_words:"true"`
	// MaxBodyBytes caps request bodies; larger ones get 413.
	MaxBodyBytes int64 `mapstructure:"maxBodyBytes" split_words:"true"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// StoreConfig selects the appointment ledger backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

const (
	DriverPostgres = "postgres"
	DriverDynamo   = "dynamodb"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"maxOpenConns" split_words:"true"`
	MaxIdleConns int    `mapstructure:"maxIdleConns" split_words:"true"`
	AutoMigrate  bool   `mapstructure:"autoMigrate" split_words:"true"`
}

type DynamoConfig struct {
	Region            string `mapstructure:"region"`
	Endpoint          string `mapstructure:"endpoint"`
	AppointmentsTable string `mapstructure:"appointmentsTable" split_words:"true"`
	SlotLocksTable    string `mapstructure:"slotLocksTable" split_words:"true"`
	SlotIndex         string `mapstructure:"slotIndex" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"maxRetries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retryBackoff" split_words:"true"`
	PoolSize     int           `mapstructure:"poolSize" split_words:"true"`
	MinIdleConns int           `mapstructure:"minIdleConns" split_words:"true"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Issuer     string `mapstructure:"issuer"`
	AdminGroup string `mapstructure:"adminGroup" split_words:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requestsPerSecond" split_words:"true"`
	Burst             int           `mapstructure:"burst"`
	ClientTTL         time.Duration `mapstructure:"clientTTL" envconfig:"CLIENT_TTL"`
}

// BookingConfig describes the slot catalogues. Windows are "HH:MM-HH:MM"
// ranges in which appointment slots of StepMinutes are offered.
type BookingConfig struct {
	Windows                 []string `mapstructure:"windows"`
	StepMinutes             int      `mapstructure:"stepMinutes" split_words:"true"`
	Timezone                string   `mapstructure:"timezone"`
	ConsultationStart       string   `mapstructure:"consultationStart" split_words:"true"`
	ConsultationEnd         string   `mapstructure:"consultationEnd" split_words:"true"`
	ConsultationStepMinutes int      `mapstructure:"consultationStepMinutes" split_words:"true"`
}

type MatchConfig struct {
	PrimaryWeight  float64             `mapstructure:"primaryWeight" split_words:"true"`
	SubTagWeight   float64             `mapstructure:"subTagWeight" split_words:"true"`
	LanguageWeight float64             `mapstructure:"languageWeight" split_words:"true"`
	ExperienceCap  float64             `mapstructure:"experienceCap" split_words:"true"`
	TopK           int                 `mapstructure:"topK" envconfig:"TOP_K"`
	PoolCacheTTL   time.Duration       `mapstructure:"poolCacheTTL" envconfig:"POOL_CACHE_TTL"`
	Stems          map[string][]string `mapstructure:"stems" ignored:"true"`
	// SubTagCategories limits the sub-attribute bonus to these categories.
	// Empty means every category is eligible.
	SubTagCategories []string `mapstructure:"subTagCategories" split_words:"true"`
}

type OutboxConfig struct {
	BatchSize       int           `mapstructure:"batchSize" split_words:"true"`
	PollInterval    time.Duration `mapstructure:"pollInterval" split_words:"true"`
	RetryAttempts   int           `mapstructure:"retryAttempts" split_words:"true"`
	RetryDelay      time.Duration `mapstructure:"retryDelay" split_words:"true"`
	Lease           time.Duration `mapstructure:"lease"`
	MaxFailures     int           `mapstructure:"maxFailures" split_words:"true"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanupInterval" split_words:"true"`
	// Embedded runs the relay inside the API process instead of cmd/worker.
	Embedded bool `mapstructure:"embedded"`
	// HealthPort serves the worker's probes and metrics.
	HealthPort int `mapstructure:"healthPort" split_words:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.requestTimeout", 15*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.maxBodyBytes", 64<<10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	v.SetDefault("store.driver", DriverPostgres)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "counsel")
	v.SetDefault("database.name", "counsel")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 20)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.autoMigrate", true)

	v.SetDefault("dynamo.region", "ap-south-1")
	v.SetDefault("dynamo.appointmentsTable", "ZenAppointments")
	v.SetDefault("dynamo.slotLocksTable", "ZenSlotLocks")
	v.SetDefault("dynamo.slotIndex", "CounsellorDateSlotIndex")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "counsel.events")
	v.SetDefault("redis.maxRetries", 3)
	v.SetDefault("redis.retryBackoff", 100*time.Millisecond)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 2)

	v.SetDefault("jwt.adminGroup", "Admins")

	v.SetDefault("cors.allowedOrigins", []string{
		"http://localhost:3000",
		"https://www.zensoulwellness.com",
		"https://zensoulwellness.com",
	})

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerSecond", 10.0)
	v.SetDefault("rateLimit.burst", 20)
	v.SetDefault("rateLimit.clientTTL", 10*time.Minute)

	v.SetDefault("booking.windows", []string{"09:00-13:00", "15:00-19:00"})
	v.SetDefault("booking.stepMinutes", 30)
	v.SetDefault("booking.timezone", "Asia/Kolkata")
	v.SetDefault("booking.consultationStart", "09:00")
	v.SetDefault("booking.consultationEnd", "20:45")
	v.SetDefault("booking.consultationStepMinutes", 15)

	v.SetDefault("match.primaryWeight", 60.0)
	v.SetDefault("match.subTagWeight", 20.0)
	v.SetDefault("match.languageWeight", 10.0)
	v.SetDefault("match.experienceCap", 10.0)
	v.SetDefault("match.topK", 10)
	v.SetDefault("match.poolCacheTTL", 60*time.Second)
	v.SetDefault("match.subTagCategories", []string{"addiction"})
	v.SetDefault("match.stems", map[string][]string{
		"addiction":       {"addiction", "substance", "alcohol", "drug", "de-addiction", "rehab"},
		"anxiety":         {"anxiety"},
		"depression":      {"depression", "mood"},
		"teen therapy":    {"teen", "adolescent", "child"},
		"couples therapy": {"couples", "marriage", "relationship"},
	})

	v.SetDefault("outbox.batchSize", 100)
	v.SetDefault("outbox.pollInterval", 2*time.Second)
	v.SetDefault("outbox.retryAttempts", 3)
	v.SetDefault("outbox.retryDelay", time.Second)
	v.SetDefault("outbox.lease", 30*time.Second)
	v.SetDefault("outbox.maxFailures", 5)
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.cleanupInterval", time.Hour)
	v.SetDefault("outbox.embedded", false)
	v.SetDefault("outbox.healthPort", 8081)
}

// LoadConfig reads config.yaml from the usual locations (or the explicit
// path when given), then applies COUNSEL_* environment overrides.
// A missing file is not an error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config.normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))

	stems := make(map[string][]string, len(c.Match.Stems))
	for k, v := range c.Match.Stems {
		stems[strings.ToLower(strings.TrimSpace(k))] = v
	}
	c.Match.Stems = stems
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverDynamo, DriverMemory:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Match.TopK <= 0 {
		return fmt.Errorf("match.topK must be greater than 0")
	}
	if len(c.Booking.Windows) == 0 || c.Booking.StepMinutes <= 0 {
		return fmt.Errorf("booking windows and stepMinutes are required")
	}
	if c.Booking.ConsultationStepMinutes <= 0 {
		return fmt.Errorf("booking.consultationStepMinutes must be greater than 0")
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid booking.timezone: %w", err)
	}
	return nil
}

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

func (c *OutboxConfig) ToWorkerConfig(channel string) worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		Channel:       channel,
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
		Lease:         c.Lease,
		MaxFailures:   c.MaxFailures,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
