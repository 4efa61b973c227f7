package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	MongoURI    string
	DBName      string
	Environment string
	AppId       string
	CORSOrigins string

	// Per-recipient locking
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	// Trigger ingestion and effect publication
	NATSURL            string
	NATSTriggerSubject string
	NATSQueueGroup     string
	NATSEffectSubject  string

	// Engine
	SchedulerSpec   string
	SchedulerBatch  int
	RunMaxSteps     int
	RunMaxDuration  time.Duration
	RuleMatchPolicy string
	RetentionPolicy string

	// Collaborators
	WebhookTimeout time.Duration
	WebhookSecret  string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	SMTPFrom       string

	FactsPostgresDSN   string
	FactsPostgresTable string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-automation"),
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-automation"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000, http://localhost:8000"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		LockTTL:       getEnvDuration("LOCK_TTL", 30*time.Second),

		NATSURL:            getEnv("NATS_URL", ""),
		NATSTriggerSubject: getEnv("NATS_TRIGGER_SUBJECT", "automation.triggers"),
		NATSQueueGroup:     getEnv("NATS_QUEUE_GROUP", "automation-engine"),
		NATSEffectSubject:  getEnv("NATS_EFFECT_SUBJECT", ""),

		SchedulerSpec:   getEnv("SCHEDULER_SPEC", "@every 30s"),
		SchedulerBatch:  getEnvInt("SCHEDULER_BATCH", 100),
		RunMaxSteps:     getEnvInt("RUN_MAX_STEPS", 50),
		RunMaxDuration:  getEnvDuration("RUN_MAX_DURATION", 5*time.Second),
		RuleMatchPolicy: strings.ToLower(getEnv("RULE_MATCH_POLICY", "all")),
		RetentionPolicy: strings.ToLower(getEnv("RETENTION_POLICY", "keep")),

		WebhookTimeout: getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),
		SMTPUser:       getEnv("SMTP_USER", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:       getEnv("SMTP_FROM", ""),

		FactsPostgresDSN:   getEnv("FACTS_POSTGRES_DSN", ""),
		FactsPostgresTable: getEnv("FACTS_POSTGRES_TABLE", "recipient_facts"),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return d
}
