package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type InvalidationCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type Config struct {
	Addr            string
	LogLevel        string
	SchedulerAPIURL string
	RedisAddr       string

	CacheTTL       time.Duration
	CacheOpTimeout time.Duration

	FetchTimeout     time.Duration
	FetchMaxAttempts int
	FetchRetryBase   time.Duration
	FetchRetryMax    time.Duration

	BatchSize           int
	DelayTolerance      time.Duration
	MissedScheduleGrace time.Duration

	Invalidation InvalidationCfg
}

func FromEnv() Config {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	return Config{
		Addr:            getenv("ADDR", ":8080"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		SchedulerAPIURL: getenv("SCHEDULER_API_URL", "http://localhost:8081/api/viagens"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),

		CacheTTL:       getduration("CACHE_TTL", 5*time.Minute),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

		FetchTimeout:     getduration("FETCH_TIMEOUT", 30*time.Second),
		FetchMaxAttempts: getint("FETCH_MAX_ATTEMPTS", 3),
		FetchRetryBase:   getduration("FETCH_RETRY_BASE", 200*time.Millisecond),
		FetchRetryMax:    getduration("FETCH_RETRY_MAX", 2*time.Second),

		BatchSize:           getint("BATCH_SIZE", 100),
		DelayTolerance:      getduration("DELAY_TOLERANCE", 3*time.Minute),
		MissedScheduleGrace: getduration("MISSED_SCHEDULE_GRACE", 15*time.Minute),

		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "trip-schedule-changes"),
			GroupID: getenv("KAFKA_GROUP_ID", "trip-compliance-cache"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
