package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	Environment   string
	LogLevel      string
	DatabaseURL   string
	ContentRoot   string
	JWTSigningKey string
	TokenTTL      time.Duration

	// Role names used by the approval workflow.
	ReviewerRole string
	MemberRole   string

	// Log channel the gateway listens on for review traffic.
	LogChannel string

	// Optional Kafka-backed log channel notifier.
	KafkaBrokers []string
	KafkaTopic   string

	// Optional Redis-backed review post registry.
	RedisAddr string
}

var defaultTokenTTL = 15 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("VOUCH_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	env := os.Getenv("VOUCH_ENV")
	if env == "" {
		env = "dev"
	}

	logLevel := os.Getenv("VOUCH_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	contentRoot := os.Getenv("VOUCH_CONTENT_ROOT")
	if contentRoot == "" {
		contentRoot = "data/content"
	}

	tokenTTL := defaultTokenTTL
	if ttlStr := os.Getenv("TOKEN_TTL"); ttlStr != "" {
		if duration, err := time.ParseDuration(ttlStr); err == nil {
			tokenTTL = duration
		}
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	reviewerRole := os.Getenv("VOUCH_REVIEWER_ROLE")
	if reviewerRole == "" {
		reviewerRole = "reviewer"
	}
	memberRole := os.Getenv("VOUCH_MEMBER_ROLE")
	if memberRole == "" {
		memberRole = "member"
	}

	logChannel := os.Getenv("VOUCH_LOG_CHANNEL")
	if logChannel == "" {
		logChannel = "review-log"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	kafkaTopic := os.Getenv("KAFKA_TOPIC")
	if kafkaTopic == "" {
		kafkaTopic = "vouch.review-log"
	}

	return Server{
		Addr:          addr,
		Environment:   env,
		LogLevel:      logLevel,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		ContentRoot:   contentRoot,
		JWTSigningKey: jwtSigningKey,
		TokenTTL:      tokenTTL,
		ReviewerRole:  reviewerRole,
		MemberRole:    memberRole,
		LogChannel:    logChannel,
		KafkaBrokers:  brokers,
		KafkaTopic:    kafkaTopic,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
	}
}
