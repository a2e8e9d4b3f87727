package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("VOUCH_ADDR", "")
	t.Setenv("VOUCH_ENV", "")
	t.Setenv("VOUCH_LOG_LEVEL", "")
	t.Setenv("VOUCH_CONTENT_ROOT", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("JWT_SIGNING_KEY", "")
	t.Setenv("VOUCH_REVIEWER_ROLE", "")
	t.Setenv("VOUCH_MEMBER_ROLE", "")
	t.Setenv("VOUCH_LOG_CHANNEL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("REDIS_ADDR", "")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "data/content", cfg.ContentRoot)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "reviewer", cfg.ReviewerRole)
	assert.Equal(t, "member", cfg.MemberRole)
	assert.Equal(t, "review-log", cfg.LogChannel)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VOUCH_ADDR", ":9090")
	t.Setenv("VOUCH_ENV", "prod")
	t.Setenv("VOUCH_LOG_LEVEL", "debug")
	t.Setenv("VOUCH_CONTENT_ROOT", "/var/lib/vouch/content")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("VOUCH_REVIEWER_ROLE", "moderator")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("KAFKA_TOPIC", "community.review")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/lib/vouch/content", cfg.ContentRoot)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "moderator", cfg.ReviewerRole)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "community.review", cfg.KafkaTopic)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestFromEnvIgnoresInvalidTTL(t *testing.T) {
	t.Setenv("TOKEN_TTL", "not-a-duration")

	cfg := FromEnv()

	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
}
