package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-key", time.Minute)

	signed, err := svc.Generate("user-1", []string{"reviewer", "member"})
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	actor, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.ID)
	assert.Equal(t, []string{"reviewer", "member"}, actor.Roles)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	signed, err := NewService("key-a", time.Minute).Generate("user-1", nil)
	require.NoError(t, err)

	_, err = NewService("key-b", time.Minute).Validate(signed)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	signed, err := NewService("test-key", -time.Minute).Generate("user-1", nil)
	require.NoError(t, err)

	_, err = NewService("test-key", time.Minute).Validate(signed)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := NewService("test-key", time.Minute).Validate("not-a-token")
	assert.Error(t, err)
}
