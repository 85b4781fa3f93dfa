package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "janani/pkg/domain"
	dErrors "janani/pkg/domain-errors"
)

func newTestService() *Service {
	return NewService("test-signing-key-at-least-32-bytes!", "janani-test")
}

func TestValidateToken(t *testing.T) {
	svc := newTestService()
	actorID := id.ActorID(uuid.New())

	t.Run("round-trips actor and role claims", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(actorID, id.RoleApprover, time.Hour)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, actorID, claims.ActorID)
		assert.Equal(t, id.RoleApprover, claims.Role)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(actorID, id.RoleBeneficiary, -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("rejects a token signed with a different key", func(t *testing.T) {
		other := NewService("a-completely-different-signing-key", "janani-test")
		token, err := other.GenerateAccessToken(actorID, id.RoleBeneficiary, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects an unsupported role claim", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(actorID, id.Role("superuser"), time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
