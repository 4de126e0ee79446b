package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
)

func TestIdentityContextRoundTrip(t *testing.T) {
	identity := domainauth.Identity{
		SubjectID:   "42",
		DisplayName: "June",
		Role:        domainauth.RoleFamilyContact,
	}
	ctx := SetIdentityInContext(context.Background(), identity)
	assert.Equal(t, identity, IdentityFromContext(ctx))
	assert.False(t, IsGuestRequest(ctx))
}

func TestIdentityFromContext_DefaultsToGuest(t *testing.T) {
	identity := IdentityFromContext(context.Background())
	assert.True(t, identity.IsGuest())
	assert.True(t, IsGuestRequest(context.Background()))
}
