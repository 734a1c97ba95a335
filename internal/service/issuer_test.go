package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/session_guard/internal/tokens"
)

func TestIssuePair_ClaimsAndRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := env.newIdentity()

	pair, err := env.Issuer.IssuePair(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	access, err := tokens.AccessClaimsFromToken(pair.AccessToken, env.Issuer.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, in.PrincipalID.String(), access.Subject)
	assert.Equal(t, in.Email, access.Email)
	assert.Equal(t, in.Name, access.Name)
	assert.Equal(t, tokens.TypeAccess, access.Typ)
	require.NotNil(t, access.ExpiresAt)
	assert.WithinDuration(t, pair.AccessExp, access.ExpiresAt.Time, time.Second)

	refresh, err := tokens.RefreshClaimsFromToken(pair.RefreshToken, env.Issuer.RefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, tokens.TypeRefresh, refresh.Typ)
	assert.Equal(t, 1, refresh.Epoch)
	assert.NotEmpty(t, refresh.FamilyID)
	assert.NotEmpty(t, refresh.ID)

	rec := env.recordForToken(t, pair.RefreshToken)
	assert.Equal(t, refresh.ID, rec.JTI)
	assert.Equal(t, refresh.FamilyID, rec.FamilyID)
	assert.Equal(t, env.Hasher.Fingerprint(in.Descriptor), rec.Fingerprint)
	assert.Equal(t, in.Origin, rec.Origin)
	assert.False(t, rec.Revoked)
	assert.Nil(t, rec.RotatedAt)
}

func TestIssuePair_FreshFamilyPerLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := env.newIdentity()

	first, err := env.Issuer.IssuePair(ctx, in)
	require.NoError(t, err)
	second, err := env.Issuer.IssuePair(ctx, in)
	require.NoError(t, err)

	firstRec := env.recordForToken(t, first.RefreshToken)
	secondRec := env.recordForToken(t, second.RefreshToken)
	assert.NotEqual(t, firstRec.FamilyID, secondRec.FamilyID)
}

func TestIssuePair_ExplicitFingerprintWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := env.newIdentity()
	in.Fingerprint = "pre-computed-fp"

	pair, err := env.Issuer.IssuePair(ctx, in)
	require.NoError(t, err)

	rec := env.recordForToken(t, pair.RefreshToken)
	assert.Equal(t, "pre-computed-fp", rec.Fingerprint)
}
