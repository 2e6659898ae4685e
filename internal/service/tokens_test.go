package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/beacon/internal/apierrors"
	"github.com/avolkov/beacon/internal/models"
)

func newTokenService(t *testing.T) *TokenService {
	return &TokenService{
		Repo:      InitTestRepo(t),
		JWTSecret: []byte("test-secret"),
	}
}

func TestIssueBeaconBundle(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()
	user := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")

	token, bundle, err := svc.IssueBeacon(ctx, user)
	require.NoError(t, err)

	require.Equal(t, models.ServiceBeacon, token.Service)
	require.True(t, token.Refreshable())
	require.True(t, token.HasScope(models.ScopeProfile))
	require.True(t, token.HasScope(models.ScopeHistory))
	require.True(t, token.HasScope(models.ScopeLocation))

	require.Equal(t, "Bearer", bundle.TokenType)
	require.Equal(t, models.FullScope, bundle.Scope)
	require.Equal(t, token.AccessToken, bundle.AccessToken)
	require.NotEmpty(t, bundle.RefreshToken)
	require.Greater(t, bundle.ExpiresIn, 0)

	// The access token is a signed JWT carrying the username.
	parsed, err := jwt.Parse(bundle.AccessToken, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	require.Equal(t, "100", claims["sub"])
}

func TestRefreshKeepsRefreshToken(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()
	user := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")

	original, bundle, err := svc.IssueBeacon(ctx, user)
	require.NoError(t, err)

	refreshed, newBundle, err := svc.Refresh(ctx, bundle.RefreshToken)
	require.NoError(t, err)

	require.Equal(t, original.ID, refreshed.ID)
	require.NotEqual(t, original.AccessToken, refreshed.AccessToken)
	require.Equal(t, bundle.RefreshToken, newBundle.RefreshToken)
	require.False(t, refreshed.Expires.Before(original.Expires))

	// The old access token no longer resolves.
	_, _, err = svc.Authorize(ctx, original.AccessToken, models.ScopeProfile)
	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, _, err = svc.Authorize(ctx, refreshed.AccessToken, models.ScopeProfile)
	require.NoError(t, err)
}

func TestRefreshFacebookTokenFails(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()
	user := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")

	fb, err := svc.IssueFacebook(ctx, user.ID, "fb-access", 3600)
	require.NoError(t, err)
	require.Equal(t, models.ServiceFacebook, fb.Service)
	require.False(t, fb.Refreshable())

	// A facebook row has no refresh token; a stray value must not match it.
	_, _, err = svc.Refresh(ctx, "fb-access")
	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, apierrors.CodeInvalidGrant, apiErr.Code)
}

func TestAuthorize(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()
	user := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")

	token, _, err := svc.IssueBeacon(ctx, user)
	require.NoError(t, err)

	resolved, boundToken, err := svc.Authorize(ctx, token.AccessToken, models.ScopeLocation)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)
	require.Equal(t, token.ID, boundToken.ID)

	_, _, err = svc.Authorize(ctx, "no-such-token", models.ScopeLocation)
	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestAuthorizeScopeAndExpiry(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()
	user := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")

	narrow := &models.Token{
		Service:     models.ServiceBeacon,
		UserID:      user.ID,
		AccessToken: "narrow-access",
		Expires:     time.Now().UTC().Add(time.Hour),
	}
	narrow.SetScope(models.ScopeProfile)
	require.NoError(t, svc.Repo.CreateToken(ctx, narrow))

	_, _, err := svc.Authorize(ctx, "narrow-access", models.ScopeLocation)
	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Equal(t, apierrors.CodeInsufficientScope, apiErr.Code)

	expired := &models.Token{
		Service:     models.ServiceBeacon,
		UserID:      user.ID,
		AccessToken: "expired-access",
		Expires:     time.Now().UTC().Add(-time.Minute),
	}
	expired.SetScope(models.FullScope)
	require.NoError(t, svc.Repo.CreateToken(ctx, expired))

	_, _, err = svc.Authorize(ctx, "expired-access", models.ScopeHistory)
	apiErr, ok = apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestAuthorizeInactiveOwner(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()
	user := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")

	token, _, err := svc.IssueBeacon(ctx, user)
	require.NoError(t, err)

	require.NoError(t, svc.Repo.DB.Model(user).Update("is_active", false).Error)

	_, _, err = svc.Authorize(ctx, token.AccessToken, models.ScopeProfile)
	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
