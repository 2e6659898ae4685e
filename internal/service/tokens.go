package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avolkov/beacon/internal/apierrors"
	"github.com/avolkov/beacon/internal/models"
	"github.com/avolkov/beacon/internal/repo"
)

// DefaultTokenTTL matches the 30-day expiry of the original provider config.
const DefaultTokenTTL = 30 * 24 * time.Hour

// Bundle is the grant response shape of POST /oauth/token.
type Bundle struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// TokenService owns the bearer-token lifecycle: issuance for both services,
// in-place refresh, and authorization for the access guard.
type TokenService struct {
	Repo      *repo.Repo
	JWTSecret []byte
	TokenTTL  time.Duration
}

func (s *TokenService) ttl() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return DefaultTokenTTL
}

// IssueFacebook stores an externally sourced, non-refreshable token. It does
// not create the user.
func (s *TokenService) IssueFacebook(ctx context.Context, userID uint, accessToken string, expiresIn int) (*models.Token, error) {
	token := &models.Token{
		Service:     models.ServiceFacebook,
		UserID:      userID,
		AccessToken: accessToken,
		Expires:     time.Now().UTC().Add(time.Duration(expiresIn) * time.Second),
	}
	if err := s.Repo.CreateToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// RenewFacebook replaces the stored external token material after a fresh
// exchange. The row stays non-refreshable.
func (s *TokenService) RenewFacebook(ctx context.Context, token *models.Token, accessToken string, expiresIn int) error {
	previous := token.AccessToken
	token.AccessToken = accessToken
	token.Expires = time.Now().UTC().Add(time.Duration(expiresIn) * time.Second)
	return s.Repo.UpdateToken(ctx, token, previous)
}

// IssueBeacon mints and persists a refreshable, fully scoped token bundle for
// the user. Scopes are parsed into the token's scope set once, here.
func (s *TokenService) IssueBeacon(ctx context.Context, user *models.User) (*models.Token, *Bundle, error) {
	expires := time.Now().UTC().Add(s.ttl())
	access, err := s.mintAccess(user.Username, models.FullScope, expires)
	if err != nil {
		return nil, nil, err
	}
	refresh := newRefreshToken()

	token := &models.Token{
		Service:      models.ServiceBeacon,
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: &refresh,
		Expires:      expires,
	}
	token.SetScope(models.FullScope)
	if err := s.Repo.CreateToken(ctx, token); err != nil {
		return nil, nil, err
	}
	return token, s.bundle(token), nil
}

// Refresh replaces the access token and expiry of a refreshable token in
// place. The refresh token never changes.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*models.Token, *Bundle, error) {
	token, err := s.Repo.TokenByRefresh(ctx, refreshToken)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apierrors.InvalidGrant("Invalid refresh token")
	}
	if err != nil {
		return nil, nil, err
	}
	if !token.Refreshable() {
		return nil, nil, apierrors.InvalidGrant("Token cannot be refreshed")
	}

	user, err := s.Repo.UserByID(ctx, token.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apierrors.InvalidGrant("Invalid refresh token")
	}
	if err != nil {
		return nil, nil, err
	}

	expires := time.Now().UTC().Add(s.ttl())
	access, err := s.mintAccess(user.Username, token.Scope, expires)
	if err != nil {
		return nil, nil, err
	}

	previous := token.AccessToken
	token.AccessToken = access
	token.Expires = expires
	if err := s.Repo.UpdateToken(ctx, token, previous); err != nil {
		return nil, nil, err
	}
	return token, s.bundle(token), nil
}

// Authorize validates a bearer token against the required scope and resolves
// its owner. No side effects.
func (s *TokenService) Authorize(ctx context.Context, accessToken, requiredScope string) (*models.User, *models.Token, error) {
	token, err := s.Repo.TokenByAccess(ctx, accessToken)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apierrors.Unauthorized("Invalid bearer token")
	}
	if err != nil {
		return nil, nil, err
	}
	if token.Expired(time.Now().UTC()) {
		return nil, nil, apierrors.Unauthorized("Token expired")
	}
	if !token.HasScope(requiredScope) {
		return nil, nil, apierrors.InsufficientScope()
	}

	user, err := s.Repo.UserByID(ctx, token.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apierrors.Unauthorized("Invalid bearer token")
	}
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

func (s *TokenService) bundle(t *models.Token) *Bundle {
	refresh := ""
	if t.RefreshToken != nil {
		refresh = *t.RefreshToken
	}
	return &Bundle{
		AccessToken:  t.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(t.Expires).Seconds()),
		RefreshToken: refresh,
		Scope:        t.Scope,
	}
}

func (s *TokenService) mintAccess(username, scope string, expires time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   username,
		"scope": scope,
		"exp":   expires.Unix(),
		"jti":   uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.JWTSecret)
}

func newRefreshToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
