package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avolkov/beacon/internal/logging"
	"github.com/avolkov/beacon/internal/models"
)

const (
	tokenCachePrefix = "token:"
	tokenCacheMaxTTL = 5 * time.Minute
)

// CreateToken persists a bearer token and stamps its dates.
func (r *Repo) CreateToken(ctx context.Context, t *models.Token) error {
	now := time.Now().UTC()
	t.CreatedDate = now
	t.UpdatedDate = now
	return r.DB.WithContext(ctx).Create(t).Error
}

// TokenByAccess resolves a bearer token by its access token, read-through
// cached. A cache failure degrades to a store lookup, never to an error.
func (r *Repo) TokenByAccess(ctx context.Context, accessToken string) (*models.Token, error) {
	if t := r.cachedToken(ctx, accessToken); t != nil {
		return t, nil
	}

	var token models.Token
	err := r.DB.WithContext(ctx).
		Where("access_token = ?", accessToken).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	r.cacheToken(ctx, &token)
	return &token, nil
}

// TokenByRefresh resolves a token row by its refresh token.
func (r *Repo) TokenByRefresh(ctx context.Context, refreshToken string) (*models.Token, error) {
	var token models.Token
	err := r.DB.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// FacebookTokenForUser returns the stored external token for the user, or
// gorm.ErrRecordNotFound.
func (r *Repo) FacebookTokenForUser(ctx context.Context, userID uint) (*models.Token, error) {
	var token models.Token
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND service = ?", userID, models.ServiceFacebook).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// UpdateToken saves an in-place token mutation and drops the stale cache
// entry for the access token the row carried before the change.
func (r *Repo) UpdateToken(ctx context.Context, t *models.Token, previousAccess string) error {
	t.UpdatedDate = time.Now().UTC()
	if err := r.DB.WithContext(ctx).Save(t).Error; err != nil {
		return err
	}
	if r.Cache != nil && previousAccess != "" {
		if err := r.Cache.Del(ctx, tokenCachePrefix+previousAccess).Err(); err != nil {
			logging.FromContext(ctx).Warn("token_cache_del_failed", "error", err)
		}
	}
	return nil
}

func (r *Repo) cachedToken(ctx context.Context, accessToken string) *models.Token {
	if r.Cache == nil {
		return nil
	}
	raw, err := r.Cache.Get(ctx, tokenCachePrefix+accessToken).Result()
	if err != nil {
		return nil
	}
	var token models.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil
	}
	token.ParseScope()
	return &token
}

func (r *Repo) cacheToken(ctx context.Context, t *models.Token) {
	if r.Cache == nil {
		return
	}
	ttl := time.Until(t.Expires)
	if ttl <= 0 {
		return
	}
	if ttl > tokenCacheMaxTTL {
		ttl = tokenCacheMaxTTL
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, tokenCachePrefix+t.AccessToken, raw, ttl).Err(); err != nil {
		logging.FromContext(ctx).Warn("token_cache_set_failed", "error", err)
	}
}
