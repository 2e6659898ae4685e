package repo

import (
	"context"
	"time"

	"github.com/avolkov/beacon/internal/models"
)

// CreateUser persists a new account and stamps the join/login dates.
func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.IsActive = true
	u.DateJoined = now
	u.LastLogin = now
	return r.DB.WithContext(ctx).Create(u).Error
}

// UserByUsername returns the active user with the given username.
// Inactive accounts are invisible to every lookup.
func (r *Repo) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Where("username = ? AND is_active = ?", username, true).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByEmail returns the active user with the given email.
func (r *Repo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Where("email = ? AND is_active = ?", email, true).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByID returns the active user by primary key.
func (r *Repo) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastLogin updates the login stamp on an existing account.
func (r *Repo) TouchLastLogin(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login", time.Now().UTC()).Error
}
