package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/avolkov/beacon/internal/models"
)

// SettingsForUser returns the settings row for the user, creating an empty
// one in memory when none exists yet. The row is only persisted on save.
func (r *Repo) SettingsForUser(ctx context.Context, userID uint) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserSettings{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *Repo) SaveSettings(ctx context.Context, s *models.UserSettings) error {
	return r.DB.WithContext(ctx).Save(s).Error
}
