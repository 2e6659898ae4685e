package repo

import (
	"context"
	"time"

	"github.com/avolkov/beacon/internal/models"
)

// CreateRequest appends a location request to the ledger.
func (r *Repo) CreateRequest(ctx context.Context, req *models.LocationRequest) error {
	req.CreatedDate = time.Now().UTC()
	return r.DB.WithContext(ctx).Create(req).Error
}

// CreateNotification appends a location notification to the ledger.
func (r *Repo) CreateNotification(ctx context.Context, n *models.LocationNotification) error {
	n.CreatedDate = time.Now().UTC()
	return r.DB.WithContext(ctx).Create(n).Error
}

// RequestBySessionKey resolves the request a session key addresses.
func (r *Repo) RequestBySessionKey(ctx context.Context, key string) (*models.LocationRequest, error) {
	var req models.LocationRequest
	err := r.DB.WithContext(ctx).Where("session_key = ?", key).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// MarkRequestComplete flips the complete flag. The transition is one-way;
// re-delivery sets it true again, which is observationally the same.
func (r *Repo) MarkRequestComplete(ctx context.Context, req *models.LocationRequest) error {
	req.Complete = true
	return r.DB.WithContext(ctx).Model(req).Update("complete", true).Error
}

// RequestsBySender returns a store-side page of requests sent by the user,
// ascending by creation date.
func (r *Repo) RequestsBySender(ctx context.Context, username string, offset, limit int) ([]models.LocationRequest, error) {
	var out []models.LocationRequest
	err := r.DB.WithContext(ctx).
		Where("sender_username = ?", username).
		Order("created_date ASC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}

// NotificationsBySender returns a store-side page of notifications sent by
// the user, ascending by creation date.
func (r *Repo) NotificationsBySender(ctx context.Context, username string, offset, limit int) ([]models.LocationNotification, error) {
	var out []models.LocationNotification
	err := r.DB.WithContext(ctx).
		Where("sender_username = ?", username).
		Order("created_date ASC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}

// The All* variants fetch the full matching history with no store-side limit.
// The merged feed deliberately materializes both ledgers before sorting; the
// two sources share no sort index.

func (r *Repo) AllRequestsSentBy(ctx context.Context, username string) ([]models.LocationRequest, error) {
	var out []models.LocationRequest
	err := r.DB.WithContext(ctx).Where("sender_username = ?", username).Find(&out).Error
	return out, err
}

func (r *Repo) AllRequestsReceivedBy(ctx context.Context, username string) ([]models.LocationRequest, error) {
	var out []models.LocationRequest
	err := r.DB.WithContext(ctx).Where("recipient_username = ?", username).Find(&out).Error
	return out, err
}

func (r *Repo) AllNotificationsSentBy(ctx context.Context, username string) ([]models.LocationNotification, error) {
	var out []models.LocationNotification
	err := r.DB.WithContext(ctx).Where("sender_username = ?", username).Find(&out).Error
	return out, err
}

func (r *Repo) AllNotificationsReceivedBy(ctx context.Context, username string) ([]models.LocationNotification, error) {
	var out []models.LocationNotification
	err := r.DB.WithContext(ctx).Where("recipient_username = ?", username).Find(&out).Error
	return out, err
}
