package service

import (
	"context"
	"sort"
	"time"

	"github.com/avolkov/beacon/internal/apierrors"
	"github.com/avolkov/beacon/internal/models"
	"github.com/avolkov/beacon/internal/repo"
)

// Activity categories.
const (
	ActivityOutgoing     = "outgoing"
	ActivityIncoming     = "incoming"
	ActivityRequest      = "request"
	ActivityNotification = "notification"
)

// MaxActivityLimit caps a page regardless of the requested size.
const MaxActivityLimit = 100

// ActivityItem is the uniform shape both ledgers are converted to for the
// merged feed.
type ActivityItem struct {
	Type              string    `json:"type"`
	ID                uint      `json:"id"`
	SenderUsername    string    `json:"sender_username"`
	RecipientUsername string    `json:"recipient_username,omitempty"`
	RecipientEmail    string    `json:"recipient_email,omitempty"`
	Session           string    `json:"session,omitempty"`
	Complete          *bool     `json:"complete,omitempty"`
	LatLng            string    `json:"latlng,omitempty"`
	CreatedDate       time.Time `json:"created_date"`
}

// ActivityService merges the two ledgers into one per-user feed.
type ActivityService struct {
	Repo *repo.Repo
}

// List returns one page of the user's activity. The outgoing/incoming
// categories load the full matching history of both ledgers and merge in
// memory: the two sources are stored independently and share no sort index.
// The request/notification categories paginate store-side.
func (s *ActivityService) List(ctx context.Context, username, category string, offset, limit int) ([]ActivityItem, error) {
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}

	switch category {
	case ActivityOutgoing:
		return s.merged(ctx, username, true, offset, limit)
	case ActivityIncoming:
		return s.merged(ctx, username, false, offset, limit)
	case ActivityRequest:
		reqs, err := s.Repo.RequestsBySender(ctx, username, offset, limit)
		if err != nil {
			return nil, err
		}
		items := make([]ActivityItem, 0, len(reqs))
		for i := range reqs {
			items = append(items, requestItem(&reqs[i]))
		}
		return items, nil
	case ActivityNotification:
		notifs, err := s.Repo.NotificationsBySender(ctx, username, offset, limit)
		if err != nil {
			return nil, err
		}
		items := make([]ActivityItem, 0, len(notifs))
		for i := range notifs {
			items = append(items, notificationItem(&notifs[i]))
		}
		return items, nil
	}
	return nil, apierrors.Server(apierrors.DefaultError)
}

func (s *ActivityService) merged(ctx context.Context, username string, outgoing bool, offset, limit int) ([]ActivityItem, error) {
	var (
		reqs   []models.LocationRequest
		notifs []models.LocationNotification
		err    error
	)
	if outgoing {
		reqs, err = s.Repo.AllRequestsSentBy(ctx, username)
	} else {
		reqs, err = s.Repo.AllRequestsReceivedBy(ctx, username)
	}
	if err != nil {
		return nil, err
	}
	if outgoing {
		notifs, err = s.Repo.AllNotificationsSentBy(ctx, username)
	} else {
		notifs, err = s.Repo.AllNotificationsReceivedBy(ctx, username)
	}
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(reqs)+len(notifs))
	for i := range reqs {
		items = append(items, requestItem(&reqs[i]))
	}
	for i := range notifs {
		items = append(items, notificationItem(&notifs[i]))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedDate.Before(items[j].CreatedDate)
	})

	if offset >= len(items) {
		return []ActivityItem{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

func requestItem(r *models.LocationRequest) ActivityItem {
	complete := r.Complete
	return ActivityItem{
		Type:              ActivityRequest,
		ID:                r.ID,
		SenderUsername:    r.SenderUsername,
		RecipientUsername: deref(r.RecipientUsername),
		RecipientEmail:    deref(r.RecipientEmail),
		Session:           r.SessionKey,
		Complete:          &complete,
		CreatedDate:       r.CreatedDate,
	}
}

func notificationItem(n *models.LocationNotification) ActivityItem {
	return ActivityItem{
		Type:              ActivityNotification,
		ID:                n.ID,
		SenderUsername:    n.SenderUsername,
		RecipientUsername: deref(n.RecipientUsername),
		RecipientEmail:    deref(n.RecipientEmail),
		Session:           deref(n.SessionKey),
		LatLng:            n.LatLng,
		CreatedDate:       n.CreatedDate,
	}
}
