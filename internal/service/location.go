package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avolkov/beacon/internal/apierrors"
	"github.com/avolkov/beacon/internal/events"
	"github.com/avolkov/beacon/internal/logging"
	"github.com/avolkov/beacon/internal/mail"
	"github.com/avolkov/beacon/internal/models"
	"github.com/avolkov/beacon/internal/repo"
)

const mapsURL = "https://www.google.com/maps/place"

// LocationService is the orchestration engine: it resolves recipients,
// appends ledger records and fires the mail and event side effects.
type LocationService struct {
	Repo    *repo.Repo
	Mail    mail.Sender
	Events  events.Publisher
	AppURL  string
	NoReply string
}

// RequestLocation asks a recipient for their location. Email wins over
// username when both are supplied; an email-only recipient does not need an
// account, a username always does.
func (s *LocationService) RequestLocation(ctx context.Context, sender *models.User, username, email string) (*models.LocationRequest, error) {
	recipient, recipientEmail, err := s.resolveRecipient(ctx, username, email)
	if err != nil {
		return nil, err
	}

	req := &models.LocationRequest{
		SessionKey:     uuid.NewString(),
		SenderUsername: sender.Username,
		RecipientEmail: optional(recipientEmail),
	}
	if recipient != nil {
		req.RecipientUsername = &recipient.Username
	}
	if err := s.Repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	if recipientEmail != "" {
		body, err := mail.RenderRequest(mail.RequestParams{
			SenderName:    sender.Name(),
			RecipientName: displayName(recipient),
			URL:           s.AppURL + "/r/" + req.SessionKey,
			AppURL:        s.AppURL,
		})
		if err == nil {
			err = s.Mail.Send(mail.SubjectRequest, body, s.NoReply, []string{recipientEmail})
		}
		if err != nil {
			// Delivery is best-effort; the request is still addressable by
			// its session key.
			logging.FromContext(ctx).Warn("request_mail_failed",
				"session", req.SessionKey, "error", err)
		}
	}

	s.publish(ctx, events.Event{
		Type:              events.TypeLocationRequest,
		SenderUsername:    req.SenderUsername,
		RecipientUsername: deref(req.RecipientUsername),
		RecipientEmail:    recipientEmail,
		SessionKey:        req.SessionKey,
		CreatedDate:       req.CreatedDate,
	})
	logging.FromContext(ctx).Info("location_request",
		"session", req.SessionKey,
		"sender", req.SenderUsername,
		"recipient_username", deref(req.RecipientUsername),
		"recipient_email", recipientEmail)
	return req, nil
}

// NotifyLocation shares the sender's location. Identifier precedence is
// session key, then email, then username. A session key inverts the roles of
// the original request: its sender becomes this notification's recipient.
func (s *LocationService) NotifyLocation(ctx context.Context, sender *models.User, key, email, username, latlng string) (*models.LocationNotification, error) {
	if err := validateLatLng(latlng); err != nil {
		return nil, err
	}

	var (
		recipient      *models.User
		recipientEmail string
		sessionKey     *string
	)
	switch {
	case key != "":
		req, err := s.Repo.RequestBySessionKey(ctx, key)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound(apierrors.RequestNotFound)
		}
		if err != nil {
			return nil, err
		}
		recipient, err = s.Repo.UserByUsername(ctx, req.SenderUsername)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound(apierrors.UserNotFound)
		}
		if err != nil {
			return nil, err
		}
		recipientEmail = recipient.Email
		if err := s.Repo.MarkRequestComplete(ctx, req); err != nil {
			return nil, err
		}
		sessionKey = &req.SessionKey
	case email != "" || username != "":
		var err error
		recipient, recipientEmail, err = s.resolveRecipient(ctx, username, email)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apierrors.InvalidRequest(apierrors.MissingEmailUsername)
	}

	notif := &models.LocationNotification{
		SenderUsername: sender.Username,
		RecipientEmail: optional(recipientEmail),
		LatLng:         latlng,
		SessionKey:     sessionKey,
	}
	if recipient != nil {
		notif.RecipientUsername = &recipient.Username
	}
	if err := s.Repo.CreateNotification(ctx, notif); err != nil {
		return nil, err
	}

	if recipientEmail != "" {
		body, err := mail.RenderNotification(mail.NotificationParams{
			SenderName:    sender.Name(),
			RecipientName: displayName(recipient),
			LocationURL:   mapsURL + "/" + latlng,
			AppURL:        s.AppURL,
		})
		if err == nil {
			err = s.Mail.Send(mail.SubjectNotification, body, s.NoReply, []string{recipientEmail})
		}
		if err != nil {
			logging.FromContext(ctx).Warn("notification_mail_failed",
				"notification_id", notif.ID, "error", err)
		}
	}

	s.publish(ctx, events.Event{
		Type:              events.TypeLocationNotification,
		SenderUsername:    notif.SenderUsername,
		RecipientUsername: deref(notif.RecipientUsername),
		RecipientEmail:    recipientEmail,
		SessionKey:        deref(notif.SessionKey),
		CreatedDate:       notif.CreatedDate,
	})
	logging.FromContext(ctx).Info("location_notification",
		"sender", notif.SenderUsername,
		"recipient_username", deref(notif.RecipientUsername),
		"recipient_email", recipientEmail,
		"session", deref(notif.SessionKey))
	return notif, nil
}

// resolveRecipient applies the shared email-over-username rule. Email-only
// recipients are valid without an account; unknown usernames are not.
func (s *LocationService) resolveRecipient(ctx context.Context, username, email string) (*models.User, string, error) {
	if email != "" {
		recipient, err := s.Repo.UserByEmail(ctx, email)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, email, nil
		}
		if err != nil {
			return nil, "", err
		}
		return recipient, email, nil
	}
	if username != "" {
		recipient, err := s.Repo.UserByUsername(ctx, username)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apierrors.NotFound(apierrors.UserNotFound)
		}
		if err != nil {
			return nil, "", err
		}
		// Recipient email can still be empty; Facebook does not guarantee
		// one. The record is created either way.
		return recipient, recipient.Email, nil
	}
	return nil, "", apierrors.InvalidRequest(apierrors.MissingEmailUsername)
}

// publish is fire-and-forget: a dead broker must not fail the call.
func (s *LocationService) publish(ctx context.Context, event events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, event.SenderUsername, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed",
			"type", event.Type, "error", err)
	}
}

func validateLatLng(latlng string) error {
	parts := strings.Split(latlng, ",")
	if len(parts) != 2 {
		return apierrors.InvalidRequest("Missing or invalid latlng parameter")
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return apierrors.InvalidRequest("Missing or invalid latlng parameter")
	}
	return nil
}

func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.Name()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
