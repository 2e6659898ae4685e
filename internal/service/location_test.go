package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avolkov/beacon/internal/apierrors"
	"github.com/avolkov/beacon/internal/events"
	"github.com/avolkov/beacon/internal/models"
	"github.com/avolkov/beacon/internal/repo"
)

type sentMail struct {
	Subject string
	Body    string
	From    string
	To      []string
}

type fakeSender struct {
	sent []sentMail
}

func (f *fakeSender) Send(subject, body, from string, to []string) error {
	f.sent = append(f.sent, sentMail{Subject: subject, Body: body, From: from, To: to})
	return nil
}

type fakePublisher struct {
	published []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func InitTestRepo(t *testing.T) *repo.Repo {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return repo.New(db, nil)
}

func newLocationService(t *testing.T) (*LocationService, *fakeSender, *fakePublisher) {
	sender := &fakeSender{}
	publisher := &fakePublisher{}
	svc := &LocationService{
		Repo:    InitTestRepo(t),
		Mail:    sender,
		Events:  publisher,
		AppURL:  "http://beacon.test",
		NoReply: "noreply@beacon.test",
	}
	return svc, sender, publisher
}

func createUser(t *testing.T, r *repo.Repo, username, first, last, email string) *models.User {
	u := &models.User{Username: username, FirstName: first, LastName: last, Email: email}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func TestRequestLocationEmailWinsOverUsername(t *testing.T) {
	svc, sender, _ := newLocationService(t)
	ctx := context.Background()

	caller := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")
	createUser(t, svc.Repo, "200", "Grace", "Hopper", "grace@example.com")
	byEmail := createUser(t, svc.Repo, "300", "Alan", "Turing", "alan@example.com")

	req, err := svc.RequestLocation(ctx, caller, "200", "alan@example.com")
	require.NoError(t, err)
	require.NotNil(t, req.RecipientUsername)
	require.Equal(t, byEmail.Username, *req.RecipientUsername)
	require.NotNil(t, req.RecipientEmail)
	require.Equal(t, "alan@example.com", *req.RecipientEmail)

	require.Len(t, sender.sent, 1)
	require.Equal(t, []string{"alan@example.com"}, sender.sent[0].To)
	require.Contains(t, sender.sent[0].Body, "http://beacon.test/r/"+req.SessionKey)
}

func TestRequestLocationEmailOnlyRecipient(t *testing.T) {
	svc, sender, publisher := newLocationService(t)
	ctx := context.Background()
	caller := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")

	req, err := svc.RequestLocation(ctx, caller, "", "stranger@example.com")
	require.NoError(t, err)
	require.Nil(t, req.RecipientUsername)
	require.Equal(t, "stranger@example.com", *req.RecipientEmail)
	require.NotEmpty(t, req.SessionKey)

	require.Len(t, sender.sent, 1)
	require.Len(t, publisher.published, 1)
	require.Equal(t, events.TypeLocationRequest, publisher.published[0].Type)
}

func TestRequestLocationUnknownUsername(t *testing.T) {
	svc, _, _ := newLocationService(t)
	caller := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")

	_, err := svc.RequestLocation(context.Background(), caller, "nobody", "")
	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, apierrors.CodeNotFound, apiErr.Code)
}

func TestRequestLocationRecipientWithoutEmail(t *testing.T) {
	svc, sender, _ := newLocationService(t)
	caller := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")
	createUser(t, svc.Repo, "200", "No", "Email", "")

	req, err := svc.RequestLocation(context.Background(), caller, "200", "")
	require.NoError(t, err)
	require.Equal(t, "200", *req.RecipientUsername)
	require.Nil(t, req.RecipientEmail)
	require.Empty(t, sender.sent, "no address on file, dispatch silently skipped")
	require.NotEmpty(t, req.SessionKey, "request is still addressable")
}

func TestRequestLocationMissingIdentifiers(t *testing.T) {
	svc, _, _ := newLocationService(t)
	caller := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")

	_, err := svc.RequestLocation(context.Background(), caller, "", "")
	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, apierrors.CodeInvalidRequest, apiErr.Code)
}

func TestNotifyLocationKeyPrecedence(t *testing.T) {
	svc, sender, _ := newLocationService(t)
	ctx := context.Background()

	requester := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")
	responder := createUser(t, svc.Repo, "200", "Grace", "Hopper", "grace@example.com")
	createUser(t, svc.Repo, "300", "Alan", "Turing", "alan@example.com")

	req, err := svc.RequestLocation(ctx, requester, "200", "")
	require.NoError(t, err)
	sender.sent = nil

	// Key wins even when email and username are supplied alongside it.
	notif, err := svc.NotifyLocation(ctx, responder,
		req.SessionKey, "alan@example.com", "300", "37.422,-122.084")
	require.NoError(t, err)

	// Roles invert: the original requester receives this location.
	require.Equal(t, "200", notif.SenderUsername)
	require.Equal(t, "100", *notif.RecipientUsername)
	require.Equal(t, "ada@example.com", *notif.RecipientEmail)
	require.NotNil(t, notif.SessionKey)
	require.Equal(t, req.SessionKey, *notif.SessionKey)

	completed, err := svc.Repo.RequestBySessionKey(ctx, req.SessionKey)
	require.NoError(t, err)
	require.True(t, completed.Complete)

	require.Len(t, sender.sent, 1)
	require.Equal(t, []string{"ada@example.com"}, sender.sent[0].To)
	require.Contains(t, sender.sent[0].Body, "https://www.google.com/maps/place/37.422,-122.084")
}

func TestNotifyLocationUnknownKey(t *testing.T) {
	svc, _, _ := newLocationService(t)
	caller := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")

	_, err := svc.NotifyLocation(context.Background(), caller,
		"no-such-key", "", "", "37.422,-122.084")
	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, apierrors.RequestNotFound, apiErr.Message)
}

func TestNotifyLocationKeyWithGoneRequester(t *testing.T) {
	svc, _, _ := newLocationService(t)
	ctx := context.Background()

	requester := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")
	responder := createUser(t, svc.Repo, "200", "Grace", "Hopper", "grace@example.com")

	req, err := svc.RequestLocation(ctx, requester, "200", "")
	require.NoError(t, err)

	require.NoError(t, svc.Repo.DB.Model(requester).Update("is_active", false).Error)

	_, err = svc.NotifyLocation(ctx, responder, req.SessionKey, "", "", "1,1")
	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, apierrors.UserNotFound, apiErr.Message)
}

func TestNotifyLocationByEmailAndUsername(t *testing.T) {
	svc, _, _ := newLocationService(t)
	ctx := context.Background()
	caller := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")

	byEmail, err := svc.NotifyLocation(ctx, caller, "", "stranger@example.com", "", "10,20")
	require.NoError(t, err)
	require.Nil(t, byEmail.RecipientUsername)
	require.Nil(t, byEmail.SessionKey)
	require.Equal(t, "stranger@example.com", *byEmail.RecipientEmail)

	_, err = svc.NotifyLocation(ctx, caller, "", "", "nobody", "10,20")
	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, apierrors.CodeNotFound, apiErr.Code)

	createUser(t, svc.Repo, "200", "Grace", "Hopper", "grace@example.com")
	byUsername, err := svc.NotifyLocation(ctx, caller, "", "", "200", "10,20")
	require.NoError(t, err)
	require.Equal(t, "200", *byUsername.RecipientUsername)
	require.Nil(t, byUsername.SessionKey)
}

func TestNotifyLocationValidation(t *testing.T) {
	svc, _, _ := newLocationService(t)
	caller := createUser(t, svc.Repo, "100", "Ada", "Lovelace", "ada@example.com")
	ctx := context.Background()

	for _, latlng := range []string{"", "abc", "91,0", "-91,0", "0,181", "0,-181", "1;2", "1,2,3"} {
		_, err := svc.NotifyLocation(ctx, caller, "", "x@example.com", "", latlng)
		apiErr, ok := apierrors.AsAPIError(err)
		require.True(t, ok, "latlng %q", latlng)
		require.Equal(t, apierrors.CodeInvalidRequest, apiErr.Code, "latlng %q", latlng)
	}

	_, err := svc.NotifyLocation(ctx, caller, "", "", "", "10,20")
	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, apierrors.CodeInvalidRequest, apiErr.Code)
}
