package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Token services. Only beacon tokens are refreshable; Facebook gives us no
// refresh endpoint.
const (
	ServiceBeacon   = "beacon"
	ServiceFacebook = "facebook"
)

// Capabilities a bearer token may grant.
const (
	ScopeProfile  = "profile"
	ScopeHistory  = "history"
	ScopeLocation = "location"
)

// FullScope is granted to every self-issued token bundle.
const FullScope = ScopeProfile + " " + ScopeHistory + " " + ScopeLocation

// User is the root account entity.
//
// Email can be empty: a Facebook account authenticated by phone number has no
// valid email address and the Graph API omits the field.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	Username       string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	FirstName      string    `gorm:"size:50;not null" json:"first_name"`
	LastName       string    `gorm:"size:50;not null" json:"last_name"`
	Gender         string    `gorm:"size:50" json:"gender"`
	Email          string    `gorm:"size:75" json:"email"`
	IsActive       bool      `gorm:"not null;default:true" json:"-"`
	LastLogin      time.Time `gorm:"not null" json:"-"`
	DateJoined     time.Time `gorm:"not null" json:"date_joined"`
	TimezoneOffset int       `json:"-"` // minutes, e.g. -420 for UTC-7

	Settings *UserSettings `json:"-"`
	Tokens   []Token       `json:"-"`
}

// Name is the display name used in mail bodies and profile responses.
func (u *User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserSettings holds the free-form per-user settings map, persisted as JSON
// text. A NULL column is the explicit "reset" state and reads back as an
// empty map. The column is never written directly: UpdateSettings is the only
// write path, so malformed JSON cannot enter through the application.
type UserSettings struct {
	ID       uint    `gorm:"primaryKey"`
	UserID   uint    `gorm:"not null;index"`
	Settings *string `gorm:"type:text"`
}

func (UserSettings) TableName() string { return "user_settings" }

// Map returns the stored settings; NULL or undecodable text yields an empty
// map.
func (s *UserSettings) Map() map[string]any {
	if s.Settings == nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(*s.Settings), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// UpdateSettings merges params into the stored map. A nil params resets the
// settings to the NULL state.
func (s *UserSettings) UpdateSettings(params map[string]any) error {
	if params == nil {
		s.Settings = nil
		return nil
	}
	merged := s.Map()
	for k, v := range params {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	text := string(raw)
	s.Settings = &text
	return nil
}

// Token is a bearer token for either service.
type Token struct {
	ID           uint      `gorm:"primaryKey"`
	Service      string    `gorm:"size:20;not null"`
	UserID       uint      `gorm:"not null;index"`
	User         User      `gorm:"foreignKey:UserID"`
	AccessToken  string    `gorm:"size:255;uniqueIndex;not null"`
	RefreshToken *string   `gorm:"size:255;uniqueIndex"`
	CreatedDate  time.Time `gorm:"not null"`
	UpdatedDate  time.Time `gorm:"not null"`
	Expires      time.Time `gorm:"not null"`
	Scope        string    `gorm:"type:text"`

	scopes []string `gorm:"-"`
}

// SetScope normalizes and stores the scope string and parses it once. Reads
// never re-split the column.
func (t *Token) SetScope(scope string) {
	fields := strings.Fields(scope)
	t.Scope = strings.Join(fields, " ")
	t.scopes = fields
}

// ParseScope populates the parsed scope set from the stored column. Called
// from the gorm AfterFind hook and after cache decodes.
func (t *Token) ParseScope() {
	t.scopes = strings.Fields(t.Scope)
}

func (t *Token) AfterFind(*gorm.DB) error {
	t.ParseScope()
	return nil
}

func (t *Token) HasScope(scope string) bool {
	for _, s := range t.scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.Expires)
}

func (t *Token) Refreshable() bool {
	return t.Service == ServiceBeacon && t.RefreshToken != nil
}

// LocationRequest is an outstanding "where are you" request, addressable by
// its session key. Immutable once created except the complete transition.
type LocationRequest struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SessionKey        string    `gorm:"size:64;uniqueIndex;not null" json:"session"`
	SenderUsername    string    `gorm:"size:50;index;not null" json:"sender_username"`
	RecipientUsername *string   `gorm:"size:50;index" json:"recipient_username,omitempty"`
	RecipientEmail    *string   `gorm:"size:75" json:"recipient_email,omitempty"`
	Complete          bool      `gorm:"not null;default:false" json:"complete"`
	CreatedDate       time.Time `gorm:"not null;index" json:"created_date"`
}

// LocationNotification is a delivered location. SessionKey back-references
// the request it fulfills; unsolicited notifications carry none.
type LocationNotification struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SenderUsername    string    `gorm:"size:50;index;not null" json:"sender_username"`
	RecipientUsername *string   `gorm:"size:50;index" json:"recipient_username,omitempty"`
	RecipientEmail    *string   `gorm:"size:75" json:"recipient_email,omitempty"`
	LatLng            string    `gorm:"size:50;not null" json:"latlng"`
	SessionKey        *string   `gorm:"size:64;index" json:"session,omitempty"`
	CreatedDate       time.Time `gorm:"not null;index" json:"created_date"`
}

// All lists every persisted entity for migration.
func All() []any {
	return []any{
		&User{}, &UserSettings{}, &Token{},
		&LocationRequest{}, &LocationNotification{},
	}
}
