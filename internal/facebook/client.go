package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const DefaultBaseURL = "https://graph.facebook.com"

// Client is a thin proxy over the Graph API: token exchange, profile fetch
// and friends list. Base URL is injectable for tests.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	AppID     string
	AppSecret string
}

func NewClient(appID, appSecret string) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		BaseURL:   DefaultBaseURL,
		AppID:     appID,
		AppSecret: appSecret,
	}
}

// Profile is the subset of the Graph user object the service consumes.
// Timezone arrives as fractional hours.
type Profile struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Gender    string  `json:"gender"`
	Email     string  `json:"email"`
	Timezone  float64 `json:"timezone"`
}

type Friend struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiError struct {
	Err struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Error reported by the Graph API itself, as opposed to transport failures.
type GraphError struct {
	Message string
	Type    string
	Status  int
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("facebook: %s (%s)", e.Message, e.Type)
}

// ExchangeToken swaps a short-lived client token for a long-lived one.
func (c *Client) ExchangeToken(ctx context.Context, shortToken string) (string, int, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", c.AppID)
	q.Set("client_secret", c.AppSecret)
	q.Set("fb_exchange_token", shortToken)

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := c.get(ctx, "/oauth/access_token", q, &resp); err != nil {
		return "", 0, err
	}
	return resp.AccessToken, resp.ExpiresIn, nil
}

// Me fetches the profile of the token's owner.
func (c *Client) Me(ctx context.Context, accessToken string) (*Profile, error) {
	q := url.Values{}
	q.Set("access_token", accessToken)
	var profile Profile
	if err := c.get(ctx, "/me", q, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Friends lists the app friends of the given Graph user id.
func (c *Client) Friends(ctx context.Context, accessToken, userID string) ([]Friend, error) {
	q := url.Values{}
	q.Set("access_token", accessToken)
	var resp struct {
		Data []Friend `json:"data"`
	}
	if err := c.get(ctx, "/"+userID+"/friends", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("facebook: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("facebook: read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if err := json.Unmarshal(body, &ae); err == nil && ae.Err.Message != "" {
			return &GraphError{
				Message: ae.Err.Message,
				Type:    ae.Err.Type,
				Status:  resp.StatusCode,
			}
		}
		return &GraphError{
			Message: http.StatusText(resp.StatusCode),
			Type:    "HTTPError",
			Status:  resp.StatusCode,
		}
	}
	return json.Unmarshal(body, out)
}
