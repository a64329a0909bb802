package model

import "time"

// Session is the single process-wide cached credential state. It is replaced
// wholesale on every refresh or externally pushed login; last writer wins.
type Session struct {
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	TokenURL       string    `json:"token_url"`
	ExpiresAt      time.Time `json:"expires_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ServiceAccount bool      `json:"service_account"`
}

// Empty reports whether the session carries no access token.
func (s Session) Empty() bool {
	return s.AccessToken == ""
}
