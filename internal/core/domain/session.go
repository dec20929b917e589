package domain

import "time"

// Session is an authenticated handle on the query service. It is treated
// as read-only once issued.
type Session struct {
	Token       string    `json:"token"`
	InstanceURL string    `json:"instance_url"`
	Username    string    `json:"username,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Valid reports whether both the token and the instance are known.
func (s Session) Valid() bool {
	return s.Token != "" && s.InstanceURL != ""
}
