package models

import "time"

type SessionRole string

const (
	SessionRole_Client   SessionRole = "client"
	SessionRole_Provider SessionRole = "provider"
	SessionRole_Admin    SessionRole = "admin"
)

// Session is the logged-in identity injected into components that need one. It is
// written only by login/logout flows and read-mostly everywhere else.
type Session struct {
	Id          string      `json:"id"`
	UserId      string      `json:"userId"`
	Role        SessionRole `json:"role"`
	DisplayName string      `json:"displayName"`
	CreatedAt   time.Time   `json:"createdAt"`
}
