// Package models defines server-side data models persisted in the database.
package models

import "time"

// Connection is one company's authorization for one user. The primary key
// is (UserID, RealmID).
//
// Token fields hold ciphertext produced by cryptox.Codec; plaintext tokens
// never reach this struct. A nil AccessTokenEnc or AccessTokenExpiresAt
// means the access token must be treated as expired.
type Connection struct {
	UserID               string
	RealmID              string
	CompanyName          *string
	AccessTokenEnc       *string
	RefreshTokenEnc      string
	AccessTokenExpiresAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// DisplayName returns the company label or "" when unknown.
func (c *Connection) DisplayName() string {
	if c.CompanyName == nil {
		return ""
	}
	return *c.CompanyName
}
