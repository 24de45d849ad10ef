// Package session holds the signed-in user's credentials. A Context is
// created by a successful login, persisted by a Store so it survives
// restarts, and destroyed by logout.
package session

import "time"

// Context is the authenticated session. It is the api client's token
// source.
type Context struct {
	AccessToken string    `json:"access_token"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

// Token returns the bearer token. A nil Context has none.
func (c *Context) Token() string {
	if c == nil {
		return ""
	}
	return c.AccessToken
}

// Authenticated reports whether the context carries a token.
func (c *Context) Authenticated() bool {
	return c.Token() != ""
}
