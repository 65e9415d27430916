package service

import "github.com/Skotchmaster/storefront/internal/session"

// Session is the read-only view of authentication the synchronizers need.
type Session interface {
	IsAuthenticated() bool
	CurrentUser() *session.User
}

func userID(s Session) string {
	if u := s.CurrentUser(); u != nil {
		return u.ID
	}
	return ""
}
