package auth

import (
	"time"

	"github.com/escrow-tf/steamweb/steamid"
	"github.com/rotisserie/eris"
)

// Session is the identity established by a successful login. It is immutable and only ever handed out
// fully populated.
type Session struct {
	steamID   steamid.SteamID
	sessionID string
	expiresAt time.Time
}

// NewSession restores a session from values saved by an earlier login.
func NewSession(steamID steamid.SteamID, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, eris.New("session id must not be empty")
	}

	if !steamID.IsValidIndividual() {
		return nil, eris.Errorf("steamID %s is not a valid individual", steamID.String())
	}

	return &Session{steamID: steamID, sessionID: sessionID}, nil
}

func (s *Session) SteamID() steamid.SteamID {
	return s.steamID
}

func (s *Session) SessionID() string {
	return s.sessionID
}

// ExpiresAt is taken from the steamLoginSecure token. It is zero when the token carried no expiry.
func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

func (s *Session) Expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

// Valid reports whether s can authenticate a request.
func (s *Session) Valid() bool {
	return s != nil && s.sessionID != ""
}
