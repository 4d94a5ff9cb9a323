package steam

import (
	"net/url"
	"strings"
	"time"

	"github.com/escrow-tf/steamweb/api/auth"
	"github.com/escrow-tf/steamweb/steamid"
	"github.com/escrow-tf/steamweb/totp"
	"github.com/rotisserie/eris"
)

// Account is a set of login credentials. The shared secret is optional; without one no Steam Guard code is sent.
type Account struct {
	accountName string
	password    string
	generator   *totp.Generator
}

func NewAccount(accountName string, password string, sharedSecret string) (*Account, error) {
	if accountName == "" {
		return nil, eris.New("account name must not be empty")
	}

	account := &Account{
		accountName: accountName,
		password:    password,
	}

	if sharedSecret != "" {
		generator, err := totp.NewGenerator(sharedSecret)
		if err != nil {
			return nil, eris.Wrap(err, "NewAccount failed")
		}
		account.generator = generator
	}

	return account, nil
}

func (a *Account) AccountName() string {
	return a.accountName
}

// Code returns the Steam Guard code for at, or "" when the account has no shared secret.
func (a *Account) Code(at time.Time) string {
	if a.generator == nil {
		return ""
	}
	return a.generator.Code(at)
}

// RestoreSession rebuilds a session for steamID from the sessionid cookie already in the client's jar, for
// callers that keep the transport alive across logins.
func (c *Client) RestoreSession(steamID string) (*auth.Session, error) {
	id, err := steamid.ParseIndividual(steamID)
	if err != nil {
		return nil, err
	}

	communityUrl, err := url.Parse(c.transport.CommunityURL())
	if err != nil {
		return nil, eris.Wrap(err, "invalid community url")
	}

	for _, cookie := range c.transport.Cookies(communityUrl) {
		if strings.EqualFold(cookie.Name, "sessionid") && cookie.Value != "" {
			return auth.NewSession(id, cookie.Value)
		}
	}

	return nil, eris.Wrap(auth.ErrSessionCookieMissing, "could not find sessionid cookie")
}
