package auth

import (
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// loginSecureExpiry reads the expiry out of a steamLoginSecure cookie, whose value is
// "<steamid>||<access token>" with the separator usually percent-encoded. Older sessions carry an opaque
// hex token instead of a JWT; those have no known expiry.
func loginSecureExpiry(cookieValue string) time.Time {
	if cookieValue == "" {
		return time.Time{}
	}

	decoded, err := url.QueryUnescape(cookieValue)
	if err != nil {
		decoded = cookieValue
	}

	_, accessToken, found := strings.Cut(decoded, "||")
	if !found {
		return time.Time{}
	}

	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}

	expiration, err := token.Claims.GetExpirationTime()
	if err != nil || expiration == nil {
		return time.Time{}
	}

	return expiration.Time
}
