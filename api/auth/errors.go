package auth

import "errors"

var (
	ErrChallengeUnavailable = errors.New("login challenge unavailable")
	ErrIncompleteChallenge  = errors.New("login challenge is missing key material")
	ErrEncryptionFailure    = errors.New("password encryption failed")
	// ErrLoginRejected covers every refusal dologin reports in-band: wrong password, wrong or missing
	// two factor code, captcha, email confirmation.
	ErrLoginRejected        = errors.New("login rejected")
	ErrSessionCookieMissing = errors.New("login succeeded but no sessionid cookie was set")
)

// Error is a failed login step. Kind is one of the Err* values above; Cause, when set, is the underlying
// failure and stays reachable through errors.Is and errors.As.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
