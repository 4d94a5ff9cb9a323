package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/escrow-tf/steamweb/api"
	"github.com/escrow-tf/steamweb/steamid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, request api.Request) (*api.Response, error) {
	args := m.Called(ctx, request)
	response, _ := args.Get(0).(*api.Response)
	return response, args.Error(1)
}

func (m *MockTransport) Cookies(u *url.URL) []*http.Cookie {
	args := m.Called(u)
	cookies, _ := args.Get(0).([]*http.Cookie)
	return cookies
}

const testSteamID = "76561197960287930"

var fixedClock = func() time.Time { return time.UnixMilli(1_700_000_000_123) }

func isRsaKeyRequest(request api.Request) bool {
	_, ok := request.(GetRsaKeyRequest)
	return ok
}

func isDoLoginRequest(request api.Request) bool {
	_, ok := request.(DoLoginRequest)
	return ok
}

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func challengeBody(key *rsa.PrivateKey) []byte {
	return []byte(fmt.Sprintf(
		`{"success":true,"publickey_mod":"%s","publickey_exp":"%x","timestamp":"470550000000","token_gid":"2a5b8f"}`,
		key.N.Text(16), key.E))
}

func loginSecureCookie(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": testSteamID,
		"exp": expiresAt.Unix(),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return testSteamID + "%7C%7C" + token
}

func newTestClient(transport api.Transport) *Client {
	return NewClient(transport, Options{CommunityURL: "https://community.test/", Clock: fixedClock})
}

func TestLoginSucceeds(t *testing.T) {
	key := generateKey(t)
	expiresAt := time.Unix(1_800_000_000, 0)

	transport := new(MockTransport)
	transport.On("Send", mock.Anything, mock.MatchedBy(isRsaKeyRequest)).
		Return(&api.Response{StatusCode: 200, Body: challengeBody(key)}, nil).Once()

	var loginBody string
	transport.On("Send", mock.Anything, mock.MatchedBy(isDoLoginRequest)).
		Run(func(args mock.Arguments) {
			body, err := args.Get(1).(api.Request).Body()
			require.NoError(t, err)
			loginBody = body
		}).
		Return(&api.Response{
			StatusCode: 200,
			Body:       []byte(`{"success":true,"requires_twofactor":false,"transfer_parameters":{"steamid":"` + testSteamID + `"}}`),
			Cookies: []*http.Cookie{
				{Name: "sessionid", Value: "abc123"},
				{Name: "steamLoginSecure", Value: loginSecureCookie(t, expiresAt)},
			},
		}, nil).Once()

	session, err := newTestClient(transport).Login(context.Background(), "john doe", "hunter2", "AB12C")
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, testSteamID, session.SteamID().String())
	assert.Equal(t, "abc123", session.SessionID())
	assert.True(t, session.ExpiresAt().Equal(expiresAt))
	assert.True(t, session.Valid())
	transport.AssertExpectations(t)

	form, err := url.ParseQuery(loginBody)
	require.NoError(t, err)
	assert.Equal(t, "john doe", form.Get("username"))
	assert.Equal(t, "AB12C", form.Get("twofactorcode"))
	assert.Equal(t, "-1", form.Get("captchagid"))
	assert.Equal(t, "true", form.Get("remember_login"))
	assert.Equal(t, "470550000000", form.Get("rsatimestamp"))
	assert.Equal(t, "1700000000123", form.Get("donotcache"))

	ciphertext, err := base64.StdEncoding.DecodeString(form.Get("password"))
	require.NoError(t, err)
	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(plaintext))
}

func TestLoginFormFieldOrder(t *testing.T) {
	key := generateKey(t)

	transport := new(MockTransport)
	transport.On("Send", mock.Anything, mock.MatchedBy(isRsaKeyRequest)).
		Return(&api.Response{StatusCode: 200, Body: challengeBody(key)}, nil)

	var loginRequest DoLoginRequest
	transport.On("Send", mock.Anything, mock.MatchedBy(isDoLoginRequest)).
		Run(func(args mock.Arguments) {
			loginRequest = args.Get(1).(DoLoginRequest)
		}).
		Return(&api.Response{StatusCode: 200, Body: []byte(`{"success":false}`)}, nil)

	_, _ = newTestClient(transport).Login(context.Background(), "user", "pass", "")

	body, err := loginRequest.Body()
	require.NoError(t, err)

	var keys []string
	for _, pair := range strings.Split(body, "&") {
		key, _, _ := strings.Cut(pair, "=")
		keys = append(keys, key)
	}
	assert.Equal(t, []string{
		"username", "password", "twofactorcode", "captcha_text", "captchagid",
		"emailauth", "emailsteamid", "remember_login", "rsatimestamp", "donotcache",
	}, keys)
	assert.Equal(t, "https://community.test/login/dologin/", loginRequest.Url())
	assert.Equal(t, "https://community.test/login/home/?goto=", loginRequest.Referer())
	assert.True(t, loginRequest.ExtractCookies())
	assert.False(t, loginRequest.Retryable())
}

func TestLoginIncompleteChallengeSendsNoLogin(t *testing.T) {
	transport := new(MockTransport)
	transport.On("Send", mock.Anything, mock.MatchedBy(isRsaKeyRequest)).
		Return(&api.Response{
			StatusCode: 200,
			Body:       []byte(`{"success":true,"publickey_mod":"c0ffee","timestamp":"1","token_gid":"g"}`),
		}, nil).Once()

	session, err := newTestClient(transport).Login(context.Background(), "user", "pass", "")
	assert.Nil(t, session)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteChallenge)
	assert.Contains(t, err.Error(), "publickey_exp")

	transport.AssertNumberOfCalls(t, "Send", 1)
}

func TestLoginChallengeUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		response *api.Response
		err      error
		cause    error
	}{
		{
			name:  "transport failure",
			err:   &api.NetworkError{Op: "request to steam failed", Err: errors.New("connection reset")},
			cause: api.ErrNetwork,
		},
		{
			name:     "not json",
			response: &api.Response{StatusCode: 200, Body: []byte("<html>maintenance</html>")},
			cause:    api.ErrParse,
		},
		{
			name: "refused",
			response: &api.Response{
				StatusCode: 200,
				Body: []byte(`{"success":false,"publickey_mod":"c0ffee","publickey_exp":"010001",` +
					`"timestamp":"1","token_gid":"g"}`),
			},
			cause: ErrChallengeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			transport.On("Send", mock.Anything, mock.Anything).Return(tt.response, tt.err).Once()

			_, err := newTestClient(transport).Login(context.Background(), "user", "pass", "")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrChallengeUnavailable)
			assert.ErrorIs(t, err, tt.cause)
			transport.AssertNumberOfCalls(t, "Send", 1)
		})
	}
}

func TestLoginEncryptionFailure(t *testing.T) {
	transport := new(MockTransport)
	transport.On("Send", mock.Anything, mock.MatchedBy(isRsaKeyRequest)).
		Return(&api.Response{
			StatusCode: 200,
			Body:       []byte(`{"success":true,"publickey_mod":"not-hex","publickey_exp":"010001","timestamp":"1","token_gid":"g"}`),
		}, nil).Once()

	_, err := newTestClient(transport).Login(context.Background(), "user", "pass", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncryptionFailure)
	transport.AssertNumberOfCalls(t, "Send", 1)
}

func TestLoginRejected(t *testing.T) {
	key := generateKey(t)

	transport := new(MockTransport)
	transport.On("Send", mock.Anything, mock.MatchedBy(isRsaKeyRequest)).
		Return(&api.Response{StatusCode: 200, Body: challengeBody(key)}, nil)
	transport.On("Send", mock.Anything, mock.MatchedBy(isDoLoginRequest)).
		Return(&api.Response{
			StatusCode: 200,
			Body:       []byte(`{"success":false,"requires_twofactor":true,"message":"The account name or password that you have entered is incorrect."}`),
			Cookies:    []*http.Cookie{{Name: "sessionid", Value: "abc123"}},
		}, nil)

	session, err := newTestClient(transport).Login(context.Background(), "user", "wrong", "")
	assert.Nil(t, session)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginRejected)

	var loginErr *Error
	require.ErrorAs(t, err, &loginErr)
	assert.Contains(t, loginErr.Message, "password that you have entered is incorrect")
	assert.Contains(t, loginErr.Message, "two factor code required")
}

func TestLoginSessionCookieMissing(t *testing.T) {
	key := generateKey(t)

	transport := new(MockTransport)
	transport.On("Send", mock.Anything, mock.MatchedBy(isRsaKeyRequest)).
		Return(&api.Response{StatusCode: 200, Body: challengeBody(key)}, nil)
	transport.On("Send", mock.Anything, mock.MatchedBy(isDoLoginRequest)).
		Return(&api.Response{
			StatusCode: 200,
			Body:       []byte(`{"success":true,"transfer_parameters":{"steamid":"` + testSteamID + `"}}`),
			Cookies:    []*http.Cookie{{Name: "browserid", Value: "1"}},
		}, nil)

	session, err := newTestClient(transport).Login(context.Background(), "user", "pass", "")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrSessionCookieMissing)
}

func TestLoginSessionCookieNameIsCaseInsensitive(t *testing.T) {
	key := generateKey(t)

	transport := new(MockTransport)
	transport.On("Send", mock.Anything, mock.MatchedBy(isRsaKeyRequest)).
		Return(&api.Response{StatusCode: 200, Body: challengeBody(key)}, nil)
	transport.On("Send", mock.Anything, mock.MatchedBy(isDoLoginRequest)).
		Return(&api.Response{
			StatusCode: 200,
			Body:       []byte(`{"success":"true","transfer_parameters":{"steamid":` + testSteamID + `}}`),
			Cookies:    []*http.Cookie{{Name: "SessionID", Value: "xyz"}},
		}, nil)

	session, err := newTestClient(transport).Login(context.Background(), "user", "pass", "")
	require.NoError(t, err)
	assert.Equal(t, "xyz", session.SessionID())
	assert.True(t, session.ExpiresAt().IsZero())
}

func TestLoginMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html></html>`},
		{"no transfer parameters", `{"success":true}`},
		{"clan steamid", `{"success":true,"transfer_parameters":{"steamid":"103582791429521412"}}`},
		{"garbage steamid", `{"success":true,"transfer_parameters":{"steamid":"abc"}}`},
	}

	key := generateKey(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			transport.On("Send", mock.Anything, mock.MatchedBy(isRsaKeyRequest)).
				Return(&api.Response{StatusCode: 200, Body: challengeBody(key)}, nil)
			transport.On("Send", mock.Anything, mock.MatchedBy(isDoLoginRequest)).
				Return(&api.Response{
					StatusCode: 200,
					Body:       []byte(tt.body),
					Cookies:    []*http.Cookie{{Name: "sessionid", Value: "abc123"}},
				}, nil)

			session, err := newTestClient(transport).Login(context.Background(), "user", "pass", "")
			assert.Nil(t, session)
			assert.ErrorIs(t, err, api.ErrParse)
		})
	}
}

func TestGetRsaKeyRequestEscapesUsername(t *testing.T) {
	request := GetRsaKeyRequest{communityURL: "https://community.test", username: "john doe+1"}
	assert.Equal(t, "https://community.test/login/getrsakey/?username=john%20doe%2B1", request.Url())
	assert.Equal(t, http.MethodGet, request.Method())
	assert.False(t, request.ExtractCookies())
}

func TestLoginSecureExpiry(t *testing.T) {
	expiresAt := time.Unix(1_800_000_000, 0)

	assert.True(t, loginSecureExpiry(loginSecureCookie(t, expiresAt)).Equal(expiresAt))
	assert.True(t, loginSecureExpiry("").IsZero())
	assert.True(t, loginSecureExpiry(testSteamID+"%7C%7C0123456789ABCDEF").IsZero())
	assert.True(t, loginSecureExpiry("no-separator").IsZero())
}

func TestNewSession(t *testing.T) {
	id, err := steamid.Parse(testSteamID)
	require.NoError(t, err)

	session, err := NewSession(id, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", session.SessionID())
	assert.False(t, session.Expired(time.Now()))

	_, err = NewSession(id, "")
	assert.Error(t, err)

	_, err = NewSession(steamid.FromUint64(103582791429521412), "abc123")
	assert.Error(t, err)

	var nilSession *Session
	assert.False(t, nilSession.Valid())
}

func TestSessionExpired(t *testing.T) {
	session := &Session{sessionID: "abc", expiresAt: time.Unix(100, 0)}
	assert.False(t, session.Expired(time.Unix(99, 0)))
	assert.True(t, session.Expired(time.Unix(100, 0)))
}
