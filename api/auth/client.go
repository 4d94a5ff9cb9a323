package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/escrow-tf/steamweb/api"
	"github.com/escrow-tf/steamweb/codec"
	"github.com/escrow-tf/steamweb/rsakey"
	"github.com/escrow-tf/steamweb/steamid"
	"go.uber.org/zap"
)

type GetRsaKeyRequest struct {
	communityURL string
	username     string
}

func (g GetRsaKeyRequest) Retryable() bool {
	return false
}

func (g GetRsaKeyRequest) CacheTTL() time.Duration {
	return 0
}

func (g GetRsaKeyRequest) Method() string {
	return http.MethodGet
}

func (g GetRsaKeyRequest) Url() string {
	return fmt.Sprintf("%s/login/getrsakey/?username=%s", g.communityURL, codec.PercentEncode(g.username, codec.RFC3986()))
}

func (g GetRsaKeyRequest) Referer() string {
	return loginReferer(g.communityURL)
}

func (g GetRsaKeyRequest) Body() (string, error) {
	return "", nil
}

func (g GetRsaKeyRequest) ExtractCookies() bool {
	return false
}

type GetRsaKeyResponse struct {
	Success      *api.Scalar `json:"success"`
	PublicKeyMod *api.Scalar `json:"publickey_mod"`
	PublicKeyExp *api.Scalar `json:"publickey_exp"`
	Timestamp    *api.Scalar `json:"timestamp"`
	TokenGid     *api.Scalar `json:"token_gid"`
}

// Challenge is the one-shot key material a login has to be encrypted with.
type Challenge struct {
	PublicKeyModulusHex  string
	PublicKeyExponentHex string
	Timestamp            string
	TokenGid             string
}

func (r GetRsaKeyResponse) Challenge() (Challenge, error) {
	var missing []string
	for name, field := range map[string]*api.Scalar{
		"publickey_mod": r.PublicKeyMod,
		"publickey_exp": r.PublicKeyExp,
		"timestamp":     r.Timestamp,
		"token_gid":     r.TokenGid,
	} {
		if !field.NonEmpty() {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return Challenge{}, &Error{Kind: ErrIncompleteChallenge, Message: "missing " + strings.Join(missing, ", ")}
	}

	// an absent flag is tolerated, an explicit refusal is not
	if r.Success.Present() && r.Success.String() != "true" && r.Success.String() != "1" {
		return Challenge{}, &Error{Kind: ErrChallengeUnavailable, Message: "getrsakey success=" + r.Success.String()}
	}

	return Challenge{
		PublicKeyModulusHex:  r.PublicKeyMod.String(),
		PublicKeyExponentHex: r.PublicKeyExp.String(),
		Timestamp:            r.Timestamp.String(),
		TokenGid:             r.TokenGid.String(),
	}, nil
}

type DoLoginRequest struct {
	communityURL string
	form         *codec.Form
}

func (d DoLoginRequest) Retryable() bool {
	return false
}

func (d DoLoginRequest) CacheTTL() time.Duration {
	return 0
}

func (d DoLoginRequest) Method() string {
	return http.MethodPost
}

func (d DoLoginRequest) Url() string {
	return d.communityURL + "/login/dologin/"
}

func (d DoLoginRequest) Referer() string {
	return loginReferer(d.communityURL)
}

func (d DoLoginRequest) Body() (string, error) {
	return d.form.Encode(), nil
}

func (d DoLoginRequest) ExtractCookies() bool {
	return true
}

type DoLoginResponse struct {
	Success            *api.Scalar `json:"success"`
	Message            *api.Scalar `json:"message"`
	RequiresTwoFactor  *api.Scalar `json:"requires_twofactor"`
	CaptchaNeeded      *api.Scalar `json:"captcha_needed"`
	EmailAuthNeeded    *api.Scalar `json:"emailauth_needed"`
	TransferParameters *struct {
		SteamID *api.Scalar `json:"steamid"`
	} `json:"transfer_parameters"`
}

func (r DoLoginResponse) rejection() string {
	var reasons []string
	if r.Message.NonEmpty() {
		reasons = append(reasons, r.Message.String())
	}
	if r.RequiresTwoFactor.String() == "true" {
		reasons = append(reasons, "two factor code required")
	}
	if r.CaptchaNeeded.String() == "true" {
		reasons = append(reasons, "captcha required")
	}
	if r.EmailAuthNeeded.String() == "true" {
		reasons = append(reasons, "email code required")
	}
	return strings.Join(reasons, "; ")
}

type Options struct {
	CommunityURL string
	Logger       *zap.Logger
	// Clock supplies the donotcache timestamp. Defaults to time.Now.
	Clock func() time.Time
}

type Client struct {
	transport    api.Transport
	communityURL string
	logger       *zap.Logger
	now          func() time.Time
}

func NewClient(transport api.Transport, options Options) *Client {
	communityURL := strings.TrimSuffix(options.CommunityURL, "/")
	if communityURL == "" {
		communityURL = api.DefaultCommunityURL
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := options.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Client{
		transport:    transport,
		communityURL: communityURL,
		logger:       logger,
		now:          clock,
	}
}

// FetchChallenge asks Steam for the RSA key username's password has to be encrypted with.
func (c *Client) FetchChallenge(ctx context.Context, username string) (Challenge, error) {
	request := GetRsaKeyRequest{communityURL: c.communityURL, username: username}
	response, err := c.transport.Send(ctx, request)
	if err != nil {
		return Challenge{}, &Error{Kind: ErrChallengeUnavailable, Cause: err}
	}

	var rsaKeyResponse GetRsaKeyResponse
	if err := json.Unmarshal(response.Body, &rsaKeyResponse); err != nil {
		return Challenge{}, &Error{Kind: ErrChallengeUnavailable, Cause: api.NewParseError("getrsakey response", err)}
	}

	return rsaKeyResponse.Challenge()
}

// EncryptPassword encrypts password with the challenge key and returns it escaped for a form body.
func EncryptPassword(password string, challenge Challenge) (string, error) {
	publicKey, err := rsakey.Parse(challenge.PublicKeyModulusHex, challenge.PublicKeyExponentHex)
	if err != nil {
		return "", &Error{Kind: ErrEncryptionFailure, Cause: err}
	}

	encrypted, err := rsakey.EncryptPKCS1v15([]byte(password), publicKey)
	if err != nil {
		return "", &Error{Kind: ErrEncryptionFailure, Cause: err}
	}

	return codec.PercentEncode(codec.Base64Encode(encrypted), codec.RFC3986()), nil
}

// Login runs the dologin handshake. No step is retried; a failure at any step returns no session.
func (c *Client) Login(ctx context.Context, username string, password string, otpCode string) (*Session, error) {
	logger := c.logger.With(zap.String("username", username))

	challenge, err := c.FetchChallenge(ctx, username)
	if err != nil {
		logger.Warn("couldn't get login challenge", zap.Error(err))
		return nil, err
	}

	encryptedPassword, err := EncryptPassword(password, challenge)
	if err != nil {
		logger.Warn("couldn't encrypt password", zap.Error(err))
		return nil, err
	}

	form := &codec.Form{}
	form.Add("username", username).
		AddEncoded("password", encryptedPassword).
		Add("twofactorcode", otpCode).
		Add("captcha_text", "").
		Add("captchagid", "-1").
		Add("emailauth", "").
		Add("emailsteamid", "").
		Add("remember_login", "true").
		Add("rsatimestamp", challenge.Timestamp).
		Add("donotcache", strconv.FormatInt(c.now().UnixMilli(), 10))

	response, err := c.transport.Send(ctx, DoLoginRequest{communityURL: c.communityURL, form: form})
	if err != nil {
		logger.Warn("dologin request failed", zap.Error(err))
		return nil, err
	}

	var loginResponse DoLoginResponse
	if err := json.Unmarshal(response.Body, &loginResponse); err != nil {
		return nil, api.NewParseError("dologin response", err)
	}

	if loginResponse.Success.String() != "true" {
		reason := loginResponse.rejection()
		logger.Info("login rejected", zap.String("reason", reason))
		return nil, &Error{Kind: ErrLoginRejected, Message: reason}
	}

	if loginResponse.TransferParameters == nil || !loginResponse.TransferParameters.SteamID.NonEmpty() {
		return nil, api.NewParseError("dologin response transfer_parameters.steamid", nil)
	}

	steamID, err := steamid.ParseIndividual(loginResponse.TransferParameters.SteamID.String())
	if err != nil {
		return nil, api.NewParseError("dologin response transfer_parameters.steamid", err)
	}

	sessionID := findCookie(response.Cookies, "sessionid")
	if sessionID == "" {
		logger.Error("login reported success without a sessionid cookie", zap.Stringer("steam_id", steamID))
		return nil, &Error{Kind: ErrSessionCookieMissing}
	}

	session := &Session{
		steamID:   steamID,
		sessionID: sessionID,
		expiresAt: loginSecureExpiry(findCookie(response.Cookies, "steamLoginSecure")),
	}

	logger.Info("logged in",
		zap.Stringer("steam_id", steamID),
		zap.Time("expires_at", session.expiresAt))

	return session, nil
}

func findCookie(cookies []*http.Cookie, name string) string {
	for _, cookie := range cookies {
		if strings.EqualFold(cookie.Name, name) && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

func loginReferer(communityURL string) string {
	return communityURL + "/login/home/?goto="
}
