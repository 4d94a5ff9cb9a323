package api

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/escrow-tf/steamweb/steamlang"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const DefaultCommunityURL = "https://steamcommunity.com"

//goland:noinspection GoUnusedConst
const (
	DefaultUserAgent = "Mozilla/5.0 (Linux; U; Android 4.1.1; en-us; Google Nexus 4 - 4.1.1 - API 16 - 768x1280 " +
		"Build/JRO03S) AppleWebKit/534.30 (KHTML, like Gecko) Version/4.0 Mobile Safari/534.30"
	AcceptHeader        = "text/javascript, text/html, application/xml, text/xml, */*"
	AcceptEncoding      = "gzip, deflate, br"
	RequestedWithHeader = "com.valvesoftware.android.steam.community"
	FormContentType     = "application/x-www-form-urlencoded; charset=UTF-8"
	DefaultMaxRedirects = 3
)

// Request describes one call to the community site. Body returns an already encoded form body; an empty
// body means the request carries none.
type Request interface {
	Retryable() bool
	CacheTTL() time.Duration
	Method() string
	Url() string
	Referer() string
	Body() (string, error)
	ExtractCookies() bool
}

type Response struct {
	StatusCode int
	Body       []byte
	// Cookies holds every cookie the jar would send to the request URL. It is only filled in when the
	// request asked for cookie extraction.
	Cookies []*http.Cookie
}

// Transport keeps a cookie jar for its whole lifetime, so a login performed through it authenticates
// every later request. It is not safe for concurrent logins or syncs.
type Transport interface {
	Send(ctx context.Context, request Request) (*Response, error)
	Cookies(u *url.URL) []*http.Cookie
}

type HttpTransportOptions struct {
	CommunityURL string
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	// RetryMax enables retries for requests that report themselves Retryable. Zero disables retries.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// InsecureSkipVerify disables TLS certificate verification. Only for debugging proxies.
	InsecureSkipVerify bool
	ResponseCache      CacheAdaptor
	Logger             *zap.Logger
}

type HttpTransport struct {
	communityURL string
	userAgent    string
	client       *http.Client
	retryClient  *retryablehttp.Client
	retryMax     int
	logger       *zap.Logger
}

func NewTransport(options HttpTransportOptions) (*HttpTransport, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	communityURL := options.CommunityURL
	if communityURL == "" {
		communityURL = DefaultCommunityURL
	}

	cookieUrl, err := url.Parse(communityURL)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid community url %q", communityURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, eris.Wrap(err, "failed to create cookie jar")
	}

	jar.SetCookies(cookieUrl, []*http.Cookie{
		{
			Name:  "mobileClient",
			Value: "android",
		},
		{
			Name:  "mobileClientVersion",
			Value: "0 (2.1.3)",
		},
	})

	baseTransport := cleanhttp.DefaultPooledTransport()
	if options.InsecureSkipVerify {
		logger.Warn("TLS certificate verification is disabled", zap.String("community_url", communityURL))
		baseTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	var roundTripper http.RoundTripper = baseTransport
	if options.ResponseCache != nil {
		roundTripper = newCachingTransport(baseTransport, options.ResponseCache, logger)
	}

	maxRedirects := options.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}

	httpClient := &http.Client{
		Transport: roundTripper,
		Jar:       jar,
		Timeout:   options.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return eris.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = options.RetryMax
	if options.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = options.RetryWaitMin
	}
	if options.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = options.RetryWaitMax
	}
	retryClient.Logger = retryLogger{logger: logger.Sugar()}

	userAgent := options.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HttpTransport{
		communityURL: communityURL,
		userAgent:    userAgent,
		client:       httpClient,
		retryClient:  retryClient,
		retryMax:     options.RetryMax,
		logger:       logger,
	}, nil
}

func (c *HttpTransport) CommunityURL() string {
	return c.communityURL
}

func (c *HttpTransport) CookieJar() http.CookieJar {
	return c.client.Jar
}

func (c *HttpTransport) Cookies(u *url.URL) []*http.Cookie {
	return c.client.Jar.Cookies(u)
}

// Send performs request and returns the decoded response body.
func (c *HttpTransport) Send(ctx context.Context, request Request) (*Response, error) {
	httpMethod := request.Method()

	body, bodyErr := request.Body()
	if bodyErr != nil {
		return nil, eris.Wrap(bodyErr, "couldn't build request body")
	}

	var httpBody io.Reader
	if body != "" {
		httpBody = strings.NewReader(body)
	}

	if ttl := request.CacheTTL(); ttl > 0 {
		ctx = ContextWithCachingTtl(ctx, ttl)
	}

	httpRequest, httpRequestErr := http.NewRequestWithContext(ctx, httpMethod, request.Url(), httpBody)
	if httpRequestErr != nil {
		return nil, eris.Wrapf(httpRequestErr, "couldn't create request for %s", request.Url())
	}

	httpRequest.Header.Set("Accept", AcceptHeader)
	httpRequest.Header.Set("Accept-Encoding", AcceptEncoding)
	httpRequest.Header.Set("User-Agent", c.userAgent)
	httpRequest.Header.Set("X-Requested-With", RequestedWithHeader)
	if referer := request.Referer(); referer != "" {
		httpRequest.Header.Set("Referer", referer)
	}
	if httpBody != nil {
		httpRequest.Header.Set("Content-Type", FormContentType)
	}

	httpClient := c.client
	if request.Retryable() && c.retryMax > 0 {
		httpClient = c.retryClient.StandardClient()
	}

	started := time.Now()
	httpResponse, httpResponseErr := httpClient.Do(httpRequest)
	if httpResponseErr != nil {
		c.logger.Debug("request failed",
			zap.String("method", httpMethod),
			zap.String("url", httpRequest.URL.Redacted()),
			zap.Error(httpResponseErr))
		return nil, &NetworkError{Op: "request to steam failed", Err: httpResponseErr}
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Debug("error closing steam response body", zap.Error(err))
		}
	}(httpResponse.Body)

	c.logger.Debug("request completed",
		zap.String("method", httpMethod),
		zap.String("url", httpRequest.URL.Redacted()),
		zap.Int("status", httpResponse.StatusCode),
		zap.Duration("duration", time.Since(started)))

	if err := steamlang.EnsureSuccessResponse(httpResponse); err != nil {
		return nil, &NetworkError{Op: "steam returned an error status", Err: err}
	}

	if err := steamlang.EnsureEResultResponse(httpResponse); err != nil {
		return nil, &NetworkError{Op: "steam returned an error result", Err: err}
	}

	responseBody, readErr := readBody(httpResponse)
	if readErr != nil {
		return nil, &NetworkError{Op: "couldn't read response body", Err: readErr}
	}

	response := &Response{
		StatusCode: httpResponse.StatusCode,
		Body:       responseBody,
	}

	if request.ExtractCookies() {
		response.Cookies = c.client.Jar.Cookies(httpRequest.URL)
	}

	return response, nil
}

type retryLogger struct {
	logger *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warnw(msg, keysAndValues...)
}
