package twofactor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/escrow-tf/steamweb/api"
	"github.com/escrow-tf/steamweb/codec"
	"go.uber.org/zap"
)

const DefaultWebAPIURL = "https://api.steampowered.com"

var ErrNotAligned = errors.New("AlignTime must be called before SteamTime can be retrieved")

type Options struct {
	WebAPIURL string
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Client tracks the offset between the local clock and Steam's, so Steam Guard codes are generated for the
// window Steam expects even when the local clock drifts.
type Client struct {
	transport api.Transport
	webAPIURL string
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	aligned  bool
	timeDiff time.Duration
}

func NewClient(transport api.Transport, options Options) *Client {
	webAPIURL := strings.TrimSuffix(options.WebAPIURL, "/")
	if webAPIURL == "" {
		webAPIURL = DefaultWebAPIURL
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
		transport: transport,
		webAPIURL: webAPIURL,
		logger:    logger,
		now:       clock,
	}
}

func (c *Client) Aligned() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aligned
}

func (c *Client) SteamTime() (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.aligned {
		return time.Time{}, ErrNotAligned
	}
	return c.now().UTC().Add(c.timeDiff), nil
}

// AlignTime measures the offset to Steam's clock. It has to succeed once before SteamTime can be used.
func (c *Client) AlignTime(ctx context.Context) error {
	unixNow := c.now().Unix()
	timeResponse, err := c.QueryTime(ctx)
	if err != nil {
		return err
	}

	serverTime, err := strconv.ParseInt(timeResponse.Response.ServerTime.String(), 10, 64)
	if err != nil {
		return api.NewParseError("QueryTime server_time", err)
	}

	c.mu.Lock()
	c.timeDiff = time.Second * time.Duration(serverTime-unixNow)
	c.aligned = true
	c.mu.Unlock()

	c.logger.Debug("aligned with steam time", zap.Int64("offset_seconds", serverTime-unixNow))
	return nil
}

type QueryTimeRequest struct {
	webAPIURL string
}

func (q QueryTimeRequest) Retryable() bool {
	return true
}

func (q QueryTimeRequest) CacheTTL() time.Duration {
	return 0
}

func (q QueryTimeRequest) Method() string {
	return http.MethodPost
}

func (q QueryTimeRequest) Url() string {
	return q.webAPIURL + "/ITwoFactorService/QueryTime/v0001"
}

func (q QueryTimeRequest) Referer() string {
	return ""
}

func (q QueryTimeRequest) Body() (string, error) {
	form := &codec.Form{}
	return form.Add("steamid", "0").Encode(), nil
}

func (q QueryTimeRequest) ExtractCookies() bool {
	return false
}

type QueryTimeResponse struct {
	Response struct {
		ServerTime *api.Scalar `json:"server_time"`
	} `json:"response"`
}

func (c *Client) QueryTime(ctx context.Context) (*QueryTimeResponse, error) {
	response, err := c.transport.Send(ctx, QueryTimeRequest{webAPIURL: c.webAPIURL})
	if err != nil {
		return nil, err
	}

	var timeResponse QueryTimeResponse
	if err := json.Unmarshal(response.Body, &timeResponse); err != nil {
		return nil, api.NewParseError("QueryTime response", err)
	}

	if !timeResponse.Response.ServerTime.NonEmpty() {
		return nil, api.NewParseError("QueryTime response server_time", nil)
	}

	return &timeResponse, nil
}
