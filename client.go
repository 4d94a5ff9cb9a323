package steam

import (
	"context"
	"time"

	"github.com/escrow-tf/steamweb/api"
	"github.com/escrow-tf/steamweb/api/auth"
	"github.com/escrow-tf/steamweb/api/community"
	"github.com/escrow-tf/steamweb/api/twofactor"
	"github.com/escrow-tf/steamweb/config"
	"github.com/escrow-tf/steamweb/logging"
	"github.com/escrow-tf/steamweb/totp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client ties one cookie jar to an authenticator and an inventory synchronizer. Like the transport underneath
// it, a Client must not be used for concurrent logins or syncs.
type Client struct {
	transport *api.HttpTransport
	auth      *auth.Client
	community *community.Client
	twoFactor *twofactor.Client
	logger    *zap.Logger
	now       func() time.Time
}

// NewClient builds a client from cfg. When logger is nil one is built from cfg.Log.
func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, eris.New("config is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		var err error
		logger, err = logging.New(&cfg.Log)
		if err != nil {
			return nil, eris.Wrap(err, "failed to create logger")
		}
	}

	transport, err := api.NewTransport(cfg.TransportOptions(logger.Named("transport")))
	if err != nil {
		return nil, eris.Wrap(err, "failed to create transport")
	}

	return &Client{
		transport: transport,
		auth:      auth.NewClient(transport, cfg.AuthOptions(logger.Named("auth"))),
		community: community.NewClient(transport, cfg.InventoryOptions(logger.Named("inventory"))),
		twoFactor: twofactor.NewClient(transport, cfg.TwoFactorOptions(logger.Named("twofactor"))),
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (c *Client) Transport() *api.HttpTransport {
	return c.transport
}

// AlignTime syncs the Steam Guard clock with Steam. Until it succeeds codes are generated from the local clock.
func (c *Client) AlignTime(ctx context.Context) error {
	return c.twoFactor.AlignTime(ctx)
}

func (c *Client) codeTime() time.Time {
	if steamTime, err := c.twoFactor.SteamTime(); err == nil {
		return steamTime
	}
	return c.now()
}

// Login logs in with an already generated Steam Guard code. otpCode may be empty for accounts without one.
func (c *Client) Login(ctx context.Context, username string, password string, otpCode string) (*auth.Session, error) {
	return c.auth.Login(ctx, username, password, otpCode)
}

// LoginWithSharedSecret generates the current Steam Guard code from the authenticator's shared secret and logs in.
func (c *Client) LoginWithSharedSecret(
	ctx context.Context,
	username string,
	password string,
	sharedSecret string,
) (*auth.Session, error) {
	generator, err := totp.NewGenerator(sharedSecret)
	if err != nil {
		return nil, err
	}

	return c.auth.Login(ctx, username, password, generator.Code(c.codeTime()))
}

// Authenticate logs account in, generating a code when the account has a shared secret.
func (c *Client) Authenticate(ctx context.Context, account *Account) (*auth.Session, error) {
	return c.auth.Login(ctx, account.accountName, account.password, account.Code(c.codeTime()))
}

func (c *Client) FetchInventory(ctx context.Context, session *auth.Session, ownerID string) (*community.Inventory, error) {
	return c.community.FetchInventory(ctx, session, ownerID)
}

func (c *Client) MyListings(ctx context.Context, session *auth.Session) (*community.MyListings, error) {
	return c.community.MyListings(ctx, session)
}

func (c *Client) MarketHistory(
	ctx context.Context,
	session *auth.Session,
	count uint32,
	start uint32,
) (*community.MarketHistory, error) {
	return c.community.MarketHistory(ctx, session, count, start)
}
