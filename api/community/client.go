package community

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/escrow-tf/steamweb/api"
	"github.com/escrow-tf/steamweb/api/auth"
	"github.com/escrow-tf/steamweb/codec"
	"github.com/escrow-tf/steamweb/steamid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultAppID     = "753"
	DefaultContextID = "6"
	DefaultLanguage  = "english"
	// MaxPageSize is the most items the inventory endpoint hands out per page.
	MaxPageSize = 5000
)

type InventoryPageRequest struct {
	communityURL string
	ownerID      steamid.SteamID
	viewerID     steamid.SteamID
	appID        string
	contextID    string
	language     string
	count        uint
	startAssetID string
	cacheTTL     time.Duration
}

func (p InventoryPageRequest) Retryable() bool {
	return true
}

func (p InventoryPageRequest) CacheTTL() time.Duration {
	return p.cacheTTL
}

func (p InventoryPageRequest) Method() string {
	return http.MethodGet
}

func (p InventoryPageRequest) Url() string {
	rfc3986 := codec.RFC3986()
	return fmt.Sprintf("%s/inventory/%s/%s/%s?l=%s&count=%d&start_assetid=%s",
		p.communityURL,
		p.ownerID.String(),
		codec.PercentEncode(p.appID, rfc3986),
		codec.PercentEncode(p.contextID, rfc3986),
		codec.PercentEncode(p.language, rfc3986),
		p.count,
		codec.PercentEncode(p.startAssetID, rfc3986))
}

func (p InventoryPageRequest) Referer() string {
	return fmt.Sprintf("%s/profiles/%s/inventory/", p.communityURL, p.viewerID.String())
}

func (p InventoryPageRequest) Body() (string, error) {
	return "", nil
}

func (p InventoryPageRequest) ExtractCookies() bool {
	return false
}

type Options struct {
	CommunityURL string
	AppID        string
	ContextID    string
	Language     string
	// PageSize is clamped to MaxPageSize.
	PageSize uint
	// CacheTTL lets the transport's response cache serve repeated page requests.
	CacheTTL time.Duration
	Logger   *zap.Logger
}

type Client struct {
	transport    api.Transport
	communityURL string
	appID        string
	contextID    string
	language     string
	pageSize     uint
	cacheTTL     time.Duration
	logger       *zap.Logger
}

func NewClient(transport api.Transport, options Options) *Client {
	client := &Client{
		transport:    transport,
		communityURL: strings.TrimSuffix(options.CommunityURL, "/"),
		appID:        options.AppID,
		contextID:    options.ContextID,
		language:     options.Language,
		pageSize:     options.PageSize,
		cacheTTL:     options.CacheTTL,
		logger:       options.Logger,
	}

	if client.communityURL == "" {
		client.communityURL = api.DefaultCommunityURL
	}
	if client.appID == "" {
		client.appID = DefaultAppID
	}
	if client.contextID == "" {
		client.contextID = DefaultContextID
	}
	if client.language == "" {
		client.language = DefaultLanguage
	}
	if client.pageSize == 0 || client.pageSize > MaxPageSize {
		client.pageSize = MaxPageSize
	}
	if client.logger == nil {
		client.logger = zap.NewNop()
	}

	return client
}

// FetchInventory pages through ownerID's inventory and returns every item once the last page has been read.
// Nothing is returned on error, including items from pages that were already fetched.
func (c *Client) FetchInventory(ctx context.Context, session *auth.Session, ownerID string) (*Inventory, error) {
	if !session.Valid() {
		return nil, ErrSessionRequired
	}

	owner, err := steamid.Parse(ownerID)
	if err != nil {
		return nil, api.NewParseError("inventory owner steamID", err)
	}

	logger := c.logger.With(
		zap.String("sync_id", uuid.NewString()),
		zap.Stringer("owner", owner),
		zap.String("app_id", c.appID),
		zap.String("context_id", c.contextID))

	var builder *inventoryBuilder
	var total uint32
	position := cursor{lastAssetID: "0"}
	visited := map[string]struct{}{position.lastAssetID: {}}

	for pageNumber := 1; ; pageNumber++ {
		page, err := c.fetchPage(ctx, session, owner, position.lastAssetID)
		if err != nil {
			logger.Warn("inventory page failed", zap.Int("page", pageNumber), zap.Error(err))
			return nil, err
		}

		if builder == nil {
			if !page.TotalInventoryCount.NonEmpty() {
				return nil, ErrMissingTotalCount
			}

			parsed, err := strconv.ParseUint(page.TotalInventoryCount.String(), 10, 32)
			if err != nil {
				return nil, api.NewParseError("total_inventory_count", err)
			}

			total = uint32(parsed)
			builder = newInventoryBuilder(parsed)
			logger.Debug("inventory sync started", zap.Uint32("total_inventory_count", total))
		}

		if len(page.Assets) == 0 || len(page.Descriptions) == 0 {
			logger.Debug("empty inventory page ends sync",
				zap.Int("page", pageNumber),
				zap.Int("assets", len(page.Assets)),
				zap.Int("descriptions", len(page.Descriptions)))
			break
		}

		builder.addAssets(page.Assets)
		unmatched := builder.describe(page.Descriptions)
		position.itemsSeen = builder.count()

		logger.Debug("inventory page merged",
			zap.Int("page", pageNumber),
			zap.Int("assets", len(page.Assets)),
			zap.Int("descriptions", len(page.Descriptions)),
			zap.Int("unmatched_descriptions", unmatched),
			zap.String("more_items", page.MoreItems.String()),
			zap.Uint32("items_seen", position.itemsSeen))

		if position.itemsSeen >= total {
			if page.LastAssetID.NonEmpty() {
				logger.Debug("total_inventory_count reached, ignoring cursor",
					zap.String("last_assetid", page.LastAssetID.String()))
			}
			break
		}

		if !page.LastAssetID.NonEmpty() {
			break
		}

		next := page.LastAssetID.String()
		if _, ok := visited[next]; ok {
			logger.Warn("inventory cursor revisited, stopping", zap.String("last_assetid", next))
			break
		}
		visited[next] = struct{}{}
		position.lastAssetID = next
	}

	inventory := builder.inventory()
	logger.Info("inventory synced", zap.Uint32("count", inventory.Count))
	return inventory, nil
}

func (c *Client) fetchPage(
	ctx context.Context,
	session *auth.Session,
	owner steamid.SteamID,
	startAssetID string,
) (*inventoryPage, error) {
	request := InventoryPageRequest{
		communityURL: c.communityURL,
		ownerID:      owner,
		viewerID:     session.SteamID(),
		appID:        c.appID,
		contextID:    c.contextID,
		language:     c.language,
		count:        c.pageSize,
		startAssetID: startAssetID,
		cacheTTL:     c.cacheTTL,
	}

	response, err := c.transport.Send(ctx, request)
	if err != nil {
		return nil, err
	}

	page := &inventoryPage{}
	if err := json.Unmarshal(response.Body, page); err != nil {
		return nil, api.NewParseError("inventory page", err)
	}

	if err := checkSuccess("inventory page", page.Success); err != nil {
		return nil, err
	}

	return page, nil
}
