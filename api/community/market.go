package community

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/escrow-tf/steamweb/api"
	"github.com/escrow-tf/steamweb/api/auth"
	"github.com/escrow-tf/steamweb/codec"
	"go.uber.org/zap"
)

// MyListingsPageSize is how many of the account's own listings one MyListings call asks for.
const MyListingsPageSize = 100

type marketRequest struct {
	communityURL string
	path         string
	query        string
}

func (r marketRequest) Retryable() bool {
	return true
}

func (r marketRequest) CacheTTL() time.Duration {
	return 0
}

func (r marketRequest) Method() string {
	return http.MethodGet
}

func (r marketRequest) Url() string {
	return r.communityURL + r.path + "?" + r.query
}

func (r marketRequest) Referer() string {
	return r.communityURL + "/market/"
}

func (r marketRequest) Body() (string, error) {
	return "", nil
}

func (r marketRequest) ExtractCookies() bool {
	return false
}

type MyListingsRequest struct {
	marketRequest
}

func newMyListingsRequest(communityURL string) MyListingsRequest {
	return MyListingsRequest{marketRequest{
		communityURL: communityURL,
		path:         "/market/mylistings",
		query:        fmt.Sprintf("start=0&count=%d", MyListingsPageSize),
	}}
}

type MarketHistoryRequest struct {
	marketRequest
}

func newMarketHistoryRequest(communityURL string, language string, count uint32, start uint32) MarketHistoryRequest {
	return MarketHistoryRequest{marketRequest{
		communityURL: communityURL,
		path:         "/market/myhistory/render/",
		query: fmt.Sprintf("query=&start=%d&count=%d&l=%s",
			start, count, codec.PercentEncode(language, codec.RFC3986())),
	}}
}

type Listing struct {
	ListingID      string
	AppID          string
	ContextID      string
	AssetID        string
	MarketHashName string
	// Price and Fee are in the smallest unit of the wallet currency.
	Price     uint64
	Fee       uint64
	CreatedAt time.Time
}

type BuyOrder struct {
	OrderID           string
	AppID             string
	HashName          string
	Price             uint64
	Quantity          uint32
	QuantityRemaining uint32
}

type MyListings struct {
	TotalCount         uint32
	ActiveListingCount uint32
	Listings           []Listing
	BuyOrders          []BuyOrder
}

type MarketEvent struct {
	ListingID  string
	PurchaseID string
	EventType  int
	Actor      string
	At         time.Time
}

type MarketHistory struct {
	TotalCount uint32
	Start      uint32
	Events     []MarketEvent
}

type myListingsResponse struct {
	Success           *api.Scalar `json:"success"`
	TotalCount        *api.Scalar `json:"total_count"`
	NumActiveListings *api.Scalar `json:"num_active_listings"`
	Listings          []struct {
		ListingID   *api.Scalar `json:"listingid"`
		TimeCreated *api.Scalar `json:"time_created"`
		Price       *api.Scalar `json:"price"`
		Fee         *api.Scalar `json:"fee"`
		Asset       struct {
			AppID          *api.Scalar `json:"appid"`
			ContextID      *api.Scalar `json:"contextid"`
			ID             *api.Scalar `json:"id"`
			MarketHashName *api.Scalar `json:"market_hash_name"`
		} `json:"asset"`
	} `json:"listings"`
	BuyOrders []struct {
		BuyOrderID        *api.Scalar `json:"buy_orderid"`
		AppID             *api.Scalar `json:"appid"`
		HashName          *api.Scalar `json:"hash_name"`
		Price             *api.Scalar `json:"price"`
		Quantity          *api.Scalar `json:"quantity"`
		QuantityRemaining *api.Scalar `json:"quantity_remaining"`
	} `json:"buy_orders"`
}

type marketHistoryResponse struct {
	Success    *api.Scalar `json:"success"`
	TotalCount *api.Scalar `json:"total_count"`
	Start      *api.Scalar `json:"start"`
	Events     []struct {
		ListingID    *api.Scalar `json:"listingid"`
		PurchaseID   *api.Scalar `json:"purchaseid"`
		EventType    *api.Scalar `json:"event_type"`
		TimeEvent    *api.Scalar `json:"time_event"`
		SteamIDActor *api.Scalar `json:"steamid_actor"`
	} `json:"events"`
}

// MyListings returns the account's open sell listings and buy orders, first page only.
func (c *Client) MyListings(ctx context.Context, session *auth.Session) (*MyListings, error) {
	if !session.Valid() {
		return nil, ErrSessionRequired
	}

	var decoded myListingsResponse
	if err := c.sendMarket(ctx, newMyListingsRequest(c.communityURL), "market listings", &decoded); err != nil {
		return nil, err
	}
	if err := checkSuccess("market listings", decoded.Success); err != nil {
		return nil, err
	}

	n := numbers{}
	listings := &MyListings{
		TotalCount:         n.count("total_count", decoded.TotalCount),
		ActiveListingCount: n.count("num_active_listings", decoded.NumActiveListings),
		Listings:           make([]Listing, 0, len(decoded.Listings)),
		BuyOrders:          make([]BuyOrder, 0, len(decoded.BuyOrders)),
	}

	for _, l := range decoded.Listings {
		listings.Listings = append(listings.Listings, Listing{
			ListingID:      l.ListingID.String(),
			AppID:          l.Asset.AppID.String(),
			ContextID:      l.Asset.ContextID.String(),
			AssetID:        l.Asset.ID.String(),
			MarketHashName: l.Asset.MarketHashName.String(),
			Price:          n.amount("price", l.Price),
			Fee:            n.amount("fee", l.Fee),
			CreatedAt:      n.timestamp("time_created", l.TimeCreated),
		})
	}

	for _, o := range decoded.BuyOrders {
		listings.BuyOrders = append(listings.BuyOrders, BuyOrder{
			OrderID:           o.BuyOrderID.String(),
			AppID:             o.AppID.String(),
			HashName:          o.HashName.String(),
			Price:             n.amount("price", o.Price),
			Quantity:          n.count("quantity", o.Quantity),
			QuantityRemaining: n.count("quantity_remaining", o.QuantityRemaining),
		})
	}

	if n.err != nil {
		return nil, n.err
	}

	c.logger.Debug("market listings loaded",
		zap.Int("listings", len(listings.Listings)),
		zap.Int("buy_orders", len(listings.BuyOrders)))
	return listings, nil
}

// MarketHistory returns count market events starting at offset start, newest first.
func (c *Client) MarketHistory(ctx context.Context, session *auth.Session, count uint32, start uint32) (*MarketHistory, error) {
	if !session.Valid() {
		return nil, ErrSessionRequired
	}

	request := newMarketHistoryRequest(c.communityURL, c.language, count, start)
	var decoded marketHistoryResponse
	if err := c.sendMarket(ctx, request, "market history", &decoded); err != nil {
		return nil, err
	}
	if err := checkSuccess("market history", decoded.Success); err != nil {
		return nil, err
	}

	n := numbers{}
	history := &MarketHistory{
		TotalCount: n.count("total_count", decoded.TotalCount),
		Start:      n.count("start", decoded.Start),
		Events:     make([]MarketEvent, 0, len(decoded.Events)),
	}

	for _, e := range decoded.Events {
		history.Events = append(history.Events, MarketEvent{
			ListingID:  e.ListingID.String(),
			PurchaseID: e.PurchaseID.String(),
			EventType:  int(n.count("event_type", e.EventType)),
			Actor:      e.SteamIDActor.String(),
			At:         n.timestamp("time_event", e.TimeEvent),
		})
	}

	if n.err != nil {
		return nil, n.err
	}

	return history, nil
}

func (c *Client) sendMarket(ctx context.Context, request api.Request, what string, into any) error {
	response, err := c.transport.Send(ctx, request)
	if err != nil {
		c.logger.Warn("market request failed", zap.String("what", what), zap.Error(err))
		return err
	}

	if err := json.Unmarshal(response.Body, into); err != nil {
		return api.NewParseError(what, err)
	}
	return nil
}

// checkSuccess tolerates an absent flag and rejects anything but 1 or true.
func checkSuccess(what string, success *api.Scalar) error {
	if success.Present() && success.String() != "1" && success.String() != "true" {
		return api.NewParseError(what, ErrNotSuccessful)
	}
	return nil
}

// numbers parses optional numeric fields, remembering the first failure. Absent fields read as zero.
type numbers struct {
	err error
}

func (n *numbers) parse(field string, value *api.Scalar, bits int) uint64 {
	if !value.NonEmpty() || n.err != nil {
		return 0
	}

	parsed, err := strconv.ParseUint(value.String(), 10, bits)
	if err != nil {
		n.err = api.NewParseError(field, err)
		return 0
	}
	return parsed
}

func (n *numbers) count(field string, value *api.Scalar) uint32 {
	return uint32(n.parse(field, value, 32))
}

func (n *numbers) amount(field string, value *api.Scalar) uint64 {
	return n.parse(field, value, 64)
}

func (n *numbers) timestamp(field string, value *api.Scalar) time.Time {
	seconds := n.parse(field, value, 63)
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(int64(seconds), 0)
}
