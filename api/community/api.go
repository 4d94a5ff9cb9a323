package community

import (
	"context"

	"github.com/escrow-tf/steamweb/api/auth"
)

type Api interface {
	FetchInventory(ctx context.Context, session *auth.Session, ownerID string) (*Inventory, error)
	MyListings(ctx context.Context, session *auth.Session) (*MyListings, error)
	MarketHistory(ctx context.Context, session *auth.Session, count uint32, start uint32) (*MarketHistory, error)
}

var _ Api = (*Client)(nil)
