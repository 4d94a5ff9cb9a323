package community

import "github.com/escrow-tf/steamweb/api"

// maxPreallocatedItems bounds how much capacity a server supplied total can reserve up front.
const maxPreallocatedItems = 100_000

type Item struct {
	AppID          string
	ContextID      string
	AssetID        string
	ClassID        string
	InstanceID     string
	MarketHashName string
	Marketable     bool
}

type Inventory struct {
	Items []Item
	Count uint32
}

type inventoryPage struct {
	Assets              []pageAsset       `json:"assets"`
	Descriptions        []pageDescription `json:"descriptions"`
	MoreItems           *api.Scalar       `json:"more_items"`
	LastAssetID         *api.Scalar       `json:"last_assetid"`
	TotalInventoryCount *api.Scalar       `json:"total_inventory_count"`
	Success             *api.Scalar       `json:"success"`
}

type pageAsset struct {
	AppID      *api.Scalar `json:"appid"`
	ContextID  *api.Scalar `json:"contextid"`
	AssetID    *api.Scalar `json:"assetid"`
	ClassID    *api.Scalar `json:"classid"`
	InstanceID *api.Scalar `json:"instanceid"`
}

type pageDescription struct {
	ClassID        *api.Scalar `json:"classid"`
	InstanceID     *api.Scalar `json:"instanceid"`
	MarketHashName *api.Scalar `json:"market_hash_name"`
	Marketable     *api.Scalar `json:"marketable"`
}

type cursor struct {
	lastAssetID string
	itemsSeen   uint32
}

type itemKey struct {
	classID    string
	instanceID string
}

// inventoryBuilder accumulates items across pages. Descriptions may arrive on a later page than the assets they
// describe, so the index covers every item seen so far.
type inventoryBuilder struct {
	items []Item
	index map[itemKey][]int
}

func newInventoryBuilder(expected uint64) *inventoryBuilder {
	capacity := expected
	if capacity > maxPreallocatedItems {
		capacity = maxPreallocatedItems
	}

	return &inventoryBuilder{
		items: make([]Item, 0, capacity),
		index: make(map[itemKey][]int, capacity),
	}
}

func (b *inventoryBuilder) addAssets(assets []pageAsset) {
	for _, asset := range assets {
		item := Item{
			AppID:      asset.AppID.String(),
			ContextID:  asset.ContextID.String(),
			AssetID:    asset.AssetID.String(),
			ClassID:    asset.ClassID.String(),
			InstanceID: asset.InstanceID.String(),
		}

		key := itemKey{classID: item.ClassID, instanceID: item.InstanceID}
		b.index[key] = append(b.index[key], len(b.items))
		b.items = append(b.items, item)
	}
}

// describe annotates every accumulated item matching a description. It returns how many descriptions matched
// nothing.
func (b *inventoryBuilder) describe(descriptions []pageDescription) int {
	unmatched := 0
	for _, description := range descriptions {
		key := itemKey{classID: description.ClassID.String(), instanceID: description.InstanceID.String()}
		matches, ok := b.index[key]
		if !ok {
			unmatched++
			continue
		}

		marketable := description.Marketable.String() == "1"
		for _, i := range matches {
			b.items[i].MarketHashName = description.MarketHashName.String()
			b.items[i].Marketable = marketable
		}
	}
	return unmatched
}

func (b *inventoryBuilder) count() uint32 {
	return uint32(len(b.items))
}

func (b *inventoryBuilder) inventory() *Inventory {
	return &Inventory{
		Items: b.items,
		Count: b.count(),
	}
}
