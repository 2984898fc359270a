package inventory

import "time"

// Item is a sellable stock item (medicine, consumable).
type Item struct {
	ID             string `json:"id"`
	OrgID          string `json:"org_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Batch is one received lot of an item with its own expiry.
type Batch struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"item_id"`
	BatchNo    string    `json:"batch_no"`
	Quantity   int       `json:"quantity"`
	ExpiryDate time.Time `json:"expiry_date"`
}

// Available filters batches down to the ones usable for a sale: positive
// quantity and not expired at the reference time. Order of the input is
// preserved.
func Available(batches []Batch, now time.Time) []Batch {
	out := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.Quantity > 0 && b.ExpiryDate.After(now) {
			out = append(out, b)
		}
	}
	return out
}
