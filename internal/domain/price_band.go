package domain

import (
	"github.com/shopspring/decimal"
)

// PriceRange is an inclusive [Min, Max] interval. An Unbounded range has no
// upper limit and Max is ignored.
type PriceRange struct {
	Min       decimal.Decimal `json:"min"`
	Max       decimal.Decimal `json:"max"`
	Unbounded bool            `json:"unbounded,omitempty"`
}

func NewPriceRange(min, max float64) PriceRange {
	return PriceRange{Min: decimal.NewFromFloat(min), Max: decimal.NewFromFloat(max)}
}

func (r PriceRange) Contains(price decimal.Decimal) bool {
	if price.LessThan(r.Min) {
		return false
	}
	return r.Unbounded || price.LessThanOrEqual(r.Max)
}

// BandID identifies one of the fixed price bands offered by the filter UI.
type BandID int

type PriceBand struct {
	ID    BandID     `json:"id"`
	Label string     `json:"label"`
	Range PriceRange `json:"range"`
}

// priceBands is the only place band bounds are defined. Lookups go through
// the band id; labels are display text and are never parsed.
//
// Ranges are inclusive at both ends, so neighbouring bands overlap on their
// shared bound: a $2.00 product is listed under both "$0 - $2" and
// "$2 - $4". Bands are not a partition of prices; a product may match two.
var priceBands = []PriceBand{
	{ID: 1, Label: "$0 - $2", Range: NewPriceRange(0, 2)},
	{ID: 2, Label: "$2 - $4", Range: NewPriceRange(2, 4)},
	{ID: 3, Label: "$4 - $6", Range: NewPriceRange(4, 6)},
	{ID: 4, Label: "$6 - $8", Range: NewPriceRange(6, 8)},
	{ID: 5, Label: "$8 - $10", Range: NewPriceRange(8, 10)},
	{ID: 6, Label: "$10 - $15", Range: NewPriceRange(10, 15)},
	{ID: 7, Label: "$15 - $20", Range: NewPriceRange(15, 20)},
	{ID: 8, Label: "$20+", Range: PriceRange{Min: decimal.NewFromInt(20), Unbounded: true}},
}

// PriceBands returns a copy of the band table in display order.
func PriceBands() []PriceBand {
	out := make([]PriceBand, len(priceBands))
	copy(out, priceBands)
	return out
}

func LookupPriceBand(id BandID) (PriceBand, bool) {
	for _, b := range priceBands {
		if b.ID == id {
			return b, true
		}
	}
	return PriceBand{}, false
}
