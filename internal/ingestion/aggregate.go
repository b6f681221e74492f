package ingestion

import "github.com/lvonguyen/rapidtriage/internal/netaddr"

// Aggregator merges per-report address sets into one master set. Which report
// an address came from is not retained.
type Aggregator struct {
	set     *netaddr.AddressSet
	reports int
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{set: netaddr.NewAddressSet()}
}

// Add unions one report's addresses into the master set.
func (a *Aggregator) Add(set *netaddr.AddressSet) {
	a.reports++
	a.set.Union(set)
}

// Reports returns how many sets have been added.
func (a *Aggregator) Reports() int { return a.reports }

// Len returns the number of unique addresses so far.
func (a *Aggregator) Len() int { return a.set.Len() }

// Sorted returns the master list in ascending numeric order.
func (a *Aggregator) Sorted() []netaddr.Address {
	return a.set.Sorted()
}

// Aggregate is the one-shot form of Aggregator.
func Aggregate(sets ...*netaddr.AddressSet) []netaddr.Address {
	agg := NewAggregator()
	for _, s := range sets {
		agg.Add(s)
	}
	return agg.Sorted()
}
