package netaddr

import "github.com/google/btree"

const setDegree = 8

// AddressSet is a set of unique addresses that always iterates in ascending
// numeric order. The zero value is an empty set ready to use. It is not safe
// for concurrent use.
type AddressSet struct {
	tree *btree.BTreeG[Address]
}

// NewAddressSet returns a set holding the given addresses.
func NewAddressSet(addrs ...Address) *AddressSet {
	s := &AddressSet{}
	for _, a := range addrs {
		s.Add(a)
	}
	return s
}

// Add inserts a and reports whether it was not already present.
// Invalid addresses are ignored.
func (s *AddressSet) Add(a Address) bool {
	if !a.IsValid() {
		return false
	}
	_, replaced := s.init().ReplaceOrInsert(a)
	return !replaced
}

func (s *AddressSet) init() *btree.BTreeG[Address] {
	if s.tree == nil {
		s.tree = btree.NewG[Address](setDegree, Address.Less)
	}
	return s.tree
}

// Contains reports whether a is in the set.
func (s *AddressSet) Contains(a Address) bool {
	if s == nil || s.tree == nil {
		return false
	}
	return s.tree.Has(a)
}

// Len returns the number of addresses.
func (s *AddressSet) Len() int {
	if s == nil || s.tree == nil {
		return 0
	}
	return s.tree.Len()
}

// Union adds every address of other to s.
func (s *AddressSet) Union(other *AddressSet) {
	if other.Len() == 0 {
		return
	}
	tree := s.init()
	other.tree.Ascend(func(a Address) bool {
		tree.ReplaceOrInsert(a)
		return true
	})
}

// Sorted returns the addresses in ascending order.
func (s *AddressSet) Sorted() []Address {
	out := make([]Address, 0, s.Len())
	if s.Len() == 0 {
		return out
	}
	s.tree.Ascend(func(a Address) bool {
		out = append(out, a)
		return true
	})
	return out
}

// Strings returns the textual form of Sorted.
func (s *AddressSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, a := range sorted {
		out[i] = a.String()
	}
	return out
}
