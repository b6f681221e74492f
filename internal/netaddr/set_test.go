package netaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressSetDeduplicates(t *testing.T) {
	assert := assert.New(t)

	s := NewAddressSet()
	assert.True(s.Add(MustParse("1.2.3.4")))
	assert.False(s.Add(MustParse("1.2.3.4")))
	assert.False(s.Add(Address{}))

	assert.Equal(1, s.Len())
	assert.True(s.Contains(MustParse("1.2.3.4")))
	assert.False(s.Contains(MustParse("5.6.7.8")))
}

func TestAddressSetSortedAscending(t *testing.T) {
	assert := assert.New(t)

	s := NewAddressSet(
		MustParse("200.1.1.1"),
		MustParse("5.6.7.8"),
		MustParse("45.0.0.1"),
		MustParse("1.2.3.4"),
	)

	assert.Equal([]string{"1.2.3.4", "5.6.7.8", "45.0.0.1", "200.1.1.1"}, s.Strings())
}

func TestAddressSetUnion(t *testing.T) {
	assert := assert.New(t)

	a := NewAddressSet(MustParse("1.2.3.4"))
	b := NewAddressSet(MustParse("1.2.3.4"), MustParse("5.6.7.8"))

	a.Union(b)
	a.Union(nil)
	a.Union(NewAddressSet())

	assert.Equal([]string{"1.2.3.4", "5.6.7.8"}, a.Strings())
	assert.Equal(2, b.Len())
}

func TestAddressSetEmpty(t *testing.T) {
	assert := assert.New(t)

	var nilSet *AddressSet
	assert.Equal(0, nilSet.Len())

	s := NewAddressSet()
	assert.Empty(s.Sorted())
	assert.NotNil(s.Sorted())
}

func TestAddressSetZeroValue(t *testing.T) {
	assert := assert.New(t)

	var s AddressSet
	assert.False(s.Contains(MustParse("1.2.3.4")))
	assert.True(s.Add(MustParse("5.6.7.8")))
	assert.True(s.Contains(MustParse("5.6.7.8")))

	var u AddressSet
	u.Union(NewAddressSet(MustParse("1.2.3.4")))
	u.Union(&s)

	assert.Equal([]string{"1.2.3.4", "5.6.7.8"}, u.Strings())
}
