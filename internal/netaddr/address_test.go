package netaddr

import (
	"errors"
	"net/netip"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePublicIPv4(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	text := "93.184.216.34"

	// Act
	addr, err := Parse(text)

	// Assert
	assert.Nil(err)
	assert.True(addr.IsValid())
	assert.True(addr.Is4())
	assert.Equal(text, addr.String())
}

func TestParseRejectsMalformed(t *testing.T) {
	assert := assert.New(t)

	for _, text := range []string{"", "256.1.1.1", "1.2.3", "1.2.3.4.5", "01.2.3.4", "not-an-ip", "10.0.0.0/8"} {
		_, err := Parse(text)
		assert.Error(err, text)
		assert.True(errors.Is(err, ErrInvalidAddress), text)
	}
}

func TestParseRejectsNonPublic(t *testing.T) {
	assert := assert.New(t)

	nonPublic := []string{
		"10.0.0.5",        // private
		"172.16.4.1",      // private
		"192.168.1.1",     // private
		"127.0.0.1",       // loopback
		"169.254.10.10",   // link-local
		"224.0.0.251",     // multicast
		"0.0.0.0",         // unspecified
		"0.1.2.3",         // this network
		"100.64.0.1",      // CGNAT
		"192.0.2.10",      // documentation
		"198.18.0.1",      // benchmarking
		"203.0.113.7",     // documentation
		"240.0.0.1",       // reserved
		"255.255.255.255", // broadcast
		"::1",             // loopback
		"fe80::1",         // link-local
		"fd00::1",         // unique local
		"ff02::1",         // multicast
		"2001:db8::1",     // documentation
		"::ffff:10.1.1.1", // mapped private
	}

	for _, text := range nonPublic {
		_, err := Parse(text)
		assert.True(errors.Is(err, ErrNotPublic), text)
	}
}

func TestParseUnmapsIPv4MappedIPv6(t *testing.T) {
	assert := assert.New(t)

	mapped, err := Parse("::ffff:93.184.216.34")
	assert.Nil(err)

	plain := MustParse("93.184.216.34")
	assert.Equal(0, mapped.Compare(plain))
	assert.Equal(plain.String(), mapped.String())
}

func TestParsePublicIPv6(t *testing.T) {
	assert := assert.New(t)

	addr, err := Parse("2606:4700:4700::1111")
	assert.Nil(err)
	assert.False(addr.Is4())

	_, ok := addr.Uint32()
	assert.False(ok)
}

func TestUint32(t *testing.T) {
	assert := assert.New(t)

	n, ok := MustParse("1.2.3.4").Uint32()
	assert.True(ok)
	assert.Equal(uint32(0x01020304), n)
}

func TestOrderingIsNumeric(t *testing.T) {
	assert := assert.New(t)

	// Lexical order would put 10.x before 9.x.
	addrs := []Address{
		MustParse("93.184.216.34"),
		MustParse("9.9.9.9"),
		MustParse("2606:4700:4700::1111"),
		MustParse("11.0.0.1"),
		MustParse("1.1.1.1"),
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })

	got := make([]string, len(addrs))
	for i, a := range addrs {
		got[i] = a.String()
	}
	assert.Equal([]string{"1.1.1.1", "9.9.9.9", "11.0.0.1", "93.184.216.34", "2606:4700:4700::1111"}, got)
}

func TestIsPublicInvalid(t *testing.T) {
	assert := assert.New(t)
	assert.False(IsPublic(netip.Addr{}))
}

func TestFromAddrDropsZone(t *testing.T) {
	assert := assert.New(t)

	addr, err := FromAddr(netip.MustParseAddr("2606:4700:4700::1111%eth0"))
	assert.Nil(err)
	assert.Equal("2606:4700:4700::1111", addr.String())
}

func TestMarshalText(t *testing.T) {
	assert := assert.New(t)

	b, err := MustParse("8.8.4.4").MarshalText()
	assert.Nil(err)
	assert.Equal("8.8.4.4", string(b))
}
