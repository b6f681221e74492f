// Package ingestion turns triage report files into the deduplicated set of
// public addresses observed on established network connections.
package ingestion

import (
	"regexp"
	"strings"

	"github.com/lvonguyen/rapidtriage/internal/netaddr"
)

// EstablishedMarker is the connection-state token that makes a line a candidate.
const EstablishedMarker = "ESTABLISHED"

var ipv4Regex = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)

// Extract returns the public addresses found on ESTABLISHED lines. Matches that
// do not parse or are not public are dropped without error.
func Extract(lines []string) *netaddr.AddressSet {
	set := netaddr.NewAddressSet()
	for _, line := range lines {
		if !strings.Contains(line, EstablishedMarker) {
			continue
		}
		for _, match := range ipv4Regex.FindAllString(line, -1) {
			addr, err := netaddr.Parse(match)
			if err != nil {
				continue
			}
			set.Add(addr)
		}
	}
	return set
}

// ExtractText splits raw report text into lines and calls Extract.
func ExtractText(text string) *netaddr.AddressSet {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return Extract(strings.Split(text, "\n"))
}
