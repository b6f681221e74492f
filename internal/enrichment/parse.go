package enrichment

import (
	"strconv"
	"strings"
)

const (
	fieldSeparator = ": "
	lineBreak      = "<br />"
	maxBodyExcerpt = 128
)

// ParseReportCount extracts the abuse report count from a blocklist.de
// api.php body such as "attacks: 12<br />reports: 3<br />". The count is the
// text after the second ": ", up to the next ": " or "<br />".
func ParseReportCount(body string) (uint64, error) {
	if strings.TrimSpace(body) == "" {
		return 0, &ContractError{Detail: "empty body"}
	}

	_, rest, ok := strings.Cut(body, fieldSeparator)
	if ok {
		_, rest, ok = strings.Cut(rest, fieldSeparator)
	}
	if !ok {
		return 0, &ContractError{Detail: "missing report count field", Body: excerpt(body)}
	}

	rest, _, _ = strings.Cut(rest, fieldSeparator)
	rest, _, _ = strings.Cut(rest, lineBreak)
	rest = strings.TrimSpace(rest)

	count, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, &ContractError{Detail: "non-numeric report count " + strconv.Quote(rest), Body: excerpt(body)}
	}
	return count, nil
}

func excerpt(body string) string {
	if len(body) <= maxBodyExcerpt {
		return body
	}
	return body[:maxBodyExcerpt] + "..."
}
