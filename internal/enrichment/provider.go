// Package enrichment looks up address reputation and schedules lookups.
package enrichment

import (
	"context"
	"errors"
	"fmt"

	"github.com/lvonguyen/rapidtriage/internal/netaddr"
)

// Lookup failure classes. A ContractError matches ErrMalformedResponse.
var (
	ErrLookupTimeout     = errors.New("lookup timed out")
	ErrTransport         = errors.New("transport failure")
	ErrMalformedResponse = errors.New("malformed response")
)

// Provider is the interface for reputation sources. Lookup must bound its own
// duration; the scheduler may call it with a context that is never cancelled.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, addr netaddr.Address) Outcome
	HealthCheck(ctx context.Context) error
}

// Verdict is the classification of one address.
type Verdict int

const (
	VerdictClean Verdict = iota
	VerdictFlagged
	VerdictUnresolved
)

func (v Verdict) String() string {
	switch v {
	case VerdictClean:
		return "clean"
	case VerdictFlagged:
		return "flagged"
	case VerdictUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Reason explains an Unresolved verdict.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonTimeout
	ReasonMalformedResponse
	ReasonTransportError
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTimeout:
		return "timeout"
	case ReasonMalformedResponse:
		return "malformed_response"
	case ReasonTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of looking up one address. Build it with Flagged,
// Clean or Unresolved.
type Outcome struct {
	Verdict     Verdict
	ReportCount uint64
	Reason      Reason
	Err         error
}

// Flagged reports an address with count > 0 abuse reports. A zero count is Clean.
func Flagged(count uint64) Outcome {
	if count == 0 {
		return Clean()
	}
	return Outcome{Verdict: VerdictFlagged, ReportCount: count}
}

// Clean reports an address the source has no reports for.
func Clean() Outcome {
	return Outcome{Verdict: VerdictClean}
}

// Unresolved reports an address whose lookup failed.
func Unresolved(reason Reason, err error) Outcome {
	return Outcome{Verdict: VerdictUnresolved, Reason: reason, Err: err}
}

// Retryable is true for timeouts and transport failures.
func (o Outcome) Retryable() bool {
	return o.Verdict == VerdictUnresolved &&
		(o.Reason == ReasonTimeout || o.Reason == ReasonTransportError)
}

// Label is the metrics label for a single attempt.
func (o Outcome) Label() string {
	if o.Verdict == VerdictUnresolved {
		return o.Reason.String()
	}
	return o.Verdict.String()
}

// ContractError is returned when the service answers in an unexpected shape.
type ContractError struct {
	Status int
	Detail string
	Body   string
}

func (e *ContractError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("malformed response (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("malformed response: %s", e.Detail)
}

// Is makes ContractError match ErrMalformedResponse.
func (e *ContractError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// Result pairs an address with its outcome.
type Result struct {
	Address netaddr.Address
	Outcome Outcome
}

// Report is the partitioned outcome of one enrichment run. Every address
// appears in exactly one of Flagged, Clean or Unresolved, each ascending.
type Report struct {
	Source     string
	Addresses  []netaddr.Address
	Flagged    []Result
	Clean      []netaddr.Address
	Unresolved []Result
}

// FlaggedAddresses returns the flagged addresses in order.
func (r *Report) FlaggedAddresses() []netaddr.Address {
	return addressesOf(r.Flagged)
}

// UnresolvedAddresses returns the unresolved addresses in order.
func (r *Report) UnresolvedAddresses() []netaddr.Address {
	return addressesOf(r.Unresolved)
}

func addressesOf(results []Result) []netaddr.Address {
	out := make([]netaddr.Address, len(results))
	for i, res := range results {
		out[i] = res.Address
	}
	return out
}

// newReport partitions outcomes. addrs must be sorted and unique, and outcomes
// must hold an entry for each.
func newReport(source string, addrs []netaddr.Address, outcomes map[netaddr.Address]Outcome) *Report {
	r := &Report{
		Source:     source,
		Addresses:  addrs,
		Flagged:    []Result{},
		Clean:      []netaddr.Address{},
		Unresolved: []Result{},
	}
	for _, addr := range addrs {
		o := outcomes[addr]
		switch o.Verdict {
		case VerdictFlagged:
			r.Flagged = append(r.Flagged, Result{Address: addr, Outcome: o})
		case VerdictClean:
			r.Clean = append(r.Clean, addr)
		default:
			r.Unresolved = append(r.Unresolved, Result{Address: addr, Outcome: o})
		}
	}
	return r
}
