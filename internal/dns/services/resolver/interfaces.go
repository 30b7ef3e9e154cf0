package resolver

import (
	"github.com/haukened/authdns/internal/dns/domain"
	"github.com/haukened/authdns/internal/dns/zonefinder"
	"github.com/haukened/authdns/internal/dns/zonetable"
)

// ZoneTable is the subset of zonetable.Table the resolver depends on,
// mirroring §4.4.1's zone selection contract. Declaring it here (rather than
// consuming *zonetable.Table directly) lets tests substitute a fake table
// without touching the real longest-suffix implementation.
type ZoneTable interface {
	FindLongestSuffix(name domain.Name) (zonetable.MatchCode, zonefinder.ZoneFinder)
}

// Section identifies which part of a response an RRset belongs to (§6).
type Section int

const (
	Answer Section = iota
	Authority
	Additional
)

func (s Section) String() string {
	switch s {
	case Answer:
		return "ANSWER"
	case Authority:
		return "AUTHORITY"
	case Additional:
		return "ADDITIONAL"
	default:
		return "UNKNOWN"
	}
}

// ResponseBuilder is the Resolver's sole output (§6). It is opaque to the
// core: Process only ever calls these three methods and never inspects what
// a concrete implementation does with them.
type ResponseBuilder interface {
	SetRcode(rcode domain.RCode)
	SetAA(aa bool)
	AddRRset(section Section, rrset domain.RRset, dnssecOK bool)
}
