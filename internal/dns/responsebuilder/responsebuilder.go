// Package responsebuilder provides the concrete Response Builder adapter
// (§6): an opaque sink the Resolver writes answer/authority/additional
// RRsets and the final rcode/AA bit into. The core never inspects it beyond
// the resolver.ResponseBuilder interface; this implementation accumulates
// an in-memory result that a transport can then serialize to wire format.
package responsebuilder

import (
	"github.com/haukened/authdns/internal/dns/domain"
	"github.com/haukened/authdns/internal/dns/services/resolver"
)

// Builder accumulates one query's response. It is not safe for concurrent
// use; per §5 each query worker owns its own Builder.
type Builder struct {
	id    uint16
	rcode domain.RCode
	aa    bool

	answer     []domain.RRset
	authority  []domain.RRset
	additional []domain.RRset
}

// New returns a Builder for the query identified by id (the transport's
// wire message ID, echoed back unchanged; the core never reads it).
func New(id uint16) *Builder {
	return &Builder{id: id}
}

func (b *Builder) SetRcode(rcode domain.RCode) { b.rcode = rcode }
func (b *Builder) SetAA(aa bool)               { b.aa = aa }

func (b *Builder) AddRRset(section resolver.Section, rrset domain.RRset, dnssecOK bool) {
	switch section {
	case resolver.Answer:
		b.answer = append(b.answer, rrset)
	case resolver.Authority:
		b.authority = append(b.authority, rrset)
	case resolver.Additional:
		b.additional = append(b.additional, rrset)
	}
	if !dnssecOK {
		b.stripDNSSEC(section)
	}
}

// stripDNSSEC removes a just-appended NSEC/NSEC3/RRSIG RRset from section
// when the query did not request DNSSEC material. DS is deliberately not
// included here: unlike NSEC/NSEC3/RRSIG, DS is queryable data in its own
// right (a plain qtype=DS lookup answered via the normal SUCCESS path),
// not proof material synthesized alongside an answer. The resolver itself
// only ever calls AddRRset with dnssecOK=false for plain data RRsets, but
// a defensive builder should not leak proof material to a non-validating
// client if a future caller mixes the two.
func (b *Builder) stripDNSSEC(section resolver.Section) {
	var list *[]domain.RRset
	switch section {
	case resolver.Answer:
		list = &b.answer
	case resolver.Authority:
		list = &b.authority
	case resolver.Additional:
		list = &b.additional
	default:
		return
	}
	n := len(*list)
	if n == 0 {
		return
	}
	last := (*list)[n-1]
	if isDNSSECType(last.Type) {
		*list = (*list)[:n-1]
	}
}

func isDNSSECType(t domain.RRType) bool {
	switch t {
	case domain.RRTypeNSEC, domain.RRTypeNSEC3, domain.RRTypeRRSIG:
		return true
	default:
		return false
	}
}

// ID returns the wire message ID this builder was created for.
func (b *Builder) ID() uint16 { return b.id }

// Rcode returns the final rcode set by the resolver.
func (b *Builder) Rcode() domain.RCode { return b.rcode }

// AA returns the final authoritative-answer bit.
func (b *Builder) AA() bool { return b.aa }

// Answer, Authority, and Additional return the accumulated sections, in the
// order the resolver appended them (§5's ordering guarantee).
func (b *Builder) Answer() []domain.RRset     { return b.answer }
func (b *Builder) Authority() []domain.RRset  { return b.authority }
func (b *Builder) Additional() []domain.RRset { return b.additional }

var _ resolver.ResponseBuilder = (*Builder)(nil)
