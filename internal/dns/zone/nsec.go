package zone

import (
	"sort"

	"github.com/haukened/authdns/internal/dns/domain"
)

// nsecIndex is the canonical-order owner-name index used to answer NSEC
// denial-of-existence queries: for any (possibly non-existent) name, it
// finds the NSEC RRset whose owner is the name's immediate predecessor in
// zone canonical order (RFC 4034 §4, RFC 4035 §2.3).
type nsecIndex struct {
	owners []*node // sorted ascending by domain.Compare canonical order
}

// buildNSECIndex synthesizes one NSEC RRset per extant owner name (RFC 4034
// §4.1: every authoritative name, including empty non-terminals, gets an
// NSEC record pointing at the next name in canonical order) and returns the
// sorted index used to find covering NSEC records for names that do not
// exist at all. Names occluded below a zone cut -- a delegation (NS) or a
// DNAME, other than the apex itself -- are excluded from the chain per RFC
// 4035 §2.3: the cut point's own owner name is chained, but nothing beneath
// it belongs to this zone.
func buildNSECIndex(root *node) *nsecIndex {
	var owners []*node
	var collect func(n *node)
	collect = func(n *node) {
		owners = append(owners, n)
		if n != root {
			if _, ok := n.rrsets[domain.RRTypeNS]; ok {
				return
			}
			if _, ok := n.rrsets[domain.RRTypeDNAME]; ok {
				return
			}
		}
		for _, c := range n.children {
			collect(c)
		}
	}
	collect(root)

	sort.Slice(owners, func(i, j int) bool {
		_, order, _ := domain.Compare(owners[i].owner, owners[j].owner)
		return order < 0
	})

	for i, n := range owners {
		next := owners[(i+1)%len(owners)]
		types := make([]domain.RRType, 0, len(n.rrsets)+1)
		for t := range n.rrsets {
			types = append(types, t)
		}
		types = append(types, domain.RRTypeNSEC)
		text := next.owner.String()
		for _, t := range types {
			text += " " + t.String()
		}
		n.rrsets[domain.RRTypeNSEC] = domain.RRset{
			Owner: n.owner,
			Class: domain.RRClassIN,
			Type:  domain.RRTypeNSEC,
			TTL:   defaultProofTTL,
			RDATA: []domain.RDATA{{Text: text}},
		}
	}

	return &nsecIndex{owners: owners}
}

// defaultProofTTL is the TTL assigned to synthesized NSEC/NSEC3 RRsets when
// the loader does not specify one explicitly. Zone signing (key management,
// actual RRSIG generation) is out of scope (§1); this value only affects
// how long a denial-of-existence proof may be cached downstream.
const defaultProofTTL = 3600

// predecessor returns the node whose owner name immediately precedes name
// in canonical zone order -- the node whose NSEC RRset covers (proves the
// non-existence of) name.
func (idx *nsecIndex) predecessor(name domain.Name) *node {
	// Binary search for the first owner >= name; the covering NSEC owner
	// is the one just before it (wrapping to the last owner, which covers
	// everything after the zone's maximal name up to the apex again).
	i := sort.Search(len(idx.owners), func(i int) bool {
		_, order, _ := domain.Compare(idx.owners[i].owner, name)
		return order >= 0
	})
	if i == 0 {
		return idx.owners[len(idx.owners)-1]
	}
	return idx.owners[i-1]
}

// attachNXRRsetProof fills in the NSEC RRset proving an existing name (or
// wildcard expansion) lacks the queried type, when the zone is NSEC-signed
// and the caller asked for DNSSEC material.
func (t *Tree) attachNXRRsetProof(res *domain.FindResult, options domain.FindOptions, target *node) {
	if t.signing != signedNSEC || !options.Has(domain.FindDNSSEC) {
		return
	}
	rrset := target.rrsets[domain.RRTypeNSEC]
	res.RRset = &rrset
}

// attachNXDomainProof fills in the covering NSEC RRset proving qname does
// not exist at all, when the zone is NSEC-signed and DNSSEC material was
// requested.
func (t *Tree) attachNXDomainProof(res *domain.FindResult, options domain.FindOptions, qname domain.Name) {
	if t.signing != signedNSEC || !options.Has(domain.FindDNSSEC) {
		return
	}
	pred := t.nsec.predecessor(qname)
	rrset := pred.rrsets[domain.RRTypeNSEC]
	res.RRset = &rrset
}
