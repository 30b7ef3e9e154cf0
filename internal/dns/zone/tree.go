// Package zone implements the default Zone Finder: an in-memory tree of
// domain names supporting exact and longest-partial match, per-node RRset
// storage, empty non-terminal (shadow) nodes, and NSEC/NSEC3 denial
// synthesis (§4.2, §9).
package zone

import (
	"fmt"

	"github.com/haukened/authdns/internal/dns/common/log"
	"github.com/haukened/authdns/internal/dns/domain"
)

// node is one label of the zone's name tree, relative to its parent. The
// apex itself is the tree's root node (an empty-label sentinel).
type node struct {
	children map[string]*node
	rrsets   map[domain.RRType]domain.RRset
	// owner is the node's full absolute name, cached at insert time so
	// proof synthesis never has to recompute it by walking back up.
	owner domain.Name
}

func newNode(owner domain.Name) *node {
	return &node{children: make(map[string]*node), rrsets: make(map[domain.RRType]domain.RRset), owner: owner}
}

// isEmptyNonTerminal reports whether this node carries no RRsets of its own
// (it exists purely to route to descendants, or is the synthesized proof
// holder added by Sign).
func (n *node) isEmptyNonTerminal() bool {
	return len(n.rrsets) == 0
}

// Tree is the default, in-memory Zone Finder (§4.2, §4.3's per-zone unit).
// A Tree is built once by a loader and then treated as immutable; concurrent
// Find/FindAll/FindNSEC3 calls across worker goroutines require no locking
// (§5). walkCache is the sole mutable field and is itself safe for
// concurrent use.
type Tree struct {
	origin domain.Name
	class  domain.RRClass
	root   *node

	signing signingMode
	nsec    *nsecIndex
	nsec3   *nsec3Index

	walkCache *walkCache
	logger    log.Logger
}

type signingMode int

const (
	unsigned signingMode = iota
	signedNSEC
	signedNSEC3
)

// Options configures a new Tree.
type Options struct {
	Logger log.Logger
}

// New returns an empty, unsigned Tree for the given apex and class.
func New(origin domain.Name, class domain.RRClass, opts Options) *Tree {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Tree{
		origin:    origin,
		class:     class,
		root:      newNode(origin),
		walkCache: newWalkCache(256),
		logger:    logger,
	}
}

func (t *Tree) Origin() domain.Name   { return t.origin }
func (t *Tree) Class() domain.RRClass { return t.class }

// relativeLabels returns name's labels that lie strictly below t.origin,
// most-significant-first (the label closest to the query's own leaf comes
// first; the label immediately under the apex comes last), or an error if
// name is not origin or a subdomain of it.
func (t *Tree) relativeLabels(name domain.Name) ([]string, error) {
	rel, order, common := domain.Compare(name, t.origin)
	_ = order
	switch rel {
	case domain.Equal:
		return nil, nil
	case domain.Subdomain:
		all := name.Labels()
		return all[:len(all)-(common-1)], nil
	default:
		return nil, fmt.Errorf("zone: %s is not in bailiwick of %s", name, t.origin)
	}
}

// Insert adds rrset to the tree, creating any intermediate empty
// non-terminal nodes required to route to it. Insert is not safe for
// concurrent use with Find/FindAll/FindNSEC3; all inserts must complete
// (including a final Sign, if the zone is signed) before the Tree is
// published for querying.
func (t *Tree) Insert(rrset domain.RRset) error {
	rel, err := t.relativeLabels(rrset.Owner)
	if err != nil {
		return err
	}
	n := t.descend(rel, rrset.Owner)
	if existing, ok := n.rrsets[rrset.Type]; ok {
		merged := existing
		merged.RDATA = append(append([]domain.RDATA(nil), existing.RDATA...), rrset.RDATA...)
		n.rrsets[rrset.Type] = merged
		return nil
	}
	n.rrsets[rrset.Type] = rrset
	return nil
}

// descend walks (creating as needed) the path for relative labels, which
// must be in the most-significant-first order Insert/Find use, and returns
// the terminal node. owner is the full name of that terminal node, used to
// tag freshly created nodes so proof synthesis can read owner names back
// off the tree without recomputing them.
func (t *Tree) descend(rel []string, owner domain.Name) *node {
	cur := t.root
	for i := len(rel) - 1; i >= 0; i-- {
		label := rel[i]
		child, ok := cur.children[label]
		if !ok {
			labelsLeft := i // labels remaining after this one, i.e. closer to the leaf
			childOwner, _ := owner.Suffix(owner.LabelCount() - labelsLeft)
			child = newNode(childOwner)
			cur.children[label] = child
		}
		cur = child
	}
	return cur
}

// walkResult captures what a downward walk discovered, for both Find and
// the wildcard/NSEC helpers below.
type walkResult struct {
	target          *node // non-nil iff the full name matched exactly
	closestEncloser *node
	cutRRset        *domain.RRset
	cutCode         domain.FindResultCode // Delegation or DNAMEResult, valid iff cutRRset != nil
}

// walk descends the tree along name's relative labels, stopping early when
// an ancestor (strictly between the apex and the full target) carries NS
// (unless glueOK suppresses the cut) or DNAME.
func (t *Tree) walk(rel []string, glueOK bool) walkResult {
	cur := t.root
	closest := t.root

	for i := len(rel) - 1; i >= 0; i-- {
		isFinal := i == 0
		if cur != t.root {
			if ns, ok := cur.rrsets[domain.RRTypeNS]; ok && !glueOK {
				return walkResult{closestEncloser: cur, cutRRset: &ns, cutCode: domain.Delegation}
			}
			if dn, ok := cur.rrsets[domain.RRTypeDNAME]; ok {
				return walkResult{closestEncloser: cur, cutRRset: &dn, cutCode: domain.DNAMEResult}
			}
		}
		child, ok := cur.children[rel[i]]
		if !ok {
			return walkResult{closestEncloser: cur}
		}
		cur = child
		closest = cur
		if isFinal {
			return walkResult{target: cur, closestEncloser: closest}
		}
	}
	// rel was empty: name is the origin itself.
	return walkResult{target: cur, closestEncloser: closest}
}

// Find implements the §4.2 result determination order.
func (t *Tree) Find(name domain.Name, rrtype domain.RRType, options domain.FindOptions) (domain.FindResult, error) {
	rel, err := t.relativeLabels(name)
	if err != nil {
		return domain.FindResult{}, err
	}

	if cached, ok := t.walkCache.get(name, rrtype, options); ok {
		return cached, nil
	}

	res := t.find(name, rel, rrtype, options)
	t.walkCache.put(name, rrtype, options, res)
	return res, nil
}

func (t *Tree) find(name domain.Name, rel []string, rrtype domain.RRType, options domain.FindOptions) domain.FindResult {
	glueOK := options.Has(domain.FindGlueOK)
	wr := t.walk(rel, glueOK)

	base := domain.FindResult{
		NSECSigned:  t.signing == signedNSEC,
		NSEC3Signed: t.signing == signedNSEC3,
	}

	if wr.cutRRset != nil {
		base.Code = wr.cutCode
		base.RRset = wr.cutRRset
		return base
	}

	if wr.target != nil {
		if rrset, ok := wr.target.rrsets[rrtype]; ok {
			base.Code = domain.Success
			base.RRset = &rrset
			return base
		}
		if cname, ok := wr.target.rrsets[domain.RRTypeCNAME]; ok && rrtype != domain.RRTypeCNAME && rrtype != domain.RRTypeANY {
			base.Code = domain.CNAMEResult
			base.RRset = &cname
			return base
		}
		// Exact node exists (data or empty non-terminal) but lacks the type.
		// NSEC attachment happens here directly; NSEC3-signed zones are
		// proved via a separate FindNSEC3 call (§4.4.5), so nothing extra
		// to do for that case.
		base.Code = domain.NXRRset
		t.attachNXRRsetProof(&base, options, wr.target)
		return base
	}

	// No exact node. Try a wildcard unless suppressed.
	if !options.Has(domain.NoWildcard) {
		if wild, ok := wr.closestEncloser.children["*"]; ok {
			if rrset, ok := wild.rrsets[rrtype]; ok {
				base.Code = domain.Success
				owned := rrset.WithOwner(name)
				base.RRset = &owned
				base.Wildcard = true
				return base
			}
			base.Code = domain.NXRRset
			base.Wildcard = true
			t.attachNXRRsetProof(&base, options, wild)
			return base
		}
	}

	base.Code = domain.NXDomain
	t.attachNXDomainProof(&base, options, name)
	return base
}

// FindAll implements the ANY-query counterpart of Find.
func (t *Tree) FindAll(name domain.Name, options domain.FindOptions) (domain.FindAllResult, error) {
	rel, err := t.relativeLabels(name)
	if err != nil {
		return domain.FindAllResult{}, err
	}
	glueOK := options.Has(domain.FindGlueOK)
	wr := t.walk(rel, glueOK)

	if wr.cutRRset != nil {
		return domain.FindAllResult{Code: wr.cutCode, RRsets: []domain.RRset{*wr.cutRRset}}, nil
	}
	if wr.target != nil {
		if len(wr.target.rrsets) == 0 {
			return domain.FindAllResult{Code: domain.NXRRset}, nil
		}
		out := make([]domain.RRset, 0, len(wr.target.rrsets))
		for _, rrset := range wr.target.rrsets {
			if rrset.Type == domain.RRTypeNSEC || rrset.Type == domain.RRTypeNSEC3 {
				continue
			}
			out = append(out, rrset)
		}
		return domain.FindAllResult{Code: domain.Success, RRsets: out}, nil
	}
	if !options.Has(domain.NoWildcard) {
		if wild, ok := wr.closestEncloser.children["*"]; ok {
			out := make([]domain.RRset, 0, len(wild.rrsets))
			for _, rrset := range wild.rrsets {
				if rrset.Type == domain.RRTypeNSEC || rrset.Type == domain.RRTypeNSEC3 {
					continue
				}
				out = append(out, rrset.WithOwner(name))
			}
			if len(out) == 0 {
				return domain.FindAllResult{Code: domain.NXRRset}, nil
			}
			return domain.FindAllResult{Code: domain.Success, RRsets: out}, nil
		}
	}
	return domain.FindAllResult{Code: domain.NXDomain}, nil
}
