// Package zonefinder declares the per-zone lookup primitive the resolver
// consumes (§4.2, §6). It names no concrete implementation; internal/dns/zone
// provides the default in-memory Zone Tree.
package zonefinder

import "github.com/haukened/authdns/internal/dns/domain"

// ZoneFinder is the per-zone lookup primitive. Implementations must be safe
// for concurrent read-only use across queries sharing one zone snapshot
// (§5): all three methods are pure functions of the zone's immutable data.
type ZoneFinder interface {
	// Origin returns the zone's apex name.
	Origin() domain.Name
	// Class returns the zone's class (normally IN).
	Class() domain.RRClass

	// Find resolves name/type per the seven-step result determination of
	// §4.2.
	Find(name domain.Name, rrtype domain.RRType, options domain.FindOptions) (domain.FindResult, error)

	// FindAll is Find's ANY-query counterpart: on Success it returns every
	// RRset at the exact node.
	FindAll(name domain.Name, options domain.FindOptions) (domain.FindAllResult, error)

	// FindNSEC3 returns the NSEC3 proof material for name, per §4.2. When
	// recursive is false it returns the single NSEC3 matching or covering
	// name's hash. When recursive is true it walks toward the apex for the
	// closest encloser and also returns the NSEC3 covering the next closer
	// name.
	FindNSEC3(name domain.Name, recursive bool) (domain.NSEC3Result, error)
}
