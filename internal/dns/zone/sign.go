package zone

// SignNSEC finalizes the tree with RFC 4034 NSEC denial-of-existence
// records, synthesizing one NSEC RRset per extant owner name (including
// empty non-terminals). Sign must be called after every Insert and before
// the Tree is published for querying (Insert is not safe for concurrent use
// with Find/FindAll/FindNSEC3).
func (t *Tree) SignNSEC() {
	t.nsec = buildNSECIndex(t.root)
	t.signing = signedNSEC
}

// SignNSEC3 finalizes the tree with RFC 5155 NSEC3 denial-of-existence
// records. salt may be nil for an empty salt; iterations follows the zone's
// configured cost (RFC 5155 recommends keeping this small). See SignNSEC
// for the same concurrency contract.
func (t *Tree) SignNSEC3(salt []byte, iterations uint16) {
	t.nsec3 = buildNSEC3Index(t.root, t.origin, salt, iterations)
	t.signing = signedNSEC3
}

// Signing reports how the zone is signed, for callers (e.g. the loader)
// deciding whether to call FindNSEC3 or rely on Find's inline NSEC proofs.
func (t *Tree) Signing() string {
	switch t.signing {
	case signedNSEC:
		return "nsec"
	case signedNSEC3:
		return "nsec3"
	default:
		return "unsigned"
	}
}
