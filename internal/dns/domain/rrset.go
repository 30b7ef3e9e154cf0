package domain

import (
	"encoding/binary"
	"fmt"
)

// RRset is an immutable collection of RDATA sharing one owner, class, type,
// and TTL (§3). RRsets returned by a Zone Finder are conceptually
// read-only and safe to share by reference across a single query.
type RRset struct {
	Owner Name
	Class RRClass
	Type  RRType
	TTL   uint32
	RDATA []RDATA
}

// RDATA is the type-specific resource data of one record within an RRset.
// Raw holds the wire-format bytes; Text holds the zone-file presentation
// form, mirroring the Data/Text split the teacher's ResourceRecord uses for
// caching versus human-readable logging.
type RDATA struct {
	Raw  []byte
	Text string
}

// NewRRset constructs an RRset, validating that it is non-empty.
func NewRRset(owner Name, class RRClass, rrtype RRType, ttl uint32, rdata ...RDATA) (RRset, error) {
	if len(rdata) == 0 {
		return RRset{}, fmt.Errorf("domain: RRset %s/%s must have at least one RDATA", owner, rrtype)
	}
	return RRset{Owner: owner, Class: class, Type: rrtype, TTL: ttl, RDATA: rdata}, nil
}

// WithOwner returns a copy of the RRset rewritten to a new owner name. Used
// by the resolver to rewrite a wildcard's synthesized RRset to the queried
// owner (§4.2, result code 7).
func (r RRset) WithOwner(owner Name) RRset {
	out := r
	out.Owner = owner
	return out
}

// NSTarget returns the target name of an NS RDATA, as decoded from Text.
func NSTarget(d RDATA) (Name, error) {
	return ParseName(d.Text)
}

// CNAMETarget returns the target name of a CNAME RDATA.
func CNAMETarget(d RDATA) (Name, error) {
	return ParseName(d.Text)
}

// DNAMETarget returns the substitution target name of a DNAME RDATA.
func DNAMETarget(d RDATA) (Name, error) {
	return ParseName(d.Text)
}

// MXRecord is the parsed form of an MX RDATA's preference and exchange.
type MXRecord struct {
	Preference uint16
	Exchange   Name
}

// MXExchange parses "<preference> <exchange>" presentation text into an
// MXRecord.
func MXExchange(d RDATA) (MXRecord, error) {
	var pref uint16
	var exchange string
	if _, err := fmt.Sscanf(d.Text, "%d %s", &pref, &exchange); err != nil {
		return MXRecord{}, fmt.Errorf("domain: malformed MX rdata %q: %w", d.Text, err)
	}
	name, err := ParseName(exchange)
	if err != nil {
		return MXRecord{}, err
	}
	return MXRecord{Preference: pref, Exchange: name}, nil
}

// SOAFields is the parsed form of an SOA RDATA's fields. The resolver does
// not consult it: it attaches the apex SOA RRset as stored, and the response
// builder owns wire TTL policy.
type SOAFields struct {
	MName   Name
	RName   Name
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// SOA parses "<mname> <rname> <serial> <refresh> <retry> <expire> <minimum>"
// presentation text into SOAFields.
func SOA(d RDATA) (SOAFields, error) {
	var mname, rname string
	var serial, refresh, retry, expire, minimum uint32
	n, err := fmt.Sscanf(d.Text, "%s %s %d %d %d %d %d", &mname, &rname, &serial, &refresh, &retry, &expire, &minimum)
	if err != nil || n != 7 {
		return SOAFields{}, fmt.Errorf("domain: malformed SOA rdata %q: %w", d.Text, err)
	}
	mn, err := ParseName(mname)
	if err != nil {
		return SOAFields{}, err
	}
	rn, err := ParseName(rname)
	if err != nil {
		return SOAFields{}, err
	}
	return SOAFields{MName: mn, RName: rn, Serial: serial, Refresh: refresh, Retry: retry, Expire: expire, Minimum: minimum}, nil
}

// NSECFields is the parsed form of an NSEC RDATA: the next owner name in
// canonical zone order, and the bitmap of types present at this owner.
type NSECFields struct {
	Next  Name
	Types []RRType
}

// NSECNext parses the "next owner name" portion of NSEC presentation text
// ("<next> TYPE TYPE ..."), ignoring the trailing type bitmap tokens beyond
// reporting which RRTypes they name.
func NSECNext(d RDATA) (NSECFields, error) {
	var tokens []string
	cur := ""
	for _, r := range d.Text {
		if r == ' ' {
			if cur != "" {
				tokens = append(tokens, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		tokens = append(tokens, cur)
	}
	if len(tokens) == 0 {
		return NSECFields{}, fmt.Errorf("domain: empty NSEC rdata")
	}
	next, err := ParseName(tokens[0])
	if err != nil {
		return NSECFields{}, err
	}
	types := make([]RRType, 0, len(tokens)-1)
	for _, tok := range tokens[1:] {
		types = append(types, RRTypeFromString(tok))
	}
	return NSECFields{Next: next, Types: types}, nil
}

// NSEC3Fields is the parsed form of an NSEC3 RDATA (RFC 5155 §3).
type NSEC3Fields struct {
	HashAlgorithm uint8
	Flags         uint8
	Iterations    uint16
	Salt          []byte
	NextHashed    []byte // base32hex-decoded next hashed owner name
	Types         []RRType
}

// OptOut reports whether NSEC3's opt-out flag (bit 0) is set.
func (f NSEC3Fields) OptOut() bool {
	return f.Flags&0x01 != 0
}

// NSEC3 decodes the binary RDATA of an NSEC3 record per RFC 5155 §3.2. The
// type bitmap is not decoded here (the zone tree tracks covered types
// separately); this accessor exists for RDATA appended verbatim to a
// Response Builder.
func NSEC3(d RDATA) (NSEC3Fields, error) {
	b := d.Raw
	if len(b) < 5 {
		return NSEC3Fields{}, fmt.Errorf("domain: truncated NSEC3 rdata")
	}
	f := NSEC3Fields{
		HashAlgorithm: b[0],
		Flags:         b[1],
		Iterations:    binary.BigEndian.Uint16(b[2:4]),
	}
	off := 4
	saltLen := int(b[off])
	off++
	if off+saltLen > len(b) {
		return NSEC3Fields{}, fmt.Errorf("domain: truncated NSEC3 salt")
	}
	f.Salt = append([]byte(nil), b[off:off+saltLen]...)
	off += saltLen
	if off >= len(b) {
		return NSEC3Fields{}, fmt.Errorf("domain: truncated NSEC3 hash")
	}
	hashLen := int(b[off])
	off++
	if off+hashLen > len(b) {
		return NSEC3Fields{}, fmt.Errorf("domain: truncated NSEC3 hash")
	}
	f.NextHashed = append([]byte(nil), b[off:off+hashLen]...)
	return f, nil
}
