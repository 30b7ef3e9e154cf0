package zone

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // NSEC3 hashing is mandated by RFC 5155, not used for security.
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/authdns/internal/dns/domain"
)

// nsec3Index is the hash-space analogue of nsecIndex: a sorted table of
// hashed owner names supporting both exact-match and covering lookups
// (RFC 5155 §7.2).
type nsec3Index struct {
	algorithm  uint8
	iterations uint16
	salt       []byte
	entries    []nsec3Entry
	// membership is a fast negative pre-check layered in front of the
	// exact-match binary search: a name whose hash is definitely not in the
	// filter cannot be an exact match, so that search is skipped. The
	// covering-record binary search runs either way, and the result is
	// never changed by the filter.
	membership *bitsbloom.BloomFilter
}

type nsec3Entry struct {
	hash  []byte
	rrset domain.RRset
}

const nsec3HashAlgorithmSHA1 = 1

// buildNSEC3Index hashes every extant owner name in the tree and returns the
// sorted index, with each node's RRset set carrying its own synthesized
// NSEC3. salt may be empty; iterations follows RFC 5155's recommendation of
// keeping this small since it is a CPU cost paid by every validator, not
// just the signer. As with buildNSECIndex, names occluded below a
// delegation or DNAME cut other than the apex are excluded from the chain
// (RFC 5155 §7.1): the cut point itself is hashed, its descendants are not.
func buildNSEC3Index(root *node, origin domain.Name, salt []byte, iterations uint16) *nsec3Index {
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

	entries := make([]nsec3Entry, len(owners))
	for i, n := range owners {
		entries[i] = nsec3Entry{hash: nsec3Hash(n.owner, salt, iterations)}
		entries[i].rrset.Owner = n.owner // temporary; finalized below once sorted
	}
	// Pair owners with entries before sorting so bitmap/text generation can
	// still find each owner's own types after the hash-order shuffle.
	type pair struct {
		owner *node
		hash  []byte
	}
	pairs := make([]pair, len(owners))
	for i, n := range owners {
		pairs[i] = pair{owner: n, hash: nsec3Hash(n.owner, salt, iterations)}
	}
	sort.Slice(pairs, func(i, j int) bool { return bytes.Compare(pairs[i].hash, pairs[j].hash) < 0 })

	bf := bitsbloom.NewWithEstimates(uint(len(pairs))+1, 0.01)

	out := make([]nsec3Entry, len(pairs))
	for i, p := range pairs {
		next := pairs[(i+1)%len(pairs)]
		owner, _ := base32hexName(p.hash, origin)
		types := make([]domain.RRType, 0, len(p.owner.rrsets)+1)
		for t := range p.owner.rrsets {
			types = append(types, t)
		}
		types = append(types, domain.RRTypeNSEC3)
		rrset := domain.RRset{
			Owner: owner,
			Class: domain.RRClassIN,
			Type:  domain.RRTypeNSEC3,
			TTL:   defaultProofTTL,
			RDATA: []domain.RDATA{{
				Raw:  encodeNSEC3RDATA(nsec3HashAlgorithmSHA1, 0, iterations, salt, next.hash),
				Text: formatNSEC3Text(iterations, salt, next.hash, types),
			}},
		}
		out[i] = nsec3Entry{hash: p.hash, rrset: rrset}
		bf.Add(p.hash)
	}

	return &nsec3Index{
		algorithm:  nsec3HashAlgorithmSHA1,
		iterations: iterations,
		salt:       salt,
		entries:    out,
		membership: bf,
	}
}

// nsec3Hash implements the RFC 5155 §5 iterated hash: IH(salt, x, 0) =
// H(x || salt); IH(salt, x, k) = H(IH(salt, x, k-1) || salt).
func nsec3Hash(name domain.Name, salt []byte, iterations uint16) []byte {
	h := sha1Sum(append(canonicalWire(name), salt...))
	for i := uint16(0); i < iterations; i++ {
		h = sha1Sum(append(h, salt...))
	}
	return h
}

func sha1Sum(b []byte) []byte {
	sum := sha1.Sum(b)
	return sum[:]
}

// canonicalWire encodes name into lowercased wire format for hashing.
func canonicalWire(name domain.Name) []byte {
	var buf bytes.Buffer
	for _, l := range name.Labels() {
		lower := strings.ToLower(l)
		buf.WriteByte(byte(len(lower)))
		buf.WriteString(lower)
	}
	buf.WriteByte(0)
	return buf.Bytes()
}

// base32hexNoPad is RFC 5155's owner-name encoding for hashed labels.
var base32hexNoPad = base32.HexEncoding.WithPadding(base32.NoPadding)

func base32hexName(hash []byte, origin domain.Name) (domain.Name, error) {
	label := strings.ToLower(base32hexNoPad.EncodeToString(hash))
	return domain.ParseName(label + "." + origin.String())
}

func encodeNSEC3RDATA(alg, flags uint8, iterations uint16, salt, next []byte) []byte {
	buf := make([]byte, 0, 5+len(salt)+1+len(next))
	buf = append(buf, alg, flags)
	iterBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(iterBytes, iterations)
	buf = append(buf, iterBytes...)
	buf = append(buf, byte(len(salt)))
	buf = append(buf, salt...)
	buf = append(buf, byte(len(next)))
	buf = append(buf, next...)
	return buf
}

func formatNSEC3Text(iterations uint16, salt, next []byte, types []domain.RRType) string {
	saltHex := "-"
	if len(salt) > 0 {
		saltHex = fmt.Sprintf("%x", salt)
	}
	text := fmt.Sprintf("1 0 %d %s %s", iterations, saltHex, strings.ToUpper(base32hexNoPad.EncodeToString(next)))
	for _, t := range types {
		text += " " + t.String()
	}
	return text
}

// exactOrCover finds the NSEC3 entry for hash: an exact match when present,
// otherwise the entry whose ownership hash immediately precedes it
// (the covering record).
func (idx *nsec3Index) exactOrCover(hash []byte) (nsec3Entry, bool) {
	if idx.membership.Test(hash) {
		i := sort.Search(len(idx.entries), func(i int) bool {
			return bytes.Compare(idx.entries[i].hash, hash) >= 0
		})
		if i < len(idx.entries) && bytes.Equal(idx.entries[i].hash, hash) {
			return idx.entries[i], true
		}
	}
	i := sort.Search(len(idx.entries), func(i int) bool {
		return bytes.Compare(idx.entries[i].hash, hash) >= 0
	})
	if i == 0 {
		return idx.entries[len(idx.entries)-1], false
	}
	return idx.entries[i-1], false
}

// FindNSEC3 implements §4.2's find_nsec3 operation.
func (t *Tree) FindNSEC3(name domain.Name, recursive bool) (domain.NSEC3Result, error) {
	if t.signing != signedNSEC3 {
		return domain.NSEC3Result{}, fmt.Errorf("zone: %s is not NSEC3-signed", t.origin)
	}

	if !recursive {
		hash := nsec3Hash(name, t.nsec3.salt, t.nsec3.iterations)
		entry, matched := t.nsec3.exactOrCover(hash)
		return domain.NSEC3Result{
			ClosestProof:  domain.NSEC3Proof{RRset: entry.rrset, Matched: matched},
			ClosestLabels: name.LabelCount(),
		}, nil
	}

	originLabels := t.origin.LabelCount()
	candidate := name
	for {
		hash := nsec3Hash(candidate, t.nsec3.salt, t.nsec3.iterations)
		if entry, matched := t.nsec3.exactOrCover(hash); matched {
			closestLabels := candidate.LabelCount()
			res := domain.NSEC3Result{
				ClosestProof:  domain.NSEC3Proof{RRset: entry.rrset, Matched: true},
				ClosestLabels: closestLabels,
			}
			if candidate.Equal(name) {
				return res, nil
			}
			nextCloser, err := name.Suffix(closestLabels + 1)
			if err != nil {
				return domain.NSEC3Result{}, err
			}
			nextHash := nsec3Hash(nextCloser, t.nsec3.salt, t.nsec3.iterations)
			coverEntry, _ := t.nsec3.exactOrCover(nextHash)
			proof := domain.NSEC3Proof{RRset: coverEntry.rrset, Matched: false}
			res.NextProof = &proof
			return res, nil
		}
		if candidate.LabelCount() <= originLabels {
			return domain.NSEC3Result{}, fmt.Errorf("zone: %w: no NSEC3 covers the apex of %s", domain.ErrBadNSEC3, t.origin)
		}
		candidate, _ = candidate.Suffix(candidate.LabelCount() - 1)
	}
}
