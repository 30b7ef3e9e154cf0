package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/authdns/internal/dns/domain"
)

func newNSECSignedTree(t *testing.T) *Tree {
	t.Helper()
	tree := New(domain.MustParseName("example.com."), domain.RRClassIN, Options{})
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeSOA, "ns1.example.com. admin.example.com. 1 3600 900 604800 3600")
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeNS, "ns1.example.com.")
	mustInsert(t, tree, domain.MustParseName("a.example.com."), domain.RRTypeA, "192.0.2.1")
	mustInsert(t, tree, domain.MustParseName("m.example.com."), domain.RRTypeA, "192.0.2.2")
	mustInsert(t, tree, domain.MustParseName("sub.example.com."), domain.RRTypeNS, "ns1.sub.example.com.")
	mustInsert(t, tree, domain.MustParseName("ns.sub.example.com."), domain.RRTypeA, "198.51.100.5")
	mustInsert(t, tree, domain.MustParseName("z.example.com."), domain.RRTypeA, "192.0.2.3")
	tree.SignNSEC()
	return tree
}

func TestNSEC_ChainIncludesDelegationPointButExcludesOccludedGlue(t *testing.T) {
	tree := newNSECSignedTree(t)

	owners := make(map[string]bool)
	for _, n := range tree.nsec.owners {
		owners[n.owner.String()] = true
	}

	assert.True(t, owners["sub.example.com."], "the delegation point itself must be chained")
	assert.False(t, owners["ns.sub.example.com."], "glue occluded below the NS cut must not be chained")
}

func TestNSEC_ChainExcludesNamesBelowDNAME(t *testing.T) {
	tree := New(domain.MustParseName("example.com."), domain.RRClassIN, Options{})
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeSOA, "ns1.example.com. admin.example.com. 1 3600 900 604800 3600")
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeNS, "ns1.example.com.")
	mustInsert(t, tree, domain.MustParseName("d.example.com."), domain.RRTypeDNAME, "elsewhere.example.net.")
	mustInsert(t, tree, domain.MustParseName("occluded.d.example.com."), domain.RRTypeA, "192.0.2.9")
	tree.SignNSEC()

	owners := make(map[string]bool)
	for _, n := range tree.nsec.owners {
		owners[n.owner.String()] = true
	}

	assert.True(t, owners["d.example.com."], "the DNAME owner itself must be chained")
	assert.False(t, owners["occluded.d.example.com."], "a name below a DNAME must not be chained")
}

func TestNSEC_NXDomainAttachesCoveringPredecessor(t *testing.T) {
	tree := newNSECSignedTree(t)

	res, err := tree.Find(domain.MustParseName("k.example.com."), domain.RRTypeA, domain.FindDNSSEC)
	require.NoError(t, err)
	assert.Equal(t, domain.NXDomain, res.Code)
	require.NotNil(t, res.RRset)
	assert.Equal(t, "a.example.com.", res.RRset.Owner.String())

	nsecFields, err := domain.NSECNext(res.RRset.RDATA[0])
	require.NoError(t, err)
	assert.Equal(t, "m.example.com.", nsecFields.Next.String())
}

func TestNSEC_PredecessorWrapsAroundToLastOwner(t *testing.T) {
	tree := newNSECSignedTree(t)

	res, err := tree.Find(domain.MustParseName("zz.example.com."), domain.RRTypeA, domain.FindDNSSEC)
	require.NoError(t, err)
	assert.Equal(t, domain.NXDomain, res.Code)
	require.NotNil(t, res.RRset)
	assert.Equal(t, "z.example.com.", res.RRset.Owner.String())

	nsecFields, err := domain.NSECNext(res.RRset.RDATA[0])
	require.NoError(t, err)
	assert.Equal(t, "example.com.", nsecFields.Next.String())
}

func TestNSEC_NXRRsetAttachesOwnNSEC(t *testing.T) {
	tree := newNSECSignedTree(t)

	res, err := tree.Find(domain.MustParseName("a.example.com."), domain.RRTypeAAAA, domain.FindDNSSEC)
	require.NoError(t, err)
	assert.Equal(t, domain.NXRRset, res.Code)
	require.NotNil(t, res.RRset)
	assert.Equal(t, "a.example.com.", res.RRset.Owner.String())
}

func TestNSEC_NoProofWithoutDNSSECRequested(t *testing.T) {
	tree := newNSECSignedTree(t)

	res, err := tree.Find(domain.MustParseName("k.example.com."), domain.RRTypeA, domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.NXDomain, res.Code)
	assert.Nil(t, res.RRset)
}
