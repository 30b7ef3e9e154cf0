package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/authdns/internal/dns/domain"
)

func mustInsert(t *testing.T, tree *Tree, owner domain.Name, rrtype domain.RRType, text string) {
	t.Helper()
	rrset, err := domain.NewRRset(owner, domain.RRClassIN, rrtype, 300, domain.RDATA{Text: text})
	require.NoError(t, err)
	require.NoError(t, tree.Insert(rrset))
}

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	tree := New(domain.MustParseName("example.com."), domain.RRClassIN, Options{})
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeSOA, "ns1.example.com. admin.example.com. 1 3600 900 604800 3600")
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeNS, "ns1.example.com.")
	mustInsert(t, tree, domain.MustParseName("www.example.com."), domain.RRTypeA, "192.0.2.1")
	mustInsert(t, tree, domain.MustParseName("alias.example.com."), domain.RRTypeCNAME, "www.example.com.")
	mustInsert(t, tree, domain.MustParseName("sub.example.com."), domain.RRTypeNS, "ns1.sub.example.com.")
	mustInsert(t, tree, domain.MustParseName("d.example.com."), domain.RRTypeDNAME, "elsewhere.example.net.")
	mustInsert(t, tree, domain.MustParseName("*.example.com."), domain.RRTypeA, "192.0.2.50")
	mustInsert(t, tree, domain.MustParseName("empty.example.com."), domain.RRTypeA, "192.0.2.60")
	return tree
}

func TestTree_ExactMatch(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.Find(domain.MustParseName("www.example.com."), domain.RRTypeA, domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.Success, res.Code)
	require.NotNil(t, res.RRset)
	assert.Equal(t, "192.0.2.1", res.RRset.RDATA[0].Text)
}

func TestTree_NXDomain(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.Find(domain.MustParseName("nope.example.com."), domain.RRTypeA, domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.NXDomain, res.Code)
}

func TestTree_NXRRsetAtExistingName(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.Find(domain.MustParseName("www.example.com."), domain.RRTypeAAAA, domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.NXRRset, res.Code)
}

func TestTree_CNAME(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.Find(domain.MustParseName("alias.example.com."), domain.RRTypeA, domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.CNAMEResult, res.Code)
	require.NotNil(t, res.RRset)
	assert.Equal(t, "www.example.com.", res.RRset.RDATA[0].Text)
}

func TestTree_CNAMEQueryItselfReturnsSuccess(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.Find(domain.MustParseName("alias.example.com."), domain.RRTypeCNAME, domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.Success, res.Code)
}

func TestTree_WildcardMatch(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.Find(domain.MustParseName("anything.example.com."), domain.RRTypeA, domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.Success, res.Code)
	assert.True(t, res.Wildcard)
	require.NotNil(t, res.RRset)
	assert.Equal(t, "anything.example.com.", res.RRset.Owner.String())
}

func TestTree_WildcardNXRRset(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.Find(domain.MustParseName("anything.example.com."), domain.RRTypeAAAA, domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.NXRRset, res.Code)
	assert.True(t, res.Wildcard)
}

func TestTree_NoWildcardSuppressesSynthesis(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.Find(domain.MustParseName("anything.example.com."), domain.RRTypeA, domain.NoWildcard)
	require.NoError(t, err)
	assert.Equal(t, domain.NXDomain, res.Code)
}

func TestTree_DelegationCut(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.Find(domain.MustParseName("www.sub.example.com."), domain.RRTypeA, domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.Delegation, res.Code)
	require.NotNil(t, res.RRset)
	assert.Equal(t, domain.RRTypeNS, res.RRset.Type)
	assert.Equal(t, "sub.example.com.", res.RRset.Owner.String())
}

func TestTree_DelegationCutExactNameIsNotDelegation(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.Find(domain.MustParseName("sub.example.com."), domain.RRTypeNS, domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.Success, res.Code)
}

func TestTree_GlueOKSuppressesDelegationCut(t *testing.T) {
	tree := newTestTree(t)
	mustInsert(t, tree, domain.MustParseName("ns.sub.example.com."), domain.RRTypeA, "198.51.100.5")

	res, err := tree.Find(domain.MustParseName("ns.sub.example.com."), domain.RRTypeA, domain.FindGlueOK)
	require.NoError(t, err)
	assert.Equal(t, domain.Success, res.Code)
}

func TestTree_DNAMECut(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.Find(domain.MustParseName("sub.d.example.com."), domain.RRTypeA, domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.DNAMEResult, res.Code)
	require.NotNil(t, res.RRset)
	assert.Equal(t, "d.example.com.", res.RRset.Owner.String())
}

func TestTree_InsertMergesRDATAForSameType(t *testing.T) {
	tree := New(domain.MustParseName("example.com."), domain.RRClassIN, Options{})
	mustInsert(t, tree, domain.MustParseName("www.example.com."), domain.RRTypeA, "192.0.2.1")
	mustInsert(t, tree, domain.MustParseName("www.example.com."), domain.RRTypeA, "192.0.2.2")

	res, err := tree.Find(domain.MustParseName("www.example.com."), domain.RRTypeA, domain.FindDefault)
	require.NoError(t, err)
	require.NotNil(t, res.RRset)
	assert.Len(t, res.RRset.RDATA, 2)
}

func TestTree_FindRejectsOutOfBailiwickName(t *testing.T) {
	tree := newTestTree(t)
	_, err := tree.Find(domain.MustParseName("www.other.test."), domain.RRTypeA, domain.FindDefault)
	assert.Error(t, err)
}

func TestTree_FindAllSuccess(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.FindAll(domain.MustParseName("example.com."), domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.Success, res.Code)
	assert.Len(t, res.RRsets, 2) // SOA + NS
}

func TestTree_FindAllDelegation(t *testing.T) {
	tree := newTestTree(t)
	res, err := tree.FindAll(domain.MustParseName("www.sub.example.com."), domain.FindDefault)
	require.NoError(t, err)
	assert.Equal(t, domain.Delegation, res.Code)
	require.Len(t, res.RRsets, 1)
}
