package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haukened/authdns/internal/dns/domain"
)

func TestSign_UnsignedByDefault(t *testing.T) {
	tree := New(domain.MustParseName("example.com."), domain.RRClassIN, Options{})
	assert.Equal(t, "unsigned", tree.Signing())
}

func TestSign_NSECTransitionsSigningMode(t *testing.T) {
	tree := New(domain.MustParseName("example.com."), domain.RRClassIN, Options{})
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeSOA, "ns1.example.com. admin.example.com. 1 3600 900 604800 3600")
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeNS, "ns1.example.com.")

	tree.SignNSEC()
	assert.Equal(t, "nsec", tree.Signing())
}

func TestSign_NSEC3TransitionsSigningMode(t *testing.T) {
	tree := New(domain.MustParseName("example.com."), domain.RRClassIN, Options{})
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeSOA, "ns1.example.com. admin.example.com. 1 3600 900 604800 3600")
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeNS, "ns1.example.com.")

	tree.SignNSEC3([]byte{0xab, 0xcd}, 2)
	assert.Equal(t, "nsec3", tree.Signing())
}

func TestSign_NSEC3RejectsFindNSEC3WhenNotNSEC3Signed(t *testing.T) {
	tree := New(domain.MustParseName("example.com."), domain.RRClassIN, Options{})
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeSOA, "ns1.example.com. admin.example.com. 1 3600 900 604800 3600")
	mustInsert(t, tree, domain.MustParseName("example.com."), domain.RRTypeNS, "ns1.example.com.")
	tree.SignNSEC()

	_, err := tree.FindNSEC3(domain.MustParseName("example.com."), false)
	assert.Error(t, err)
}
