package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/authdns/internal/dns/config"
	"github.com/haukened/authdns/internal/dns/domain"
	"github.com/haukened/authdns/internal/dns/services/resolver"
)

type fakeBuilder struct {
	rcode      domain.RCode
	aa         bool
	answer     []domain.RRset
	authority  []domain.RRset
	additional []domain.RRset
}

func (b *fakeBuilder) SetRcode(rcode domain.RCode) { b.rcode = rcode }
func (b *fakeBuilder) SetAA(aa bool)               { b.aa = aa }
func (b *fakeBuilder) AddRRset(section resolver.Section, rrset domain.RRset, dnssecOK bool) {
	switch section {
	case resolver.Answer:
		b.answer = append(b.answer, rrset)
	case resolver.Authority:
		b.authority = append(b.authority, rrset)
	case resolver.Additional:
		b.additional = append(b.additional, rrset)
	}
}

func writeZoneFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func testConfig(t *testing.T, zoneDir string) *config.AppConfig {
	t.Helper()
	cfg := config.DEFAULT_APP_CONFIG
	cfg.ZoneDir = zoneDir
	cfg.SnapshotDB = filepath.Join(t.TempDir(), "zones.bolt")
	return &cfg
}

func TestBuildApplication_LoadsZonesIntoTable(t *testing.T) {
	dir := t.TempDir()
	writeZoneFile(t, dir, "example.yaml", `
zone_root: example.com.
example.com.:
  soa: "ns1.example.com. admin.example.com. 2024010100 3600 900 604800 3600"
  ns: ns1.example.com.
www.example.com.:
  a: 192.0.2.1
`)

	app, err := buildApplication(testConfig(t, dir))
	require.NoError(t, err)
	defer app.Close()

	zones := app.table.Zones()
	require.Len(t, zones, 1)
	assert.Equal(t, "example.com.", zones[0].String())
	assert.NotNil(t, app.Resolver)
}

func TestBuildApplication_PersistsSnapshotAcrossReload(t *testing.T) {
	dir := t.TempDir()
	writeZoneFile(t, dir, "example.yaml", `
zone_root: example.com.
example.com.:
  soa: "ns1.example.com. admin.example.com. 1 3600 900 604800 3600"
  ns: ns1.example.com.
`)

	cfg := testConfig(t, dir)

	app1, err := buildApplication(cfg)
	require.NoError(t, err)
	require.NoError(t, app1.Close())

	app2, err := buildApplication(cfg)
	require.NoError(t, err)
	defer app2.Close()

	zones := app2.table.Zones()
	require.Len(t, zones, 1)
	assert.Equal(t, "example.com.", zones[0].String())
}

func TestBuildApplication_InvalidZoneDirectory(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := buildApplication(cfg)
	assert.Error(t, err)
}

func TestApplication_ResolverAnswersLoadedZone(t *testing.T) {
	dir := t.TempDir()
	writeZoneFile(t, dir, "example.yaml", `
zone_root: example.com.
example.com.:
  soa: "ns1.example.com. admin.example.com. 1 3600 900 604800 3600"
  ns: ns1.example.com.
www.example.com.:
  a: 192.0.2.1
`)

	app, err := buildApplication(testConfig(t, dir))
	require.NoError(t, err)
	defer app.Close()

	rb := &fakeBuilder{}
	err = app.Resolver.Process(rb, domain.MustParseName("www.example.com."), domain.RRTypeA, domain.RRClassIN, false)
	require.NoError(t, err)
	assert.Equal(t, domain.RCodeNOERROR, rb.rcode)
	assert.True(t, rb.aa)
	require.Len(t, rb.answer, 1)
}
