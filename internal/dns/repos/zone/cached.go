package zone

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/haukened/authdns/internal/dns/common/clock"
	"github.com/haukened/authdns/internal/dns/common/log"
	"github.com/haukened/authdns/internal/dns/domain"
	"github.com/haukened/authdns/internal/dns/repos/zonetable"
	dnszone "github.com/haukened/authdns/internal/dns/zone"
)

// LoadZoneDirectoryCached behaves like LoadZoneDirectory, but consults store
// first: zones whose contributing files are unchanged since the last Put
// are rebuilt directly from the stored snapshot, skipping the koanf parse
// and rrdata re-encode. Changed or previously unseen zones are parsed
// normally and their snapshot is refreshed in store. A nil store disables
// caching entirely and behaves exactly like LoadZoneDirectory. clk stamps
// each snapshot's capture time so a cache hit can log its age.
func LoadZoneDirectoryCached(dir string, defaultTTL time.Duration, logger log.Logger, store *zonetable.Store, clk clock.Clock) (map[string]*dnszone.Tree, error) {
	if store == nil {
		return LoadZoneDirectory(dir, defaultTTL, logger)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	builders := make(map[string]*zoneBuilder)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		fb, err := parseZoneFile(path, defaultTTL)
		if err != nil {
			return fmt.Errorf("error parsing zone file %s: %w", path, err)
		}
		if fb == nil {
			return nil
		}
		fb.files = []string{path}
		existing, ok := builders[fb.origin.String()]
		if !ok {
			builders[fb.origin.String()] = fb
			return nil
		}
		existing.rrsets = append(existing.rrsets, fb.rrsets...)
		existing.files = append(existing.files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	trees := make(map[string]*dnszone.Tree, len(builders))
	for apex, b := range builders {
		snap, found, err := store.Get(apex)
		if err == nil && found && snap.Fresh() && sameFileSet(snap.SourceFiles, b.files) {
			tree, err := rebuildFromSnapshot(snap, logger)
			if err != nil {
				return nil, fmt.Errorf("error rebuilding cached zone %s: %w", apex, err)
			}
			trees[apex] = tree
			logger.Info(map[string]any{
				"apex":         apex,
				"snapshot_age": clk.Now().Sub(snap.CapturedAt).String(),
				"captured_at":  snap.CapturedAt,
			}, "zone: rebuilt zone from cached snapshot")
			continue
		}

		tree, err := b.build(logger)
		if err != nil {
			return nil, fmt.Errorf("error building zone %s: %w", apex, err)
		}
		trees[apex] = tree

		if err := store.Put(snapshotOf(b, clk.Now())); err != nil {
			return nil, fmt.Errorf("error storing zone snapshot %s: %w", apex, err)
		}
	}
	return trees, nil
}

func sameFileSet(fingerprints map[string]zonetable.FileFingerprint, files []string) bool {
	if len(fingerprints) != len(files) {
		return false
	}
	for _, f := range files {
		if _, ok := fingerprints[f]; !ok {
			return false
		}
	}
	return true
}

func snapshotOf(b *zoneBuilder, capturedAt time.Time) zonetable.ZoneSnapshot {
	sourceFiles := make(map[string]zonetable.FileFingerprint, len(b.files))
	for _, f := range b.files {
		if fp, err := zonetable.Fingerprint(f); err == nil {
			sourceFiles[f] = fp
		}
	}
	rrsets := make([]zonetable.RRsetSnapshot, 0, len(b.rrsets))
	for _, rrset := range b.rrsets {
		rdata := make([]zonetable.RDATASnapshot, 0, len(rrset.RDATA))
		for _, d := range rrset.RDATA {
			rdata = append(rdata, zonetable.RDATASnapshot{Raw: d.Raw, Text: d.Text})
		}
		rrsets = append(rrsets, zonetable.RRsetSnapshot{
			Owner: rrset.Owner.String(),
			Class: uint16(rrset.Class),
			Type:  uint16(rrset.Type),
			TTL:   rrset.TTL,
			RDATA: rdata,
		})
	}
	return zonetable.ZoneSnapshot{
		Origin:      b.origin.String(),
		Class:       uint16(b.class),
		Signing:     string(b.signing),
		Iterations:  b.iterations,
		Salt:        b.salt,
		RRsets:      rrsets,
		SourceFiles: sourceFiles,
		CapturedAt:  capturedAt,
	}
}

func rebuildFromSnapshot(snap zonetable.ZoneSnapshot, logger log.Logger) (*dnszone.Tree, error) {
	origin, err := domain.ParseName(snap.Origin)
	if err != nil {
		return nil, err
	}
	b := &zoneBuilder{
		origin:     origin,
		class:      domain.RRClass(snap.Class),
		signing:    signingMode(snap.Signing),
		iterations: snap.Iterations,
		salt:       snap.Salt,
	}
	for _, rs := range snap.RRsets {
		owner, err := domain.ParseName(rs.Owner)
		if err != nil {
			return nil, err
		}
		rdata := make([]domain.RDATA, 0, len(rs.RDATA))
		for _, d := range rs.RDATA {
			rdata = append(rdata, domain.RDATA{Raw: d.Raw, Text: d.Text})
		}
		rrset, err := domain.NewRRset(owner, domain.RRClass(rs.Class), domain.RRType(rs.Type), rs.TTL, rdata...)
		if err != nil {
			return nil, err
		}
		b.rrsets = append(b.rrsets, rrset)
	}
	return b.build(logger)
}
