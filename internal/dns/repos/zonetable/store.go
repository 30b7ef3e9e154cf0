// Package zonetable gives the zone-file loader an optional bbolt-backed
// snapshot store. It sits entirely behind the loader: the in-memory Zone
// Table the Resolver queries (internal/dns/zonetable.Table) knows nothing
// about bbolt and is built fresh from whatever *zone.Tree values the loader
// hands it. This package only lets a reload skip re-parsing zone files that
// have not changed since the last snapshot.
package zonetable

import (
	"bytes"
	"encoding/gob"
	"os"
	"time"

	bbolt "go.etcd.io/bbolt"
)

var bucketSnapshots = []byte("zone_snapshots")

// RRsetSnapshot is the gob-serializable form of one domain.RRset, decoupled
// from the domain package so the store never imports the core.
type RRsetSnapshot struct {
	Owner string
	Class uint16
	Type  uint16
	TTL   uint32
	RDATA []RDATASnapshot
}

// RDATASnapshot mirrors domain.RDATA.
type RDATASnapshot struct {
	Raw  []byte
	Text string
}

// ZoneSnapshot is everything the loader needs to rebuild a *zone.Tree
// without re-parsing and re-encoding its source files.
type ZoneSnapshot struct {
	Origin     string
	Class      uint16
	Signing    string // "", "nsec", or "nsec3"
	Iterations uint16
	Salt       []byte
	RRsets     []RRsetSnapshot

	// SourceFiles maps each contributing file path to the ModTime+Size
	// fingerprint it had when this snapshot was built, so Fresh can tell
	// whether the on-disk files still match.
	SourceFiles map[string]FileFingerprint

	// CapturedAt is when this snapshot was written, per the clock.Clock the
	// loader was given. Rebuilding from a cached snapshot logs how old it
	// is, so an operator can tell a stale-looking answer apart from a fresh
	// one without cross-referencing file mtimes by hand.
	CapturedAt time.Time
}

// FileFingerprint is a cheap staleness check: full content hashing is
// unnecessary for zone files, which are typically small and rewritten
// wholesale by config management rather than appended to.
type FileFingerprint struct {
	ModTime time.Time
	Size    int64
}

// Fingerprint stats path and returns its current fingerprint.
func Fingerprint(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{ModTime: info.ModTime(), Size: info.Size()}, nil
}

// Fresh reports whether every file recorded in snap.SourceFiles still
// matches its stored fingerprint (and no files are missing).
func (snap ZoneSnapshot) Fresh() bool {
	for path, want := range snap.SourceFiles {
		got, err := Fingerprint(path)
		if err != nil || got != want {
			return false
		}
	}
	return true
}

// Store is a bbolt-backed cache of ZoneSnapshot values keyed by zone apex.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) a bbolt database at path and ensures the
// snapshot bucket exists.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put stores (or replaces) the snapshot for snap.Origin.
func (s *Store) Put(snap ZoneSnapshot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put([]byte(snap.Origin), buf.Bytes())
	})
}

// Get returns the stored snapshot for apex, if any.
func (s *Store) Get(apex string) (ZoneSnapshot, bool, error) {
	var snap ZoneSnapshot
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketSnapshots).Get([]byte(apex))
		if v == nil {
			return nil
		}
		found = true
		return gob.NewDecoder(bytes.NewReader(v)).Decode(&snap)
	})
	if err != nil {
		return ZoneSnapshot{}, false, err
	}
	return snap, found, nil
}

// Delete drops the snapshot for apex, if present.
func (s *Store) Delete(apex string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte(apex))
	})
}
