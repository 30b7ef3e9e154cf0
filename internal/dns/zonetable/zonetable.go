// Package zonetable implements the §4.3 Zone Table: a set of authoritative
// zones keyed by apex name, supporting insert, remove, and longest-suffix
// lookup for an arbitrary query name.
package zonetable

import (
	"sync"

	"github.com/haukened/authdns/internal/dns/common/log"
	"github.com/haukened/authdns/internal/dns/domain"
	"github.com/haukened/authdns/internal/dns/zonefinder"
)

// MatchCode classifies a FindLongestSuffix result (§3's Zone Table contract).
type MatchCode int

const (
	NotFound MatchCode = iota
	Success
	PartialMatch
)

func (c MatchCode) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case PartialMatch:
		return "PARTIALMATCH"
	default:
		return "NOTFOUND"
	}
}

// Table is the in-memory Zone Table. Zones are swapped in and out whole: a
// loader builds a complete zonefinder.ZoneFinder (normally a *zone.Tree,
// fully Insert-ed and Sign-ed) and calls Insert once it is ready to be
// queried; FindLongestSuffix never observes a partially built zone.
type Table struct {
	mu    sync.RWMutex
	zones map[string]zonefinder.ZoneFinder // canonical apex name -> zone

	logger log.Logger
}

// Options configures a new Table.
type Options struct {
	Logger log.Logger
}

// New returns an empty Table.
func New(opts Options) *Table {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Table{
		zones:  make(map[string]zonefinder.ZoneFinder),
		logger: logger,
	}
}

// Insert adds or replaces the zone under its own apex (ZoneFinder.Origin()).
func (t *Table) Insert(zf zonefinder.ZoneFinder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.zones[zf.Origin().String()] = zf
	t.logger.Info(map[string]any{"origin": zf.Origin().String()}, "zone table: inserted zone")
}

// Remove drops the zone at apex, if present.
func (t *Table) Remove(apex domain.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.zones, apex.String())
	t.logger.Info(map[string]any{"origin": apex.String()}, "zone table: removed zone")
}

// Zones returns the apex names of every zone currently held.
func (t *Table) Zones() []domain.Name {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Name, 0, len(t.zones))
	for _, zf := range t.zones {
		out = append(out, zf.Origin())
	}
	return out
}

// FindLongestSuffix implements §4.3's longest-suffix lookup: for i = 0 ..
// label_count(name) - 1, probe the table with the suffix of name obtained by
// dropping i leftmost labels. The first hit is the apex (i == 0: Success) or
// a proper suffix (PartialMatch); if no probe hits, NotFound.
func (t *Table) FindLongestSuffix(name domain.Name) (MatchCode, zonefinder.ZoneFinder) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	labels := name.LabelCount()
	for i := 0; i < labels; i++ {
		candidate, err := name.Suffix(labels - i)
		if err != nil {
			break
		}
		if zf, ok := t.zones[candidate.String()]; ok {
			if i == 0 {
				return Success, zf
			}
			return PartialMatch, zf
		}
	}
	return NotFound, nil
}
