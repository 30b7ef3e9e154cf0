// Package resolver implements the §4.4 Resolver state machine: the core
// that turns a Zone Table lookup and a Zone Finder result into mutations on
// a Response Builder.
package resolver

import (
	"errors"

	"github.com/haukened/authdns/internal/dns/common/log"
	"github.com/haukened/authdns/internal/dns/domain"
	"github.com/haukened/authdns/internal/dns/zonefinder"
	"github.com/haukened/authdns/internal/dns/zonetable"
)

// errNoZone is an internal sentinel meaning zone selection found nothing;
// Process turns it into a REFUSED response rather than propagating it.
var errNoZone = errors.New("resolver: no zone matches")

// Resolver is the §4.4 state machine over Zone Finder results.
type Resolver struct {
	table  ZoneTable
	logger log.Logger
}

// Options configures a new Resolver.
type Options struct {
	Table  ZoneTable
	Logger log.Logger
}

// New returns a Resolver backed by table.
func New(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Resolver{table: opts.Table, logger: logger}
}

// Process is the §6 entry point: process(builder, qname, qtype, qclass,
// dnssec_ok). Postconditions: builder has an rcode set; AA is set iff the
// server was authoritative for the chosen zone.
func (r *Resolver) Process(builder ResponseBuilder, qname domain.Name, qtype domain.RRType, qclass domain.RRClass, dnssecOK bool) error {
	if qclass != domain.RRClassIN {
		builder.SetRcode(domain.RCodeREFUSED)
		builder.SetAA(false)
		return nil
	}

	zf, err := r.selectZone(qname, qtype)
	if err != nil {
		builder.SetRcode(domain.RCodeREFUSED)
		builder.SetAA(false)
		return nil
	}
	return r.answerInZone(builder, zf, qname, qtype, qclass, dnssecOK)
}

// selectZone implements §4.4.1, including the DS parent-first probe.
func (r *Resolver) selectZone(qname domain.Name, qtype domain.RRType) (zonefinder.ZoneFinder, error) {
	if qtype == domain.RRTypeDS && qname.LabelCount() > 1 {
		if parent, err := qname.Suffix(qname.LabelCount() - 1); err == nil {
			if code, zf := r.table.FindLongestSuffix(parent); code != zonetable.NotFound {
				return zf, nil
			}
		}
		if code, zf := r.table.FindLongestSuffix(qname); code == zonetable.Success {
			return zf, nil
		}
		return nil, errNoZone
	}
	if code, zf := r.table.FindLongestSuffix(qname); code != zonetable.NotFound {
		return zf, nil
	}
	return nil, errNoZone
}

// answerInZone runs §4.4.2's dispatch once a zone has been chosen.
func (r *Resolver) answerInZone(builder ResponseBuilder, zf zonefinder.ZoneFinder, qname domain.Name, qtype domain.RRType, qclass domain.RRClass, dnssecOK bool) error {
	builder.SetAA(true)
	builder.SetRcode(domain.RCodeNOERROR)

	options := domain.FindDefault
	if dnssecOK {
		options |= domain.FindDNSSEC
	}

	if qtype == domain.RRTypeANY {
		res, err := zf.FindAll(qname, options)
		if err != nil {
			return err
		}
		return r.dispatchAll(builder, zf, qname, dnssecOK, options, res)
	}

	res, err := zf.Find(qname, qtype, options)
	if err != nil {
		return err
	}
	return r.dispatch(builder, zf, qname, qtype, qclass, dnssecOK, options, res)
}

func (r *Resolver) dispatch(builder ResponseBuilder, zf zonefinder.ZoneFinder, qname domain.Name, qtype domain.RRType, qclass domain.RRClass, dnssecOK bool, options domain.FindOptions, res domain.FindResult) error {
	switch res.Code {
	case domain.Success:
		builder.AddRRset(Answer, *res.RRset, dnssecOK)
		if err := r.addAdditionals(builder, zf, qname, qtype, options, []domain.RRset{*res.RRset}, dnssecOK); err != nil {
			return err
		}
		if !isApexNS(*res.RRset, zf) {
			apexNS, err := r.apexNS(zf)
			if err != nil {
				return err
			}
			builder.AddRRset(Authority, apexNS, dnssecOK)
			if err := r.addAdditionals(builder, zf, qname, qtype, options, []domain.RRset{apexNS}, dnssecOK); err != nil {
				return err
			}
		}
		if res.Wildcard && dnssecOK {
			return r.wildcardProof(builder, zf, qname, res, dnssecOK)
		}
		return nil

	case domain.CNAMEResult:
		builder.AddRRset(Answer, *res.RRset, dnssecOK)
		if res.Wildcard && dnssecOK {
			return r.wildcardProof(builder, zf, qname, res, dnssecOK)
		}
		return nil

	case domain.DNAMEResult:
		return r.dnameSynthesis(builder, qname, res, dnssecOK)

	case domain.Delegation:
		if qtype == domain.RRTypeDS {
			if code, zf2 := r.table.FindLongestSuffix(qname); code == zonetable.Success {
				return r.answerInZone(builder, zf2, qname, qtype, qclass, dnssecOK)
			}
		}
		builder.SetAA(false)
		builder.AddRRset(Authority, *res.RRset, dnssecOK)
		if err := r.addAdditionals(builder, zf, qname, qtype, options, []domain.RRset{*res.RRset}, dnssecOK); err != nil {
			return err
		}
		if dnssecOK {
			return r.delegationProof(builder, zf, res.RRset.Owner, dnssecOK)
		}
		return nil

	case domain.NXDomain:
		builder.SetRcode(domain.RCodeNXDOMAIN)
		apexSOA, err := r.apexSOA(zf)
		if err != nil {
			return err
		}
		builder.AddRRset(Authority, apexSOA, dnssecOK)
		if dnssecOK {
			return r.nxdomainProof(builder, zf, qname, res)
		}
		return nil

	case domain.NXRRset:
		apexSOA, err := r.apexSOA(zf)
		if err != nil {
			return err
		}
		builder.AddRRset(Authority, apexSOA, dnssecOK)
		if dnssecOK {
			return r.nxrrsetProof(builder, zf, qname, qtype, res)
		}
		return nil

	default:
		return domain.NewResolveError(domain.ErrUnexpectedCode, qname, qtype, res.Code.String())
	}
}

func (r *Resolver) dispatchAll(builder ResponseBuilder, zf zonefinder.ZoneFinder, qname domain.Name, dnssecOK bool, options domain.FindOptions, res domain.FindAllResult) error {
	switch res.Code {
	case domain.Success:
		for _, rrset := range res.RRsets {
			builder.AddRRset(Answer, rrset, dnssecOK)
		}
		seen := map[string]bool{dupKey(qname, domain.RRTypeANY): true}
		for _, rrset := range res.RRsets {
			seen[dupKey(qname, rrset.Type)] = true
		}
		if err := r.addAdditionalsFiltered(builder, zf, options, res.RRsets, dnssecOK, seen); err != nil {
			return err
		}
		hasApexNS := false
		for _, rrset := range res.RRsets {
			if isApexNS(rrset, zf) {
				hasApexNS = true
			}
		}
		if !hasApexNS {
			apexNS, err := r.apexNS(zf)
			if err != nil {
				return err
			}
			builder.AddRRset(Authority, apexNS, dnssecOK)
			return r.addAdditionalsFiltered(builder, zf, options, []domain.RRset{apexNS}, dnssecOK, seen)
		}
		return nil

	case domain.Delegation:
		builder.SetAA(false)
		if len(res.RRsets) > 0 {
			builder.AddRRset(Authority, res.RRsets[0], dnssecOK)
		}
		return nil

	case domain.NXDomain:
		builder.SetRcode(domain.RCodeNXDOMAIN)
		apexSOA, err := r.apexSOA(zf)
		if err != nil {
			return err
		}
		builder.AddRRset(Authority, apexSOA, dnssecOK)
		return nil

	case domain.NXRRset:
		apexSOA, err := r.apexSOA(zf)
		if err != nil {
			return err
		}
		builder.AddRRset(Authority, apexSOA, dnssecOK)
		return nil

	default:
		return domain.NewResolveError(domain.ErrUnexpectedCode, qname, domain.RRTypeANY, res.Code.String())
	}
}

// apexNS fetches the zone's apex NS RRset (§4.4.3).
func (r *Resolver) apexNS(zf zonefinder.ZoneFinder) (domain.RRset, error) {
	res, err := zf.Find(zf.Origin(), domain.RRTypeNS, domain.FindDefault)
	if err != nil {
		return domain.RRset{}, err
	}
	if res.Code != domain.Success || res.RRset == nil {
		return domain.RRset{}, domain.NewResolveError(domain.ErrNoApexNS, zf.Origin(), domain.RRTypeNS, "")
	}
	return *res.RRset, nil
}

// apexSOA fetches the zone's apex SOA RRset (§4.4.3).
func (r *Resolver) apexSOA(zf zonefinder.ZoneFinder) (domain.RRset, error) {
	res, err := zf.Find(zf.Origin(), domain.RRTypeSOA, domain.FindDefault)
	if err != nil {
		return domain.RRset{}, err
	}
	if res.Code != domain.Success || res.RRset == nil {
		return domain.RRset{}, domain.NewResolveError(domain.ErrNoSOA, zf.Origin(), domain.RRTypeSOA, "")
	}
	return *res.RRset, nil
}

func isApexNS(rrset domain.RRset, zf zonefinder.ZoneFinder) bool {
	return rrset.Type == domain.RRTypeNS && rrset.Owner.Equal(zf.Origin())
}

func dupKey(name domain.Name, t domain.RRType) string {
	return name.String() + "/" + t.String()
}

// addAdditionals implements §4.4.4 for a single triggering RRset (or a
// small fixed list, e.g. the apex NS), suppressing only the exact question.
func (r *Resolver) addAdditionals(builder ResponseBuilder, zf zonefinder.ZoneFinder, qname domain.Name, qtype domain.RRType, options domain.FindOptions, rrsets []domain.RRset, dnssecOK bool) error {
	seen := map[string]bool{dupKey(qname, qtype): true}
	return r.addAdditionalsFiltered(builder, zf, options, rrsets, dnssecOK, seen)
}

// addAdditionalsFiltered is §4.4.4's core: for NS/MX RRsets, resolve
// in-bailiwick A/AAAA glue for each target, skipping anything already in
// seen.
func (r *Resolver) addAdditionalsFiltered(builder ResponseBuilder, zf zonefinder.ZoneFinder, options domain.FindOptions, rrsets []domain.RRset, dnssecOK bool, seen map[string]bool) error {
	for _, rrset := range rrsets {
		if rrset.Type != domain.RRTypeNS && rrset.Type != domain.RRTypeMX {
			continue
		}
		glueOK := rrset.Type == domain.RRTypeNS
		for _, rd := range rrset.RDATA {
			var target domain.Name
			var err error
			if rrset.Type == domain.RRTypeNS {
				target, err = domain.NSTarget(rd)
			} else {
				var mx domain.MXRecord
				mx, err = domain.MXExchange(rd)
				target = mx.Exchange
			}
			if err != nil {
				r.logger.Warn(map[string]any{"error": err.Error()}, "resolver: malformed additional-section target, skipping")
				continue
			}

			rel, _, _ := domain.Compare(target, zf.Origin())
			if rel != domain.Equal && rel != domain.Subdomain {
				continue // out of bailiwick
			}

			for _, t := range [...]domain.RRType{domain.RRTypeA, domain.RRTypeAAAA} {
				key := dupKey(target, t)
				if seen[key] {
					continue
				}
				findOptions := options
				if glueOK {
					findOptions |= domain.FindGlueOK
				}
				ares, err := zf.Find(target, t, findOptions)
				if err != nil {
					return err
				}
				if ares.Code == domain.Success {
					builder.AddRRset(Additional, *ares.RRset, dnssecOK)
					seen[key] = true
				}
			}
		}
	}
	return nil
}

// dnameSynthesis implements the §4.4.2 DNAME branch: it appends the DNAME
// itself, then synthesizes and appends the resulting CNAME, or fails the
// query with YXDOMAIN if the synthesized name would exceed the wire limit.
func (r *Resolver) dnameSynthesis(builder ResponseBuilder, qname domain.Name, res domain.FindResult, dnssecOK bool) error {
	builder.AddRRset(Answer, *res.RRset, dnssecOK)

	dnameOwner := res.RRset.Owner
	prefix, err := qname.Split(0, qname.LabelCount()-dnameOwner.LabelCount())
	if err != nil {
		return err
	}
	targetSuffix, err := domain.DNAMETarget(res.RRset.RDATA[0])
	if err != nil {
		return err
	}
	target, err := prefix.Concatenate(targetSuffix)
	if err != nil {
		if errors.Is(err, domain.ErrNameTooLong) {
			builder.SetRcode(domain.RCodeYXDOMAIN)
			return nil
		}
		return err
	}

	cname, err := domain.NewRRset(qname, res.RRset.Class, domain.RRTypeCNAME, res.RRset.TTL, domain.RDATA{Text: target.String()})
	if err != nil {
		return err
	}
	builder.AddRRset(Answer, cname, dnssecOK)
	return nil
}

// bestWildcardName derives the "best possible wildcard name" used by both
// the NXDOMAIN and NXRRSET-from-wildcard NSEC proofs (§4.4.5): the wildcard
// synthesized at whichever of rrsetOwner or nsecNext shares more trailing
// labels with qname.
func bestWildcardName(qname domain.Name, rrsetOwner, nsecNext domain.Name) (domain.Name, error) {
	_, _, commonOwner := domain.Compare(qname, rrsetOwner)
	_, _, commonNext := domain.Compare(qname, nsecNext)
	common := commonOwner
	if commonNext > common {
		common = commonNext
	}
	return domain.SynthesizeWildcard(qname, common)
}

// wildcardProof implements §4.4.5's wildcard proof for a wildcard-derived
// positive or CNAME answer.
func (r *Resolver) wildcardProof(builder ResponseBuilder, zf zonefinder.ZoneFinder, qname domain.Name, res domain.FindResult, dnssecOK bool) error {
	if res.NSECSigned {
		proof, err := zf.Find(qname, domain.RRTypeNSEC, domain.FindDNSSEC|domain.NoWildcard)
		if err != nil {
			return err
		}
		if proof.Code != domain.NXDomain || proof.RRset == nil {
			return domain.NewResolveError(domain.ErrBadNSEC, qname, domain.RRTypeNSEC, "wildcard proof")
		}
		builder.AddRRset(Authority, *proof.RRset, dnssecOK)
		return nil
	}
	if res.NSEC3Signed {
		n3, err := zf.FindNSEC3(qname, true)
		if err != nil {
			return err
		}
		builder.AddRRset(Authority, n3.ClosestProof.RRset, dnssecOK)
		if n3.NextProof != nil {
			builder.AddRRset(Authority, n3.NextProof.RRset, dnssecOK)
		}
		return nil
	}
	return nil
}

// nxdomainProof implements §4.4.5's NXDOMAIN proof.
func (r *Resolver) nxdomainProof(builder ResponseBuilder, zf zonefinder.ZoneFinder, qname domain.Name, res domain.FindResult) error {
	if res.NSECSigned {
		if res.RRset == nil {
			return domain.NewResolveError(domain.ErrBadNSEC, qname, domain.RRTypeNSEC, "missing covering NSEC")
		}
		builder.AddRRset(Authority, *res.RRset, true)

		nsecFields, err := domain.NSECNext(res.RRset.RDATA[0])
		if err != nil {
			return domain.NewResolveError(domain.ErrBadNSEC, qname, domain.RRTypeNSEC, err.Error())
		}
		wildname, err := bestWildcardName(qname, res.RRset.Owner, nsecFields.Next)
		if err != nil {
			return err
		}
		proof2, err := zf.Find(wildname, domain.RRTypeNSEC, domain.FindDNSSEC)
		if err != nil {
			return err
		}
		if proof2.Code != domain.NXDomain || proof2.RRset == nil {
			return domain.NewResolveError(domain.ErrBadNSEC, qname, domain.RRTypeNSEC, "no-wildcard proof")
		}
		if !proof2.RRset.Owner.Equal(res.RRset.Owner) {
			builder.AddRRset(Authority, *proof2.RRset, true)
		}
		return nil
	}

	if res.NSEC3Signed {
		n3, err := zf.FindNSEC3(qname, true)
		if err != nil {
			return err
		}
		builder.AddRRset(Authority, n3.ClosestProof.RRset, true)
		if n3.NextProof != nil {
			builder.AddRRset(Authority, n3.NextProof.RRset, true)
		}
		wildname, err := domain.SynthesizeWildcard(qname, n3.ClosestLabels)
		if err != nil {
			return err
		}
		wproof, err := zf.FindNSEC3(wildname, false)
		if err != nil {
			return err
		}
		if wproof.ClosestProof.Matched {
			return domain.NewResolveError(domain.ErrBadNSEC3, qname, domain.RRTypeNSEC3, "expected covering NSEC3 for synthesized wildcard")
		}
		builder.AddRRset(Authority, wproof.ClosestProof.RRset, true)
		return nil
	}
	return nil
}

// nxrrsetProof implements §4.4.5's NXRRSET proofs, both non-wildcard and
// wildcard-derived, and the NSEC3 DS opt-out variant.
func (r *Resolver) nxrrsetProof(builder ResponseBuilder, zf zonefinder.ZoneFinder, qname domain.Name, qtype domain.RRType, res domain.FindResult) error {
	if res.NSECSigned {
		if res.RRset == nil {
			return domain.NewResolveError(domain.ErrBadNSEC, qname, qtype, "missing NSEC")
		}
		builder.AddRRset(Authority, *res.RRset, true)
		if !res.Wildcard {
			return nil
		}
		nsecFields, err := domain.NSECNext(res.RRset.RDATA[0])
		if err != nil {
			return domain.NewResolveError(domain.ErrBadNSEC, qname, qtype, err.Error())
		}
		wildname, err := bestWildcardName(qname, res.RRset.Owner, nsecFields.Next)
		if err != nil {
			return err
		}
		proof2, err := zf.Find(wildname, domain.RRTypeNSEC, domain.FindDNSSEC)
		if err != nil {
			return err
		}
		if proof2.Code == domain.NXDomain && proof2.RRset != nil && !proof2.RRset.Owner.Equal(res.RRset.Owner) {
			builder.AddRRset(Authority, *proof2.RRset, true)
		}
		return nil
	}

	if res.NSEC3Signed {
		if res.Wildcard {
			n3, err := zf.FindNSEC3(qname, true)
			if err != nil {
				return err
			}
			builder.AddRRset(Authority, n3.ClosestProof.RRset, true)
			if n3.NextProof != nil {
				builder.AddRRset(Authority, n3.NextProof.RRset, true)
			}
			wildname, err := domain.SynthesizeWildcard(qname, n3.ClosestLabels)
			if err != nil {
				return err
			}
			wproof, err := zf.FindNSEC3(wildname, false)
			if err != nil {
				return err
			}
			if !wproof.ClosestProof.Matched {
				return domain.NewResolveError(domain.ErrBadNSEC3, qname, qtype, "expected matching NSEC3 for synthesized wildcard")
			}
			builder.AddRRset(Authority, wproof.ClosestProof.RRset, true)
			return nil
		}

		if qtype == domain.RRTypeDS {
			n3, err := zf.FindNSEC3(qname, true)
			if err != nil {
				return err
			}
			builder.AddRRset(Authority, n3.ClosestProof.RRset, true)
			if n3.NextProof != nil {
				builder.AddRRset(Authority, n3.NextProof.RRset, true)
			}
			return nil
		}

		n3, err := zf.FindNSEC3(qname, false)
		if err != nil {
			return err
		}
		if !n3.ClosestProof.Matched {
			return domain.NewResolveError(domain.ErrBadNSEC3, qname, qtype, "expected matching NSEC3")
		}
		builder.AddRRset(Authority, n3.ClosestProof.RRset, true)
		return nil
	}
	return nil
}

// delegationProof implements §4.4.5's delegation (DS) proof.
func (r *Resolver) delegationProof(builder ResponseBuilder, zf zonefinder.ZoneFinder, delegationName domain.Name, dnssecOK bool) error {
	res, err := zf.Find(delegationName, domain.RRTypeDS, domain.FindDNSSEC)
	if err != nil {
		return err
	}
	switch res.Code {
	case domain.Success:
		builder.AddRRset(Authority, *res.RRset, dnssecOK)
		return nil
	case domain.NXRRset:
		if res.NSECSigned {
			if res.RRset == nil {
				return domain.NewResolveError(domain.ErrBadDS, delegationName, domain.RRTypeDS, "missing NSEC")
			}
			builder.AddRRset(Authority, *res.RRset, dnssecOK)
			return nil
		}
		if res.NSEC3Signed {
			n3, err := zf.FindNSEC3(delegationName, true)
			if err != nil {
				return err
			}
			builder.AddRRset(Authority, n3.ClosestProof.RRset, dnssecOK)
			if n3.NextProof != nil {
				builder.AddRRset(Authority, n3.NextProof.RRset, dnssecOK)
			}
			return nil
		}
		return domain.NewResolveError(domain.ErrBadDS, delegationName, domain.RRTypeDS, "unsigned zone")
	default:
		return domain.NewResolveError(domain.ErrBadDS, delegationName, domain.RRTypeDS, res.Code.String())
	}
}
