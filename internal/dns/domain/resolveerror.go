package domain

import "errors"

// Sentinel integrity errors (§7). These indicate the zone data or a Zone
// Finder implementation violated an invariant the resolver relies on; they
// are fatal to the single query in progress and are rendered SERVFAIL by
// the transport. They are never retried.
var (
	ErrBadNSEC        = errors.New("resolve: zone finder returned an unusable NSEC proof")
	ErrBadNSEC3       = errors.New("resolve: zone finder returned an unusable NSEC3 proof")
	ErrBadDS          = errors.New("resolve: unexpected result proving DS denial")
	ErrNoSOA          = errors.New("resolve: zone is missing its apex SOA")
	ErrNoApexNS       = errors.New("resolve: zone is missing its apex NS")
	ErrUnexpectedCode = errors.New("resolve: zone finder returned an unrecognized result code")
)

// ResolveError wraps one of the sentinel integrity errors above with the
// query context that triggered it.
type ResolveError struct {
	Err   error
	QName Name
	QType RRType
	Note  string
}

func (e *ResolveError) Error() string {
	if e.Note == "" {
		return e.Err.Error() + ": " + e.QName.String() + " " + e.QType.String()
	}
	return e.Err.Error() + ": " + e.QName.String() + " " + e.QType.String() + " (" + e.Note + ")"
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// NewResolveError constructs a ResolveError bound to one of the sentinel
// errors above.
func NewResolveError(err error, qname Name, qtype RRType, note string) *ResolveError {
	return &ResolveError{Err: err, QName: qname, QType: qtype, Note: note}
}
