// Package ids mints domain-scoped identifiers of the form "<domain>:<seq>".
//
// Every entity and relationship in Hyperstore carries an id of this
// shape (property nodes are keyed by their owner's id plus the property
// name instead). The Service recovers a monotonic sequence
// counter from any externally supplied numeric id (for example after
// loading a JSON export), so that newly minted ids never collide with
// ones that were loaded from outside.
//
// Example:
//
//	svc := ids.NewService("library")
//	svc.CreateID("")      // "library:1"
//	svc.CreateID("42")    // "library:42", and raises the internal counter to 42
//	svc.CreateID("")      // "library:43"
package ids

import (
	"fmt"
	"strconv"
	"sync"
)

// Service mints ids scoped to a single domain name. It is safe for
// concurrent use: Hyperstore itself is single-threaded per spec, but a
// Service is cheap to guard so callers embedding it elsewhere don't have
// to re-derive that guarantee.
type Service struct {
	mu     sync.Mutex
	domain string
	seq    int64
}

// NewService creates an id minting service for the given domain name.
// The domain name is stored as-is; Store/Domain normalize it to
// lowercase before construction (spec §3, Domain.name).
func NewService(domain string) *Service {
	return &Service{domain: domain}
}

// Domain returns the domain name this service mints ids for.
func (s *Service) Domain() string {
	return s.domain
}

// Sequence returns the current monotonic counter value.
func (s *Service) Sequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// CreateID mints a new id. If local is empty, the next sequence number is
// used and the counter advances. If local is supplied and parses as a
// non-negative integer greater than the current counter, the counter is
// raised to match it — this is what lets a loaded dataset's ids coexist
// with ids minted afterwards. If local is supplied but is not numeric
// (a caller-chosen token), it is used verbatim and the counter is left
// untouched.
func (s *Service) CreateID(local string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if local == "" {
		s.seq++
		return fmt.Sprintf("%s:%d", s.domain, s.seq)
	}

	if n, ok := ParseLocalSequence(local); ok && n > s.seq {
		s.seq = n
	}
	return fmt.Sprintf("%s:%s", s.domain, local)
}

// Observe raises the internal counter to account for an id that was
// assigned out of band (for example a bulk loader that pre-allocates ids
// without going through CreateID). It is a no-op for non-numeric or
// smaller local parts.
func (s *Service) Observe(local string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := ParseLocalSequence(local); ok && n > s.seq {
		s.seq = n
	}
}

// ParseLocalSequence parses the local part of an id as a non-negative
// integer sequence number. It returns false for tokens that are not a
// plain decimal integer (e.g. caller-chosen names), matching the spec's
// "localPart may be a minted sequence number or a caller-supplied token"
// rule (spec §3 global invariants, §4.1).
func ParseLocalSequence(local string) (int64, bool) {
	n, err := strconv.ParseInt(local, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Split separates a full id "<domain>:<local>" into its two parts. It
// returns ok=false if id does not contain the separator.
func Split(id string) (domain, local string, ok bool) {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[:i], id[i+1:], true
		}
	}
	return "", "", false
}

// Join builds a full id from a domain and local part.
func Join(domain, local string) string {
	return domain + ":" + local
}
