package cursor

import (
	"regexp"
	"sort"
)

// Element is the minimal surface a Query needs from a materialized
// element — domain.ModelElement satisfies it without pkg/cursor
// importing pkg/domain, avoiding an import cycle (Domain.Find*
// methods return cursors over ModelElement).
type Element interface {
	ID() string
	SchemaID() string
	PropertyValue(name string) (any, bool)
}

// FilterPredicate is the user-supplied `$filter` predicate (spec.md
// §4.8).
type FilterPredicate func(Element) bool

// ReferenceResolver returns the elements reachable from el via the
// schema reference named name (spec.md §4.8: "a list of sub-queries
// derived from configuration keys that correspond to references in
// the target schema"). ok is false when name does not name a
// reference on el's schema, telling Query to treat the key as an
// ordinary property match instead of a sub-query.
type ReferenceResolver func(el Element, name string) (related []Element, ok bool)

// Config is the Query filter configuration object (spec.md §4.8).
// Recognized keys:
//   - a property name: exact equality, a *regexp.Regexp tested against
//     a string value, or a nested Config. A nested Config is a
//     sub-query when the key also names a schema reference on the
//     root's schema (resolved via ReferenceResolver); otherwise it is
//     an equality match against a property whose own value is itself
//     an Element.
//   - "_id": element id match.
//   - "$schema": exact schema-id match.
//   - "$filter": a FilterPredicate.
//   - "$or": a nested Config whose result is OR-combined with the rest.
//   - "$skip", "$take": linear paging, applied over accepted roots.
//   - "$select": forces emission of the matched root element alongside
//     any sub-query elements.
type Config map[string]any

const (
	keyID     = "_id"
	keySchema = "$schema"
	keyFilter = "$filter"
	keyOr     = "$or"
	keySkip   = "$skip"
	keyTake   = "$take"
	keySelect = "$select"
)

// queryState is one of the four states spec.md §4.8 names: for each
// matched root, first (conditionally) yield the root, then flatten
// every sub-query's own stream before moving to the next root.
type queryState int

const (
	stateSeekRoot queryState = iota
	stateIterateSubqueries
	statePumpSubquery
	stateDone
)

// QueryCursor is the spec.md §4.8 Query cursor: a source cursor of
// root elements, a filter Config, and a ReferenceResolver that turns
// configuration keys naming schema references into sub-queries whose
// flattened output is interleaved with the matched roots. It is lazy
// in evaluation, matching the rest of the Cursor Engine.
type QueryCursor struct {
	source  *Cursor[Element]
	config  Config
	resolve ReferenceResolver

	hasSkip bool
	skip    int
	hasTake bool
	take    int

	state        queryState
	matchedCount int
	root         Element
	subKeys      []string
	subIdx       int
	sub          *QueryCursor

	pending    Element
	hasPending bool
}

// NewQueryCursor builds a lazy Query cursor over source. resolve may
// be nil, in which case no configuration key is ever treated as a
// reference sub-query — every nested-Config key falls back to an
// ordinary element-valued property match.
func NewQueryCursor(source *Cursor[Element], config Config, resolve ReferenceResolver) *QueryCursor {
	q := &QueryCursor{source: source, config: config, resolve: resolve, state: stateSeekRoot}
	q.skip, q.hasSkip = intKey(config, keySkip)
	q.take, q.hasTake = intKey(config, keyTake)
	return q
}

// Query eagerly filters items against config, applying any sub-query
// flattening resolve provides, and returns the result as a plain
// slice (spec.md §4.8). Pass a nil resolve for flat property/id/schema
// filtering with no reference traversal.
func Query(items []Element, config Config, resolve ReferenceResolver) []Element {
	return NewQueryCursor(From(items), config, resolve).ToArray()
}

// HasNext reports whether another element is available.
func (q *QueryCursor) HasNext() bool {
	if !q.hasPending {
		q.advance()
	}
	return q.hasPending
}

// Next returns the current element and advances the cursor.
func (q *QueryCursor) Next() (Element, bool) {
	if !q.HasNext() {
		return nil, false
	}
	v := q.pending
	q.pending = nil
	q.hasPending = false
	return v, true
}

// Reset rewinds the cursor, including its source, back to the start.
func (q *QueryCursor) Reset() {
	q.source.Reset()
	q.state = stateSeekRoot
	q.matchedCount = 0
	q.subIdx = 0
	q.sub = nil
	q.pending = nil
	q.hasPending = false
}

// ToArray drains the remainder of the cursor into a slice.
func (q *QueryCursor) ToArray() []Element {
	var out []Element
	for q.HasNext() {
		v, _ := q.Next()
		out = append(out, v)
	}
	return out
}

// ForEach invokes fn for each remaining element in order.
func (q *QueryCursor) ForEach(fn func(Element)) {
	for q.HasNext() {
		v, _ := q.Next()
		fn(v)
	}
}

// advance runs the state machine until it produces a pending element
// or the source is exhausted (spec.md §4.8: seek-next-root,
// iterate-subqueries, pump-subquery, done).
func (q *QueryCursor) advance() {
	for !q.hasPending {
		switch q.state {
		case stateSeekRoot:
			if !q.seekNextRoot() {
				q.state = stateDone
			}
		case stateIterateSubqueries:
			if q.subIdx >= len(q.subKeys) {
				q.state = stateSeekRoot
				continue
			}
			key := q.subKeys[q.subIdx]
			nested, _ := q.config[key].(Config)
			related, _ := q.resolve(q.root, key)
			q.sub = NewQueryCursor(From(related), nested, q.resolve)
			q.state = statePumpSubquery
		case statePumpSubquery:
			if v, ok := q.sub.Next(); ok {
				q.pending = v
				q.hasPending = true
				return
			}
			q.subIdx++
			q.sub = nil
			q.state = stateIterateSubqueries
		case stateDone:
			return
		}
	}
}

// seekNextRoot advances the source cursor to the next element
// matching config's non-reference conditions, honoring $skip/$take
// over accepted roots. On a match it stages either the root itself
// (no sub-queries, or $select present) for emission, sub-query
// iteration, or both, and returns true. Returns false once the source
// is exhausted or $take's window has closed.
func (q *QueryCursor) seekNextRoot() bool {
	for q.source.HasNext() {
		el, _ := q.source.Next()
		if !q.matchesRoot(el) {
			continue
		}

		idx := q.matchedCount
		q.matchedCount++
		if q.hasSkip && idx < q.skip {
			continue
		}
		if q.hasTake {
			skip := 0
			if q.hasSkip {
				skip = q.skip
			}
			if idx-skip >= q.take {
				return false
			}
		}

		q.root = el
		q.subKeys = q.subQueryKeys(el)
		_, hasSelect := q.config[keySelect]

		if len(q.subKeys) == 0 {
			q.pending = el
			q.hasPending = true
			q.state = stateSeekRoot
			return true
		}

		q.subIdx = 0
		q.state = stateIterateSubqueries
		if hasSelect {
			q.pending = el
			q.hasPending = true
		}
		return true
	}
	return false
}

// subQueryKeys returns config's reference-sub-query keys for el, in a
// deterministic order (config is a map, so iteration order is not
// stable on its own).
func (q *QueryCursor) subQueryKeys(el Element) []string {
	if q.resolve == nil {
		return nil
	}
	var keys []string
	for key, want := range q.config {
		if isReservedKey(key) {
			continue
		}
		if _, ok := want.(Config); !ok {
			continue
		}
		if _, ok := q.resolve(el, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func isReservedKey(key string) bool {
	switch key {
	case keyID, keySchema, keyFilter, keyOr, keySkip, keyTake, keySelect:
		return true
	default:
		return false
	}
}

func intKey(config Config, key string) (int, bool) {
	v, ok := config[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

func (q *QueryCursor) matchesRoot(el Element) bool {
	result := q.matchesAnd(el, q.config)

	if orRaw, ok := q.config[keyOr]; ok {
		if orConfig, ok := orRaw.(Config); ok {
			result = result || q.matchesAnd(el, orConfig)
		}
	}

	return result
}

func (q *QueryCursor) matchesAnd(el Element, config Config) bool {
	for key, want := range config {
		switch key {
		case keyOr, keySkip, keyTake, keySelect:
			continue
		case keyID:
			if el.ID() != want {
				return false
			}
		case keySchema:
			if el.SchemaID() != want {
				return false
			}
		case keyFilter:
			pred, ok := want.(FilterPredicate)
			if ok && !pred(el) {
				return false
			}
		default:
			if _, ok := want.(Config); ok && q.resolve != nil {
				if _, ok := q.resolve(el, key); ok {
					continue // sub-query key: a traversal, not a filter
				}
			}
			if !matchesProperty(el, key, want) {
				return false
			}
		}
	}
	return true
}

func matchesProperty(el Element, name string, want any) bool {
	value, ok := el.PropertyValue(name)
	if !ok {
		return false
	}

	switch w := want.(type) {
	case *regexp.Regexp:
		s, ok := value.(string)
		return ok && w.MatchString(s)
	case Config:
		nested, ok := value.(Element)
		return ok && (&QueryCursor{config: w}).matchesAnd(nested, w)
	default:
		return value == want
	}
}
