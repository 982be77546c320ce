package aggregate

import (
	"slices"
	"time"
)

type FilterKeyString = string
type FilterValString = string

/***** StatePredicate *****/

// StatePredicate matches state documents whose state JSON contains the given
// key/value pair (jsonb containment in the Postgres engine).
type StatePredicate struct {
	key FilterKeyString
	val FilterValString
}

// P is a shorthand constructor for a StatePredicate.
func P(key FilterKeyString, val FilterValString) StatePredicate {
	return StatePredicate{key: key, val: val}
}

func (sp StatePredicate) Key() FilterKeyString {
	return sp.key
}

func (sp StatePredicate) Val() FilterValString {
	return sp.val
}

/***** DateRangeOverlap *****/

// DateRangeOverlap matches state documents whose [startKey, endKey] interval
// overlaps the [from, until] query range. Engines render it as the disjunction
// of three cases: the document's start falls within the query range, its end
// falls within the query range, or the document's interval fully encloses the
// query range.
type DateRangeOverlap struct {
	startKey FilterKeyString
	endKey   FilterKeyString
	from     time.Time
	until    time.Time
}

func (o DateRangeOverlap) StartKey() FilterKeyString {
	return o.startKey
}

func (o DateRangeOverlap) EndKey() FilterKeyString {
	return o.endKey
}

func (o DateRangeOverlap) From() time.Time {
	return o.from
}

func (o DateRangeOverlap) Until() time.Time {
	return o.until
}

/***** StateFilter *****/

// StateFilter defines criteria for querying materialized state documents.
// It is built with BuildStateFilter and rendered into a concrete query by the
// engine; reads through it are lock-free snapshot reads and may observe
// slightly stale data relative to in-flight transactions.
type StateFilter struct {
	predicates             []StatePredicate
	allPredicatesMustMatch bool
	overlap                *DateRangeOverlap
	limit                  uint
	offset                 uint
}

func (f StateFilter) Predicates() []StatePredicate {
	return f.predicates
}

func (f StateFilter) AllPredicatesMustMatch() bool {
	return f.allPredicatesMustMatch
}

// Overlap returns the date-range overlap clause, or ok=false if none was set.
func (f StateFilter) Overlap() (overlap DateRangeOverlap, ok bool) {
	if f.overlap == nil {
		return DateRangeOverlap{}, false
	}

	return *f.overlap, true
}

func (f StateFilter) Limit() uint {
	return f.limit
}

func (f StateFilter) Offset() uint {
	return f.offset
}

/***** StateFilterBuilder *****/

// StateFilterBuilder builds a StateFilter, only allowing "useful" combinations
// for materialized-view queries:
//
//   - empty filter (all documents, paginated)
//   - (predicate OR predicate...)
//   - (predicate AND predicate...)
//   - (predicates AND dateRangeOverlap)
//   - (dateRangeOverlap)
type StateFilterBuilder interface {
	// Matching starts the predicate section of the filter.
	Matching() EmptyStateFilterBuilder

	// MatchingAnyDocument directly creates a filter without predicates.
	MatchingAnyDocument() CompletedStateFilterBuilder
}

type EmptyStateFilterBuilder interface {
	// AnyPredicateOf adds one or multiple StatePredicate(s), expecting ANY to match.
	//
	// It sanitizes the input:
	//	- removing empty/partial StatePredicate(s) (key or val is "")
	//	- sorting the StatePredicate(s)
	//	- removing duplicate StatePredicate(s)
	AnyPredicateOf(predicate StatePredicate, predicates ...StatePredicate) CompletedStateFilterBuilder

	// AllPredicatesOf adds one or multiple StatePredicate(s), expecting ALL to match.
	//
	// It sanitizes the input the same way as AnyPredicateOf.
	AllPredicatesOf(predicate StatePredicate, predicates ...StatePredicate) CompletedStateFilterBuilder

	// OverlappingDateRange restricts to documents whose [startKey, endKey]
	// interval overlaps [from, until].
	OverlappingDateRange(startKey, endKey FilterKeyString, from, until time.Time) CompletedStateFilterBuilder
}

type CompletedStateFilterBuilder interface {
	// AndOverlappingDateRange restricts to documents whose [startKey, endKey]
	// interval overlaps [from, until].
	AndOverlappingDateRange(startKey, endKey FilterKeyString, from, until time.Time) CompletedStateFilterBuilder

	// WithLimit caps the number of returned documents (0 means no limit).
	WithLimit(limit uint) CompletedStateFilterBuilder

	// WithOffset skips the given number of documents.
	WithOffset(offset uint) CompletedStateFilterBuilder

	// Finalize returns the StateFilter.
	Finalize() StateFilter
}

// stateFilterBuilder implements all the interfaces of StateFilterBuilder.
type stateFilterBuilder struct {
	filter StateFilter
}

// BuildStateFilter creates a StateFilterBuilder which must eventually be
// finalized with Finalize().
func BuildStateFilter() StateFilterBuilder {
	return stateFilterBuilder{}
}

// Matching starts the predicate section of the filter.
func (fb stateFilterBuilder) Matching() EmptyStateFilterBuilder {
	return fb
}

// MatchingAnyDocument directly creates a filter without predicates.
func (fb stateFilterBuilder) MatchingAnyDocument() CompletedStateFilterBuilder {
	return fb
}

// AnyPredicateOf adds one or multiple StatePredicate(s), expecting ANY to match.
func (fb stateFilterBuilder) AnyPredicateOf(
	predicate StatePredicate,
	predicates ...StatePredicate,
) CompletedStateFilterBuilder {

	fb.filter.predicates = append(fb.filter.predicates, fb.sanitizePredicates(predicate, predicates...)...)

	return fb
}

// AllPredicatesOf adds one or multiple StatePredicate(s), expecting ALL to match.
func (fb stateFilterBuilder) AllPredicatesOf(
	predicate StatePredicate,
	predicates ...StatePredicate,
) CompletedStateFilterBuilder {

	fb.filter.allPredicatesMustMatch = true
	fb.filter.predicates = append(fb.filter.predicates, fb.sanitizePredicates(predicate, predicates...)...)

	return fb
}

// OverlappingDateRange restricts to documents whose interval overlaps [from, until].
func (fb stateFilterBuilder) OverlappingDateRange(
	startKey, endKey FilterKeyString,
	from, until time.Time,
) CompletedStateFilterBuilder {

	return fb.AndOverlappingDateRange(startKey, endKey, from, until)
}

// AndOverlappingDateRange restricts to documents whose interval overlaps [from, until].
func (fb stateFilterBuilder) AndOverlappingDateRange(
	startKey, endKey FilterKeyString,
	from, until time.Time,
) CompletedStateFilterBuilder {

	if startKey == "" || endKey == "" {
		return fb
	}

	fb.filter.overlap = &DateRangeOverlap{
		startKey: startKey,
		endKey:   endKey,
		from:     from,
		until:    until,
	}

	return fb
}

// WithLimit caps the number of returned documents (0 means no limit).
func (fb stateFilterBuilder) WithLimit(limit uint) CompletedStateFilterBuilder {
	fb.filter.limit = limit

	return fb
}

// WithOffset skips the given number of documents.
func (fb stateFilterBuilder) WithOffset(offset uint) CompletedStateFilterBuilder {
	fb.filter.offset = offset

	return fb
}

// Finalize returns the StateFilter.
func (fb stateFilterBuilder) Finalize() StateFilter {
	return fb.filter
}

func (fb stateFilterBuilder) sanitizePredicates(
	predicate StatePredicate,
	predicates ...StatePredicate,
) []StatePredicate {

	allPredicates := append([]StatePredicate{predicate}, predicates...)
	allPredicates = slices.DeleteFunc(allPredicates, func(e StatePredicate) bool { return len(e.key) == 0 || len(e.val) == 0 })
	slices.SortFunc(
		allPredicates,
		func(a, b StatePredicate) int {
			if a.key > b.key {
				return 1
			}

			if a.key < b.key {
				return -1
			}

			return 0
		})

	allPredicates = slices.Compact(allPredicates)
	allPredicates = slices.Clip(allPredicates)

	return allPredicates
}
