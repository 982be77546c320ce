package aggregate

// Principal identifies the actor causing an event. An empty ID is permitted
// and denotes the "system" actor.
type Principal struct {
	ID string
}

// SystemPrincipal returns the principal used for events not caused by a user.
func SystemPrincipal() Principal {
	return Principal{}
}

// Reducer is the pure state-transition function supplied by each domain.
//
// The contract:
//   - A recognized creation event with nil state returns freshly constructed
//     state - this is how an aggregate is born.
//   - A non-creation event with nil state MUST fail with ErrNotInitialised;
//     this rejects events against aggregates that were never created or have
//     already been deleted.
//   - A recognized deletion event returns nil state - the engine removes the
//     materialized projection while the event log is retained.
//   - An event type the reducer does not branch on passes state through
//     unchanged; the payload schema is the gate for genuinely unknown types.
//   - No I/O and no non-deterministic inputs besides what is embedded in the
//     event itself; replaying the same log always yields the same state.
type Reducer[S any] func(state *S, event EventDocument) (*S, error)

// Coalesce implements the "new ?? existing" merge semantics used by reducers
// for partial-update events: a nil next keeps the existing value, a non-nil
// next replaces it. Unspecified optional fields are never silently blanked.
func Coalesce[T any](next *T, existing T) T {
	if next != nil {
		return *next
	}

	return existing
}

// CombineReducers folds multiple reducers left-to-right over the same event,
// feeding each reducer the state produced by the previous one. It is used when
// an aggregate's update logic is factored into smaller composable pieces.
//
// The first reducer in the chain is responsible for the creation and
// not-initialised handling; later reducers see the state it produced.
func CombineReducers[S any](reducers ...Reducer[S]) Reducer[S] {
	return func(state *S, event EventDocument) (*S, error) {
		current := state

		for _, reduce := range reducers {
			next, err := reduce(current, event)
			if err != nil {
				return nil, err
			}

			current = next
		}

		return current, nil
	}
}
