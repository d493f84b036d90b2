// Package loader loads one external script dependency into a page exactly once.
//
// The pieces compose bottom-up:
//   - Injector runs a single attempt: it appends a script element and races its
//     load and error signals against a timeout, removing the element on failure.
//   - Supervisor repeats attempts with a fixed delay until the retry budget is spent.
//   - Gate deduplicates callers onto one shared Readiness handle, skips loading when
//     the global symbol is already present, and re-checks the symbol afterwards.
//
// New wires all three onto a page.Page. Readiness handles live in a Store keyed by
// PublishedKey unless WithStore or WithKey say otherwise.
package loader
