// Package diag defines the diagnostic model shared by the declaration loader,
// the binder and the constraint engine.
//
// # Purpose
//
//   - Provide deterministic data structures for findings produced while
//     decoding declaration files, binding constraint clauses and resolving
//     type-parameter facts.
//   - Offer light-weight utilities (Reporter, Bag, Set) that let producers emit
//     diagnostics without coupling to storage or formatting.
//
// Package diag does not format or print anything. Rendering lives in
// internal/report.
//
// # Bags and sets
//
// A Bag is an ordered, capped list used for declaration-level findings. A Set
// is an order-insensitive collection used for use-site diagnostics: adding the
// same finding twice is a no-op and Sorted returns a stable view regardless of
// insertion order.
package diag
