// Package tparams computes the effective facts of generic type parameters.
//
// A binder registers declarations and their type parameters in an Arena and
// installs one Spec per parameter: declared constraint kinds, the annotation
// of the reference-type constraint, variance, and the ordered constraint
// types. Everything else is derived on demand:
//
//   - effective base class and deduced base type
//   - effective interfaces and all effective interfaces
//   - reference, value and unmanaged classification
//   - whether a reference-typed instantiation excludes null
//
// # Staging
//
// Type parameters declared together form a Group. Before any fact is trusted
// the group goes through EnsureAllConstraintsAreResolved(true) and then
// EnsureAllConstraintsAreResolved(false). The early stage gives best-effort
// answers over the raw constraint lists, which may still be cyclic or hold
// unresolved entries. The late stage forces lazy constraints, removes cyclic
// edges inside the group and publishes bounds once. Late facts never change
// after publication.
//
// # Concurrency
//
// Published state lives behind atomic pointers. Competing goroutines may
// compute the same late result; the first CompareAndSwap wins and the
// computation is deterministic, so losers simply adopt the winner.
package tparams
