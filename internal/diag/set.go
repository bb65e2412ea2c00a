package diag

import "sort"

// Set is an order-insensitive collection of diagnostics. The zero value is
// ready to use. A Set is not safe for concurrent mutation.
type Set struct {
	items map[dedupKey]Diagnostic
}

// Add inserts d. Reports false if an equal diagnostic was already present.
func (s *Set) Add(d Diagnostic) bool {
	if s.items == nil {
		s.items = make(map[dedupKey]Diagnostic)
	}
	key := keyOf(d)
	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = d
	return true
}

// Report makes Set usable as a Reporter.
func (s *Set) Report(d Diagnostic) {
	s.Add(d)
}

// AddAll inserts every diagnostic of other.
func (s *Set) AddAll(other *Set) {
	if other == nil {
		return
	}
	for _, d := range other.items {
		s.Add(d)
	}
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Has reports whether the set contains a diagnostic with code.
func (s *Set) Has(code Code) bool {
	if s == nil {
		return false
	}
	for k := range s.items {
		if k.code == code {
			return true
		}
	}
	return false
}

// Sorted returns the diagnostics in a deterministic order.
func (s *Set) Sorted() []Diagnostic {
	if s == nil || len(s.items) == 0 {
		return nil
	}
	out := make([]Diagnostic, 0, len(s.items))
	for _, d := range s.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
