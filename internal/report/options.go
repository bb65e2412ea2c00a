// Package report renders driver results as a terminal table or as JSON.
package report

import "fmt"

// Format selects the output encoding.
type Format uint8

const (
	FormatPretty Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "pretty"
}

// ParseFormat accepts "pretty" and "json".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "pretty":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatPretty, fmt.Errorf("unknown format %q (expected pretty or json)", s)
}

// Options configure rendering.
type Options struct {
	Color bool
	// MaxDiagnostics trims the diagnostics printed per file; 0 prints all.
	MaxDiagnostics int
	// Width caps the width of list columns; 0 uses 40.
	Width int
}
