// Package costhead defines the six canonical cost heads used to group cost lines.
package costhead

import "strings"

// Head describes a canonical cost head.
type Head struct {
	// Code is the sequence code used as the CRS serial number (OM01..OM06).
	Code string
	// Raw is the value stored on estimations and line items.
	Raw string
	// Label is the display label used as report key.
	Label string
}

var heads = []Head{
	{Code: "OM01", Raw: "OM01 - Material Cost", Label: "MATERIAL COST"},
	{Code: "OM02", Raw: "OM02 - Manpower Cost", Label: "MANPOWER COST"},
	{Code: "OM03", Raw: "OM03 - Subcontracting Cost", Label: "SUBCONTRACTING COST"},
	{Code: "OM04", Raw: "OM04 - Equipment Cost", Label: "EQUIPMENT COST"},
	{Code: "OM05", Raw: "OM05 - Transportation Cost", Label: "TRANSPORTATION COST"},
	{Code: "OM06", Raw: "OM06 - Miscellaneous Cost", Label: "MISCELLANEOUS COST"},
}

// All returns the cost heads in report order.
func All() []Head {
	out := make([]Head, len(heads))
	copy(out, heads)
	return out
}

// Label maps a raw cost head to its display label. Unknown values are returned unchanged.
func Label(raw string) string {
	for _, h := range heads {
		if h.Raw == raw {
			return h.Label
		}
	}
	return raw
}

// Valid reports whether raw is one of the canonical raw values.
func Valid(raw string) bool {
	for _, h := range heads {
		if h.Raw == raw {
			return true
		}
	}
	return false
}

// ByLabel resolves a head from its label, case-insensitively.
func ByLabel(label string) (Head, bool) {
	label = strings.TrimSpace(label)
	for _, h := range heads {
		if strings.EqualFold(h.Label, label) {
			return h, true
		}
	}
	return Head{}, false
}
