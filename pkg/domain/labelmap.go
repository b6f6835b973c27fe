package domain

import (
	"fmt"
	"sort"
	"strings"
)

// LabelMap is a validated old-label to new-label mapping used when
// relabeling a categorical metadata column. Construction fails unless the
// mapping covers every observed input label, and Apply errors on unmapped
// input instead of propagating unset values.
type LabelMap struct {
	mapping map[string]string
}

// NewLabelMap builds a label map and validates it against the observed label
// set. Observed labels missing from the mapping are an error.
func NewLabelMap(mapping map[string]string, observed []string) (LabelMap, error) {
	if len(mapping) == 0 {
		return LabelMap{}, fmt.Errorf("label map: empty mapping")
	}
	var missing []string
	for _, label := range observed {
		if _, ok := mapping[label]; !ok {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return LabelMap{}, fmt.Errorf("label map: observed labels not covered: %s", strings.Join(missing, ", "))
	}
	cloned := make(map[string]string, len(mapping))
	for k, v := range mapping {
		cloned[k] = v
	}
	return LabelMap{mapping: cloned}, nil
}

// Apply maps one label, erroring on unmapped input.
func (m LabelMap) Apply(label string) (string, error) {
	out, ok := m.mapping[label]
	if !ok {
		return "", fmt.Errorf("label map: unmapped label %q", label)
	}
	return out, nil
}

// Len returns the number of mapping entries.
func (m LabelMap) Len() int { return len(m.mapping) }

// ObservedLabels collects the distinct set values of a metadata column,
// sorted, for use as the validation input to NewLabelMap.
func ObservedLabels(table MetadataTable, column string) []string {
	col := table.Column(column)
	if col == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, v := range col.Values {
		if v != nil {
			seen[*v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for label := range seen {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
