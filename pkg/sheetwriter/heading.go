package sheetwriter

// Heading is one header column: Key selects the record field, Label is what
// the header row shows. An empty Key means the label is also the key.
type Heading struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// HeadingsFromLabels builds headings whose labels double as keys.
func HeadingsFromLabels(labels ...string) []Heading {
	out := make([]Heading, len(labels))
	for i, l := range labels {
		out[i] = Heading{Key: l, Label: l}
	}
	return out
}

// HeadingsFromPairs builds headings from alternating key, label arguments.
// A trailing key without a label uses the key as label.
func HeadingsFromPairs(kv ...string) []Heading {
	var out []Heading
	for i := 0; i < len(kv); i += 2 {
		h := Heading{Key: kv[i], Label: kv[i]}
		if i+1 < len(kv) {
			h.Label = kv[i+1]
		}
		out = append(out, h)
	}
	return out
}

// headingSpec is the header configuration of an export run. A non-nil spec
// with no keys still enables the header row; keys and labels are then taken
// from the first record.
type headingSpec struct {
	keys      []string
	labels    []string
	rowStyle  *Style
	colStyles []*Style
}

// newHeadingSpec builds a spec, dropping duplicate keys (first one wins).
// It returns the keys that were dropped.
func newHeadingSpec(headings []Heading, rowStyle *Style, colStyles []*Style) (*headingSpec, []string) {
	spec := &headingSpec{rowStyle: rowStyle, colStyles: colStyles}
	seen := make(map[string]bool, len(headings))
	var dropped []string
	for _, h := range headings {
		key := h.Key
		if key == "" {
			key = h.Label
		}
		if seen[key] {
			dropped = append(dropped, key)
			continue
		}
		seen[key] = true
		spec.keys = append(spec.keys, key)
		spec.labels = append(spec.labels, h.Label)
	}
	return spec, dropped
}

// resolve fills keys and labels from the first record when they were not
// given explicitly.
func (h *headingSpec) resolve(first *Record, labelFunc func(string) string) {
	if len(h.keys) == 0 {
		h.keys = first.Keys()
	}
	if len(h.labels) == 0 {
		h.labels = make([]string, len(h.keys))
		for i, k := range h.keys {
			if labelFunc != nil {
				h.labels[i] = labelFunc(k)
			} else {
				h.labels[i] = k
			}
		}
	}
}

func (h *headingSpec) labelValues() []interface{} {
	out := make([]interface{}, len(h.labels))
	for i, l := range h.labels {
		out[i] = l
	}
	return out
}
