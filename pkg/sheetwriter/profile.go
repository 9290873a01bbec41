package sheetwriter

import (
	"fmt"
	"os"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v2"
)

// Label cases for inferred header labels.
const (
	LabelCaseRaw   = ""
	LabelCaseCamel = "camel"
	LabelCaseSnake = "snake"
	LabelCaseWords = "words"
)

// Profile is a reusable export configuration, usually loaded from YAML.
type Profile struct {
	Name         string            `yaml:"name"`
	Sheet        string            `yaml:"sheet"`
	Headings     []Heading         `yaml:"headings"`
	ShowHeader   bool              `yaml:"show_header"`
	HeaderStyle  *Style            `yaml:"header_style"`
	ColumnStyles map[string]*Style `yaml:"column_styles"`
	RowStyle     *Style            `yaml:"row_style"`
	Formats      map[string]string `yaml:"formats"`
	LabelCase    string            `yaml:"label_case"`
	Promote      []string          `yaml:"promote"`
	Source       SourceConfig      `yaml:"source"`
}

// SourceConfig names where a profile's records come from. Interpreting it is
// up to the caller; the exporter itself only consumes data sources.
type SourceConfig struct {
	Kind     string `yaml:"kind"` // sql, elastic, datastore
	Query    string `yaml:"query"`
	Index    string `yaml:"index"`
	Entity   string `yaml:"entity"`
	Sort     string `yaml:"sort"`
	Limit    int    `yaml:"limit"`
	PageSize int    `yaml:"page_size"`
}

// ParseProfile decodes a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("profile is empty")
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.Sheet == "" {
		p.Sheet = p.Name
	}
	if p.Sheet == "" {
		p.Sheet = defaultSheetName
	}
	if len(p.Headings) > 0 {
		p.ShowHeader = true
	}
	switch p.LabelCase {
	case LabelCaseRaw, LabelCaseCamel, LabelCaseSnake, LabelCaseWords:
	default:
		return nil, fmt.Errorf("unknown label_case %q", p.LabelCase)
	}
	return &p, nil
}

// LoadProfile reads and decodes a YAML profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

// LabelFunc returns the inferred-label transform for the profile's label case.
func (p *Profile) LabelFunc() func(string) string {
	switch p.LabelCase {
	case LabelCaseCamel:
		return strcase.ToCamel
	case LabelCaseSnake:
		return strcase.ToSnake
	case LabelCaseWords:
		return func(s string) string { return strcase.ToDelimited(s, ' ') }
	}
	return nil
}

// ColumnStyleList returns the column styles in heading order.
func (p *Profile) ColumnStyleList() []*Style {
	if len(p.ColumnStyles) == 0 || len(p.Headings) == 0 {
		return nil
	}
	out := make([]*Style, len(p.Headings))
	for i, h := range p.Headings {
		key := h.Key
		if key == "" {
			key = h.Label
		}
		out[i] = p.ColumnStyles[key]
	}
	return out
}

// NewWriter creates a SheetWriter configured by the profile.
func (p *Profile) NewWriter(sink Sink, opts ...Option) *SheetWriter {
	if fn := p.LabelFunc(); fn != nil {
		opts = append([]Option{WithLabelFunc(fn)}, opts...)
	}
	w := New(sink, opts...)
	p.Apply(w)
	return w
}

// Apply configures headings, formats and map promotion on w.
func (p *Profile) Apply(w *SheetWriter) *SheetWriter {
	if len(p.Promote) > 0 {
		w.Mapping(PromoteMap(p.Promote...))
	}
	if p.ShowHeader {
		w.WithHeadings(p.Headings, p.HeaderStyle, p.ColumnStyleList())
	}
	if len(p.Formats) > 0 {
		w.FormatAttributes(p.Formats)
	}
	return w
}
