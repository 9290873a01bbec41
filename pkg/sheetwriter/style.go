package sheetwriter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Style is the style descriptor handed to a Sink for a row or a cell.
// Zero-valued fields mean "not set"; Merge lets a more specific style
// override a base one field by field.
type Style struct {
	Font      *FontStyle      `yaml:"font"`
	Fill      *FillStyle      `yaml:"fill"`
	Alignment *AlignmentStyle `yaml:"alignment"`
	Format    string          `yaml:"format"` // Number format token, e.g. "0.00" or "yyyy-mm-dd"
	Width     float64         `yaml:"width"`  // Column width, only honored on header and column styles
}

type FontStyle struct {
	Bold   bool    `yaml:"bold"`
	Italic bool    `yaml:"italic"`
	Size   float64 `yaml:"size"`
	Color  string  `yaml:"color"` // Hex color
}

type FillStyle struct {
	Color string `yaml:"color"` // Hex color
}

type AlignmentStyle struct {
	Horizontal string `yaml:"horizontal"` // center, left, right
	Vertical   string `yaml:"vertical"`   // top, center, bottom
	WrapText   bool   `yaml:"wrap_text"`
}

// Merge returns a copy of base with every field set in over applied on top.
// Either argument may be nil.
func Merge(base, over *Style) *Style {
	if base == nil && over == nil {
		return nil
	}
	s := &Style{}
	if base != nil {
		*s = *base
	}
	if over == nil {
		return s
	}
	if over.Font != nil {
		s.Font = over.Font
	}
	if over.Fill != nil {
		s.Fill = over.Fill
	}
	if over.Alignment != nil {
		s.Alignment = over.Alignment
	}
	if over.Format != "" {
		s.Format = over.Format
	}
	if over.Width > 0 {
		s.Width = over.Width
	}
	return s
}

// WithFormat returns a copy of s carrying the given number format.
func (s *Style) WithFormat(format string) *Style {
	return Merge(s, &Style{Format: format})
}

// IsZero reports whether the style carries nothing the sink could render.
func (s *Style) IsZero() bool {
	return s == nil || (s.Font == nil && s.Fill == nil && s.Alignment == nil && s.Format == "")
}

// key returns a cache key for the renderable parts of the style.
func (s *Style) key() string {
	if s == nil {
		return ""
	}
	var sb strings.Builder
	if s.Font != nil {
		fmt.Fprintf(&sb, "f:%v:%v:%v:%s|", s.Font.Bold, s.Font.Italic, s.Font.Size, s.Font.Color)
	}
	if s.Fill != nil {
		fmt.Fprintf(&sb, "i:%s|", s.Fill.Color)
	}
	if s.Alignment != nil {
		fmt.Fprintf(&sb, "a:%s:%s:%v|", s.Alignment.Horizontal, s.Alignment.Vertical, s.Alignment.WrapText)
	}
	if s.Format != "" {
		fmt.Fprintf(&sb, "n:%s|", s.Format)
	}
	return sb.String()
}

// toExcelize translates the descriptor into an excelize style.
func (s *Style) toExcelize() *excelize.Style {
	style := &excelize.Style{}
	if s.Font != nil {
		style.Font = &excelize.Font{
			Bold:   s.Font.Bold,
			Italic: s.Font.Italic,
			Size:   s.Font.Size,
			Color:  strings.TrimPrefix(s.Font.Color, "#"),
		}
	}
	if s.Fill != nil {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Color:   []string{strings.TrimPrefix(s.Fill.Color, "#")},
			Pattern: 1,
		}
	}
	if s.Alignment != nil {
		style.Alignment = &excelize.Alignment{
			Horizontal: s.Alignment.Horizontal,
			Vertical:   s.Alignment.Vertical,
			WrapText:   s.Alignment.WrapText,
		}
	}
	if s.Format != "" {
		format := s.Format
		style.CustomNumFmt = &format
	}
	return style
}

// DefaultHeaderStyle is used for header rows when no row style is given.
func DefaultHeaderStyle() *Style {
	return &Style{
		Font:      &FontStyle{Bold: true},
		Alignment: &AlignmentStyle{Horizontal: "center", Vertical: "top"},
	}
}
