// Package filter holds the attribute constraints that retrieval strategies
// apply. Filters are best-effort hints extracted from free text or supplied
// by the caller; an empty value on any field means "no constraint".
package filter

// Filters narrows retrieval by product attributes. The zero value is
// unconstrained. Filters never hard-gate a search into emptiness on their
// own: the rating fallback still applies downstream.
type Filters struct {
	Colors     []string `json:"colors,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Brands     []string `json:"brands,omitempty"`
	MinPrice   *int     `json:"min_price,omitempty"`
	MaxPrice   *int     `json:"max_price,omitempty"`
	IsNew      *bool    `json:"is_new,omitempty"`
	Season     string   `json:"season,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return len(f.Colors) == 0 &&
		len(f.Categories) == 0 &&
		len(f.Brands) == 0 &&
		f.MinPrice == nil &&
		f.MaxPrice == nil &&
		f.IsNew == nil &&
		f.Season == ""
}

// HasColors reports whether explicit color constraints are active. The
// lexical scorer switches from the color-match bonus to the overlap
// bonus/penalty pair when this is true.
func (f Filters) HasColors() bool { return len(f.Colors) > 0 }

// IntPtr is a convenience for building price bounds.
func IntPtr(v int) *int { return &v }

// BoolPtr is a convenience for building the is_new constraint.
func BoolPtr(v bool) *bool { return &v }
