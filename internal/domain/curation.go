package domain

// Curation is a model-produced grouping of candidate products into
// presentation buckets, plus the storefront copy that accompanies them.
// The JSON tags match the shape the curation model is asked to emit.
type Curation struct {
	MainIDs    []string `json:"main_products"`
	SubIDs     []string `json:"sub_products"`
	RelatedIDs []string `json:"related_products"`
	Summary    string   `json:"summary"`
	Message    string   `json:"message"`
}
