package domain

import "strings"

// KeyPrefix namespaces all Redis keys owned by this service.
const KeyPrefix = "stylesearch:"

// Product is an immutable catalog record. Created at import time, read-only
// thereafter. IDs are unique across the catalog.
type Product struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand"`
	Category     []string `json:"category"`
	Price        int      `json:"price"`
	Size         []string `json:"size"`
	Color        []string `json:"color"`
	Material     string   `json:"material"`
	Description  string   `json:"description"`
	Keywords     []string `json:"keywords"`
	Target       string   `json:"target"`
	Scene        string   `json:"scene"`
	RecommendFor string   `json:"recommend_for"`
	Catchcopy    string   `json:"catchcopy"`
	Image        string   `json:"image"`
	Rating       float64  `json:"rating"`
	Reviews      int      `json:"reviews"`
	IsNew        bool     `json:"is_new"`
	Season       string   `json:"season"`
}

// Validate checks the fields that downstream components rely on.
func (p *Product) Validate() error {
	if p.ID == "" {
		return ErrInvalidProduct
	}
	if p.Price < 0 {
		return ErrInvalidProduct
	}
	if p.Rating < 0 || p.Rating > 5 {
		return ErrInvalidProduct
	}
	if p.Reviews < 0 {
		return ErrInvalidProduct
	}
	return nil
}

// SearchText flattens the product into the text that gets embedded for
// vector retrieval. Field labels keep the embedding model oriented on
// short attribute values.
func (p *Product) SearchText() string {
	parts := []string{
		"商品名: " + p.Name,
		"ブランド: " + p.Brand,
		"カテゴリ: " + strings.Join(p.Category, " "),
		"色: " + strings.Join(p.Color, " "),
		"素材: " + p.Material,
		"説明: " + p.Description,
		"キーワード: " + strings.Join(p.Keywords, " "),
		"対象: " + p.Target,
		"シーン: " + p.Scene,
		"おすすめ: " + p.RecommendFor,
		"特徴: " + p.Catchcopy,
		"季節: " + p.Season,
	}
	if p.IsNew {
		parts = append(parts, "新商品")
	}
	return strings.Join(parts, "\n")
}
