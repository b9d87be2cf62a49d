package stylesearch

import (
	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/filter"
)

func toInternalProduct(p Product) domain.Product {
	return domain.Product{
		ID:           p.ID,
		Name:         p.Name,
		Brand:        p.Brand,
		Category:     p.Category,
		Price:        p.Price,
		Size:         p.Size,
		Color:        p.Color,
		Material:     p.Material,
		Description:  p.Description,
		Keywords:     p.Keywords,
		Target:       p.Target,
		Scene:        p.Scene,
		RecommendFor: p.RecommendFor,
		Catchcopy:    p.Catchcopy,
		Image:        p.Image,
		Rating:       p.Rating,
		Reviews:      p.Reviews,
		IsNew:        p.IsNew,
		Season:       p.Season,
	}
}

func fromInternalProduct(p domain.Product) Product {
	return Product{
		ID:           p.ID,
		Name:         p.Name,
		Brand:        p.Brand,
		Category:     p.Category,
		Price:        p.Price,
		Size:         p.Size,
		Color:        p.Color,
		Material:     p.Material,
		Description:  p.Description,
		Keywords:     p.Keywords,
		Target:       p.Target,
		Scene:        p.Scene,
		RecommendFor: p.RecommendFor,
		Catchcopy:    p.Catchcopy,
		Image:        p.Image,
		Rating:       p.Rating,
		Reviews:      p.Reviews,
		IsNew:        p.IsNew,
		Season:       p.Season,
	}
}

func fromInternalProducts(products []domain.Product) []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = fromInternalProduct(p)
	}
	return out
}

func toInternalProducts(products []Product) []domain.Product {
	out := make([]domain.Product, len(products))
	for i, p := range products {
		out[i] = toInternalProduct(p)
	}
	return out
}

func toInternalFilters(f Filters) filter.Filters {
	return filter.Filters{
		Colors:     f.Colors,
		Categories: f.Categories,
		Brands:     f.Brands,
		MinPrice:   f.MinPrice,
		MaxPrice:   f.MaxPrice,
		IsNew:      f.IsNew,
		Season:     f.Season,
	}
}
