package models

// Category is the closed set of product categories.
type Category string

const (
	CategoryClothing    Category = "clothing"
	CategoryElectronics Category = "electronics"
	CategoryBooks       Category = "books"
	CategoryFood        Category = "food"
	CategoryOther       Category = "other"
)

// CategoryAll disables category filtering when listing products.
const CategoryAll = "all"

func (c Category) Valid() bool {
	switch c {
	case CategoryClothing, CategoryElectronics, CategoryBooks, CategoryFood, CategoryOther:
		return true
	}
	return false
}

type Product struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Price       int64    `json:"price"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	Category    Category `json:"category"`
	Stock       int      `json:"stock"`
}

// ProductFilter narrows a catalog listing. Zero value lists everything.
type ProductFilter struct {
	Category string
	Search   string
}
