package cart

import "storefront-service/models"

// Favorites is a set of products kept in the order they were added.
type Favorites struct {
	items []models.Product
}

func NewFavorites(initial ...models.Product) *Favorites {
	f := &Favorites{}
	for _, p := range initial {
		f.Add(p)
	}
	return f
}

// Add is idempotent per product id.
func (f *Favorites) Add(p models.Product) {
	if f.Contains(p.ID) {
		return
	}
	f.items = append(f.items, p)
}

func (f *Favorites) Remove(productID int64) {
	for i, p := range f.items {
		if p.ID == productID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return
		}
	}
}

func (f *Favorites) Contains(productID int64) bool {
	for _, p := range f.items {
		if p.ID == productID {
			return true
		}
	}
	return false
}

func (f *Favorites) Clear() { f.items = nil }

func (f *Favorites) Count() int { return len(f.items) }

func (f *Favorites) Items() []models.Product {
	out := make([]models.Product, len(f.items))
	copy(out, f.items)
	return out
}
