// Package cart holds the in-memory cart and favorites state for a single
// shopper. Nothing here touches storage; a Cart is not safe for concurrent
// use.
package cart

import "storefront-service/models"

// Cart is an ordered list of lines. Quantities never exceed the stock value
// of the product snapshot that was added.
type Cart struct {
	lines []models.CartLine
}

func New() *Cart {
	return &Cart{}
}

// AddItem adds one unit of p. Adding a zero-stock product, or one already at
// its stock ceiling, leaves the cart unchanged.
func (c *Cart) AddItem(p models.Product) {
	if p.Stock <= 0 {
		return
	}
	if i := c.index(p.ID); i >= 0 {
		if c.lines[i].Quantity >= c.lines[i].Product.Stock {
			return
		}
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, models.CartLine{Product: p, Quantity: 1})
}

func (c *Cart) RemoveItem(productID int64) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// SetQuantity removes the line when quantity <= 0 and clamps it to the
// product's stock otherwise. Unknown product ids are ignored.
func (c *Cart) SetQuantity(productID int64, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	i := c.index(productID)
	if i < 0 {
		return
	}
	if stock := c.lines[i].Product.Stock; quantity > stock {
		quantity = stock
	}
	c.lines[i].Quantity = quantity
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart contents in insertion order.
func (c *Cart) Lines() []models.CartLine {
	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.Product.Price * int64(l.Quantity)
	}
	return total
}

func (c *Cart) TotalItems() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) index(productID int64) int {
	for i, l := range c.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}
