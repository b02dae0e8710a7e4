package models

import (
	"math"
	"time"
)

// MaxQuantity is the largest quantity a single cart entry may hold. It
// matches the order_items.quantity column.
const MaxQuantity = math.MaxInt32

type CartItem struct {
	ProductID string `json:"product" bson:"product"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Cart is a user's pending selection. Items keep insertion order and hold
// at most one entry per product; every entry has Quantity >= 1.
//
// Version is the optimistic concurrency token checked by the cart store.
// Zero means the cart has never been stored.
type Cart struct {
	UserID    string
	Items     []CartItem
	Version   int64
	UpdatedAt time.Time
}

func NewCart(userID string) Cart {
	return Cart{UserID: userID, Items: []CartItem{}}
}

// Find returns the index of productID in c.Items, or -1.
func (c *Cart) Find(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) Quantity(productID string) int {
	if i := c.Find(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Add increments the quantity of productID by n, inserting it if absent.
// Non-positive n is ignored. It reports false, leaving the cart unchanged,
// when the entry would exceed MaxQuantity.
func (c *Cart) Add(productID string, n int) bool {
	if n <= 0 {
		return true
	}
	if n > MaxQuantity {
		return false
	}
	if i := c.Find(productID); i >= 0 {
		if c.Items[i].Quantity > MaxQuantity-n {
			return false
		}
		c.Items[i].Quantity += n
		return true
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: n})
	return true
}

// Decrease lowers the quantity of productID by n. An entry that reaches
// zero or below is removed. It reports false if productID is not present.
func (c *Cart) Decrease(productID string, n int) bool {
	i := c.Find(productID)
	if i < 0 {
		return false
	}
	if n <= 0 {
		return true
	}
	left := c.Items[i].Quantity - n
	if left <= 0 {
		c.removeAt(i)
		return true
	}
	c.Items[i].Quantity = left
	return true
}

// Set makes the quantity of productID exactly n; n <= 0 removes the entry.
// A quantity above MaxQuantity is refused and reported as false.
func (c *Cart) Set(productID string, n int) bool {
	if n > MaxQuantity {
		return false
	}
	i := c.Find(productID)
	switch {
	case n <= 0:
		if i >= 0 {
			c.removeAt(i)
		}
	case i >= 0:
		c.Items[i].Quantity = n
	default:
		c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: n})
	}
	return true
}

// Remove deletes productID and reports whether anything was removed.
func (c *Cart) Remove(productID string) bool {
	i := c.Find(productID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) Clear() { c.Items = []CartItem{} }

// Clone returns a copy that shares no memory with c.
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return out
}

func (c *Cart) removeAt(i int) {
	c.Items = append(c.Items[:i:i], c.Items[i+1:]...)
}
