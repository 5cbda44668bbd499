package cart

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const rootName = "Cart"

// Cart is the borrowing basket. It owns a root group whose direct children
// are the nodes a client can address.
type Cart struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	root      *Group
}

// New returns an empty cart.
func New(id uuid.UUID, now time.Time) *Cart {
	return &Cart{ID: id, CreatedAt: now, UpdatedAt: now, root: NewGroup(rootName)}
}

// Root exposes the root group for traversal.
func (c *Cart) Root() *Group {
	return c.root
}

// AddItem appends a leaf for item. Items already present anywhere in the
// tree are rejected and the cart is left unchanged.
func (c *Cart) AddItem(item CartItem) (*Leaf, error) {
	if c.root.FindByItemID(item.BookID) != nil {
		return nil, ErrDuplicateItem
	}
	leaf := NewLeaf(item)
	c.root.Add(leaf)
	return leaf, nil
}

// AddGroup appends a named group with one leaf per item.
func (c *Cart) AddGroup(name string, items []CartItem) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrGroupNameRequired
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.BookID]; dup {
			return nil, ErrDuplicateItem
		}
		if c.root.FindByItemID(item.BookID) != nil {
			return nil, ErrDuplicateItem
		}
		seen[item.BookID] = struct{}{}
	}

	group := NewGroup(name)
	for _, item := range items {
		group.Add(NewLeaf(item))
	}
	c.root.Add(group)
	return group, nil
}

// RemoveNode detaches a direct child of the root.
func (c *Cart) RemoveNode(node Node) bool {
	return c.root.Remove(node)
}

// Clear replaces the root with a fresh empty group.
func (c *Cart) Clear() {
	c.root = NewGroup(rootName)
}

// Flatten lists every item in the cart, depth-first in insertion order.
func (c *Cart) Flatten() []CartItem {
	return c.root.Flatten(nil)
}

func (c *Cart) ItemCount() int {
	return c.root.ItemCount()
}

func (c *Cart) IsEmpty() bool {
	return c.root.ItemCount() == 0
}

// Children returns the root's direct children.
func (c *Cart) Children() []Node {
	return c.root.Children()
}

// Render prints the tree in the desk's text form.
func (c *Cart) Render() string {
	var b strings.Builder
	c.root.Print(&b, 0)
	return b.String()
}
