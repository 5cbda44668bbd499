package cart

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// CartItem is the catalog snapshot carried by a leaf.
type CartItem struct {
	BookID uuid.UUID `json:"bookId"`
	ISBN   string    `json:"isbn"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
}

// Node is an element of the cart tree. The only implementations are *Leaf
// and *Group.
type Node interface {
	Name() string
	ItemCount() int
	// Flatten appends every item below the node to out, depth-first.
	Flatten(out []CartItem) []CartItem
	Print(w io.Writer, depth int)
	isNode()
}

// Leaf holds exactly one catalog item.
type Leaf struct {
	item CartItem
}

// NewLeaf wraps item in a leaf node.
func NewLeaf(item CartItem) *Leaf {
	return &Leaf{item: item}
}

func (l *Leaf) isNode() {}

// Item returns the wrapped catalog item.
func (l *Leaf) Item() CartItem { return l.item }

func (l *Leaf) Name() string { return l.item.Title }

func (l *Leaf) ItemCount() int { return 1 }

func (l *Leaf) Flatten(out []CartItem) []CartItem {
	return append(out, l.item)
}

func (l *Leaf) Print(w io.Writer, depth int) {
	fmt.Fprintf(w, "%s- %s (%s)\n", indent(depth), l.item.Title, l.item.Author)
}

// Group is a named, ordered collection of nodes.
type Group struct {
	name     string
	children []Node
}

// NewGroup returns an empty group.
func NewGroup(name string) *Group {
	return &Group{name: name}
}

func (g *Group) isNode() {}

func (g *Group) Name() string { return g.name }

func (g *Group) ItemCount() int {
	total := 0
	for _, child := range g.children {
		total += child.ItemCount()
	}
	return total
}

func (g *Group) Flatten(out []CartItem) []CartItem {
	for _, child := range g.children {
		out = child.Flatten(out)
	}
	return out
}

func (g *Group) Print(w io.Writer, depth int) {
	fmt.Fprintf(w, "%s+ %s (%d items)\n", indent(depth), g.name, g.ItemCount())
	for _, child := range g.children {
		child.Print(w, depth+1)
	}
}

// Add appends child. Nil children are ignored.
func (g *Group) Add(child Node) {
	if child == nil {
		return
	}
	g.children = append(g.children, child)
}

// Remove detaches child (matched by identity) from the direct children.
func (g *Group) Remove(child Node) bool {
	for i, existing := range g.children {
		if existing != child {
			continue
		}
		copy(g.children[i:], g.children[i+1:])
		g.children[len(g.children)-1] = nil
		g.children = g.children[:len(g.children)-1]
		return true
	}
	return false
}

// Clear drops every child.
func (g *Group) Clear() {
	g.children = nil
}

// Children returns a copy of the direct children.
func (g *Group) Children() []Node {
	out := make([]Node, len(g.children))
	copy(out, g.children)
	return out
}

// FindByName returns the first node named name, checking g itself before
// walking the children depth-first.
func (g *Group) FindByName(name string) Node {
	if g.name == name {
		return g
	}
	for _, child := range g.children {
		switch n := child.(type) {
		case *Group:
			if found := n.FindByName(name); found != nil {
				return found
			}
		case *Leaf:
			if n.Name() == name {
				return n
			}
		}
	}
	return nil
}

// FindByItemID returns the first leaf holding the book id, depth-first.
func (g *Group) FindByItemID(id uuid.UUID) *Leaf {
	for _, child := range g.children {
		switch n := child.(type) {
		case *Leaf:
			if n.item.BookID == id {
				return n
			}
		case *Group:
			if found := n.FindByItemID(id); found != nil {
				return found
			}
		}
	}
	return nil
}

func indent(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("  ", depth)
}
