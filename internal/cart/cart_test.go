package cart

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

func newTestCart() *Cart {
	return New(uuid.New(), time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))
}

func TestAddItemRejectsDuplicates(t *testing.T) {
	c := newTestCart()
	item := testItem("A")
	if _, err := c.AddItem(item); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	before := c.Render()

	if _, err := c.AddItem(item); !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("expected ErrDuplicateItem, got %v", err)
	}
	if c.Render() != before || c.ItemCount() != 1 {
		t.Fatalf("cart must be unchanged after duplicate add")
	}
}

func TestAddGroupDuplicateRules(t *testing.T) {
	c := newTestCart()
	a, b := testItem("A"), testItem("B")
	if _, err := c.AddItem(a); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := c.AddGroup("mixed", []CartItem{b, a}); !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("expected duplicate against tree, got %v", err)
	}
	if _, err := c.AddGroup("repeat", []CartItem{b, b}); !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("expected duplicate within group, got %v", err)
	}
	if _, err := c.AddGroup("  ", []CartItem{b}); !errors.Is(err, ErrGroupNameRequired) {
		t.Fatalf("expected group name error, got %v", err)
	}
	if c.ItemCount() != 1 {
		t.Fatalf("failed group adds must leave the cart unchanged")
	}

	group, err := c.AddGroup("Holiday", []CartItem{b})
	if err != nil {
		t.Fatalf("add group: %v", err)
	}
	if group.Name() != "Holiday" || c.ItemCount() != 2 {
		t.Fatalf("unexpected cart state after add group")
	}
	if _, err := c.AddItem(b); !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("expected nested item to block a top-level add, got %v", err)
	}
}

func TestRemoveNodeAndClear(t *testing.T) {
	c := newTestCart()
	leaf, _ := c.AddItem(testItem("A"))
	group, _ := c.AddGroup("G", []CartItem{testItem("B"), testItem("C")})

	if !c.RemoveNode(group) {
		t.Fatalf("expected group removal")
	}
	if c.ItemCount() != 1 || len(c.Children()) != 1 {
		t.Fatalf("unexpected state after removal")
	}
	nested := NewLeaf(testItem("Z"))
	if c.RemoveNode(nested) {
		t.Fatalf("removing a foreign node must fail")
	}
	if !c.RemoveNode(leaf) || !c.IsEmpty() {
		t.Fatalf("expected empty cart after removing the last leaf")
	}

	c.AddItem(testItem("D"))
	c.Clear()
	if !c.IsEmpty() || len(c.Flatten()) != 0 {
		t.Fatalf("expected empty cart after clear")
	}
	if c.Root().Name() != rootName {
		t.Fatalf("expected fresh root group")
	}
}

func TestRenderShowsTree(t *testing.T) {
	c := newTestCart()
	c.AddItem(CartItem{BookID: uuid.New(), Title: "Emma", Author: "Austen"})
	out := c.Render()
	if !strings.HasPrefix(out, "+ Cart (1 items)\n") || !strings.Contains(out, "  - Emma (Austen)") {
		t.Fatalf("unexpected render:\n%s", out)
	}
}

func TestCartAddSequenceProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := newTestCart()
		pool := make([]CartItem, rapid.IntRange(1, 8).Draw(t, "pool"))
		for i := range pool {
			pool[i] = CartItem{BookID: uuid.New(), Title: string(rune('a' + i))}
		}
		present := map[uuid.UUID]bool{}
		steps := rapid.IntRange(0, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			item := pool[rapid.IntRange(0, len(pool)-1).Draw(t, "pick")]
			_, err := c.AddItem(item)
			if present[item.BookID] {
				if !errors.Is(err, ErrDuplicateItem) {
					t.Fatalf("expected duplicate error for repeated item")
				}
				continue
			}
			if err != nil {
				t.Fatalf("unexpected add error: %v", err)
			}
			present[item.BookID] = true
		}
		if c.ItemCount() != len(present) || len(c.Flatten()) != len(present) {
			t.Fatalf("cart size %d differs from distinct adds %d", c.ItemCount(), len(present))
		}
	})
}
