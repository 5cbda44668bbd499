package cart

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

func testItem(title string) CartItem {
	return CartItem{BookID: uuid.New(), ISBN: "isbn-" + title, Title: title, Author: "Author " + title}
}

func TestGroupCountsAndFlattenOrder(t *testing.T) {
	a, b, c := testItem("A"), testItem("B"), testItem("C")
	inner := NewGroup("inner")
	inner.Add(NewLeaf(b))
	root := NewGroup("root")
	root.Add(NewLeaf(a))
	root.Add(inner)
	root.Add(NewLeaf(c))

	if root.ItemCount() != 3 {
		t.Fatalf("expected 3 items, got %d", root.ItemCount())
	}
	flat := root.Flatten(nil)
	if len(flat) != 3 || flat[0].Title != "A" || flat[1].Title != "B" || flat[2].Title != "C" {
		t.Fatalf("unexpected flatten order %+v", flat)
	}
}

func TestGroupRemoveByIdentity(t *testing.T) {
	item := testItem("A")
	first, second := NewLeaf(item), NewLeaf(item)
	g := NewGroup("g")
	g.Add(first)
	g.Add(second)

	if !g.Remove(second) {
		t.Fatalf("expected second leaf to be removed")
	}
	children := g.Children()
	if len(children) != 1 || children[0] != Node(first) {
		t.Fatalf("expected only the first leaf to remain")
	}
	if g.Remove(second) {
		t.Fatalf("removing a detached node must report false")
	}
	g.Add(nil)
	if g.ItemCount() != 1 {
		t.Fatalf("nil child must be ignored")
	}
	g.Clear()
	if g.ItemCount() != 0 || len(g.Children()) != 0 {
		t.Fatalf("expected empty group after clear")
	}
}

func TestFindByNameAndItemID(t *testing.T) {
	target := testItem("Dune")
	inner := NewGroup("Sci-fi")
	inner.Add(NewLeaf(target))
	root := NewGroup("root")
	root.Add(NewLeaf(testItem("Emma")))
	root.Add(inner)

	if root.FindByName("root") != Node(root) {
		t.Fatalf("expected group to match itself first")
	}
	if root.FindByName("Sci-fi") != Node(inner) {
		t.Fatalf("expected nested group to be found")
	}
	if found := root.FindByName("Dune"); found == nil || found.ItemCount() != 1 {
		t.Fatalf("expected leaf named Dune")
	}
	if root.FindByName("missing") != nil {
		t.Fatalf("expected nil for unknown name")
	}
	leaf := root.FindByItemID(target.BookID)
	if leaf == nil || leaf.Item().Title != "Dune" {
		t.Fatalf("expected nested leaf by item id")
	}
	if root.FindByItemID(uuid.New()) != nil {
		t.Fatalf("expected nil for unknown item")
	}
}

func TestPrintIndentsChildren(t *testing.T) {
	inner := NewGroup("Weekend")
	inner.Add(NewLeaf(CartItem{Title: "Dune", Author: "Herbert"}))
	root := NewGroup("Cart")
	root.Add(NewLeaf(CartItem{Title: "Emma", Author: "Austen"}))
	root.Add(inner)

	var buf bytes.Buffer
	root.Print(&buf, 0)
	want := "+ Cart (2 items)\n  - Emma (Austen)\n  + Weekend (1 items)\n    - Dune (Herbert)\n"
	if buf.String() != want {
		t.Fatalf("unexpected print output:\n%s", buf.String())
	}
}

func drawTree(t *rapid.T, depth int, counter *int) (*Group, []CartItem) {
	g := NewGroup(fmt.Sprintf("group-%d", depth))
	var order []CartItem
	n := rapid.IntRange(0, 4).Draw(t, "children")
	for i := 0; i < n; i++ {
		if depth < 3 && rapid.Bool().Draw(t, "isGroup") {
			child, items := drawTree(t, depth+1, counter)
			g.Add(child)
			order = append(order, items...)
			continue
		}
		*counter++
		item := CartItem{BookID: uuid.New(), Title: fmt.Sprintf("book-%d", *counter)}
		g.Add(NewLeaf(item))
		order = append(order, item)
	}
	return g, order
}

func TestGroupPropertiesHold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		counter := 0
		root, inserted := drawTree(t, 0, &counter)

		sum := 0
		for _, child := range root.Children() {
			sum += child.ItemCount()
		}
		if root.ItemCount() != sum {
			t.Fatalf("item count %d differs from child sum %d", root.ItemCount(), sum)
		}

		flat := root.Flatten(nil)
		if len(flat) != root.ItemCount() {
			t.Fatalf("flatten length %d differs from item count %d", len(flat), root.ItemCount())
		}
		for i := range flat {
			if flat[i] != inserted[i] {
				t.Fatalf("flatten order differs at %d", i)
			}
		}
	})
}
