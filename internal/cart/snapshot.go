package cart

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	kindLeaf  = "leaf"
	kindGroup = "group"
)

// NodeSnapshot is the tagged wire form of a Node.
type NodeSnapshot struct {
	Kind      string         `json:"kind"`
	Name      string         `json:"name"`
	ItemCount int            `json:"itemCount"`
	Item      *CartItem      `json:"item,omitempty"`
	Children  []NodeSnapshot `json:"children,omitempty"`
}

// Snapshot is the serialisable state of a cart session.
type Snapshot struct {
	ID        uuid.UUID    `json:"id"`
	ItemCount int          `json:"itemCount"`
	Root      NodeSnapshot `json:"root"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// SnapshotOf captures the cart tree.
func SnapshotOf(c *Cart) Snapshot {
	return Snapshot{
		ID:        c.ID,
		ItemCount: c.ItemCount(),
		Root:      snapshotNode(c.root),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func snapshotNode(n Node) NodeSnapshot {
	switch v := n.(type) {
	case *Leaf:
		item := v.item
		return NodeSnapshot{Kind: kindLeaf, Name: v.Name(), ItemCount: 1, Item: &item}
	case *Group:
		out := NodeSnapshot{Kind: kindGroup, Name: v.name, ItemCount: v.ItemCount()}
		for _, child := range v.children {
			out.Children = append(out.Children, snapshotNode(child))
		}
		return out
	default:
		panic(fmt.Sprintf("cart: unknown node type %T", n))
	}
}

// Restore rebuilds the cart described by the snapshot.
func (s Snapshot) Restore() (*Cart, error) {
	if s.Root.Kind != kindGroup {
		return nil, fmt.Errorf("cart root must be a group, got %q", s.Root.Kind)
	}
	root, err := restoreNode(s.Root)
	if err != nil {
		return nil, err
	}
	return &Cart{ID: s.ID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt, root: root.(*Group)}, nil
}

func restoreNode(s NodeSnapshot) (Node, error) {
	switch s.Kind {
	case kindLeaf:
		if s.Item == nil {
			return nil, fmt.Errorf("leaf %q has no item", s.Name)
		}
		return NewLeaf(*s.Item), nil
	case kindGroup:
		group := NewGroup(s.Name)
		for _, child := range s.Children {
			node, err := restoreNode(child)
			if err != nil {
				return nil, err
			}
			group.Add(node)
		}
		return group, nil
	default:
		return nil, fmt.Errorf("unknown cart node kind %q", s.Kind)
	}
}

// Encode serialises the cart for a session store.
func Encode(c *Cart) ([]byte, error) {
	return json.Marshal(SnapshotOf(c))
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (*Cart, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return snap.Restore()
}
