package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/librarydesk-backend/pkg/db"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/google/uuid"
)

type bookLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
}

// View is the cart representation handed to the API.
type View struct {
	Snapshot
	Tree string `json:"tree"`
}

// Service manages cart sessions.
type Service interface {
	Create(ctx context.Context) (*View, error)
	Get(ctx context.Context, cartID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, cartID, bookID uuid.UUID) (*View, error)
	AddGroup(ctx context.Context, cartID uuid.UUID, name string, bookIDs []uuid.UUID) (*View, error)
	RemoveNode(ctx context.Context, cartID uuid.UUID, index int, confirmed bool) (*View, error)
	Clear(ctx context.Context, cartID uuid.UUID) (*View, error)
	Delete(ctx context.Context, cartID uuid.UUID) error
	Items(ctx context.Context, cartID uuid.UUID) ([]CartItem, error)
	Claim(ctx context.Context, cartID uuid.UUID) (release func(), err error)
}

// claimer is implemented by stores shared between replicas.
type claimer interface {
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
}

type service struct {
	mu     sync.Mutex
	store  Store
	books  bookLoader
	claims map[uuid.UUID]struct{}
	now    func() time.Time
}

// NewService builds a cart service over the session store and catalog.
func NewService(store Store, books bookLoader) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if books == nil {
		return nil, fmt.Errorf("book loader required")
	}
	return &service{store: store, books: books, claims: map[uuid.UUID]struct{}{}, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context) (*View, error) {
	c := New(uuid.New(), s.now().UTC())
	if err := s.store.Save(ctx, c); err != nil {
		return nil, storeError(err)
	}
	return viewOf(c), nil
}

func (s *service) Get(ctx context.Context, cartID uuid.UUID) (*View, error) {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return viewOf(c), nil
}

func (s *service) AddItem(ctx context.Context, cartID, bookID uuid.UUID) (*View, error) {
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	item, err := s.loadItem(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, func(c *Cart) error {
		if _, err := c.AddItem(item); err != nil {
			return duplicateError(err, bookID)
		}
		return nil
	})
}

func (s *service) AddGroup(ctx context.Context, cartID uuid.UUID, name string, bookIDs []uuid.UUID) (*View, error) {
	items := make([]CartItem, 0, len(bookIDs))
	for _, id := range bookIDs {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
		}
		item, err := s.loadItem(ctx, id)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return s.mutate(ctx, cartID, func(c *Cart) error {
		if _, err := c.AddGroup(name, items); err != nil {
			if errors.Is(err, ErrGroupNameRequired) {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "group name is required")
			}
			return duplicateError(err, uuid.Nil)
		}
		return nil
	})
}

func (s *service) RemoveNode(ctx context.Context, cartID uuid.UUID, index int, confirmed bool) (*View, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		children := c.Children()
		if index < 0 || index >= len(children) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNodeNotFound, "cart node not found")
		}
		node := children[index]
		if _, isGroup := node.(*Group); isGroup && !confirmed {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrConfirmationRequired, "removing a group requires confirmation").
				WithDetails(map[string]any{"name": node.Name(), "items": node.ItemCount()})
		}
		c.RemoveNode(node)
		return nil
	})
}

func (s *service) Clear(ctx context.Context, cartID uuid.UUID) (*View, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		c.Clear()
		return nil
	})
}

func (s *service) Delete(ctx context.Context, cartID uuid.UUID) error {
	if _, err := s.load(ctx, cartID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, cartID); err != nil {
		return storeError(err)
	}
	return nil
}

func (s *service) Items(ctx context.Context, cartID uuid.UUID) ([]CartItem, error) {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return c.Flatten(), nil
}

// Claim reserves the cart for a single checkout. Callers must invoke release
// once the checkout has finished, whatever its outcome.
func (s *service) Claim(ctx context.Context, cartID uuid.UUID) (func(), error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	s.mu.Lock()
	if _, held := s.claims[cartID]; held {
		s.mu.Unlock()
		return nil, claimedError(cartID)
	}
	s.claims[cartID] = struct{}{}
	s.mu.Unlock()

	shared, _ := s.store.(claimer)
	if shared != nil {
		ok, err := shared.Claim(ctx, cartID)
		if err != nil || !ok {
			s.unclaim(cartID)
			if err != nil {
				return nil, storeError(err)
			}
			return nil, claimedError(cartID)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if shared != nil {
				_ = shared.Release(context.WithoutCancel(ctx), cartID)
			}
			s.unclaim(cartID)
		})
	}, nil
}

func (s *service) unclaim(cartID uuid.UUID) {
	s.mu.Lock()
	delete(s.claims, cartID)
	s.mu.Unlock()
}

func (s *service) mutate(ctx context.Context, cartID uuid.UUID, fn func(c *Cart) error) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		return nil, storeError(err)
	}
	return viewOf(c), nil
}

func (s *service) load(ctx context.Context, cartID uuid.UUID) (*Cart, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	c, err := s.store.Load(ctx, cartID)
	if err != nil {
		return nil, storeError(err)
	}
	return c, nil
}

func (s *service) loadItem(ctx context.Context, bookID uuid.UUID) (CartItem, error) {
	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		if db.IsNotFound(err) {
			return CartItem{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "book not found")
		}
		return CartItem{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
	}
	if book.AvailableCopies <= 0 {
		return CartItem{}, pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrItemUnavailable, "book has no available copies").
			WithDetails(map[string]any{"book_id": book.ID, "title": book.Title})
	}
	return CartItem{BookID: book.ID, ISBN: book.ISBN, Title: book.Title, Author: book.Author}, nil
}

func viewOf(c *Cart) *View {
	return &View{Snapshot: SnapshotOf(c), Tree: c.Render()}
}

func duplicateError(err error, bookID uuid.UUID) error {
	if !errors.Is(err, ErrDuplicateItem) {
		return err
	}
	wrapped := pkgerrors.Wrap(pkgerrors.CodeConflict, err, "book already in cart")
	if bookID != uuid.Nil {
		wrapped = wrapped.WithDetails(map[string]any{"book_id": bookID})
	}
	return wrapped
}

func claimedError(cartID uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrCartClaimed, "cart checkout already in progress").
		WithDetails(map[string]any{"cart_id": cartID})
}

func storeError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, ErrCartNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart session store unavailable")
}
