package repo

import (
	"context"

	"github.com/angelmondragon/librarydesk-backend/pkg/db"
	"gorm.io/gorm"
)

// Base is embedded by the circulation repositories. It holds either the
// pooled connection or a transaction handle.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(conn *gorm.DB) Base {
	return Base{db: conn}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Locked returns a handle whose next read takes row locks (SELECT ... FOR UPDATE).
// It only makes sense when the Base wraps a transaction.
func (b Base) Locked(ctx context.Context) *gorm.DB {
	return db.ForUpdate(b.DB(ctx))
}

// Conn exposes the raw handle, used when rebinding to a transaction.
func (b Base) Conn() *gorm.DB {
	return b.db
}
