// Package dbtest opens throwaway sqlite databases carrying the circulation
// schema for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/librarydesk-backend/pkg/db"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database and a client wrapping it.
func Open(t testing.TB) (*gorm.DB, *db.Client) {
	t.Helper()
	dsn := "file:ld_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(&models.Book{}, &models.Member{}, &models.Loan{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return conn, db.NewFromConn(conn)
}

// MustCreateBook inserts a book with the given counters.
func MustCreateBook(t testing.TB, conn *gorm.DB, title string, total, available int) *models.Book {
	t.Helper()
	book := &models.Book{
		ISBN:            fmt.Sprintf("978-%s", uuid.NewString()[:8]),
		Title:           title,
		Author:          "Author of " + title,
		TotalCopies:     total,
		AvailableCopies: available,
	}
	if err := conn.Create(book).Error; err != nil {
		t.Fatalf("create book: %v", err)
	}
	return book
}

// MustCreateMember inserts an active member with the given role and count.
func MustCreateMember(t testing.TB, conn *gorm.DB, role enums.MemberRole, borrowed int) *models.Member {
	t.Helper()
	member := &models.Member{
		Name:          "Member " + uuid.NewString()[:6],
		Email:         fmt.Sprintf("m_%s@example.com", uuid.NewString()),
		Phone:         "555-0100",
		Role:          role,
		Status:        enums.MemberStatusActive,
		JoinDate:      time.Now().UTC(),
		BorrowedCount: borrowed,
	}
	if err := conn.Create(member).Error; err != nil {
		t.Fatalf("create member: %v", err)
	}
	return member
}

// MustCreateLoan inserts an open loan without touching the counters.
func MustCreateLoan(t testing.TB, conn *gorm.DB, bookID, memberID uuid.UUID, borrowed, due time.Time) *models.Loan {
	t.Helper()
	loan := &models.Loan{
		BookID:     bookID,
		MemberID:   memberID,
		BorrowDate: borrowed,
		DueDate:    due,
		Status:     enums.LoanStatusBorrowed,
	}
	if err := conn.Create(loan).Error; err != nil {
		t.Fatalf("create loan: %v", err)
	}
	return loan
}
