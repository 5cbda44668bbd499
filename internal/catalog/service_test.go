package catalog

import (
	"context"
	"testing"

	"github.com/angelmondragon/librarydesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	svc, repo, _ := newTestServiceConn(t)
	return svc, repo
}

func newTestServiceConn(t *testing.T) (Service, *Repository, *gorm.DB) {
	t.Helper()
	conn, client := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, client)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, conn
}

func intPtr(v int) *int { return &v }

func TestCreateAppliesCopyDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	book, err := svc.Create(ctx, CreateBookInput{ISBN: "111", Title: " Dune ", Author: "Herbert", Price: decimal.RequireFromString("12.50")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if book.Title != "Dune" || book.TotalCopies != 1 || book.AvailableCopies != 1 {
		t.Fatalf("unexpected defaults %+v", book)
	}
	if book.Status != enums.BookAvailabilityFull {
		t.Fatalf("expected fully available, got %s", book.Status)
	}

	multi, err := svc.Create(ctx, CreateBookInput{ISBN: "222", Title: "Emma", Author: "Austen", TotalCopies: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if multi.AvailableCopies != 4 {
		t.Fatalf("expected available to default to total, got %d", multi.AvailableCopies)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateBookInput{Title: "No ISBN", Author: "Anon"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = svc.Create(ctx, CreateBookInput{ISBN: "1", Title: "T", Author: "A", TotalCopies: 2, AvailableCopies: 3})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected counter validation error, got %v", err)
	}
	_, err = svc.Create(ctx, CreateBookInput{ISBN: "1", Title: "T", Author: "A", Price: decimal.NewFromInt(-1)})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected price validation error, got %v", err)
	}

	if _, err := svc.Create(ctx, CreateBookInput{ISBN: "dup", Title: "T", Author: "A"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = svc.Create(ctx, CreateBookInput{ISBN: "dup", Title: "T2", Author: "A2"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected isbn conflict, got %v", err)
	}
}

func TestUpdateEnforcesCounters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	book, _ := svc.Create(ctx, CreateBookInput{ISBN: "333", Title: "Ulysses", Author: "Joyce", TotalCopies: 2})

	_, err := svc.Update(ctx, book.ID, UpdateBookInput{AvailableCopies: intPtr(5)})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	genre := "Modernist"
	updated, err := svc.Update(ctx, book.ID, UpdateBookInput{TotalCopies: intPtr(5), AvailableCopies: intPtr(3), Genre: &genre})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalCopies != 5 || updated.AvailableCopies != 3 || *updated.Genre != "Modernist" {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if updated.Status != enums.BookAvailabilityPartial {
		t.Fatalf("expected partial availability, got %s", updated.Status)
	}

	if _, err := svc.Update(ctx, uuid.New(), UpdateBookInput{}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateKeepsCopiesOnLoan(t *testing.T) {
	svc, _, conn := newTestServiceConn(t)
	ctx := context.Background()
	book := dbtest.MustCreateBook(t, conn, "Middlemarch", 3, 1)

	if _, err := svc.Update(ctx, book.ID, UpdateBookInput{TotalCopies: intPtr(1)}); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict shrinking below loans, got %v", err)
	}
	if _, err := svc.Update(ctx, book.ID, UpdateBookInput{AvailableCopies: intPtr(2)}); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict shelving loaned copies, got %v", err)
	}

	updated, err := svc.Update(ctx, book.ID, UpdateBookInput{TotalCopies: intPtr(4)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalCopies != 4 || updated.AvailableCopies != 2 {
		t.Fatalf("expected 2/4 after adding a copy, got %d/%d", updated.AvailableCopies, updated.TotalCopies)
	}
}

func TestUpdateDetailsLeavesConcurrentCountsAlone(t *testing.T) {
	svc, repo, conn := newTestServiceConn(t)
	ctx := context.Background()
	book := dbtest.MustCreateBook(t, conn, "Persuasion", 2, 2)

	fired := false
	err := conn.Callback().Query().After("gorm:query").Register("test:concurrent_checkout", func(d *gorm.DB) {
		if fired || d.Statement.Table != "books" {
			return
		}
		fired = true
		d.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE books SET available_copies = 1 WHERE id = ?", book.ID)
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	title := "Persuasion (Annotated)"
	updated, err := svc.Update(ctx, book.ID, UpdateBookInput{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !fired {
		t.Fatal("expected a checkout to land between read and write")
	}
	if updated.Title != title {
		t.Fatalf("expected new title, got %q", updated.Title)
	}

	stored, err := repo.FindByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.AvailableCopies != 1 || stored.TotalCopies != 2 {
		t.Fatalf("expected counters 1/2 to survive the title edit, got %d/%d", stored.AvailableCopies, stored.TotalCopies)
	}
	if stored.Title != title {
		t.Fatalf("expected stored title %q, got %q", title, stored.Title)
	}
}

func TestDeleteBlockedWhileCopiesOut(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	book, _ := svc.Create(ctx, CreateBookInput{ISBN: "444", Title: "Out", Author: "A", TotalCopies: 2})

	model, _ := repo.FindByID(ctx, book.ID)
	model.AvailableCopies = 1
	if err := repo.UpdateCounts(ctx, model); err != nil {
		t.Fatalf("update counts: %v", err)
	}

	err := svc.Delete(ctx, book.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	model.AvailableCopies = 2
	if err := repo.UpdateCounts(ctx, model); err != nil {
		t.Fatalf("update counts: %v", err)
	}
	if err := svc.Delete(ctx, book.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, book.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestSearchRejectsBadCursor(t *testing.T) {
	svc, _ := newTestService(t)
	params := SearchParams{}
	params.Pagination.Cursor = "not-base64!!"
	if _, err := svc.Search(context.Background(), params); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
