package loans

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/librarydesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fixture struct {
	svc  *service
	conn *gorm.DB
	repo *Repository
	now  time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn, client := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, client, 7)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	impl := svc.(*service)
	impl.now = func() time.Time { return now }
	return fixture{svc: impl, conn: conn, repo: repo, now: now}
}

func TestNewServiceValidation(t *testing.T) {
	conn, client := dbtest.Open(t)
	if _, err := NewService(nil, client, 7); err == nil {
		t.Fatalf("expected repo error")
	}
	if _, err := NewService(NewRepository(conn), nil, 7); err == nil {
		t.Fatalf("expected tx error")
	}
	if _, err := NewService(NewRepository(conn), client, 0); err == nil {
		t.Fatalf("expected renewal days error")
	}
}

func TestRenewExtendsDueDateAndAppendsRemarks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := dbtest.MustCreateBook(t, f.conn, "Dune", 1, 0)
	member := dbtest.MustCreateMember(t, f.conn, enums.MemberRoleRegular, 1)
	due := f.now.AddDate(0, 0, 3)
	loan := dbtest.MustCreateLoan(t, f.conn, book.ID, member.ID, f.now.AddDate(0, 0, -11), due)

	renewed, err := f.svc.Renew(ctx, loan.ID, 0)
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if !renewed.DueDate.Equal(due.AddDate(0, 0, 7)) {
		t.Fatalf("expected due date pushed by 7 days, got %s", renewed.DueDate)
	}
	if renewed.Remarks == nil || *renewed.Remarks != "Renewed for 7 days on 2026-05-04" {
		t.Fatalf("unexpected remarks %v", renewed.Remarks)
	}

	renewed, err = f.svc.Renew(ctx, loan.ID, 3)
	if err != nil {
		t.Fatalf("second renew: %v", err)
	}
	want := "Renewed for 7 days on 2026-05-04; Renewed for 3 days on 2026-05-04"
	if *renewed.Remarks != want {
		t.Fatalf("unexpected remarks %q", *renewed.Remarks)
	}

	stored, _ := f.repo.FindByID(ctx, loan.ID)
	if !stored.DueDate.Equal(due.AddDate(0, 0, 10)) {
		t.Fatalf("expected stored due date to be extended, got %s", stored.DueDate)
	}
}

func TestRenewRejectsOverdueAndReturnedLoans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := dbtest.MustCreateBook(t, f.conn, "Emma", 2, 0)
	member := dbtest.MustCreateMember(t, f.conn, enums.MemberRoleRegular, 2)

	late := dbtest.MustCreateLoan(t, f.conn, book.ID, member.ID, f.now.AddDate(0, 0, -20), f.now.AddDate(0, 0, -1))
	_, err := f.svc.Renew(ctx, late.ID, 5)
	if !errors.Is(err, ErrLoanOverdue) || !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected overdue rejection, got %v", err)
	}

	done := dbtest.MustCreateLoan(t, f.conn, book.ID, member.ID, f.now.AddDate(0, 0, -5), f.now.AddDate(0, 0, 9))
	returned := f.now
	if err := f.conn.Model(&models.Loan{}).Where("id = ?", done.ID).
		Updates(map[string]any{"status": enums.LoanStatusReturned, "return_date": returned}).Error; err != nil {
		t.Fatalf("mark returned: %v", err)
	}
	if _, err := f.svc.Renew(ctx, done.ID, 5); !errors.Is(err, ErrNotRenewable) {
		t.Fatalf("expected not renewable, got %v", err)
	}

	if _, err := f.svc.Renew(ctx, uuid.New(), 5); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Renew(ctx, late.ID, -1); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListQueriesReportDisplayStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := dbtest.MustCreateBook(t, f.conn, "Ulysses", 3, 1)
	member := dbtest.MustCreateMember(t, f.conn, enums.MemberRoleRegular, 2)
	dbtest.MustCreateLoan(t, f.conn, book.ID, member.ID, f.now.AddDate(0, 0, -20), f.now.AddDate(0, 0, -6))
	dbtest.MustCreateLoan(t, f.conn, book.ID, member.ID, f.now.AddDate(0, 0, -2), f.now.AddDate(0, 0, 12))

	overdue, err := f.svc.ListOverdue(ctx)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].Status != enums.LoanStatusOverdue || overdue[0].DaysOverdue != 6 {
		t.Fatalf("unexpected overdue list %+v", overdue)
	}
	if overdue[0].BookTitle != "Ulysses" || !strings.HasPrefix(overdue[0].MemberName, "Member ") {
		t.Fatalf("expected associations on overdue list, got %+v", overdue[0])
	}

	open, err := f.svc.ListForMember(ctx, member.ID, true)
	if err != nil {
		t.Fatalf("list member: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open loans, got %d", len(open))
	}

	window, err := f.svc.ListByBorrowDate(ctx, f.now.AddDate(0, 0, -3), f.now)
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(window) != 1 || window[0].Status != enums.LoanStatusBorrowed {
		t.Fatalf("unexpected window %+v", window)
	}
	if _, err := f.svc.ListByBorrowDate(ctx, f.now, f.now.AddDate(0, 0, -1)); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}
