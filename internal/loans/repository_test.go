package loans

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/librarydesk-backend/pkg/db"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCreateAndUpdate(t *testing.T) {
	conn, _ := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	book := dbtest.MustCreateBook(t, conn, "Dune", 1, 1)
	member := dbtest.MustCreateMember(t, conn, enums.MemberRoleRegular, 0)

	loan := &models.Loan{
		BookID:     book.ID,
		MemberID:   member.ID,
		BorrowDate: now,
		DueDate:    now.AddDate(0, 0, 14),
		Status:     enums.LoanStatusBorrowed,
		Book:       book,
	}
	require.NoError(t, repo.Create(ctx, loan))
	require.NotEqual(t, uuid.Nil, loan.ID)

	var books int64
	require.NoError(t, conn.Model(&models.Book{}).Count(&books).Error)
	assert.EqualValues(t, 1, books, "associations must not be upserted")

	returned := now.AddDate(0, 0, 3)
	loan.ReturnDate = &returned
	loan.Status = enums.LoanStatusReturned
	require.NoError(t, repo.Update(ctx, loan))

	found, err := repo.FindByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LoanStatusReturned, found.Status)
	require.NotNil(t, found.ReturnDate)
	assert.True(t, found.ReturnDate.Equal(returned))
	require.NotNil(t, found.Book)
	assert.Equal(t, "Dune", found.Book.Title)

	assert.True(t, db.IsNotFound(repo.Update(ctx, &models.Loan{ID: uuid.New()})))
}

func TestRepositoryListings(t *testing.T) {
	conn, _ := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

	book := dbtest.MustCreateBook(t, conn, "Emma", 5, 2)
	member := dbtest.MustCreateMember(t, conn, enums.MemberRoleRegular, 2)
	other := dbtest.MustCreateMember(t, conn, enums.MemberRoleRegular, 1)

	overdue := dbtest.MustCreateLoan(t, conn, book.ID, member.ID, now.AddDate(0, 0, -20), now.AddDate(0, 0, -6))
	current := dbtest.MustCreateLoan(t, conn, book.ID, member.ID, now.AddDate(0, 0, -1), now.AddDate(0, 0, 13))
	closed := dbtest.MustCreateLoan(t, conn, book.ID, member.ID, now.AddDate(0, 0, -30), now.AddDate(0, 0, -16))
	returnedAt := now.AddDate(0, 0, -18)
	require.NoError(t, conn.Model(closed).Updates(map[string]any{"status": enums.LoanStatusReturned, "return_date": returnedAt}).Error)
	dbtest.MustCreateLoan(t, conn, book.ID, other.ID, now.AddDate(0, 0, -2), now.AddDate(0, 0, 12))

	open, err := repo.ListOpenByMember(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, overdue.ID, open[0].ID)
	assert.Equal(t, current.ID, open[1].ID)

	all, err := repo.ListByMember(ctx, member.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, current.ID, all[0].ID)

	late, err := repo.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, overdue.ID, late[0].ID)
	require.NotNil(t, late[0].Member)
	assert.Equal(t, member.ID, late[0].Member.ID)

	count, err := repo.CountOverdue(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	window, err := repo.ListByBorrowDate(ctx, now.AddDate(0, 0, -3), now)
	require.NoError(t, err)
	assert.Len(t, window, 2)
}
