package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/librarydesk-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestBooksMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_books"), []string{
		"CREATE TABLE IF NOT EXISTS books",
		"CONSTRAINT books_isbn_key UNIQUE (isbn)",
		"CHECK (total_copies >= 1)",
		"CHECK (available_copies >= 0)",
		"CHECK (available_copies <= total_copies)",
		"DROP TABLE IF EXISTS books",
	})
}

func TestMembersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_members"), []string{
		"CREATE TABLE IF NOT EXISTS members",
		"CONSTRAINT members_email_key UNIQUE (email)",
		"CHECK (borrowed_count >= 0)",
		"CHECK (role IN ('REGULAR', 'PREMIUM', 'ADMIN'))",
		"DROP TABLE IF EXISTS members",
	})
}

func TestLoansMigrationContainsForeignKeys(t *testing.T) {
	assertContains(t, readMigration(t, "create_loans"), []string{
		"CREATE TABLE IF NOT EXISTS loans",
		"FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE RESTRICT",
		"FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE RESTRICT",
		"CREATE INDEX IF NOT EXISTS loans_member_open_idx",
		"DROP TABLE IF EXISTS loans",
	})
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	count, err := migrate.ValidateDir("migrations")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if count < 3 {
		t.Fatalf("expected at least 3 migrations, got %d", count)
	}
}
