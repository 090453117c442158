package learner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/learner"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
)

func TestRepositories(t *testing.T) {
	backends := map[string]func(t *testing.T) learner.Repository{
		"memory": func(t *testing.T) learner.Repository {
			return learner.NewMemoryRepository()
		},
		"file": func(t *testing.T) learner.Repository {
			r, err := learner.OpenFileRepository(filepath.Join(t.TempDir(), "users.json"))
			if err != nil {
				t.Fatalf("OpenFileRepository() error = %v", err)
			}
			return r
		},
		"sqlite": func(t *testing.T) learner.Repository {
			return newSQLiteRepository(t, filepath.Join(t.TempDir(), "learn.db"))
		},
	}

	for name, newRepo := range backends {
		t.Run(name, func(t *testing.T) {
			runRepositoryContract(t, newRepo(t))
		})
	}
}

func runRepositoryContract(t *testing.T, repo learner.Repository) {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.Get(ctx, "nobody@x.com"); !errors.Is(err, learner.ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}

	u := sampleUser("A@X.com")
	if err := repo.Upsert(ctx, u); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.Get(ctx, "a@x.COM")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	assertSameUser(t, got, u)

	// Mutating the returned record must not leak into the store.
	got.ProgressFor("python").AddScore(1)
	again, _ := repo.Get(ctx, "a@x.com")
	if len(again.Progress["python"].Scores) != 2 {
		t.Errorf("stored Scores = %v, want 2 entries", again.Progress["python"].Scores)
	}

	u.Name = "Ana Updated"
	if err := repo.Upsert(ctx, u); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, sampleUser("b@x.com")); err != nil {
		t.Fatalf("Upsert(b) error = %v", err)
	}

	all, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("All() = %d users, want 2", len(all))
	}
	if all[0].Email != "a@x.com" || all[0].Name != "Ana Updated" {
		t.Errorf("All()[0] = %s/%s, want a@x.com/Ana Updated", all[0].Email, all[0].Name)
	}

	if err := repo.Upsert(ctx, &learner.User{}); err == nil {
		t.Error("Upsert() without email should fail")
	}
}

func TestFileRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")

	repo, err := learner.OpenFileRepository(path)
	if err != nil {
		t.Fatalf("OpenFileRepository() error = %v", err)
	}
	u := sampleUser("a@x.com")
	if err := repo.Upsert(ctx, u); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	reloaded, err := learner.OpenFileRepository(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	got, err := reloaded.Get(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Get() after reload error = %v", err)
	}
	inMemory, _ := repo.Get(ctx, "a@x.com")
	assertSameUser(t, got, inMemory)
}

func TestFileRepository_WriteFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "gone")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	repo, err := learner.OpenFileRepository(filepath.Join(dir, "users.json"))
	if err != nil {
		t.Fatalf("OpenFileRepository() error = %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	if err := repo.Upsert(ctx, sampleUser("a@x.com")); err == nil {
		t.Fatal("Upsert() should fail when the directory is gone")
	}
	if _, err := repo.Get(ctx, "a@x.com"); err != nil {
		t.Errorf("in-memory record lost after failed write: %v", err)
	}
}

func TestFileRepository_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	if _, err := learner.OpenFileRepository(path); err == nil {
		t.Error("OpenFileRepository() should fail on corrupt JSON")
	}
}

func TestFileRepository_DuplicateEmails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	os.WriteFile(path, []byte(`[{"email":"a@x.com"},{"email":"A@x.com"}]`), 0o644)

	if _, err := learner.OpenFileRepository(path); err == nil {
		t.Error("OpenFileRepository() should reject duplicate emails")
	}
}

func TestSQLiteRepository_RoundTripAcrossConnections(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "learn.db")

	first := newSQLiteRepository(t, path)
	u := sampleUser("a@x.com")
	if err := first.Upsert(ctx, u); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	second := newSQLiteRepository(t, path)
	got, err := second.Get(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	assertSameUser(t, got, u)
}

func newSQLiteRepository(t *testing.T, path string) *learner.SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Options{Driver: database.SQLite, Path: path})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(db.Close)

	repo, err := learner.NewSQLiteRepository(ctx, db.SQL)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	return repo
}

func sampleUser(email string) *learner.User {
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	u := learner.NewUser(email, "Ana", "$2a$04$hash", now)
	u.Enroll("python")
	u.SetLevel("python", catalog.Intermediate)
	p := u.ProgressFor("python")
	p.AddScore(6)
	p.AddScore(8)
	p.MarkCompleted("Python Basics")
	p.AddWeakTopics("loops")
	u.AddWeakTopics("Python", "loops")
	return u
}

func assertSameUser(t *testing.T, got, want *learner.User) {
	t.Helper()
	g, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	w, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(g, w) {
		t.Errorf("user mismatch\n got: %s\nwant: %s", g, w)
	}
}
