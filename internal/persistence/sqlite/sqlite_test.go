package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/slotsync/internal/persistence"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()
	pool, err := NewConnectionPool(filepath.Join(t.TempDir(), "slotsync.db"))
	if err != nil {
		t.Fatalf("NewConnectionPool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func seedUser(t *testing.T, pool *ConnectionPool, id, handle string) {
	t.Helper()
	users := NewUserRepository(pool)
	err := users.CreateUser(context.Background(), persistence.User{
		ID:             id,
		ExternalHandle: handle,
		FirstName:      "Test",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func seedProject(t *testing.T, pool *ConnectionPool, id string, memberIDs ...string) {
	t.Helper()
	projects := NewProjectRepository(pool)
	err := projects.CreateProject(context.Background(), persistence.Project{
		ID:        id,
		Name:      "Project " + id,
		MemberIDs: memberIDs,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed project %s: %v", id, err)
	}
}

func slotFixture(id, projectID, userID string, start time.Time) persistence.TimeSlot {
	return persistence.TimeSlot{
		ID:        id,
		ProjectID: projectID,
		UserID:    userID,
		CreatedBy: userID,
		Start:     start,
		End:       start.Add(time.Hour),
		Status:    "available",
		Color:     "#FF6B6B",
		CreatedAt: start,
		UpdatedAt: start,
	}
}

func TestUserRepositoryRoundTrip(t *testing.T) {
	pool := newTestPool(t)
	users := NewUserRepository(pool)
	ctx := context.Background()

	created := persistence.User{
		ID:             "u1",
		ExternalHandle: "handle-1",
		FirstName:      "Ada",
		LastName:       "L",
		LanguageTag:    "en",
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := users.CreateUser(ctx, created); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := users.GetUserByHandle(ctx, "handle-1")
	if err != nil {
		t.Fatalf("GetUserByHandle: %v", err)
	}
	if got.ID != "u1" || got.FirstName != "Ada" || !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("got = %+v", got)
	}

	if _, err := users.GetUser(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("GetUser(missing) = %v, want ErrNotFound", err)
	}
}

func TestUserRepositoryDuplicateHandle(t *testing.T) {
	pool := newTestPool(t)
	users := NewUserRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, "u1", "handle-1")
	err := users.CreateUser(ctx, persistence.User{
		ID:             "u2",
		ExternalHandle: "handle-1",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestProjectMembership(t *testing.T) {
	pool := newTestPool(t)
	projects := NewProjectRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, "u1", "h1")
	seedUser(t, pool, "u2", "h2")
	seedProject(t, pool, "p1", "u1")

	if err := projects.AddMember(ctx, "p1", "u2"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	// Adding twice is a no-op.
	if err := projects.AddMember(ctx, "p1", "u2"); err != nil {
		t.Fatalf("AddMember again: %v", err)
	}

	got, err := projects.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if len(got.MemberIDs) != 2 {
		t.Errorf("members = %v", got.MemberIDs)
	}

	listed, err := projects.ListProjectsForUser(ctx, "u2")
	if err != nil {
		t.Fatalf("ListProjectsForUser: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "p1" {
		t.Errorf("listed = %+v", listed)
	}
}

func TestCreateTimeslotRejectsUnknownProject(t *testing.T) {
	pool := newTestPool(t)
	slots := NewTimeslotRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, "u1", "h1")
	err := slots.CreateTimeslots(ctx, []persistence.TimeSlot{
		slotFixture("t1", "missing", "u1", time.Now().UTC()),
	})
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Errorf("err = %v, want ErrForeignKeyViolation", err)
	}
}

func TestCreateTimeslotsBatchIsAtomic(t *testing.T) {
	pool := newTestPool(t)
	slots := NewTimeslotRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, "u1", "h1")
	seedProject(t, pool, "p1", "u1")

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	err := slots.CreateTimeslots(ctx, []persistence.TimeSlot{
		slotFixture("t1", "p1", "u1", start),
		slotFixture("t2", "missing", "u1", start.Add(2*time.Hour)),
	})
	if err == nil {
		t.Fatal("expected batch to fail")
	}

	listed, err := slots.ListTimeslots(ctx, persistence.TimeslotFilter{ProjectID: "p1"})
	if err != nil {
		t.Fatalf("ListTimeslots: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("listed = %d slots, want 0 after failed batch", len(listed))
	}
}

func TestDeleteTimeslotsAllOrNothing(t *testing.T) {
	pool := newTestPool(t)
	slots := NewTimeslotRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, "u1", "h1")
	seedProject(t, pool, "p1", "u1")
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := slots.CreateTimeslots(ctx, []persistence.TimeSlot{slotFixture("t1", "p1", "u1", start)}); err != nil {
		t.Fatalf("CreateTimeslots: %v", err)
	}

	if _, err := slots.DeleteTimeslots(ctx, []string{"t1", "missing"}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	remaining, err := slots.GetTimeslots(ctx, []string{"t1"})
	if err != nil {
		t.Fatalf("GetTimeslots: %v", err)
	}
	if len(remaining) != 1 {
		t.Error("t1 must survive a failed batch delete")
	}
}

func TestReplaceTimeslotsSwapsAtomically(t *testing.T) {
	pool := newTestPool(t)
	slots := NewTimeslotRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, "u1", "h1")
	seedProject(t, pool, "p1", "u1")
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := slots.CreateTimeslots(ctx, []persistence.TimeSlot{
		slotFixture("t1", "p1", "u1", start),
		slotFixture("t2", "p1", "u1", start.Add(2*time.Hour)),
	}); err != nil {
		t.Fatalf("CreateTimeslots: %v", err)
	}

	merged := slotFixture("t3", "p1", "u1", start)
	merged.End = start.Add(3 * time.Hour)
	if err := slots.ReplaceTimeslots(ctx, []string{"t1", "t2"}, merged); err != nil {
		t.Fatalf("ReplaceTimeslots: %v", err)
	}

	listed, err := slots.ListTimeslots(ctx, persistence.TimeslotFilter{ProjectID: "p1"})
	if err != nil {
		t.Fatalf("ListTimeslots: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "t3" {
		t.Errorf("listed = %+v, want only the merged slot", listed)
	}
}

func TestReplaceTimeslotsNeverExposesPartialState(t *testing.T) {
	pool := newTestPool(t)
	slots := NewTimeslotRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, "u1", "h1")
	seedProject(t, pool, "p1", "u1")
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := slots.CreateTimeslots(ctx, []persistence.TimeSlot{
		slotFixture("t1", "p1", "u1", start),
		slotFixture("t2", "p1", "u1", start.Add(2*time.Hour)),
	}); err != nil {
		t.Fatalf("CreateTimeslots: %v", err)
	}

	// A reader races the replace; every snapshot must hold either both
	// originals or only the merged record.
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		for {
			listed, err := slots.ListTimeslots(ctx, persistence.TimeslotFilter{ProjectID: "p1"})
			if err != nil {
				done <- err
				return
			}
			ids := make(map[string]bool, len(listed))
			for _, slot := range listed {
				ids[slot.ID] = true
			}
			switch {
			case len(listed) == 2 && ids["t1"] && ids["t2"]:
				// Still before the replace, keep sampling.
			case len(listed) == 1 && ids["t3"]:
				done <- nil
				return
			default:
				done <- fmt.Errorf("observed partial state %+v", listed)
				return
			}
		}
	}()

	<-started
	merged := slotFixture("t3", "p1", "u1", start)
	merged.End = start.Add(3 * time.Hour)
	if err := slots.ReplaceTimeslots(ctx, []string{"t1", "t2"}, merged); err != nil {
		t.Fatalf("ReplaceTimeslots: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("reader: %v", err)
	}
}

func TestListTimeslotsOrdersByStartThenID(t *testing.T) {
	pool := newTestPool(t)
	slots := NewTimeslotRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, "u1", "h1")
	seedProject(t, pool, "p1", "u1")
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	notes := "later"
	second := slotFixture("t2", "p1", "u1", start)
	second.Notes = &notes
	if err := slots.CreateTimeslots(ctx, []persistence.TimeSlot{
		slotFixture("t3", "p1", "u1", start.Add(time.Hour)),
		second,
		slotFixture("t1", "p1", "u1", start),
	}); err != nil {
		t.Fatalf("CreateTimeslots: %v", err)
	}

	listed, err := slots.ListTimeslots(ctx, persistence.TimeslotFilter{ProjectID: "p1", UserID: "u1"})
	if err != nil {
		t.Fatalf("ListTimeslots: %v", err)
	}
	gotOrder := make([]string, 0, len(listed))
	for _, slot := range listed {
		gotOrder = append(gotOrder, slot.ID)
	}
	want := []string{"t1", "t2", "t3"}
	for i := range want {
		if gotOrder[i] != want[i] {
			t.Fatalf("order = %v, want %v", gotOrder, want)
		}
	}
	if listed[1].Notes == nil || *listed[1].Notes != "later" {
		t.Errorf("notes = %v", listed[1].Notes)
	}
}
