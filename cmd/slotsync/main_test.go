package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/slotsync/internal/application"
	"github.com/example/slotsync/internal/config"
	"github.com/example/slotsync/internal/persistence"
	"github.com/example/slotsync/internal/persistence/memory"
)

func configWithDSN(dsn string) config.Config {
	return config.Config{SQLiteDSN: dsn}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testTime = time.Date(2024, time.May, 6, 9, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, store *memory.Storage, id, handle string) {
	t.Helper()
	err := store.CreateUser(context.Background(), persistence.User{
		ID:             id,
		ExternalHandle: handle,
		FirstName:      "Test",
		CreatedAt:      testTime,
		UpdatedAt:      testTime,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func seedProject(t *testing.T, store *memory.Storage, id string, memberIDs ...string) {
	t.Helper()
	err := store.CreateProject(context.Background(), persistence.Project{
		ID:        id,
		Name:      "Project " + id,
		MemberIDs: memberIDs,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	})
	if err != nil {
		t.Fatalf("seed project %s: %v", id, err)
	}
}

func TestUserDirectoryAdapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.Open()
	adapter := newUserDirectoryAdapter(store)

	created, err := adapter.CreateUser(ctx, application.User{
		ID:             "u1",
		ExternalHandle: "handle-1",
		FirstName:      "Aki",
		LanguageTag:    "ja",
		CreatedAt:      testTime,
		UpdatedAt:      testTime,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.ExternalHandle != "handle-1" {
		t.Fatalf("unexpected handle %q", created.ExternalHandle)
	}

	byHandle, err := adapter.GetUserByHandle(ctx, "handle-1")
	if err != nil {
		t.Fatalf("GetUserByHandle: %v", err)
	}
	if byHandle.ID != "u1" {
		t.Fatalf("expected u1, got %q", byHandle.ID)
	}

	created.FirstName = "Aki-updated"
	updated, err := adapter.UpdateUser(ctx, created)
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.FirstName != "Aki-updated" {
		t.Fatalf("expected refreshed first name, got %q", updated.FirstName)
	}
}

func TestProjectDirectoryAdapterDescriptionMapping(t *testing.T) {
	ctx := context.Background()
	store := memory.Open()
	seedUser(t, store, "u1", "h1")
	adapter := newProjectDirectoryAdapter(store)

	created, err := adapter.CreateProject(ctx, application.Project{
		ID:          "p1",
		Name:        "Band",
		Description: "Rehearsals",
		MemberIDs:   []string{"u1"},
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if created.Description != "Rehearsals" {
		t.Fatalf("expected description to survive, got %q", created.Description)
	}

	listed, err := adapter.ListProjectsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListProjectsForUser: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "p1" {
		t.Fatalf("unexpected listing %+v", listed)
	}

	none, err := adapter.ListProjectsForUser(ctx, "u2")
	if err != nil {
		t.Fatalf("ListProjectsForUser: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for memberless user, got %+v", none)
	}
}

func TestDirectoryLookupAdapterReportsExistence(t *testing.T) {
	ctx := context.Background()
	store := memory.Open()
	seedUser(t, store, "u1", "h1")
	seedProject(t, store, "p1", "u1")
	lookup := newDirectoryLookupAdapter(store, store)

	if ok, err := lookup.UserExists(ctx, "u1"); err != nil || !ok {
		t.Fatalf("expected u1 to exist, got ok=%v err=%v", ok, err)
	}
	if ok, err := lookup.UserExists(ctx, "ghost"); err != nil || ok {
		t.Fatalf("expected ghost to be absent, got ok=%v err=%v", ok, err)
	}
	if ok, err := lookup.ProjectExists(ctx, "p1"); err != nil || !ok {
		t.Fatalf("expected p1 to exist, got ok=%v err=%v", ok, err)
	}
	if ok, err := lookup.ProjectExists(ctx, "ghost"); err != nil || ok {
		t.Fatalf("expected ghost project to be absent, got ok=%v err=%v", ok, err)
	}
}

func TestTimeslotRepositoryAdapterPreservesBatchOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.Open()
	seedUser(t, store, "u1", "h1")
	seedProject(t, store, "p1", "u1")
	adapter := newTimeslotRepositoryAdapter(store)

	batch := []application.TimeSlot{
		{ID: "t2", ProjectID: "p1", UserID: "u1", CreatedBy: "u1", Start: testTime.Add(time.Hour), End: testTime.Add(2 * time.Hour), Status: application.StatusBusy, CreatedAt: testTime, UpdatedAt: testTime},
		{ID: "t1", ProjectID: "p1", UserID: "u1", CreatedBy: "u1", Start: testTime, End: testTime.Add(time.Hour), Status: application.StatusAvailable, Notes: "standup", CreatedAt: testTime, UpdatedAt: testTime},
	}
	created, err := adapter.CreateTimeslots(ctx, batch)
	if err != nil {
		t.Fatalf("CreateTimeslots: %v", err)
	}
	if len(created) != 2 || created[0].ID != "t2" || created[1].ID != "t1" {
		t.Fatalf("expected input order back, got %+v", created)
	}
	if created[1].Notes != "standup" {
		t.Fatalf("expected notes to round trip, got %q", created[1].Notes)
	}

	merged := created[0]
	merged.ID = "t3"
	merged.End = testTime.Add(3 * time.Hour)
	replaced, err := adapter.ReplaceTimeslots(ctx, []string{"t1", "t2"}, merged)
	if err != nil {
		t.Fatalf("ReplaceTimeslots: %v", err)
	}
	if replaced.ID != "t3" {
		t.Fatalf("expected merged slot t3, got %q", replaced.ID)
	}

	remaining, err := adapter.ListTimeslots(ctx, application.TimeslotFilter{ProjectID: "p1"})
	if err != nil {
		t.Fatalf("ListTimeslots: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "t3" {
		t.Fatalf("expected only the merged slot, got %+v", remaining)
	}
}

func TestOpenStorageFallsBackToMemory(t *testing.T) {
	repos, closeStorage, err := openStorage(configWithDSN(""), discardLogger())
	if err != nil {
		t.Fatalf("openStorage: %v", err)
	}
	defer closeStorage()

	if repos.users == nil || repos.projects == nil || repos.timeslots == nil {
		t.Fatal("expected all repositories to be wired")
	}
}
