package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/store/audit"
	"github.com/dalemusser/campusdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_LogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	userID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()

	events := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &userID, Success: true},
		{Category: audit.CategoryAdmin, EventType: audit.EventDepartmentCreated, ActorID: &actorID, Success: true,
			Details: map[string]string{"department_name": "Library"}},
		{Category: audit.CategoryAuth, EventType: audit.EventLogout, UserID: &userID, Success: true},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	byUser, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(byUser) != 2 {
		t.Fatalf("expected 2 events for user, got %d", len(byUser))
	}
	if byUser[0].EventType != audit.EventLogout {
		t.Errorf("expected newest first, got %q", byUser[0].EventType)
	}

	admin, _ := store.Query(ctx, audit.QueryFilter{Category: audit.CategoryAdmin})
	if len(admin) != 1 || admin[0].Details["department_name"] != "Library" {
		t.Errorf("unexpected admin events: %+v", admin)
	}

	recent, _ := store.GetRecent(ctx, 2)
	if len(recent) != 2 {
		t.Errorf("GetRecent(2) returned %d events", len(recent))
	}
}

func TestStore_Log_SetsDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventUserRegistered, UserID: &userID})

	got, _ := store.GetByUser(ctx, userID, 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].ID.IsZero() || got[0].Timestamp.IsZero() {
		t.Errorf("expected ID and Timestamp to be set: %+v", got[0])
	}
}
