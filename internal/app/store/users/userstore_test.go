package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/campusdesk/internal/app/store/users"
	"github.com/dalemusser/campusdesk/internal/app/system/indexes"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"github.com/dalemusser/campusdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, "  Student@Campus.EDU ", "hash")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Email != "student@campus.edu" {
		t.Errorf("expected normalized email, got %q", created.Email)
	}
	if created.Role != models.RoleUser {
		t.Errorf("expected role %q, got %q", models.RoleUser, created.Role)
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := userstore.New(db)

	if _, err := store.Create(ctx, "dup@campus.edu", "hash"); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, "DUP@campus.edu", "hash")
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_GetByEmail_CaseInsensitive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.Create(ctx, "lookup@campus.edu", "hash")

	got, err := store.GetByEmail(ctx, "LOOKUP@Campus.edu")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got id %v, want %v", got.ID, created.ID)
	}

	_, err = store.GetByEmail(ctx, "nobody@campus.edu")
	if err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments, got %v", err)
	}
}

func TestStore_SetRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.Create(ctx, "promote@campus.edu", "hash")

	if err := store.SetRole(ctx, "promote@campus.edu", "STAFF"); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	got, _ := store.GetByID(ctx, created.ID)
	if got.Role != models.RoleStaff {
		t.Errorf("expected role staff, got %q", got.Role)
	}

	if err := store.SetRole(ctx, "promote@campus.edu", "superuser"); err == nil {
		t.Error("expected error for unknown role")
	}
	if err := store.SetRole(ctx, "missing@campus.edu", "admin"); err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments, got %v", err)
	}
}

func TestStore_ListByRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateStaff(ctx, "zoe@campus.edu")
	fixtures.CreateStaff(ctx, "amir@campus.edu")
	fixtures.CreateStudent(ctx, "sam@campus.edu")

	staff, err := store.ListByRole(ctx, models.RoleStaff)
	if err != nil {
		t.Fatalf("ListByRole failed: %v", err)
	}
	if len(staff) != 2 {
		t.Fatalf("expected 2 staff, got %d", len(staff))
	}
	if staff[0].Email != "amir@campus.edu" || staff[1].Email != "zoe@campus.edu" {
		t.Errorf("expected staff sorted by email, got %q, %q", staff[0].Email, staff[1].Email)
	}
	if staff[0].PasswordHash != "" {
		t.Error("expected password hash to be projected out")
	}
}

func TestStore_EmailsByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateStudent(ctx, "a@campus.edu")
	b := fixtures.CreateStaff(ctx, "b@campus.edu")
	missing := primitive.NewObjectID()

	got, err := store.EmailsByID(ctx, []primitive.ObjectID{a.ID, b.ID, missing})
	if err != nil {
		t.Fatalf("EmailsByID failed: %v", err)
	}
	if got[a.ID] != "a@campus.edu" || got[b.ID] != "b@campus.edu" {
		t.Errorf("unexpected emails: %v", got)
	}
	if _, ok := got[missing]; ok {
		t.Error("missing id should not be in result")
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	staff := fixtures.CreateStaff(ctx, "fetch@campus.edu")
	f := userstore.NewFetcher(db)

	su := f.FetchUser(ctx, staff.ID.Hex())
	if su == nil {
		t.Fatal("expected user, got nil")
	}
	if su.Role != models.RoleStaff || su.Email != "fetch@campus.edu" {
		t.Errorf("unexpected session user: %+v", su)
	}

	if f.FetchUser(ctx, "not-an-id") != nil {
		t.Error("expected nil for malformed id")
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("expected nil for unknown id")
	}
}
