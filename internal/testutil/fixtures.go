package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/campusdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// TestPassword is the plaintext password of every user created by CreateUser.
const TestPassword = "password123"

// CreateUser inserts a user with the given email and role and
// password TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, email, role string) models.User {
	f.t.Helper()

	// Minimum cost keeps fixture setup fast.
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateStudent creates a user with role "user".
func (f *Fixtures) CreateStudent(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, email, models.RoleUser)
}

// CreateStaff creates a user with role "staff".
func (f *Fixtures) CreateStaff(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, email, models.RoleStaff)
}

// CreateAdmin creates a user with role "admin".
func (f *Fixtures) CreateAdmin(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, email, models.RoleAdmin)
}

// CreateDepartment inserts a department with the given name.
func (f *Fixtures) CreateDepartment(ctx context.Context, name string) models.Department {
	f.t.Helper()

	d := models.Department{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("departments").InsertOne(ctx, d); err != nil {
		f.t.Fatalf("failed to create test department: %v", err)
	}
	return d
}

// CreateComplaint inserts a Pending complaint owned by owner against dept,
// with a single "Complaint submitted" log entry.
func (f *Fixtures) CreateComplaint(ctx context.Context, owner models.User, dept models.Department, description string) models.Complaint {
	f.t.Helper()

	now := time.Now().UTC()
	ownerID := owner.ID
	c := models.Complaint{
		ID:             primitive.NewObjectID(),
		UserID:         owner.ID,
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		Description:    description,
		Status:         models.StatusPending,
		SubmittedAt:    now,
		ActivityLog: []models.Activity{
			{ActorID: &ownerID, Action: "Complaint submitted", Timestamp: now},
		},
	}
	if _, err := f.db.Collection("complaints").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test complaint: %v", err)
	}
	return c
}
