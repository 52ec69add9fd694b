package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/campusdesk/internal/app/system/auth"
	"github.com/dalemusser/campusdesk/internal/app/system/authz"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserCtx_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)

	role, email, uid, ok := authz.UserCtx(req)
	if ok || role != "visitor" || email != "" || uid != primitive.NilObjectID {
		t.Errorf("UserCtx() = %q, %q, %v, %v; want visitor defaults", role, email, uid, ok)
	}
}

func TestUserCtx_MalformedID_FailsClosed(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "not-an-id", Role: "admin"})

	if _, _, _, ok := authz.UserCtx(req); ok {
		t.Error("expected ok=false for malformed user id")
	}
	if _, ok := authz.Actor(req); ok {
		t.Error("malformed session must not yield an actor")
	}
}

func TestActor(t *testing.T) {
	id := primitive.NewObjectID()
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: id.Hex(), Email: "s@campus.edu", Role: "Staff"})

	actor, ok := authz.Actor(req)
	if !ok {
		t.Fatal("expected actor")
	}
	if actor.UserID != id {
		t.Errorf("UserID = %v, want %v", actor.UserID, id)
	}
	if actor.Role != models.RoleStaff {
		t.Errorf("Role = %q, want lowercased staff", actor.Role)
	}
}
