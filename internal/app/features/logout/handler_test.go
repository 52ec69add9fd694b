package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/campusdesk/internal/app/features/logout"
	"github.com/dalemusser/campusdesk/internal/app/system/auth"
	"github.com/dalemusser/campusdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// signedIn returns a request carrying the cookie of a freshly signed-in session.
func signedIn(t *testing.T, sm *auth.SessionManager) *http.Request {
	t.Helper()
	rec := testutil.NewRecorder()
	u := auth.SessionUser{ID: primitive.NewObjectID().Hex(), Email: "stu@campus.edu", Role: "user"}
	if err := sm.SignIn(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil), u); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	c := testutil.SessionCookie(rec)
	if c == nil {
		t.Fatal("SignIn did not set a cookie")
	}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(c)
	return auth.WithTestUser(req, &u)
}

func TestHandleLogout_DestroysSession(t *testing.T) {
	sm, backend := testutil.NewSessionManager(t)
	h := logout.NewHandler(sm, nil, zap.NewNop())

	req := signedIn(t, sm)
	if backend.Len() != 1 {
		t.Fatalf("expected 1 session before logout, got %d", backend.Len())
	}

	rec := testutil.NewRecorder()
	h.HandleLogout(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Logged out successfully")
	if backend.Len() != 0 {
		t.Errorf("expected session removed, %d left", backend.Len())
	}
	c := testutil.SessionCookie(rec)
	if c == nil || c.MaxAge >= 0 {
		t.Errorf("expected expired session cookie, got %+v", c)
	}
}

func TestRoutes_RequireSession(t *testing.T) {
	sm, _ := testutil.NewSessionManager(t)
	r := logout.Routes(logout.NewHandler(sm, nil, zap.NewNop()), sm)

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
