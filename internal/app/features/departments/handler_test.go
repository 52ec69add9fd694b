package departments_test

import (
	"net/http"
	"testing"

	departmentengine "github.com/dalemusser/campusdesk/internal/app/core/departments"
	"github.com/dalemusser/campusdesk/internal/app/features/departments"
	uierrors "github.com/dalemusser/campusdesk/internal/app/features/errors"
	"github.com/dalemusser/campusdesk/internal/app/store/audit"
	departmentstore "github.com/dalemusser/campusdesk/internal/app/store/departments"
	userstore "github.com/dalemusser/campusdesk/internal/app/store/users"
	"github.com/dalemusser/campusdesk/internal/app/system/auditlog"
	"github.com/dalemusser/campusdesk/internal/app/system/indexes"
	"github.com/dalemusser/campusdesk/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type env struct {
	router   chi.Router
	fixtures *testutil.Fixtures
	audit    *audit.Store
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	logger := zap.NewNop()
	auditStore := audit.New(db)
	engine := departmentengine.New(departmentstore.New(db, logger), userstore.New(db))
	h := departments.NewHandler(engine, uierrors.NewErrorLogger(logger),
		auditlog.New(auditStore, logger, auditlog.Config{Auth: "off", Admin: "db"}), logger)
	sm, _ := testutil.NewSessionManager(t)

	r := chi.NewRouter()
	r.Mount("/api/departments", departments.Routes(h, sm))
	return env{router: r, fixtures: testutil.NewFixtures(t, db), audit: auditStore}
}

func (e env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestCreate(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.FromModel(e.fixtures.CreateAdmin(ctx, "admin@campus.edu"))
	stu := testutil.FromModel(e.fixtures.CreateStudent(ctx, "stu@campus.edu"))

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/departments", map[string]string{"name": " Library "})
	rec := e.do(testutil.WithUser(req, admin))
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"name":"Library"`)

	req = testutil.NewJSONRequest(t, http.MethodPost, "/api/departments", map[string]string{"name": "Library"})
	rec = e.do(testutil.WithUser(req, admin))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "A department with this name already exists")

	req = testutil.NewJSONRequest(t, http.MethodPost, "/api/departments", map[string]string{"name": ""})
	e.do(testutil.WithUser(req, admin)).AssertStatus(t, http.StatusBadRequest)

	req = testutil.NewJSONRequest(t, http.MethodPost, "/api/departments", map[string]string{"name": "Hostel"})
	rec = e.do(testutil.WithUser(req, stu))
	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertContains(t, "Not authorized as an admin")

	events, err := e.audit.Query(ctx, audit.QueryFilter{EventType: audit.EventDepartmentCreated})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 || events[0].Details["department_name"] != "Library" {
		t.Errorf("expected one department_created event for Library, got %+v", events)
	}
}

func TestList_AnySignedInUser(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	stu := testutil.FromModel(e.fixtures.CreateStudent(ctx, "stu@campus.edu"))
	e.fixtures.CreateDepartment(ctx, "Sports")
	e.fixtures.CreateDepartment(ctx, "Admissions")

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/api/departments", stu))
	rec.AssertStatus(t, http.StatusOK)

	var list []departmentengine.DepartmentView
	rec.DecodeJSON(t, &list)
	if len(list) != 2 || list[0].Name != "Admissions" || list[1].Name != "Sports" {
		t.Errorf("unexpected list %+v", list)
	}

	e.do(testutil.NewRequest(http.MethodGet, "/api/departments")).AssertStatus(t, http.StatusUnauthorized)
}

func TestStaff_AdminOnly(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.FromModel(e.fixtures.CreateAdmin(ctx, "admin@campus.edu"))
	staff := testutil.FromModel(e.fixtures.CreateStaff(ctx, "zoe@campus.edu"))
	e.fixtures.CreateStaff(ctx, "abe@campus.edu")

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/api/departments/staff", admin))
	rec.AssertStatus(t, http.StatusOK)
	var list []departmentengine.UserRef
	rec.DecodeJSON(t, &list)
	if len(list) != 2 || list[0].Email != "abe@campus.edu" {
		t.Errorf("unexpected staff list %+v", list)
	}

	e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/api/departments/staff", staff)).AssertStatus(t, http.StatusForbidden)
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := e.fixtures.CreateAdmin(ctx, "admin@campus.edu")
	stu := e.fixtures.CreateStudent(ctx, "stu@campus.edu")
	used := e.fixtures.CreateDepartment(ctx, "Used")
	free := e.fixtures.CreateDepartment(ctx, "Free")
	e.fixtures.CreateComplaint(ctx, stu, used, "something")

	as := testutil.FromModel(admin)
	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodDelete, "/api/departments/"+used.ID.Hex(), as))
	rec.AssertStatus(t, http.StatusConflict)

	e.do(testutil.NewAuthenticatedRequest(http.MethodDelete, "/api/departments/"+free.ID.Hex(), as)).AssertStatus(t, http.StatusOK)
	e.do(testutil.NewAuthenticatedRequest(http.MethodDelete, "/api/departments/"+free.ID.Hex(), as)).AssertStatus(t, http.StatusNotFound)
	e.do(testutil.NewAuthenticatedRequest(http.MethodDelete, "/api/departments/"+used.ID.Hex(), testutil.FromModel(stu))).AssertStatus(t, http.StatusForbidden)
}
