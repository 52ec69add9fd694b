// Package departmentengine manages the departments complaints are filed
// against and the staff directory admins assign from.
package departmentengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/policy/complaintpolicy"
	departmentstore "github.com/dalemusser/campusdesk/internal/app/store/departments"
	"github.com/dalemusser/campusdesk/internal/app/system/apperr"
	"github.com/dalemusser/campusdesk/internal/app/system/normalize"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DepartmentStore persists departments.
type DepartmentStore interface {
	Create(ctx context.Context, name string) (models.Department, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]models.Department, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserStore looks up users.
type UserStore interface {
	ListByRole(ctx context.Context, role string) ([]models.User, error)
	EmailsByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

// UserRef is a user reduced to id and email.
type UserRef struct {
	ID    primitive.ObjectID `json:"_id"`
	Email string             `json:"email"`
}

// DepartmentView is the JSON shape of a department.
type DepartmentView struct {
	ID        primitive.ObjectID `json:"_id"`
	Name      string             `json:"name"`
	Head      *UserRef           `json:"head"`
	CreatedAt time.Time          `json:"createdAt"`
}

type Engine struct {
	departments DepartmentStore
	users       UserStore
}

func New(departments DepartmentStore, users UserStore) *Engine {
	return &Engine{departments: departments, users: users}
}

var errDuplicate = apperr.Conflict("A department with this name already exists")

// Create adds a department. Names are trimmed and must be unique by exact match.
func (e *Engine) Create(ctx context.Context, actor models.AuthContext, name string) (DepartmentView, error) {
	if err := complaintpolicy.CheckRole(complaintpolicy.OpDepartmentCreate, actor); err != nil {
		return DepartmentView{}, err
	}
	name = normalize.Name(name)
	if name == "" {
		return DepartmentView{}, apperr.Validation("department name is required")
	}

	exists, err := e.departments.ExistsByName(ctx, name)
	if err != nil {
		return DepartmentView{}, apperr.Internal(fmt.Errorf("check department name: %w", err))
	}
	if exists {
		return DepartmentView{}, errDuplicate
	}

	d, err := e.departments.Create(ctx, name)
	if err != nil {
		// A concurrent create can still win between the check and the insert.
		if errors.Is(err, departmentstore.ErrDuplicateName) {
			return DepartmentView{}, errDuplicate
		}
		return DepartmentView{}, apperr.Internal(fmt.Errorf("create department: %w", err))
	}
	return DepartmentView{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt}, nil
}

// ListAll returns every department sorted by name, with heads resolved.
func (e *Engine) ListAll(ctx context.Context, actor models.AuthContext) ([]DepartmentView, error) {
	if err := complaintpolicy.CheckRole(complaintpolicy.OpDepartmentList, actor); err != nil {
		return nil, err
	}
	ds, err := e.departments.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list departments: %w", err))
	}

	var heads []primitive.ObjectID
	for _, d := range ds {
		if d.HeadID != nil {
			heads = append(heads, *d.HeadID)
		}
	}
	emails := map[primitive.ObjectID]string{}
	if len(heads) > 0 {
		if emails, err = e.users.EmailsByID(ctx, heads); err != nil {
			return nil, apperr.Internal(fmt.Errorf("resolve department heads: %w", err))
		}
	}

	out := make([]DepartmentView, 0, len(ds))
	for _, d := range ds {
		v := DepartmentView{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt}
		if d.HeadID != nil {
			// Weak reference: a head that no longer exists resolves to an empty email.
			v.Head = &UserRef{ID: *d.HeadID, Email: emails[*d.HeadID]}
		}
		out = append(out, v)
	}
	return out, nil
}

// ListStaff returns every staff user sorted by email.
func (e *Engine) ListStaff(ctx context.Context, actor models.AuthContext) ([]UserRef, error) {
	if err := complaintpolicy.CheckRole(complaintpolicy.OpDepartmentStaff, actor); err != nil {
		return nil, err
	}
	us, err := e.users.ListByRole(ctx, models.RoleStaff)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list staff: %w", err))
	}
	out := make([]UserRef, 0, len(us))
	for _, u := range us {
		out = append(out, UserRef{ID: u.ID, Email: u.Email})
	}
	return out, nil
}

// Delete removes a department that no complaint references.
func (e *Engine) Delete(ctx context.Context, actor models.AuthContext, rawID string) error {
	if err := complaintpolicy.CheckRole(complaintpolicy.OpDepartmentDelete, actor); err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(rawID))
	if err != nil {
		return apperr.NotFound("Department not found")
	}

	switch err := e.departments.Delete(ctx, id); {
	case err == nil:
		return nil
	case errors.Is(err, departmentstore.ErrInUse):
		return apperr.Conflict("Department has complaints and cannot be deleted")
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound("Department not found")
	default:
		return apperr.Internal(fmt.Errorf("delete department: %w", err))
	}
}
