// internal/app/policy/complaintpolicy/complaintpolicy.go
//
// Package complaintpolicy holds the one table that says who may do what to
// complaints and departments. The gateway evaluates the role half of a rule
// before a handler runs; engines evaluate the ownership half once the
// complaint has been loaded.
package complaintpolicy

import (
	"net/http"

	uierrors "github.com/dalemusser/campusdesk/internal/app/features/errors"
	"github.com/dalemusser/campusdesk/internal/app/system/apperr"
	"github.com/dalemusser/campusdesk/internal/app/system/authz"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Op names a guarded operation.
type Op string

const (
	OpCreate       Op = "complaint.create"
	OpListMine     Op = "complaint.list_mine"
	OpListAssigned Op = "complaint.list_assigned"
	OpListAll      Op = "complaint.list_all"
	OpView         Op = "complaint.view"
	OpSetStatus    Op = "complaint.set_status"
	OpAssign       Op = "complaint.assign"
	OpResolve      Op = "complaint.resolve"
	OpDelete       Op = "complaint.delete"

	OpDepartmentCreate Op = "department.create"
	OpDepartmentList   Op = "department.list"
	OpDepartmentStaff  Op = "department.list_staff"
	OpDepartmentDelete Op = "department.delete"
)

// Subject is the part of a complaint ownership predicates look at.
type Subject struct {
	OwnerID    primitive.ObjectID
	AssignedTo *primitive.ObjectID
}

// SubjectOf extracts the ownership fields of c.
func SubjectOf(c *models.Complaint) Subject {
	return Subject{OwnerID: c.UserID, AssignedTo: c.AssignedTo}
}

// Rule is one row of the table. Roles empty means any signed-in user.
// Owns, when set, must also hold for the loaded complaint.
type Rule struct {
	Roles  []string
	Owns   func(actor models.AuthContext, s Subject) bool
	Denied string // message for a failed check
}

func isOwner(a models.AuthContext, s Subject) bool {
	return a.UserID == s.OwnerID
}

func isAssignee(a models.AuthContext, s Subject) bool {
	return s.AssignedTo != nil && *s.AssignedTo == a.UserID
}

var adminOnly = []string{models.RoleAdmin}

var errSignedOut = apperr.Unauthenticated("Not authenticated")

// Rules is the authorization table.
var Rules = map[Op]Rule{
	OpCreate:       {},
	OpListMine:     {},
	OpListAssigned: {},
	OpListAll:      {Roles: adminOnly, Denied: "Not authorized as an admin"},
	OpView: {
		Owns: func(a models.AuthContext, s Subject) bool {
			return a.IsAdmin() || isOwner(a, s) || isAssignee(a, s)
		},
		Denied: "Not authorized to view this complaint",
	},
	OpSetStatus: {Roles: adminOnly, Denied: "Not authorized as an admin"},
	OpAssign:    {Roles: adminOnly, Denied: "Not authorized as an admin"},
	OpResolve: {
		Owns:   isAssignee,
		Denied: "You are not assigned to this complaint",
	},
	OpDelete: {
		Owns: func(a models.AuthContext, s Subject) bool {
			return a.IsAdmin() || isOwner(a, s)
		},
		Denied: "Not authorized to delete this complaint",
	},

	OpDepartmentCreate: {Roles: adminOnly, Denied: "Not authorized as an admin"},
	OpDepartmentList:   {},
	OpDepartmentStaff:  {Roles: adminOnly, Denied: "Not authorized as an admin"},
	OpDepartmentDelete: {Roles: adminOnly, Denied: "Not authorized as an admin"},
}

func lookup(op Op) Rule {
	rule, ok := Rules[op]
	if !ok {
		// Unknown operations are denied to everyone but admins.
		return Rule{Roles: adminOnly, Denied: "Access denied"}
	}
	if rule.Denied == "" {
		rule.Denied = "Access denied"
	}
	return rule
}

func roleAllowed(rule Rule, role string) bool {
	if len(rule.Roles) == 0 {
		return true
	}
	for _, r := range rule.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CheckRole reports whether actor's role passes op's role requirement.
func CheckRole(op Op, actor models.AuthContext) error {
	rule := lookup(op)
	if !roleAllowed(rule, actor.Role) {
		return apperr.Forbidden(rule.Denied)
	}
	return nil
}

// Check evaluates the full rule for op against a loaded complaint.
func Check(op Op, actor models.AuthContext, s Subject) error {
	if err := CheckRole(op, actor); err != nil {
		return err
	}
	rule := lookup(op)
	if rule.Owns != nil && !rule.Owns(actor, s) {
		return apperr.Forbidden(rule.Denied)
	}
	return nil
}

// Require is middleware enforcing the role half of op's rule:
// 401 when signed out, 403 when the role does not qualify.
func Require(op Op) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := authz.Actor(r)
			if !ok {
				uierrors.Write(w, errSignedOut)
				return
			}
			if err := CheckRole(op, actor); err != nil {
				uierrors.Write(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
