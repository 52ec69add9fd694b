// internal/domain/models/complaint.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Complaint statuses.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusClosed     = "Closed"
)

// Statuses lists every valid complaint status in lifecycle order.
var Statuses = []string{StatusPending, StatusInProgress, StatusResolved, StatusClosed}

// IsValidStatus reports whether s is one of Statuses (exact match).
func IsValidStatus(s string) bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Complaint is a user-filed issue against a department.
//
// ActivityLog is append-only: entries are only ever added with $push in the
// same update that changes status, notes, or assignment.
type Complaint struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty"`
	UserID          primitive.ObjectID  `bson:"user"`
	DepartmentID    primitive.ObjectID  `bson:"department"`
	DepartmentName  string              `bson:"department_name"` // copied at submission; text-indexed
	Description     string              `bson:"description"`
	Image           string              `bson:"image"` // attachment reference, "" when none
	Status          string              `bson:"status"`
	ResolutionNotes string              `bson:"resolution_notes"`
	AssignedTo      *primitive.ObjectID `bson:"assigned_to"`
	SubmittedAt     time.Time           `bson:"submitted_at"`
	ActivityLog     []Activity          `bson:"activity_log"`
}

// Activity is one entry of a complaint's activity log.
// ActorID is nil for system-generated entries.
type Activity struct {
	ActorID   *primitive.ObjectID `bson:"user"`
	Action    string              `bson:"action"`
	Timestamp time.Time           `bson:"timestamp"`
}

// AuthContext identifies the caller of a domain operation.
type AuthContext struct {
	UserID primitive.ObjectID
	Role   string
}

// IsAdmin reports whether the caller holds the admin role.
func (a AuthContext) IsAdmin() bool { return a.Role == RoleAdmin }
