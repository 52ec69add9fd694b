package complaintengine

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/campusdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRef is a user reduced to what clients may see.
type UserRef struct {
	ID    primitive.ObjectID `json:"_id"`
	Email string             `json:"email"`
}

// DepartmentRef is a department reduced to id and name.
type DepartmentRef struct {
	ID   primitive.ObjectID `json:"_id"`
	Name string             `json:"name"`
}

// ActivityView is one activity log entry with its actor resolved.
// User is nil for entries without an actor.
type ActivityView struct {
	User      *UserRef  `json:"user"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// ComplaintView is the JSON shape of a complaint.
type ComplaintView struct {
	ID              primitive.ObjectID `json:"_id"`
	User            UserRef            `json:"user"`
	Department      DepartmentRef      `json:"department"`
	Description     string             `json:"description"`
	Image           string             `json:"image"`
	Status          string             `json:"status"`
	ResolutionNotes string             `json:"resolutionNotes"`
	AssignedTo      *UserRef           `json:"assignedTo"`
	SubmittedAt     time.Time          `json:"submittedAt"`
	ActivityLog     []ActivityView     `json:"activityLog"`
}

// Resolver turns stored complaints into views. Each call issues at most one
// user lookup and one department lookup regardless of how many complaints
// it is given.
type Resolver struct {
	users       UserStore
	departments DepartmentStore
}

// NewResolver builds a Resolver over the given stores.
func NewResolver(users UserStore, departments DepartmentStore) *Resolver {
	return &Resolver{users: users, departments: departments}
}

// Resolve builds views for cs in order.
func (r *Resolver) Resolve(ctx context.Context, cs []models.Complaint) ([]ComplaintView, error) {
	out := make([]ComplaintView, 0, len(cs))
	if len(cs) == 0 {
		return out, nil
	}

	userSet := map[primitive.ObjectID]struct{}{}
	deptSet := map[primitive.ObjectID]struct{}{}
	for i := range cs {
		c := &cs[i]
		userSet[c.UserID] = struct{}{}
		deptSet[c.DepartmentID] = struct{}{}
		if c.AssignedTo != nil {
			userSet[*c.AssignedTo] = struct{}{}
		}
		for _, a := range c.ActivityLog {
			if a.ActorID != nil {
				userSet[*a.ActorID] = struct{}{}
			}
		}
	}

	emails, err := r.users.EmailsByID(ctx, keys(userSet))
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}
	names, err := r.departments.NamesByID(ctx, keys(deptSet))
	if err != nil {
		return nil, fmt.Errorf("resolve departments: %w", err)
	}

	for i := range cs {
		out = append(out, buildView(&cs[i], emails, names))
	}
	return out, nil
}

// ResolveOne is Resolve for a single complaint.
func (r *Resolver) ResolveOne(ctx context.Context, c *models.Complaint) (ComplaintView, error) {
	views, err := r.Resolve(ctx, []models.Complaint{*c})
	if err != nil {
		return ComplaintView{}, err
	}
	return views[0], nil
}

func buildView(c *models.Complaint, emails, names map[primitive.ObjectID]string) ComplaintView {
	deptName, ok := names[c.DepartmentID]
	if !ok {
		deptName = c.DepartmentName
	}
	v := ComplaintView{
		ID:              c.ID,
		User:            UserRef{ID: c.UserID, Email: emails[c.UserID]},
		Department:      DepartmentRef{ID: c.DepartmentID, Name: deptName},
		Description:     c.Description,
		Image:           c.Image,
		Status:          c.Status,
		ResolutionNotes: c.ResolutionNotes,
		SubmittedAt:     c.SubmittedAt,
		ActivityLog:     make([]ActivityView, 0, len(c.ActivityLog)),
	}
	if c.AssignedTo != nil {
		v.AssignedTo = &UserRef{ID: *c.AssignedTo, Email: emails[*c.AssignedTo]}
	}
	for _, a := range c.ActivityLog {
		av := ActivityView{Action: a.Action, Timestamp: a.Timestamp}
		if a.ActorID != nil {
			av.User = &UserRef{ID: *a.ActorID, Email: emails[*a.ActorID]}
		}
		v.ActivityLog = append(v.ActivityLog, av)
	}
	return v
}

func keys(set map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
