package complaints_test

import (
	"context"
	"sort"
	"strings"
	"sync"

	complaintstore "github.com/dalemusser/campusdesk/internal/app/store/complaints"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// memComplaints is an in-memory complaint store with the same guard
// semantics as the Mongo store.
type memComplaints struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.Complaint
}

func newMemComplaints() *memComplaints {
	return &memComplaints{docs: map[primitive.ObjectID]models.Complaint{}}
}

func copyComplaint(c models.Complaint) models.Complaint {
	c.ActivityLog = append([]models.Activity(nil), c.ActivityLog...)
	if c.AssignedTo != nil {
		id := *c.AssignedTo
		c.AssignedTo = &id
	}
	return c
}

func sameObjectID(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (m *memComplaints) Insert(_ context.Context, c models.Complaint) (models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.ActivityLog == nil {
		c.ActivityLog = []models.Activity{}
	}
	m.docs[c.ID] = copyComplaint(c)
	return c, nil
}

func (m *memComplaints) GetByID(_ context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	c = copyComplaint(c)
	return &c, nil
}

func (m *memComplaints) ApplyChange(_ context.Context, id primitive.ObjectID, g complaintstore.Guard, ch complaintstore.Change, entries []models.Activity) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[id]
	if !ok || c.Status != g.Status || c.ResolutionNotes != g.ResolutionNotes || !sameObjectID(c.AssignedTo, g.AssignedTo) {
		return false, nil
	}
	if ch.Status != nil {
		c.Status = *ch.Status
	}
	if ch.ResolutionNotes != nil {
		c.ResolutionNotes = *ch.ResolutionNotes
	}
	if ch.AssignedTo != nil {
		a := *ch.AssignedTo
		c.AssignedTo = &a
	}
	c.ActivityLog = append(c.ActivityLog, entries...)
	m.docs[id] = c
	return true, nil
}

func (m *memComplaints) Delete(_ context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	delete(m.docs, id)
	return &c, nil
}

func (m *memComplaints) List(_ context.Context, f complaintstore.Filter) ([]models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Complaint{}
	for _, c := range m.docs {
		if f.UserID != nil && c.UserID != *f.UserID {
			continue
		}
		if f.AssignedTo != nil && !sameObjectID(c.AssignedTo, f.AssignedTo) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Description+" "+c.DepartmentName), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, copyComplaint(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (m *memComplaints) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

type memUsers map[primitive.ObjectID]models.User

func (m memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &u, nil
}

func (m memUsers) EmailsByID(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := map[primitive.ObjectID]string{}
	for _, id := range ids {
		if u, ok := m[id]; ok {
			out[id] = u.Email
		}
	}
	return out, nil
}

type memDepartments map[primitive.ObjectID]models.Department

func (m memDepartments) GetByID(_ context.Context, id primitive.ObjectID) (*models.Department, error) {
	d, ok := m[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &d, nil
}

func (m memDepartments) NamesByID(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := map[primitive.ObjectID]string{}
	for _, id := range ids {
		if d, ok := m[id]; ok {
			out[id] = d.Name
		}
	}
	return out, nil
}
