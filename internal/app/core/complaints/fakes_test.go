package complaintengine_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	complaintstore "github.com/dalemusser/campusdesk/internal/app/store/complaints"
	"github.com/dalemusser/campusdesk/internal/app/system/mailer"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeComplaints struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.Complaint

	insertErr      error
	onInsert       func() // runs before the document is stored
	applyCalls     int
	alwaysMismatch bool            // ApplyChange reports a lost race every time
	beforeApply    func(calls int) // runs without the lock held, before the guard check
}

func newFakeComplaints() *fakeComplaints {
	return &fakeComplaints{docs: map[primitive.ObjectID]models.Complaint{}}
}

func clone(c models.Complaint) models.Complaint {
	c.ActivityLog = append([]models.Activity(nil), c.ActivityLog...)
	if c.AssignedTo != nil {
		id := *c.AssignedTo
		c.AssignedTo = &id
	}
	return c
}

func (f *fakeComplaints) Insert(_ context.Context, c models.Complaint) (models.Complaint, error) {
	if f.insertErr != nil {
		return models.Complaint{}, f.insertErr
	}
	if f.onInsert != nil {
		f.onInsert()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	f.docs[c.ID] = clone(c)
	return c, nil
}

func (f *fakeComplaints) put(c models.Complaint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[c.ID] = clone(c)
}

func (f *fakeComplaints) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func (f *fakeComplaints) get(id primitive.ObjectID) models.Complaint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.docs[id])
}

func (f *fakeComplaints) GetByID(_ context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	c = clone(c)
	return &c, nil
}

func sameID(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (f *fakeComplaints) ApplyChange(_ context.Context, id primitive.ObjectID, g complaintstore.Guard, ch complaintstore.Change, entries []models.Activity) (bool, error) {
	f.mu.Lock()
	f.applyCalls++
	calls := f.applyCalls
	hook := f.beforeApply
	f.mu.Unlock()
	if hook != nil {
		hook(calls)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alwaysMismatch {
		return false, nil
	}
	c, ok := f.docs[id]
	if !ok || c.Status != g.Status || c.ResolutionNotes != g.ResolutionNotes || !sameID(c.AssignedTo, g.AssignedTo) {
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
	f.docs[id] = c
	return true, nil
}

func (f *fakeComplaints) Delete(_ context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	delete(f.docs, id)
	return &c, nil
}

func (f *fakeComplaints) List(_ context.Context, flt complaintstore.Filter) ([]models.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Complaint{}
	for _, c := range f.docs {
		if flt.UserID != nil && c.UserID != *flt.UserID {
			continue
		}
		if flt.AssignedTo != nil && !sameID(c.AssignedTo, flt.AssignedTo) {
			continue
		}
		if flt.Search != "" {
			hay := strings.ToLower(c.Description + " " + c.DepartmentName)
			if !strings.Contains(hay, strings.ToLower(flt.Search)) {
				continue
			}
		}
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

type fakeUsers struct {
	users       map[primitive.ObjectID]models.User
	emailsCalls int
}

func newFakeUsers(us ...models.User) *fakeUsers {
	f := &fakeUsers{users: map[primitive.ObjectID]models.User{}}
	for _, u := range us {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &u, nil
}

func (f *fakeUsers) EmailsByID(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	f.emailsCalls++
	out := map[primitive.ObjectID]string{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u.Email
		}
	}
	return out, nil
}

type fakeDepartments struct {
	depts      map[primitive.ObjectID]models.Department
	namesCalls int
}

func newFakeDepartments(ds ...models.Department) *fakeDepartments {
	f := &fakeDepartments{depts: map[primitive.ObjectID]models.Department{}}
	for _, d := range ds {
		f.depts[d.ID] = d
	}
	return f
}

func (f *fakeDepartments) remove(id primitive.ObjectID) {
	delete(f.depts, id)
}

func (f *fakeDepartments) GetByID(_ context.Context, id primitive.ObjectID) (*models.Department, error) {
	d, ok := f.depts[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &d, nil
}

func (f *fakeDepartments) NamesByID(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	f.namesCalls++
	out := map[primitive.ObjectID]string{}
	for _, id := range ids {
		if d, ok := f.depts[id]; ok {
			out[id] = d.Name
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (n *fakeNotifier) Dispatch(e mailer.Email) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, e)
}

func (n *fakeNotifier) emails() []mailer.Email {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mailer.Email(nil), n.sent...)
}

type fakeAttachments struct {
	deleted []string
	err     error
}

func (a *fakeAttachments) Delete(_ context.Context, ref string) error {
	a.deleted = append(a.deleted, ref)
	return a.err
}

type fakeRecorder struct {
	created, assigned, resolved, deleted int
	transitions                           []string
}

func (r *fakeRecorder) ComplaintCreated()  { r.created++ }
func (r *fakeRecorder) ComplaintAssigned() { r.assigned++ }
func (r *fakeRecorder) ComplaintResolved() { r.resolved++ }
func (r *fakeRecorder) ComplaintDeleted()  { r.deleted++ }
func (r *fakeRecorder) StatusChanged(from, to string) {
	r.transitions = append(r.transitions, from+"->"+to)
}

var errBoom = errors.New("boom")
