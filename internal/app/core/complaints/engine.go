// Package complaintengine implements the complaint lifecycle: creation,
// admin status and assignment changes, staff resolution, deletion, and the
// list queries behind each dashboard.
//
// Every mutation of status, notes, or assignment is written as one
// compare-and-set update that both sets the fields and appends the
// activity entries describing them. A lost race reloads and recomputes,
// so each entry describes the transition that was actually applied.
package complaintengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/policy/complaintpolicy"
	complaintstore "github.com/dalemusser/campusdesk/internal/app/store/complaints"
	"github.com/dalemusser/campusdesk/internal/app/system/apperr"
	"github.com/dalemusser/campusdesk/internal/app/system/mailer"
	"github.com/dalemusser/campusdesk/internal/app/system/normalize"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds compare-and-set retries for one mutation.
const DefaultMaxAttempts = 3

// ComplaintStore persists complaints.
type ComplaintStore interface {
	Insert(ctx context.Context, c models.Complaint) (models.Complaint, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error)
	ApplyChange(ctx context.Context, id primitive.ObjectID, g complaintstore.Guard, ch complaintstore.Change, entries []models.Activity) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error)
	List(ctx context.Context, f complaintstore.Filter) ([]models.Complaint, error)
}

// UserStore looks up users.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	EmailsByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

// DepartmentStore looks up departments.
type DepartmentStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Department, error)
	NamesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

// Notifier queues an email without blocking. *mailer.Dispatcher satisfies it.
type Notifier interface {
	Dispatch(e mailer.Email)
}

// AttachmentReleaser removes stored attachments.
type AttachmentReleaser interface {
	Delete(ctx context.Context, ref string) error
}

// Recorder receives lifecycle counters. *metrics.Metrics satisfies it.
type Recorder interface {
	ComplaintCreated()
	StatusChanged(from, to string)
	ComplaintAssigned()
	ComplaintResolved()
	ComplaintDeleted()
}

// Deps are the Engine's collaborators. Notifier, Attachments and Metrics
// may be nil.
type Deps struct {
	Complaints  ComplaintStore
	Users       UserStore
	Departments DepartmentStore
	Notifier    Notifier
	Attachments AttachmentReleaser
	Metrics     Recorder
	Log         *zap.Logger

	Now         func() time.Time
	MaxAttempts int
}

type Engine struct {
	complaints  ComplaintStore
	users       UserStore
	departments DepartmentStore
	resolver    *Resolver
	notifier    Notifier
	attachments AttachmentReleaser
	metrics     Recorder
	log         *zap.Logger
	now         func() time.Time
	maxAttempts int
}

func New(d Deps) *Engine {
	e := &Engine{
		complaints:  d.Complaints,
		users:       d.Users,
		departments: d.Departments,
		resolver:    NewResolver(d.Users, d.Departments),
		notifier:    d.Notifier,
		attachments: d.Attachments,
		metrics:     d.Metrics,
		log:         d.Log,
		now:         d.Now,
		maxAttempts: d.MaxAttempts,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = DefaultMaxAttempts
	}
	return e
}

var (
	errComplaintNotFound = apperr.NotFound("Complaint not found")
	errNotStaff          = apperr.Validation("user is not staff or was not found")
	errConcurrent        = apperr.Conflict("complaint was changed by someone else; please retry")
)

// CreateInput carries a new complaint. Image is a reference already stored
// through attachment storage, or "".
type CreateInput struct {
	DepartmentID string
	Description  string
	Image        string
}

// Create files a complaint on behalf of actor. If Create fails for any
// reason after an image was stored, the image is released.
func (e *Engine) Create(ctx context.Context, actor models.AuthContext, in CreateInput) (view ComplaintView, err error) {
	defer func() {
		if err != nil && in.Image != "" {
			e.releaseAttachment(ctx, in.Image)
		}
	}()

	if err := complaintpolicy.CheckRole(complaintpolicy.OpCreate, actor); err != nil {
		return ComplaintView{}, err
	}
	if actor.UserID.IsZero() {
		return ComplaintView{}, apperr.Validation("a signed-in user is required")
	}
	desc := normalize.Text(in.Description)
	if desc == "" {
		return ComplaintView{}, apperr.Validation("description is required")
	}
	deptID, perr := primitive.ObjectIDFromHex(strings.TrimSpace(in.DepartmentID))
	if perr != nil {
		return ComplaintView{}, apperr.Validation("a valid department is required")
	}

	user, err := e.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ComplaintView{}, apperr.Validation("user not found")
		}
		return ComplaintView{}, apperr.Internal(fmt.Errorf("load user: %w", err))
	}
	dept, err := e.departments.GetByID(ctx, deptID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ComplaintView{}, apperr.NotFound("Department not found")
		}
		return ComplaintView{}, apperr.Internal(fmt.Errorf("load department: %w", err))
	}

	now := e.now()
	actorID := actor.UserID
	c, err := e.complaints.Insert(ctx, models.Complaint{
		UserID:         user.ID,
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		Description:    desc,
		Image:          in.Image,
		Status:         models.StatusPending,
		SubmittedAt:    now,
		ActivityLog:    []models.Activity{{ActorID: &actorID, Action: "Complaint submitted", Timestamp: now}},
	})
	if err != nil {
		return ComplaintView{}, apperr.Internal(fmt.Errorf("insert complaint: %w", err))
	}
	if err := e.confirmDepartment(ctx, c.ID, dept.ID); err != nil {
		return ComplaintView{}, err
	}

	if e.metrics != nil {
		e.metrics.ComplaintCreated()
	}
	e.notify(mailer.BuildComplaintSubmittedEmail(mailer.ComplaintSubmittedData{
		To:          user.Email,
		Department:  dept.Name,
		Description: desc,
	}))

	return buildView(&c,
		map[primitive.ObjectID]string{user.ID: user.Email},
		map[primitive.ObjectID]string{dept.ID: dept.Name},
	), nil
}

// confirmDepartment re-reads the department after a complaint was inserted
// against it. Department deletion counts references before deleting, so a
// delete that ran between the first lookup and the insert would leave the
// complaint dangling. In that case the complaint is removed again.
func (e *Engine) confirmDepartment(ctx context.Context, complaintID, deptID primitive.ObjectID) error {
	_, err := e.departments.GetByID(ctx, deptID)
	if err == nil {
		return nil
	}
	if _, derr := e.complaints.Delete(ctx, complaintID); derr != nil && !errors.Is(derr, mongo.ErrNoDocuments) {
		e.log.Error("failed to remove complaint filed against a missing department",
			zap.String("complaint_id", complaintID.Hex()),
			zap.String("department_id", deptID.Hex()),
			zap.Error(derr))
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("Department not found")
	}
	return apperr.Internal(fmt.Errorf("confirm department: %w", err))
}

// transition computes the change to apply to the current state of a
// complaint. Returning an empty change and no entries means nothing to do.
type transition func(c *models.Complaint) (complaintstore.Change, []models.Activity, error)

// mutate loads the complaint, checks op against it, and applies the
// transition with compare-and-set, retrying on a lost race. It returns
// the complaint as it was before and after the applied change.
func (e *Engine) mutate(ctx context.Context, op complaintpolicy.Op, actor models.AuthContext, rawID string, next transition) (before, after *models.Complaint, err error) {
	id, perr := primitive.ObjectIDFromHex(strings.TrimSpace(rawID))
	if perr != nil {
		return nil, nil, errComplaintNotFound
	}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		c, err := e.load(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if err := complaintpolicy.Check(op, actor, complaintpolicy.SubjectOf(c)); err != nil {
			return nil, nil, err
		}

		ch, entries, err := next(c)
		if err != nil {
			return nil, nil, err
		}
		if ch.IsEmpty() && len(entries) == 0 {
			return c, c, nil
		}

		matched, err := e.complaints.ApplyChange(ctx, id, complaintstore.GuardOf(c), ch, entries)
		if err != nil {
			return nil, nil, apperr.Internal(fmt.Errorf("update complaint: %w", err))
		}
		if matched {
			updated := applyLocal(*c, ch, entries)
			return c, &updated, nil
		}
		e.log.Debug("complaint changed concurrently, retrying",
			zap.String("complaint_id", id.Hex()),
			zap.Int("attempt", attempt))
	}
	return nil, nil, errConcurrent
}

// applyLocal mirrors a matched ApplyChange on an in-memory copy.
func applyLocal(c models.Complaint, ch complaintstore.Change, entries []models.Activity) models.Complaint {
	if ch.Status != nil {
		c.Status = *ch.Status
	}
	if ch.ResolutionNotes != nil {
		c.ResolutionNotes = *ch.ResolutionNotes
	}
	if ch.AssignedTo != nil {
		id := *ch.AssignedTo
		c.AssignedTo = &id
	}
	log := make([]models.Activity, 0, len(c.ActivityLog)+len(entries))
	log = append(log, c.ActivityLog...)
	c.ActivityLog = append(log, entries...)
	return c
}

// SetStatus is the admin path: set the status and optionally the
// resolution notes. Each field that actually changes gets its own log
// entry; if neither changes nothing is written.
func (e *Engine) SetStatus(ctx context.Context, actor models.AuthContext, id, newStatus string, notes *string) (ComplaintView, error) {
	if err := complaintpolicy.CheckRole(complaintpolicy.OpSetStatus, actor); err != nil {
		return ComplaintView{}, err
	}
	if !models.IsValidStatus(newStatus) {
		return ComplaintView{}, apperr.Validation(fmt.Sprintf("status must be one of: %s", strings.Join(models.Statuses, ", ")))
	}
	var newNotes string
	if notes != nil {
		newNotes = normalize.Text(*notes)
	}

	actorID := actor.UserID
	before, after, err := e.mutate(ctx, complaintpolicy.OpSetStatus, actor, id, func(c *models.Complaint) (complaintstore.Change, []models.Activity, error) {
		var ch complaintstore.Change
		var entries []models.Activity
		now := e.now()
		if newStatus != c.Status {
			s := newStatus
			ch.Status = &s
			entries = append(entries, models.Activity{
				ActorID:   &actorID,
				Action:    fmt.Sprintf("Status changed from '%s' to '%s'", c.Status, newStatus),
				Timestamp: now,
			})
		}
		if newNotes != "" && newNotes != c.ResolutionNotes {
			n := newNotes
			ch.ResolutionNotes = &n
			entries = append(entries, models.Activity{
				ActorID:   &actorID,
				Action:    "Resolution notes added/updated",
				Timestamp: now,
			})
		}
		return ch, entries, nil
	})
	if err != nil {
		return ComplaintView{}, err
	}

	view, err := e.resolver.ResolveOne(ctx, after)
	if err != nil {
		return ComplaintView{}, apperr.Internal(err)
	}
	if before.Status != after.Status {
		e.statusChanged(view, before.Status, newNotes)
	}
	return view, nil
}

// Assign sets the complaint's assignee to a staff user. The bool reports
// whether the assignee changed; assigning the current assignee again
// writes nothing.
func (e *Engine) Assign(ctx context.Context, actor models.AuthContext, id, staffUserID string) (ComplaintView, bool, error) {
	if err := complaintpolicy.CheckRole(complaintpolicy.OpAssign, actor); err != nil {
		return ComplaintView{}, false, err
	}
	staffID, perr := primitive.ObjectIDFromHex(strings.TrimSpace(staffUserID))
	if perr != nil {
		return ComplaintView{}, false, errNotStaff
	}
	staff, err := e.users.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ComplaintView{}, false, errNotStaff
		}
		return ComplaintView{}, false, apperr.Internal(fmt.Errorf("load staff user: %w", err))
	}
	if staff.Role != models.RoleStaff {
		return ComplaintView{}, false, errNotStaff
	}

	actorID := actor.UserID
	before, after, err := e.mutate(ctx, complaintpolicy.OpAssign, actor, id, func(c *models.Complaint) (complaintstore.Change, []models.Activity, error) {
		if c.AssignedTo != nil && *c.AssignedTo == staff.ID {
			return complaintstore.Change{}, nil, nil
		}
		prev := "unassigned"
		if c.AssignedTo != nil {
			emails, err := e.users.EmailsByID(ctx, []primitive.ObjectID{*c.AssignedTo})
			if err != nil {
				return complaintstore.Change{}, nil, apperr.Internal(fmt.Errorf("load previous assignee: %w", err))
			}
			prev = emails[*c.AssignedTo]
			if prev == "" {
				prev = "unknown user"
			}
		}
		sid := staff.ID
		return complaintstore.Change{AssignedTo: &sid}, []models.Activity{{
			ActorID:   &actorID,
			Action:    fmt.Sprintf("Assigned to %s (previously %s)", staff.Email, prev),
			Timestamp: e.now(),
		}}, nil
	})
	if err != nil {
		return ComplaintView{}, false, err
	}

	moved := changed(before.AssignedTo, after.AssignedTo)
	if moved && e.metrics != nil {
		e.metrics.ComplaintAssigned()
	}
	view, err := e.resolver.ResolveOne(ctx, after)
	if err != nil {
		return ComplaintView{}, false, apperr.Internal(err)
	}
	return view, moved, nil
}

func changed(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a != b
	}
	return *a != *b
}

// Resolve is the staff path: the assignee marks the complaint Resolved
// with notes.
func (e *Engine) Resolve(ctx context.Context, actor models.AuthContext, id, notes string) (ComplaintView, error) {
	text := normalize.Text(notes)

	actorID := actor.UserID
	before, after, err := e.mutate(ctx, complaintpolicy.OpResolve, actor, id, func(c *models.Complaint) (complaintstore.Change, []models.Activity, error) {
		if text == "" {
			return complaintstore.Change{}, nil, apperr.Validation("resolution notes are required")
		}
		status := models.StatusResolved
		n := text
		return complaintstore.Change{Status: &status, ResolutionNotes: &n}, []models.Activity{{
			ActorID:   &actorID,
			Action:    fmt.Sprintf("Marked as Resolved with notes: \"%s\"", text),
			Timestamp: e.now(),
		}}, nil
	})
	if err != nil {
		return ComplaintView{}, err
	}

	if e.metrics != nil {
		e.metrics.ComplaintResolved()
	}
	view, err := e.resolver.ResolveOne(ctx, after)
	if err != nil {
		return ComplaintView{}, apperr.Internal(err)
	}
	if before.Status != after.Status {
		e.statusChanged(view, before.Status, text)
	}
	return view, nil
}

// Delete removes a complaint. The owner or an admin may delete. A stored
// image is released afterwards; failure to release is logged only.
func (e *Engine) Delete(ctx context.Context, actor models.AuthContext, rawID string) error {
	id, perr := primitive.ObjectIDFromHex(strings.TrimSpace(rawID))
	if perr != nil {
		return errComplaintNotFound
	}
	c, err := e.load(ctx, id)
	if err != nil {
		return err
	}
	if err := complaintpolicy.Check(complaintpolicy.OpDelete, actor, complaintpolicy.SubjectOf(c)); err != nil {
		return err
	}

	deleted, err := e.complaints.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return errComplaintNotFound
		}
		return apperr.Internal(fmt.Errorf("delete complaint: %w", err))
	}
	if e.metrics != nil {
		e.metrics.ComplaintDeleted()
	}
	if deleted.Image != "" {
		e.releaseAttachment(ctx, deleted.Image)
	}
	return nil
}

// Get returns one complaint to its owner, its assignee, or an admin.
func (e *Engine) Get(ctx context.Context, actor models.AuthContext, rawID string) (ComplaintView, error) {
	id, perr := primitive.ObjectIDFromHex(strings.TrimSpace(rawID))
	if perr != nil {
		return ComplaintView{}, errComplaintNotFound
	}
	c, err := e.load(ctx, id)
	if err != nil {
		return ComplaintView{}, err
	}
	if err := complaintpolicy.Check(complaintpolicy.OpView, actor, complaintpolicy.SubjectOf(c)); err != nil {
		return ComplaintView{}, err
	}
	view, err := e.resolver.ResolveOne(ctx, c)
	if err != nil {
		return ComplaintView{}, apperr.Internal(err)
	}
	return view, nil
}

// ListAll returns every complaint, newest first, optionally narrowed by a
// full-text search over description and department name. Admin only.
func (e *Engine) ListAll(ctx context.Context, actor models.AuthContext, search string) ([]ComplaintView, error) {
	if err := complaintpolicy.CheckRole(complaintpolicy.OpListAll, actor); err != nil {
		return nil, err
	}
	return e.list(ctx, complaintstore.Filter{Search: normalize.Text(search)})
}

// ListMine returns the actor's own complaints, newest first.
func (e *Engine) ListMine(ctx context.Context, actor models.AuthContext) ([]ComplaintView, error) {
	if err := complaintpolicy.CheckRole(complaintpolicy.OpListMine, actor); err != nil {
		return nil, err
	}
	uid := actor.UserID
	return e.list(ctx, complaintstore.Filter{UserID: &uid})
}

// ListAssigned returns complaints assigned to the actor, newest first.
func (e *Engine) ListAssigned(ctx context.Context, actor models.AuthContext) ([]ComplaintView, error) {
	if err := complaintpolicy.CheckRole(complaintpolicy.OpListAssigned, actor); err != nil {
		return nil, err
	}
	uid := actor.UserID
	return e.list(ctx, complaintstore.Filter{AssignedTo: &uid})
}

func (e *Engine) list(ctx context.Context, f complaintstore.Filter) ([]ComplaintView, error) {
	cs, err := e.complaints.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list complaints: %w", err))
	}
	views, err := e.resolver.Resolve(ctx, cs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return views, nil
}

func (e *Engine) load(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	c, err := e.complaints.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errComplaintNotFound
		}
		return nil, apperr.Internal(fmt.Errorf("load complaint: %w", err))
	}
	return c, nil
}

func (e *Engine) statusChanged(v ComplaintView, oldStatus, notes string) {
	if e.metrics != nil {
		e.metrics.StatusChanged(oldStatus, v.Status)
	}
	if v.User.Email == "" {
		e.log.Warn("complaint owner has no email; skipping notification",
			zap.String("complaint_id", v.ID.Hex()))
		return
	}
	e.notify(mailer.BuildStatusChangedEmail(mailer.StatusChangedData{
		To:              v.User.Email,
		ComplaintID:     v.ID.Hex(),
		Department:      v.Department.Name,
		OldStatus:       oldStatus,
		NewStatus:       v.Status,
		ResolutionNotes: notes,
	}))
}

func (e *Engine) notify(m mailer.Email) {
	if e.notifier == nil {
		return
	}
	e.notifier.Dispatch(m)
}

func (e *Engine) releaseAttachment(ctx context.Context, ref string) {
	if e.attachments == nil {
		return
	}
	// The request may already be cancelled; release on its own deadline.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := e.attachments.Delete(rctx, ref); err != nil {
		e.log.Warn("failed to release attachment", zap.String("ref", ref), zap.Error(err))
	}
}
