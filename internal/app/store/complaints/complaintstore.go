package complaintstore

import (
	"context"
	"strings"

	"github.com/dalemusser/campusdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("complaints")}
}

// Guard is the state a transition was computed from. ApplyChange only
// writes if the stored complaint still matches it.
type Guard struct {
	Status          string
	ResolutionNotes string
	AssignedTo      *primitive.ObjectID
}

// GuardOf captures the guard fields of c.
func GuardOf(c *models.Complaint) Guard {
	return Guard{Status: c.Status, ResolutionNotes: c.ResolutionNotes, AssignedTo: c.AssignedTo}
}

// Change lists the fields a transition sets. Nil fields are left alone.
type Change struct {
	Status          *string
	ResolutionNotes *string
	AssignedTo      *primitive.ObjectID
}

// IsEmpty reports whether the change sets nothing.
func (c Change) IsEmpty() bool {
	return c.Status == nil && c.ResolutionNotes == nil && c.AssignedTo == nil
}

// Filter selects complaints for List. Zero fields are ignored.
type Filter struct {
	UserID     *primitive.ObjectID
	AssignedTo *primitive.ObjectID
	Search     string // full-text over description and department name
}

// Insert stores a new complaint and returns it with its id.
func (s *Store) Insert(ctx context.Context, c models.Complaint) (models.Complaint, error) {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.ActivityLog == nil {
		c.ActivityLog = []models.Activity{}
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Complaint{}, err
	}
	return c, nil
}

// GetByID loads a complaint. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyChange sets the fields in ch and appends entries to the activity log
// in a single update, provided the stored document still matches g.
// It reports whether the update matched; false means another writer got
// there first and the caller should reload.
func (s *Store) ApplyChange(ctx context.Context, id primitive.ObjectID, g Guard, ch Change, entries []models.Activity) (bool, error) {
	filter := bson.M{
		"_id":              id,
		"status":           g.Status,
		"resolution_notes": g.ResolutionNotes,
		"assigned_to":      g.AssignedTo,
	}

	set := bson.M{}
	if ch.Status != nil {
		set["status"] = *ch.Status
	}
	if ch.ResolutionNotes != nil {
		set["resolution_notes"] = *ch.ResolutionNotes
	}
	if ch.AssignedTo != nil {
		set["assigned_to"] = *ch.AssignedTo
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(entries) > 0 {
		update["$push"] = bson.M{"activity_log": bson.M{"$each": entries}}
	}
	if len(update) == 0 {
		return true, nil
	}

	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// Delete removes a complaint and returns the removed document so the
// caller can release its attachment. Returns mongo.ErrNoDocuments if absent.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns complaints matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Complaint, error) {
	q := bson.M{}
	if f.UserID != nil {
		q["user"] = *f.UserID
	}
	if f.AssignedTo != nil {
		q["assigned_to"] = *f.AssignedTo
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		q["$text"] = bson.M{"$search": term}
	}

	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Complaint{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByDepartment returns how many complaints reference a department.
func (s *Store) CountByDepartment(ctx context.Context, deptID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"department": deptID})
}
