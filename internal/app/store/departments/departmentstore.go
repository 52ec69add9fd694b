package departmentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/system/normalize"
	"github.com/dalemusser/campusdesk/internal/app/system/txn"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrDuplicateName is returned when a department with the same name exists.
	ErrDuplicateName = errors.New("a department with this name already exists")
	// ErrInUse is returned by Delete when complaints still reference the department.
	ErrInUse = errors.New("department is referenced by complaints")
)

type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	log *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{db: db, c: db.Collection("departments"), log: log}
}

// Create inserts a department. The name is trimmed; uniqueness is an exact,
// case-sensitive match enforced by the unique index on name.
func (s *Store) Create(ctx context.Context, name string) (models.Department, error) {
	name = normalize.Name(name)
	d := models.Department{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Department{}, ErrDuplicateName
		}
		return models.Department{}, err
	}
	return d, nil
}

// ExistsByName reports whether a department with exactly this name exists.
func (s *Store) ExistsByName(ctx context.Context, name string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"name": normalize.Name(name)}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// GetByID loads a department. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Department, error) {
	var d models.Department
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns all departments sorted case-insensitively by name.
func (s *Store) List(ctx context.Context) ([]models.Department, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Department{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NamesByID resolves department ids to names in one query.
func (s *Store) NamesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1, "name": 1})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var d models.Department
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out[d.ID] = d.Name
	}
	return out, cur.Err()
}

// Delete removes a department that no complaint references. The reference
// check and the delete run in one transaction where the server supports it.
// Returns ErrInUse or mongo.ErrNoDocuments.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	complaints := s.db.Collection("complaints")
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		n, err := complaints.CountDocuments(ctx, bson.M{"department": id}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrInUse
		}
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return mongo.ErrNoDocuments
		}
		return nil
	})
}
