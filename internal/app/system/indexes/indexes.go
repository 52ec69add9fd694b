// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/store/audit"
	"github.com/dalemusser/campusdesk/internal/app/store/sessions"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureDepartments(ctx, db); err != nil {
		problems = append(problems, "departments: "+err.Error())
	}
	if err := ensureComplaints(ctx, db); err != nil {
		problems = append(problems, "complaints: "+err.Error())
	}
	if err := sessions.New(db).EnsureIndexes(ctx); err != nil {
		problems = append(problems, "sessions: "+err.Error())
	}
	if err := audit.New(db).EnsureIndexes(ctx); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB returns IndexOptionsConflict when an index with the same keys
// exists under a different name or with different options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// createErr explains a failed create, with a finder query when a unique
// index is blocked by duplicate data.
func createErr(coll *mongo.Collection, name, sig string, unique bool, err error) string {
	if unique && isDuplicateKeyErr(err) {
		field := strings.SplitN(sig, ":", 2)[0]
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present); finder: "+
			`db.%s.aggregate([{ $group: { _id: "$%s", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
			coll.Name(), name, coll.Name(), field)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

// recreate drops ex and creates m in its place.
func recreate(ctx context.Context, coll *mongo.Collection, ex existingIndex, m mongo.IndexModel, name, sig string, unique bool) error {
	if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
		return fmt.Errorf("%s(%s): drop %s failed: %v", coll.Name(), name, ex.Name, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		return errors.New(createErr(coll, name, sig, unique, err))
	}
	zap.L().Info("index dropped and recreated",
		zap.String("collection", coll.Name()),
		zap.String("from", ex.Name),
		zap.String("name", name),
		zap.String("keys", sig))
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var name string
		var uniquePtr *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			uniquePtr = m.Options.Unique
		}
		unique := boolVal(uniquePtr)
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := listIndexes(ctx, coll)[sig]; ok {
			switch {
			case boolVal(ex.Unique) != unique, name != "" && ex.Name != name:
				// Options or name differ: align by drop and recreate.
				if err := recreate(ctx, coll, ex, m, name, sig, unique); err != nil {
					zap.L().Warn("index ensure failed", zap.String("collection", coll.Name()), zap.Error(err))
					errs = append(errs, err.Error())
				}
			default:
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig),
					zap.Duration("took", time.Since(start)))
			}
			continue
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil && isOptionsConflictErr(err) {
			// Same keys under another shape the signature did not catch.
			if ex, ok := listIndexes(ctx, coll)[sig]; ok {
				err = recreate(ctx, coll, ex, m, name, sig, unique)
				if err == nil {
					continue
				}
			}
		}
		if err != nil {
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			errs = append(errs, createErr(coll, name, sig, unique, err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", created),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email is the login identifier and must be unique.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Staff picker: role filter sorted by email.
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_users_role_email"),
		},
	})
}

func ensureDepartments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("departments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Exact-match uniqueness on the trimmed name.
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_departments_name"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_departments_nameci_id"),
		},
	})
}

func ensureComplaints(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("complaints")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Admin search ($text) over description and the denormalized department name.
		{
			Keys: bson.D{
				{Key: "description", Value: "text"},
				{Key: "department_name", Value: "text"},
			},
			Options: options.Index().SetName("txt_complaints_description_department"),
		},
		// "My complaints", newest first.
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "submitted_at", Value: -1}},
			Options: options.Index().SetName("idx_complaints_user_submitted"),
		},
		// Staff "assigned to me", newest first.
		{
			Keys:    bson.D{{Key: "assigned_to", Value: 1}, {Key: "submitted_at", Value: -1}},
			Options: options.Index().SetName("idx_complaints_assigned_submitted"),
		},
		// Admin list and department delete reference check.
		{
			Keys:    bson.D{{Key: "submitted_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_complaints_submitted_id"),
		},
		{
			Keys:    bson.D{{Key: "department", Value: 1}},
			Options: options.Index().SetName("idx_complaints_department"),
		},
	})
}
