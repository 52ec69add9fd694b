package metricsstore

import (
	"context"

	"github.com/dalemusser/campusdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals exported as gauges on /metrics.
type Counts struct {
	UsersByRole        map[string]int64
	Departments        int64
	ComplaintsByStatus map[string]int64
	Unassigned         int64 // open complaints (Pending or In Progress) with no assignee
}

// FetchCounts returns the current totals.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	out := Counts{
		UsersByRole:        map[string]int64{},
		ComplaintsByStatus: map[string]int64{},
	}
	for _, role := range []string{models.RoleUser, models.RoleStaff, models.RoleAdmin} {
		out.UsersByRole[role] = 0
	}
	for _, s := range models.Statuses {
		out.ComplaintsByStatus[s] = 0
	}

	groupCount(ctx, db.Collection("users"), "$role", out.UsersByRole)
	groupCount(ctx, db.Collection("complaints"), "$status", out.ComplaintsByStatus)

	if n, err := db.Collection("departments").CountDocuments(ctx, bson.M{}); err == nil {
		out.Departments = n
	}

	unassigned := bson.M{
		"assigned_to": nil,
		"status":      bson.M{"$in": []string{models.StatusPending, models.StatusInProgress}},
	}
	if n, err := db.Collection("complaints").CountDocuments(ctx, unassigned); err == nil {
		out.Unassigned = n
	}

	return out
}

func groupCount(ctx context.Context, c *mongo.Collection, field string, into map[string]int64) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: field}, {Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cur, err := c.Aggregate(ctx, pipeline)
	if err != nil {
		return
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			continue
		}
		into[row.ID] = row.N
	}
}
