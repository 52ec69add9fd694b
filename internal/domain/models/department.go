// internal/domain/models/department.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Department is an organizational unit complaints are filed against.
// Head is a weak reference; the referenced user may no longer exist.
type Department struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	Name      string              `bson:"name"`    // trimmed; unique (exact match)
	NameCI    string              `bson:"name_ci"` // folded, for sorting
	HeadID    *primitive.ObjectID `bson:"head,omitempty"`
	CreatedAt time.Time           `bson:"created_at"`
}
