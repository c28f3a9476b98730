package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"llama-io/backend/api-service/models"
)

// TaskStore is the task half of the entity store. Get returns (nil, nil)
// when no document matches, so callers can distinguish "absent" from a
// store failure.
type TaskStore interface {
	FindDocs(ctx context.Context, query models.ListQuery) ([]bson.M, error)
	Count(ctx context.Context, where bson.M) (int64, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	Insert(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, id primitive.ObjectID, update bson.M) error
	UpdateMany(ctx context.Context, filter bson.M, update bson.M) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserStore is the user half of the entity store. GetByEmail compares
// emails case-insensitively and skips the excluded id when it is non-zero.
type UserStore interface {
	FindDocs(ctx context.Context, query models.ListQuery) ([]bson.M, error)
	Count(ctx context.Context, where bson.M) (int64, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string, exclude primitive.ObjectID) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id primitive.ObjectID, update bson.M) error
	UpdateMany(ctx context.Context, filter bson.M, update bson.M) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
