package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"llama-io/backend/api-service/models"
)

// UserRepository is the Mongo-backed user store behind the shared circuit
// breaker.
type UserRepository struct {
	collection *mongo.Collection
	breaker    *gobreaker.CircuitBreaker
}

func NewUserRepository(collection *mongo.Collection, breaker *gobreaker.CircuitBreaker) *UserRepository {
	return &UserRepository{
		collection: collection,
		breaker:    breaker,
	}
}

func (r *UserRepository) FindDocs(ctx context.Context, query models.ListQuery) ([]bson.M, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		opts := options.Find()
		if query.Sort != nil {
			opts.SetSort(query.Sort)
		}
		if query.Projection != nil {
			opts.SetProjection(query.Projection)
		}
		if query.Skip > 0 {
			opts.SetSkip(query.Skip)
		}
		if query.Limit > 0 {
			opts.SetLimit(query.Limit)
		}

		cursor, err := r.collection.Find(ctx, query.Where, opts)
		if err != nil {
			return nil, err
		}
		docs := []bson.M{}
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return result.([]bson.M), nil
}

func (r *UserRepository) Count(ctx context.Context, where bson.M) (int64, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.collection.CountDocuments(ctx, where)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return result.(int64), nil
}

func (r *UserRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		var user models.User
		if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return (*models.User)(nil), nil
			}
			return nil, err
		}
		return &user, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return result.(*models.User), nil
}

// GetByEmail looks a user up by email, case-insensitively. Emails are stored
// lower-cased, so the lookup lower-cases the probe instead of using a regex.
func (r *UserRepository) GetByEmail(ctx context.Context, email string, exclude primitive.ObjectID) (*models.User, error) {
	filter := bson.M{"email": strings.ToLower(email)}
	if exclude != primitive.NilObjectID {
		filter["_id"] = bson.M{"$ne": exclude}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		var user models.User
		if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return (*models.User)(nil), nil
			}
			return nil, err
		}
		return &user, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}
	return result.(*models.User), nil
}

func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.collection.InsertOne(ctx, user)
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = result.(*mongo.InsertOneResult).InsertedID.(primitive.ObjectID)
	return nil
}

func (r *UserRepository) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateMany(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.collection.UpdateMany(ctx, filter, update)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update users: %w", err)
	}
	return result.(*mongo.UpdateResult).ModifiedCount, nil
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return r.collection.DeleteOne(ctx, bson.M{"_id": id})
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
