package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"llama-io/backend/api-service/models"
)

// TaskRepository is the Mongo-backed task store. Every driver call goes
// through the shared circuit breaker so a dead store fails fast instead of
// stacking up requests behind driver timeouts.
type TaskRepository struct {
	collection *mongo.Collection
	breaker    *gobreaker.CircuitBreaker
}

func NewTaskRepository(collection *mongo.Collection, breaker *gobreaker.CircuitBreaker) *TaskRepository {
	return &TaskRepository{
		collection: collection,
		breaker:    breaker,
	}
}

func (r *TaskRepository) FindDocs(ctx context.Context, query models.ListQuery) ([]bson.M, error) {
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
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return result.([]bson.M), nil
}

func (r *TaskRepository) Count(ctx context.Context, where bson.M) (int64, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.collection.CountDocuments(ctx, where)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return result.(int64), nil
}

func (r *TaskRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		var task models.Task
		if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return (*models.Task)(nil), nil
			}
			return nil, err
		}
		return &task, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}
	return result.(*models.Task), nil
}

func (r *TaskRepository) Insert(ctx context.Context, task *models.Task) error {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.collection.InsertOne(ctx, task)
	})
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	task.ID = result.(*mongo.InsertOneResult).InsertedID.(primitive.ObjectID)
	return nil
}

func (r *TaskRepository) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	})
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

func (r *TaskRepository) UpdateMany(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.collection.UpdateMany(ctx, filter, update)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update tasks: %w", err)
	}
	return result.(*mongo.UpdateResult).ModifiedCount, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return r.collection.DeleteOne(ctx, bson.M{"_id": id})
	})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
