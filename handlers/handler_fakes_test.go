package handlers

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"llama-io/backend/api-service/models"
)

// Map-backed stores for handler tests. They cover the narrow filter and
// operator surface the coordinator issues; anything fancier belongs in the
// services package tests.

type stubTaskStore struct {
	tasks      map[string]*models.Task
	writeCount int
}

func newStubTaskStore() *stubTaskStore {
	return &stubTaskStore{tasks: make(map[string]*models.Task)}
}

func (s *stubTaskStore) add(task *models.Task) {
	copied := *task
	s.tasks[task.ID.Hex()] = &copied
}

func (s *stubTaskStore) FindDocs(ctx context.Context, query models.ListQuery) ([]bson.M, error) {
	docs := []bson.M{}
	for _, task := range s.tasks {
		if id, ok := query.Where["_id"].(primitive.ObjectID); ok && task.ID != id {
			continue
		}
		docs = append(docs, bson.M{
			"_id":              task.ID,
			"name":             task.Name,
			"assignedUser":     task.AssignedUser,
			"assignedUserName": task.AssignedUserName,
		})
	}
	return docs, nil
}

func (s *stubTaskStore) Count(ctx context.Context, where bson.M) (int64, error) {
	return int64(len(s.tasks)), nil
}

func (s *stubTaskStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	task, ok := s.tasks[id.Hex()]
	if !ok {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

func (s *stubTaskStore) Insert(ctx context.Context, task *models.Task) error {
	s.writeCount++
	s.add(task)
	return nil
}

func (s *stubTaskStore) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	s.writeCount++
	task, ok := s.tasks[id.Hex()]
	if !ok {
		return nil
	}
	if set, ok := update["$set"].(bson.M); ok {
		if name, ok := set["name"].(string); ok {
			task.Name = name
		}
		if assigned, ok := set["assignedUser"].(string); ok {
			task.AssignedUser = assigned
		}
		if assignedName, ok := set["assignedUserName"].(string); ok {
			task.AssignedUserName = assignedName
		}
	}
	return nil
}

func (s *stubTaskStore) UpdateMany(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	s.writeCount++
	return 0, nil
}

func (s *stubTaskStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.writeCount++
	delete(s.tasks, id.Hex())
	return nil
}

type stubUserStore struct {
	users      map[string]*models.User
	writeCount int
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{users: make(map[string]*models.User)}
}

func (s *stubUserStore) add(user *models.User) {
	copied := *user
	copied.PendingTasks = append([]string{}, user.PendingTasks...)
	s.users[user.ID.Hex()] = &copied
}

func (s *stubUserStore) FindDocs(ctx context.Context, query models.ListQuery) ([]bson.M, error) {
	docs := []bson.M{}
	for _, user := range s.users {
		if id, ok := query.Where["_id"].(primitive.ObjectID); ok && user.ID != id {
			continue
		}
		docs = append(docs, bson.M{
			"_id":          user.ID,
			"name":         user.Name,
			"email":        user.Email,
			"pendingTasks": user.PendingTasks,
		})
	}
	return docs, nil
}

func (s *stubUserStore) Count(ctx context.Context, where bson.M) (int64, error) {
	return int64(len(s.users)), nil
}

func (s *stubUserStore) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, ok := s.users[id.Hex()]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *stubUserStore) GetByEmail(ctx context.Context, email string, exclude primitive.ObjectID) (*models.User, error) {
	for _, user := range s.users {
		if user.ID != exclude && strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *stubUserStore) Insert(ctx context.Context, user *models.User) error {
	s.writeCount++
	s.add(user)
	return nil
}

func (s *stubUserStore) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	s.writeCount++
	user, ok := s.users[id.Hex()]
	if !ok {
		return nil
	}
	if add, ok := update["$addToSet"].(bson.M); ok {
		taskID := add["pendingTasks"].(string)
		if !user.HasPendingTask(taskID) {
			user.PendingTasks = append(user.PendingTasks, taskID)
		}
	}
	if pull, ok := update["$pull"].(bson.M); ok {
		if taskID, ok := pull["pendingTasks"].(string); ok {
			kept := user.PendingTasks[:0]
			for _, id := range user.PendingTasks {
				if id != taskID {
					kept = append(kept, id)
				}
			}
			user.PendingTasks = kept
		}
	}
	return nil
}

func (s *stubUserStore) UpdateMany(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	s.writeCount++
	return 0, nil
}

func (s *stubUserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.writeCount++
	delete(s.users, id.Hex())
	return nil
}
