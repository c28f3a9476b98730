package services

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"llama-io/backend/api-service/models"
)

// In-memory stores for coordinator tests. They interpret exactly the
// filters and update operators the services issue: _id equality, $in/$nin,
// assignedUser equality, $set, and $addToSet/$pull on pendingTasks.

type fakeTaskStore struct {
	tasks      map[string]*models.Task
	writeCount int
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*models.Task)}
}

func (s *fakeTaskStore) add(task *models.Task) {
	copied := *task
	s.tasks[task.ID.Hex()] = &copied
}

func (s *fakeTaskStore) matches(where bson.M, task *models.Task) bool {
	for key, cond := range where {
		switch key {
		case "_id":
			switch v := cond.(type) {
			case primitive.ObjectID:
				if task.ID != v {
					return false
				}
			case bson.M:
				if in, ok := v["$in"].([]primitive.ObjectID); ok && !containsID(in, task.ID) {
					return false
				}
				if nin, ok := v["$nin"].([]primitive.ObjectID); ok && containsID(nin, task.ID) {
					return false
				}
			}
		case "assignedUser":
			if task.AssignedUser != cond.(string) {
				return false
			}
		case "completed":
			if task.Completed != cond.(bool) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (s *fakeTaskStore) FindDocs(ctx context.Context, query models.ListQuery) ([]bson.M, error) {
	docs := []bson.M{}
	for _, task := range s.tasks {
		if s.matches(query.Where, task) {
			docs = append(docs, bson.M{
				"_id":              task.ID,
				"name":             task.Name,
				"assignedUser":     task.AssignedUser,
				"assignedUserName": task.AssignedUserName,
			})
		}
		if query.Limit > 0 && int64(len(docs)) == query.Limit {
			break
		}
	}
	return docs, nil
}

func (s *fakeTaskStore) Count(ctx context.Context, where bson.M) (int64, error) {
	var count int64
	for _, task := range s.tasks {
		if s.matches(where, task) {
			count++
		}
	}
	return count, nil
}

func (s *fakeTaskStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	task, ok := s.tasks[id.Hex()]
	if !ok {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

func (s *fakeTaskStore) Insert(ctx context.Context, task *models.Task) error {
	s.writeCount++
	s.add(task)
	return nil
}

func (s *fakeTaskStore) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	s.writeCount++
	task, ok := s.tasks[id.Hex()]
	if !ok {
		return nil
	}
	s.applySet(task, update)
	return nil
}

func (s *fakeTaskStore) UpdateMany(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	s.writeCount++
	var modified int64
	for _, task := range s.tasks {
		if s.matches(filter, task) {
			s.applySet(task, update)
			modified++
		}
	}
	return modified, nil
}

func (s *fakeTaskStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.writeCount++
	delete(s.tasks, id.Hex())
	return nil
}

func (s *fakeTaskStore) applySet(task *models.Task, update bson.M) {
	set, ok := update["$set"].(bson.M)
	if !ok {
		return
	}
	for field, value := range set {
		switch field {
		case "name":
			task.Name = value.(string)
		case "description":
			task.Description = value.(string)
		case "completed":
			task.Completed = value.(bool)
		case "assignedUser":
			task.AssignedUser = value.(string)
		case "assignedUserName":
			task.AssignedUserName = value.(string)
		}
	}
}

type fakeUserStore struct {
	users      map[string]*models.User
	writeCount int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (s *fakeUserStore) add(user *models.User) {
	copied := *user
	copied.PendingTasks = append([]string{}, user.PendingTasks...)
	s.users[user.ID.Hex()] = &copied
}

func (s *fakeUserStore) FindDocs(ctx context.Context, query models.ListQuery) ([]bson.M, error) {
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
		if query.Limit > 0 && int64(len(docs)) == query.Limit {
			break
		}
	}
	return docs, nil
}

func (s *fakeUserStore) Count(ctx context.Context, where bson.M) (int64, error) {
	return int64(len(s.users)), nil
}

func (s *fakeUserStore) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, ok := s.users[id.Hex()]
	if !ok {
		return nil, nil
	}
	copied := *user
	copied.PendingTasks = append([]string{}, user.PendingTasks...)
	return &copied, nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string, exclude primitive.ObjectID) (*models.User, error) {
	for _, user := range s.users {
		if user.ID == exclude {
			continue
		}
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) Insert(ctx context.Context, user *models.User) error {
	s.writeCount++
	s.add(user)
	return nil
}

func (s *fakeUserStore) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	s.writeCount++
	user, ok := s.users[id.Hex()]
	if !ok {
		return nil
	}

	if set, ok := update["$set"].(bson.M); ok {
		for field, value := range set {
			switch field {
			case "name":
				user.Name = value.(string)
			case "email":
				user.Email = value.(string)
			case "pendingTasks":
				user.PendingTasks = append([]string{}, value.([]string)...)
			}
		}
	}
	if add, ok := update["$addToSet"].(bson.M); ok {
		taskID := add["pendingTasks"].(string)
		if !user.HasPendingTask(taskID) {
			user.PendingTasks = append(user.PendingTasks, taskID)
		}
	}
	if pull, ok := update["$pull"].(bson.M); ok {
		taskID := pull["pendingTasks"].(string)
		kept := user.PendingTasks[:0]
		for _, id := range user.PendingTasks {
			if id != taskID {
				kept = append(kept, id)
			}
		}
		user.PendingTasks = kept
	}
	return nil
}

func (s *fakeUserStore) UpdateMany(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	s.writeCount++

	var exclude primitive.ObjectID
	if cond, ok := filter["_id"].(bson.M); ok {
		if ne, ok := cond["$ne"].(primitive.ObjectID); ok {
			exclude = ne
		}
	}
	var member []string
	if cond, ok := filter["pendingTasks"].(bson.M); ok {
		if in, ok := cond["$in"].([]string); ok {
			member = in
		}
	}
	pulled := map[string]bool{}
	if pull, ok := update["$pull"].(bson.M); ok {
		if cond, ok := pull["pendingTasks"].(bson.M); ok {
			if in, ok := cond["$in"].([]string); ok {
				for _, id := range in {
					pulled[id] = true
				}
			}
		}
	}

	var modified int64
	for _, user := range s.users {
		if user.ID == exclude {
			continue
		}
		matches := false
		for _, id := range member {
			if user.HasPendingTask(id) {
				matches = true
				break
			}
		}
		if !matches {
			continue
		}
		kept := user.PendingTasks[:0]
		for _, id := range user.PendingTasks {
			if !pulled[id] {
				kept = append(kept, id)
			}
		}
		user.PendingTasks = kept
		modified++
	}
	return modified, nil
}

func (s *fakeUserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.writeCount++
	delete(s.users, id.Hex())
	return nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
