// Package services owns all mutations on tasks and users together with the
// compensating writes that keep Task.assignedUser and User.pendingTasks
// mutually consistent. The primary write and its compensating writes are
// not wrapped in a transaction; a crash between them can leave a stale
// cross-reference until a later mutation repairs it. That gap is a known
// property of the system, not something the services retry around.
package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"llama-io/backend/api-service/interfaces"
	"llama-io/backend/api-service/logging"
	"llama-io/backend/api-service/models"
)

type TaskService struct {
	tasks interfaces.TaskStore
	users interfaces.UserStore
}

func NewTaskService(tasks interfaces.TaskStore, users interfaces.UserStore) *TaskService {
	return &TaskService{
		tasks: tasks,
		users: users,
	}
}

// CreateTaskInput carries the fields accepted when creating a task.
type CreateTaskInput struct {
	Name         string
	Description  string
	Deadline     time.Time
	Completed    bool
	AssignedUser string
}

// UpdateTaskInput carries a partial task update. Nil means the field was
// absent from the request; a pointer to the empty string on AssignedUser
// clears the assignment.
type UpdateTaskInput struct {
	Name         *string
	Description  *string
	Deadline     *time.Time
	Completed    *bool
	AssignedUser *string
}

func (s *TaskService) GetTasks(ctx context.Context, query models.ListQuery) ([]bson.M, error) {
	return s.tasks.FindDocs(ctx, query)
}

func (s *TaskService) CountTasks(ctx context.Context, where bson.M) (int64, error) {
	return s.tasks.Count(ctx, where)
}

// GetTask fetches one task as a raw document so the projection is honored
// on the wire the same way it is for list reads.
func (s *TaskService) GetTask(ctx context.Context, id string, projection bson.M) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, &models.ValidationError{Message: "Invalid task id."}
	}

	docs, err := s.tasks.FindDocs(ctx, models.ListQuery{
		Where:      bson.M{"_id": oid},
		Projection: projection,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, &models.NotFoundError{Message: "Task not found."}
	}
	return docs[0], nil
}

// CreateTask persists a new task and, when it arrives pre-assigned, adds its
// id to the user's pendingTasks. The membership write uses $addToSet so a
// re-application cannot produce a duplicate entry.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if input.Name == "" || input.Deadline.IsZero() {
		return nil, &models.ValidationError{Message: "Task name and deadline are required."}
	}

	assignedUserName := models.UnassignedName
	var assignedUserID primitive.ObjectID
	if input.AssignedUser != "" {
		var err error
		assignedUserID, err = primitive.ObjectIDFromHex(input.AssignedUser)
		if err != nil {
			return nil, &models.ValidationError{Message: "Assigned user id is not a valid id."}
		}
		user, err := s.users.Get(ctx, assignedUserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, &models.ValidationError{Message: "Assigned user not found."}
		}
		assignedUserName = user.Name
	}

	task := &models.Task{
		ID:               primitive.NewObjectID(),
		Name:             input.Name,
		Description:      input.Description,
		Deadline:         input.Deadline,
		Completed:        input.Completed,
		AssignedUser:     input.AssignedUser,
		AssignedUserName: assignedUserName,
		DateCreated:      time.Now().UTC(),
	}

	if err := s.tasks.Insert(ctx, task); err != nil {
		return nil, err
	}

	if input.AssignedUser != "" {
		update := bson.M{"$addToSet": bson.M{"pendingTasks": task.ID.Hex()}}
		if err := s.users.Update(ctx, assignedUserID, update); err != nil {
			logging.Logger.Errorf("Event ID: TASK_SYNC_FAILED, Description: Task %s created but pendingTasks update for user %s failed: %v", task.ID.Hex(), input.AssignedUser, err)
			return nil, err
		}
	}

	return task, nil
}

// UpdateTask applies a partial update to a task. When the assignment
// changes, it pulls the task id from the old user's pendingTasks and adds
// it to the new user's. The two compensating writes touch disjoint
// documents, so their order does not matter; reassigning to the same user
// skips both.
func (s *TaskService) UpdateTask(ctx context.Context, id string, input UpdateTaskInput) (*models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, &models.ValidationError{Message: "Invalid task id."}
	}

	task, err := s.tasks.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, &models.NotFoundError{Message: "Task not found."}
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, &models.ValidationError{Message: "Task name cannot be empty."}
		}
		task.Name = *input.Name
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Deadline != nil {
		if input.Deadline.IsZero() {
			return nil, &models.ValidationError{Message: "Task deadline cannot be empty."}
		}
		task.Deadline = *input.Deadline
	}
	if input.Completed != nil {
		task.Completed = *input.Completed
	}

	oldAssigned := task.AssignedUser
	if input.AssignedUser != nil {
		if *input.AssignedUser != "" {
			userID, err := primitive.ObjectIDFromHex(*input.AssignedUser)
			if err != nil {
				return nil, &models.ValidationError{Message: "Assigned user id is not a valid id."}
			}
			user, err := s.users.Get(ctx, userID)
			if err != nil {
				return nil, err
			}
			if user == nil {
				return nil, &models.ValidationError{Message: "Assigned user not found."}
			}
			task.AssignedUser = *input.AssignedUser
			task.AssignedUserName = user.Name
		} else {
			task.AssignedUser = ""
			task.AssignedUserName = models.UnassignedName
		}
	}

	update := bson.M{"$set": bson.M{
		"name":             task.Name,
		"description":      task.Description,
		"deadline":         task.Deadline,
		"completed":        task.Completed,
		"assignedUser":     task.AssignedUser,
		"assignedUserName": task.AssignedUserName,
	}}
	if err := s.tasks.Update(ctx, oid, update); err != nil {
		return nil, err
	}

	if task.AssignedUser != oldAssigned {
		if oldAssigned != "" {
			if oldID, err := primitive.ObjectIDFromHex(oldAssigned); err == nil {
				pull := bson.M{"$pull": bson.M{"pendingTasks": oid.Hex()}}
				if err := s.users.Update(ctx, oldID, pull); err != nil {
					logging.Logger.Errorf("Event ID: TASK_SYNC_FAILED, Description: Task %s reassigned but pendingTasks pull for user %s failed: %v", id, oldAssigned, err)
					return nil, err
				}
			}
		}
		if task.AssignedUser != "" {
			newID, _ := primitive.ObjectIDFromHex(task.AssignedUser)
			add := bson.M{"$addToSet": bson.M{"pendingTasks": oid.Hex()}}
			if err := s.users.Update(ctx, newID, add); err != nil {
				logging.Logger.Errorf("Event ID: TASK_SYNC_FAILED, Description: Task %s reassigned but pendingTasks add for user %s failed: %v", id, task.AssignedUser, err)
				return nil, err
			}
		}
	}

	return task, nil
}

// DeleteTask removes a task and pulls its id from the assigned user's
// pendingTasks, if it had an assignment. The assignment is captured before
// the delete since the document is gone afterwards.
func (s *TaskService) DeleteTask(ctx context.Context, id string) (*models.DeletedTask, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, &models.ValidationError{Message: "Invalid task id."}
	}

	task, err := s.tasks.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, &models.NotFoundError{Message: "Task not found."}
	}

	if err := s.tasks.Delete(ctx, oid); err != nil {
		return nil, err
	}

	if task.IsAssigned() {
		if userID, err := primitive.ObjectIDFromHex(task.AssignedUser); err == nil {
			pull := bson.M{"$pull": bson.M{"pendingTasks": oid.Hex()}}
			if err := s.users.Update(ctx, userID, pull); err != nil {
				logging.Logger.Errorf("Event ID: TASK_SYNC_FAILED, Description: Task %s deleted but pendingTasks pull for user %s failed: %v", id, task.AssignedUser, err)
				return nil, err
			}
		}
	}

	return &models.DeletedTask{
		ID:               task.ID,
		Name:             task.Name,
		AssignedUser:     task.AssignedUser,
		AssignedUserName: task.AssignedUserName,
	}, nil
}
