package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"llama-io/backend/api-service/interfaces"
	"llama-io/backend/api-service/logging"
	"llama-io/backend/api-service/models"
)

type UserService struct {
	users interfaces.UserStore
	tasks interfaces.TaskStore
}

func NewUserService(users interfaces.UserStore, tasks interfaces.TaskStore) *UserService {
	return &UserService{
		users: users,
		tasks: tasks,
	}
}

// CreateUserInput carries the fields accepted when creating a user.
type CreateUserInput struct {
	Name         string
	Email        string
	PendingTasks []string
}

// UpdateUserInput carries a partial user update. A non-nil PendingTasks
// fully replaces the user's task list, including the empty list.
type UpdateUserInput struct {
	Name         *string
	Email        *string
	PendingTasks *[]string
}

func (s *UserService) GetUsers(ctx context.Context, query models.ListQuery) ([]bson.M, error) {
	return s.users.FindDocs(ctx, query)
}

func (s *UserService) CountUsers(ctx context.Context, where bson.M) (int64, error) {
	return s.users.Count(ctx, where)
}

func (s *UserService) GetUser(ctx context.Context, id string, projection bson.M) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, &models.ValidationError{Message: "Invalid user id."}
	}

	docs, err := s.users.FindDocs(ctx, models.ListQuery{
		Where:      bson.M{"_id": oid},
		Projection: projection,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, &models.NotFoundError{Message: "User not found."}
	}
	return docs[0], nil
}

// CreateUser persists a new user and force-assigns every supplied pending
// task to them. This path is deliberately lenient: task ids are not
// validated, unknown ids simply match nothing, and a task already assigned
// elsewhere is overwritten (last writer wins). The strict policy lives in
// UpdateUser.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	if input.Name == "" || input.Email == "" {
		return nil, &models.ValidationError{Message: "Name and email are required to create a user."}
	}

	email := strings.ToLower(input.Email)
	existing, err := s.users.GetByEmail(ctx, email, primitive.NilObjectID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &models.ConflictError{Message: "A user with this email already exists."}
	}

	pendingTasks := input.PendingTasks
	if pendingTasks == nil {
		pendingTasks = []string{}
	}

	user := &models.User{
		ID:           primitive.NewObjectID(),
		Name:         input.Name,
		Email:        email,
		PendingTasks: dedupe(pendingTasks),
		DateCreated:  time.Now().UTC(),
	}

	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}

	if len(user.PendingTasks) > 0 {
		filter := bson.M{"_id": bson.M{"$in": objectIDs(user.PendingTasks)}}
		update := bson.M{"$set": bson.M{
			"assignedUser":     user.ID.Hex(),
			"assignedUserName": user.Name,
		}}
		if _, err := s.tasks.UpdateMany(ctx, filter, update); err != nil {
			logging.Logger.Errorf("Event ID: USER_SYNC_FAILED, Description: User %s created but task assignment sync failed: %v", user.ID.Hex(), err)
			return nil, err
		}
		if err := s.pullStolenTasks(ctx, user.ID, user.PendingTasks); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// pullStolenTasks removes the given task ids from every other user's
// pendingTasks after a force-assignment took them over. Without this a
// last-writer-wins takeover would leave the previous owner's list stale.
func (s *UserService) pullStolenTasks(ctx context.Context, ownerID primitive.ObjectID, taskIDs []string) error {
	filter := bson.M{
		"_id":          bson.M{"$ne": ownerID},
		"pendingTasks": bson.M{"$in": taskIDs},
	}
	pull := bson.M{"$pull": bson.M{"pendingTasks": bson.M{"$in": taskIDs}}}
	if _, err := s.users.UpdateMany(ctx, filter, pull); err != nil {
		logging.Logger.Errorf("Event ID: USER_SYNC_FAILED, Description: Pulling reassigned tasks from previous owners of user %s failed: %v", ownerID.Hex(), err)
		return err
	}
	return nil
}

// UpdateUser applies a partial update to a user. A supplied pendingTasks
// list replaces the old one under the strict policy: every id must be a
// well-formed ObjectID and must name an existing task, checked before any
// write. Tasks on the new list are force-assigned to the user; tasks that
// pointed at the user but dropped off the list are reset to the unassigned
// sentinel. A name change alone still refreshes the denormalized
// assignedUserName on the user's tasks.
func (s *UserService) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, &models.ValidationError{Message: "Invalid user id."}
	}

	user, err := s.users.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &models.NotFoundError{Message: "User not found."}
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, &models.ValidationError{Message: "User name cannot be empty."}
		}
		user.Name = *input.Name
	}

	if input.Email != nil {
		if *input.Email == "" {
			return nil, &models.ValidationError{Message: "User email cannot be empty."}
		}
		email := strings.ToLower(*input.Email)
		owner, err := s.users.GetByEmail(ctx, email, oid)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			return nil, &models.ConflictError{Message: "Another user with this email already exists."}
		}
		user.Email = email
	}

	var replacementIDs []primitive.ObjectID
	if input.PendingTasks != nil {
		requested := dedupe(*input.PendingTasks)

		var invalid []string
		for _, taskID := range requested {
			if _, err := primitive.ObjectIDFromHex(taskID); err != nil {
				invalid = append(invalid, taskID)
			}
		}
		if len(invalid) > 0 {
			return nil, &models.ValidationError{Message: "Some task ids are not valid ids: " + strings.Join(invalid, ", ")}
		}

		replacementIDs = objectIDs(requested)
		docs, err := s.tasks.FindDocs(ctx, models.ListQuery{
			Where:      bson.M{"_id": bson.M{"$in": replacementIDs}},
			Projection: bson.M{"_id": 1},
		})
		if err != nil {
			return nil, err
		}

		found := make(map[string]bool, len(docs))
		for _, doc := range docs {
			if docID, ok := doc["_id"].(primitive.ObjectID); ok {
				found[docID.Hex()] = true
			}
		}
		var missing []string
		for _, taskID := range requested {
			if !found[taskID] {
				missing = append(missing, taskID)
			}
		}
		if len(missing) > 0 {
			return nil, &models.ValidationError{Message: "Some tasks do not exist: " + strings.Join(missing, ", ")}
		}

		user.PendingTasks = requested
	}

	update := bson.M{"$set": bson.M{
		"name":         user.Name,
		"email":        user.Email,
		"pendingTasks": user.PendingTasks,
	}}
	if err := s.users.Update(ctx, oid, update); err != nil {
		return nil, err
	}

	if input.PendingTasks != nil {
		assign := bson.M{"$set": bson.M{
			"assignedUser":     user.ID.Hex(),
			"assignedUserName": user.Name,
		}}
		if _, err := s.tasks.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": replacementIDs}}, assign); err != nil {
			logging.Logger.Errorf("Event ID: USER_SYNC_FAILED, Description: User %s updated but task assignment sync failed: %v", id, err)
			return nil, err
		}
		if len(user.PendingTasks) > 0 {
			if err := s.pullStolenTasks(ctx, oid, user.PendingTasks); err != nil {
				return nil, err
			}
		}

		clear := bson.M{"$set": bson.M{
			"assignedUser":     "",
			"assignedUserName": models.UnassignedName,
		}}
		dropped := bson.M{"assignedUser": user.ID.Hex(), "_id": bson.M{"$nin": replacementIDs}}
		if _, err := s.tasks.UpdateMany(ctx, dropped, clear); err != nil {
			logging.Logger.Errorf("Event ID: USER_SYNC_FAILED, Description: User %s updated but task unassignment sync failed: %v", id, err)
			return nil, err
		}
	} else if input.Name != nil {
		refresh := bson.M{"$set": bson.M{"assignedUserName": user.Name}}
		if _, err := s.tasks.UpdateMany(ctx, bson.M{"assignedUser": user.ID.Hex()}, refresh); err != nil {
			logging.Logger.Errorf("Event ID: USER_SYNC_FAILED, Description: User %s renamed but assignedUserName refresh failed: %v", id, err)
			return nil, err
		}
	}

	return user, nil
}

// DeleteUser resets every task pointing at the user to the unassigned
// sentinel and then removes the user. Tasks are never cascade-deleted.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return &models.ValidationError{Message: "Invalid user id."}
	}

	user, err := s.users.Get(ctx, oid)
	if err != nil {
		return err
	}
	if user == nil {
		return &models.NotFoundError{Message: "User not found."}
	}

	clear := bson.M{"$set": bson.M{
		"assignedUser":     "",
		"assignedUserName": models.UnassignedName,
	}}
	if _, err := s.tasks.UpdateMany(ctx, bson.M{"assignedUser": user.ID.Hex()}, clear); err != nil {
		logging.Logger.Errorf("Event ID: USER_SYNC_FAILED, Description: Task unassignment before deleting user %s failed: %v", id, err)
		return err
	}

	return s.users.Delete(ctx, oid)
}

// dedupe drops repeated ids while preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// objectIDs converts hex ids to ObjectIDs, skipping any that do not parse.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}
