package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnassignedName is the display name a task carries while no user is assigned.
// The assignedUser field itself holds the empty string in that state.
const UnassignedName = "unassigned"

type Task struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name             string             `bson:"name" json:"name"`
	Description      string             `bson:"description" json:"description"`
	Deadline         time.Time          `bson:"deadline" json:"deadline"`
	Completed        bool               `bson:"completed" json:"completed"`
	AssignedUser     string             `bson:"assignedUser" json:"assignedUser"`
	AssignedUserName string             `bson:"assignedUserName" json:"assignedUserName"`
	DateCreated      time.Time          `bson:"dateCreated" json:"dateCreated"`
}

// DeletedTask is the identity summary returned after a task is removed;
// the full document no longer exists at that point.
type DeletedTask struct {
	ID               primitive.ObjectID `json:"_id"`
	Name             string             `json:"name"`
	AssignedUser     string             `json:"assignedUser"`
	AssignedUserName string             `json:"assignedUserName"`
}

// IsAssigned reports whether the task currently references a user.
func (t *Task) IsAssigned() bool {
	return t.AssignedUser != ""
}

var deadlineLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDeadline decodes a raw JSON deadline value. Clients send deadlines as
// RFC3339 strings, bare dates or unix milliseconds. A null or empty value
// decodes to the zero time so callers can apply their required-field check.
func ParseDeadline(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if str == "" {
			return time.Time{}, nil
		}
		for _, layout := range deadlineLayouts {
			if t, err := time.Parse(layout, str); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized deadline format: %q", str)
	}

	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized deadline value: %s", raw)
}
