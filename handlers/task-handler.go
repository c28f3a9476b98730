package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"llama-io/backend/api-service/logging"
	"llama-io/backend/api-service/models"
	"llama-io/backend/api-service/services"
)

// defaultTaskLimit caps unbounded task listings.
const defaultTaskLimit = 100

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// GetTasks handles GET /api/tasks, including count mode.
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	query := models.DecodeListQuery(r.URL.Query(), defaultTaskLimit)

	if query.Count {
		count, err := h.service.CountTasks(r.Context(), query.Where)
		if err != nil {
			respondError(w, err, "Failed to fetch tasks. Please try again later.")
			return
		}
		respondJSON(w, http.StatusOK, "OK", count)
		return
	}

	tasks, err := h.service.GetTasks(r.Context(), query)
	if err != nil {
		respondError(w, err, "Failed to fetch tasks. Please try again later.")
		return
	}
	respondJSON(w, http.StatusOK, "OK", tasks)
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name         string          `json:"name"`
		Description  string          `json:"description"`
		Deadline     json.RawMessage `json:"deadline"`
		Completed    bool            `json:"completed"`
		AssignedUser string          `json:"assignedUser"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, "Invalid request body.", nil)
		return
	}

	deadline, err := models.ParseDeadline(body.Deadline)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, "Task deadline is not a valid date.", nil)
		return
	}

	task, err := h.service.CreateTask(r.Context(), services.CreateTaskInput{
		Name:         body.Name,
		Description:  body.Description,
		Deadline:     deadline,
		Completed:    body.Completed,
		AssignedUser: body.AssignedUser,
	})
	if err != nil {
		respondError(w, err, "Could not create task at the moment.")
		return
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created (assignedUser=%q)", task.ID.Hex(), task.AssignedUser)
	respondJSON(w, http.StatusCreated, "Task created successfully.", task)
}

// GetTask handles GET /api/tasks/{id} with an optional projection.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	projection := models.DecodeProjection(r.URL.Query())

	task, err := h.service.GetTask(r.Context(), id, projection)
	if err != nil {
		respondError(w, err, "Failed to fetch task. Please try again later.")
		return
	}
	respondJSON(w, http.StatusOK, "OK", task)
}

// UpdateTask handles PUT /api/tasks/{id} with partial fields. assignedUser
// distinguishes absent from null/empty: absent leaves the assignment alone,
// null or "" clears it.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body struct {
		Name         *string         `json:"name"`
		Description  *string         `json:"description"`
		Deadline     json.RawMessage `json:"deadline"`
		Completed    *bool           `json:"completed"`
		AssignedUser json.RawMessage `json:"assignedUser"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, "Invalid request body.", nil)
		return
	}

	input := services.UpdateTaskInput{
		Name:        body.Name,
		Description: body.Description,
		Completed:   body.Completed,
	}

	if body.Deadline != nil {
		deadline, err := models.ParseDeadline(body.Deadline)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, "Task deadline is not a valid date.", nil)
			return
		}
		input.Deadline = &deadline
	}

	assignedUser, err := decodeOptionalString(body.AssignedUser)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, "Invalid request body.", nil)
		return
	}
	input.AssignedUser = assignedUser

	task, err := h.service.UpdateTask(r.Context(), id, input)
	if err != nil {
		respondError(w, err, "Could not update task at the moment.")
		return
	}

	respondJSON(w, http.StatusOK, "Task updated successfully.", task)
}

// DeleteTask handles DELETE /api/tasks/{id} and returns an identity summary
// of the removed task.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	summary, err := h.service.DeleteTask(r.Context(), id)
	if err != nil {
		respondError(w, err, "Could not delete task at the moment.")
		return
	}

	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted (assignedUser=%q)", id, summary.AssignedUser)
	respondJSON(w, http.StatusOK, "Task deleted successfully.", summary)
}

// decodeOptionalString maps an absent value to nil and JSON null to the
// empty string, so "clear this field" survives decoding.
func decodeOptionalString(raw json.RawMessage) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	if string(raw) == "null" {
		empty := ""
		return &empty, nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return &value, nil
}
