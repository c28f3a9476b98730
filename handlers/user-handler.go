package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"llama-io/backend/api-service/logging"
	"llama-io/backend/api-service/models"
	"llama-io/backend/api-service/services"
)

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// GetUsers handles GET /api/users, including count mode. Unlike tasks,
// user listings have no default limit.
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	query := models.DecodeListQuery(r.URL.Query(), 0)

	if query.Count {
		count, err := h.service.CountUsers(r.Context(), query.Where)
		if err != nil {
			respondError(w, err, "Failed to fetch users. Please try again later.")
			return
		}
		respondJSON(w, http.StatusOK, "OK", count)
		return
	}

	users, err := h.service.GetUsers(r.Context(), query)
	if err != nil {
		respondError(w, err, "Failed to fetch users. Please try again later.")
		return
	}
	respondJSON(w, http.StatusOK, "OK", users)
}

// CreateUser handles POST /api/users.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name         string   `json:"name"`
		Email        string   `json:"email"`
		PendingTasks []string `json:"pendingTasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, "Invalid request body.", nil)
		return
	}

	user, err := h.service.CreateUser(r.Context(), services.CreateUserInput{
		Name:         body.Name,
		Email:        body.Email,
		PendingTasks: body.PendingTasks,
	})
	if err != nil {
		respondError(w, err, "Could not create user at the moment.")
		return
	}

	logging.Logger.Infof("Event ID: USER_CREATED, Description: User %s created with %d pending tasks", user.ID.Hex(), len(user.PendingTasks))
	respondJSON(w, http.StatusCreated, "User created successfully.", user)
}

// GetUser handles GET /api/users/{id} with an optional projection.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	projection := models.DecodeProjection(r.URL.Query())

	user, err := h.service.GetUser(r.Context(), id, projection)
	if err != nil {
		respondError(w, err, "Failed to fetch user. Please try again later.")
		return
	}
	respondJSON(w, http.StatusOK, "OK", user)
}

// UpdateUser handles PUT /api/users/{id}. A pendingTasks array in the body,
// empty included, replaces the user's task list; JSON null counts as absent.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body struct {
		Name         *string   `json:"name"`
		Email        *string   `json:"email"`
		PendingTasks *[]string `json:"pendingTasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, "Invalid request body.", nil)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, services.UpdateUserInput{
		Name:         body.Name,
		Email:        body.Email,
		PendingTasks: body.PendingTasks,
	})
	if err != nil {
		respondError(w, err, "Could not update user at the moment.")
		return
	}

	respondJSON(w, http.StatusOK, "User updated successfully.", user)
}

// DeleteUser handles DELETE /api/users/{id}. Success is a bare 204.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		respondError(w, err, "Could not delete user at the moment.")
		return
	}

	logging.Logger.Infof("Event ID: USER_DELETED, Description: User %s deleted, tasks reset to unassigned", id)
	w.WriteHeader(http.StatusNoContent)
}
