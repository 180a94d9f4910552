package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hearth/internal/types"
)

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status   string `json:"status"`
	Entities int    `json:"entities"`
}

// HandleHealth reports liveness and the registered entity count. It sits
// outside the authenticated subtree so monitors need no credentials.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, HealthStatus{
		Status:   "ok",
		Entities: len(s.Hub.States()),
	})
}

// HandleStates returns the rendered state of every registered entity.
func (s *Server) HandleStates(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, APIResponse{Data: s.Hub.States()})
}

// HandleState returns one entity's rendered state.
func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	state, ok := s.Hub.State(entityID)
	if !ok {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundEntity, "entity not found", nil))
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: state})
}

// HandleHistory returns recorded state transitions for an entity, newest
// first. The optional limit query parameter caps the result.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	if _, ok := s.Hub.State(entityID); !ok {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundEntity, "entity not found", nil))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "limit must be a non-negative integer", err))
			return
		}
		limit = n
	}

	changes, err := s.History.History(r.Context(), entityID, limit)
	if err != nil {
		Error(w, r, err)
		return
	}
	if changes == nil {
		changes = []types.StateChange{}
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: changes})
}

// HandleDoorOpen commands a door entity open.
func (s *Server) HandleDoorOpen(w http.ResponseWriter, r *http.Request) {
	s.handleDoorCommand(w, r, func(door types.Door) error {
		return door.OpenDoor(r.Context())
	})
}

// HandleDoorClose commands a door entity closed.
func (s *Server) HandleDoorClose(w http.ResponseWriter, r *http.Request) {
	s.handleDoorCommand(w, r, func(door types.Door) error {
		return door.CloseDoor(r.Context())
	})
}

// handleDoorCommand resolves the entity, checks the door capability, runs
// the command, and returns the re-rendered state. The command itself is
// fire-and-forget at the device level: the returned state may still show
// the old position until the device confirms.
func (s *Server) handleDoorCommand(w http.ResponseWriter, r *http.Request, command func(types.Door) error) {
	entityID := chi.URLParam(r, "entityID")

	entity, ok := s.Hub.Entity(entityID)
	if !ok {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundEntity, "entity not found", nil))
		return
	}

	door, ok := entity.(types.Door)
	if !ok {
		Error(w, r, types.NewAppError(types.ErrCodeConflictNotADoor, "entity does not support door commands", nil))
		return
	}

	if err := command(door); err != nil {
		Error(w, r, types.NewAppError(types.ErrCodeUpstreamDevice, "device command failed", err))
		return
	}

	s.Hub.RequestRefresh(entityID)
	state, _ := s.Hub.State(entityID)
	JSON(w, r, http.StatusOK, APIResponse{Data: state})
}
