// Package hub hosts the entity registry. It owns the polling cycle, renders
// entity states after every update, detects transitions, and forwards them
// to the recorder.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"hearth/internal/types"
)

// updateTimeout bounds a single entity update during a polling cycle.
const updateTimeout = 30 * time.Second

// StateWriter receives state transitions the hub observed. A nil writer
// disables recording.
type StateWriter interface {
	Record(ctx context.Context, change types.StateChange) error
}

// EntityState is the rendered view of one entity.
type EntityState struct {
	EntityID          string    `json:"entity_id"`
	Name              string    `json:"name"`
	State             string    `json:"state"`
	UnitOfMeasurement string    `json:"unit_of_measurement,omitempty"`
	LastChanged       time.Time `json:"last_changed"`
}

// Hub is the entity registry and update loop. All entity access is
// serialized through the hub's lock: adapters themselves do not need to be
// safe for concurrent use.
type Hub struct {
	mu       sync.Mutex
	entities map[string]types.Entity
	states   map[string]EntityState
	order    []string

	recorder  StateWriter
	clock     types.Clock
	logger    *slog.Logger
	scheduler *gocron.Scheduler
}

// New builds an empty hub. A nil clock defaults to the wall clock; a nil
// recorder disables state recording.
func New(recorder StateWriter, clock types.Clock, logger *slog.Logger) *Hub {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Hub{
		entities:  make(map[string]types.Entity),
		states:    make(map[string]EntityState),
		recorder:  recorder,
		clock:     clock,
		logger:    logger,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// AddEntities registers entities and renders their initial state. Duplicate
// IDs replace the previous registration. It satisfies types.AddEntities.
func (h *Hub) AddEntities(entities ...types.Entity) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range entities {
		id := e.ID()
		if _, exists := h.entities[id]; !exists {
			h.order = append(h.order, id)
		}
		h.entities[id] = e
		h.render(context.Background(), e)
		h.logger.Info("entity registered", "entity", id, "name", e.Name())
	}
}

// Entity returns the registered entity for id.
func (h *Hub) Entity(id string) (types.Entity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entities[id]
	return e, ok
}

// State returns the rendered state for id.
func (h *Hub) State(id string) (EntityState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.states[id]
	return s, ok
}

// States returns all rendered states in registration order.
func (h *Hub) States() []EntityState {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]EntityState, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.states[id])
	}
	return out
}

// RequestRefresh re-renders one entity's state from its current view without
// calling Update. Event-driven adapters call this when their device signals
// a change. Unknown IDs are ignored.
func (h *Hub) RequestRefresh(entityID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.entities[entityID]
	if !ok {
		return
	}
	h.render(context.Background(), e)
}

// UpdateAll runs one polling cycle: Update then render for every entity.
// A failing entity keeps its previous rendered state; the cycle continues.
func (h *Hub) UpdateAll(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range h.order {
		e := h.entities[id]

		updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
		err := e.Update(updateCtx)
		cancel()
		if err != nil {
			h.logger.Warn("entity update failed", "entity", id, "error", err)
			continue
		}
		h.render(ctx, e)
	}
}

// Start schedules the polling cycle at the given interval and runs it in the
// background.
func (h *Hub) Start(interval time.Duration) error {
	_, err := h.scheduler.Every(interval).Do(func() {
		h.UpdateAll(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule polling cycle: %w", err)
	}
	h.scheduler.StartAsync()
	h.logger.Info("polling started", "interval", interval.String())
	return nil
}

// Stop halts the polling cycle.
func (h *Hub) Stop() {
	h.scheduler.Stop()
}

// render refreshes the stored EntityState from the entity's live view and
// forwards the transition to the recorder when the state string changed.
// Callers hold h.mu.
func (h *Hub) render(ctx context.Context, e types.Entity) {
	id := e.ID()
	state := renderState(e.State())

	prev, had := h.states[id]
	next := EntityState{
		EntityID:    id,
		Name:        e.Name(),
		State:       state,
		LastChanged: h.clock.Now(),
	}
	if m, ok := e.(types.Measurement); ok {
		next.UnitOfMeasurement = m.UnitOfMeasurement()
	}
	if had && prev.State == state {
		// Only the unit may drift without a state change; keep LastChanged.
		next.LastChanged = prev.LastChanged
		h.states[id] = next
		return
	}
	h.states[id] = next

	if h.recorder == nil {
		return
	}
	change := types.StateChange{
		ID:        uuid.NewString(),
		EntityID:  id,
		OldState:  prev.State,
		NewState:  state,
		ChangedAt: next.LastChanged,
	}
	if err := h.recorder.Record(ctx, change); err != nil {
		h.logger.Warn("recording state change failed", "entity", id, "error", err)
	}
}

// renderState normalizes an entity state for storage and the API. Floats
// render without a trailing ".0" so 21.0 and a plain 21 read the same.
func renderState(state any) string {
	switch v := state.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
