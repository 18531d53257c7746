package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"timetracker/internal/domain"
	"timetracker/internal/http/dto"
	"timetracker/internal/service"
	"timetracker/internal/tasks"
)

type TimerService interface {
	Start(ctx context.Context, ident service.Identity, taskID, notes string, clientTime *time.Time) (domain.TimerRecord, error)
	Stop(ctx context.Context, ident service.Identity, timerID, notes string) (domain.TimerRecord, error)
	ForceStop(ctx context.Context, ident service.Identity, timerID string) error
	GetOngoing(ctx context.Context, ident service.Identity, userID string) (*service.Ongoing, error)
	ListAllOngoing(ctx context.Context, ident service.Identity) ([]service.Ongoing, error)
	CreateManualEntry(ctx context.Context, ident service.Identity, taskID string, start time.Time, durationSeconds int64, notes string) (domain.TimerRecord, error)
}

// TaskAdmin is the slice of the task collaborator the transport exposes:
// deleting a task, which cascades into the timer hook.
type TaskAdmin interface {
	Delete(taskID string) error
}

type TimerHandler struct {
	timers TimerService
	tasks  TaskAdmin
}

func New(timers TimerService, tasks TaskAdmin) *TimerHandler {
	return &TimerHandler{timers: timers, tasks: tasks}
}

// POST /timers
func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req dto.StartTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.timers.Start(r.Context(), ident, req.TaskID, req.Notes, req.ClientTime)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, service.ErrInvalidInput.Error())
		case errors.Is(err, service.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, service.ErrAlreadyRunning.Error())
		case errors.Is(err, service.ErrTaskNotAssigned):
			writeError(w, http.StatusForbidden, service.ErrTaskNotAssigned.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, timerResponse(rec))
}

// POST /timers/{id}/stop
func (h *TimerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req dto.StopTimerRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	rec, err := h.timers.Stop(r.Context(), ident, r.PathValue("id"), req.Notes)
	if err != nil {
		h.writeTimerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, timerResponse(rec))
}

// DELETE /timers/{id}
func (h *TimerHandler) ForceStop(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	if err := h.timers.ForceStop(r.Context(), ident, r.PathValue("id")); err != nil {
		h.writeTimerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ForceStopResponse{Success: true})
}

// GET /timers/ongoing?user_id=...
func (h *TimerHandler) Ongoing(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	ongoing, err := h.timers.GetOngoing(r.Context(), ident, r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeTimerError(w, err)
		return
	}
	if ongoing == nil {
		// No ongoing timer is a normal poll answer, not an error.
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, ongoingResponse(*ongoing))
}

// GET /timers/ongoing/all
func (h *TimerHandler) AllOngoing(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	all, err := h.timers.ListAllOngoing(r.Context(), ident)
	if err != nil {
		h.writeTimerError(w, err)
		return
	}

	response := make([]dto.OngoingResponse, 0, len(all))
	for _, ongoing := range all {
		response = append(response, ongoingResponse(ongoing))
	}
	writeJSON(w, http.StatusOK, response)
}

// POST /entries
func (h *TimerHandler) CreateManualEntry(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req dto.ManualEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var start time.Time
	if req.StartTime != nil {
		start = *req.StartTime
	}

	rec, err := h.timers.CreateManualEntry(r.Context(), ident, req.TaskID, start, req.DurationSeconds, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, service.ErrInvalidInput.Error())
		case errors.Is(err, service.ErrTaskNotAssigned):
			writeError(w, http.StatusForbidden, service.ErrTaskNotAssigned.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, timerResponse(rec))
}

// DELETE /tasks/{id}
func (h *TimerHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	if !ident.Elevated {
		writeError(w, http.StatusForbidden, service.ErrUnauthorized.Error())
		return
	}

	if err := h.tasks.Delete(r.PathValue("id")); err != nil {
		if errors.Is(err, tasks.ErrUnknownTask) {
			writeError(w, http.StatusNotFound, tasks.ErrUnknownTask.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, dto.ForceStopResponse{Success: true})
}

// GET /healthz
func (h *TimerHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TimerHandler) writeTimerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, service.ErrInvalidInput.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, service.ErrNotFound.Error())
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusForbidden, service.ErrUnauthorized.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func timerResponse(rec domain.TimerRecord) dto.TimerResponse {
	return dto.TimerResponse{
		ID:              rec.ID,
		UserID:          rec.UserID,
		TaskID:          rec.TaskID,
		StartTime:       rec.StartTime,
		EndTime:         rec.EndTime,
		DurationSeconds: rec.DurationSeconds(),
		Notes:           rec.Notes,
	}
}

func ongoingResponse(ongoing service.Ongoing) dto.OngoingResponse {
	return dto.OngoingResponse{
		ID:             ongoing.ID,
		UserID:         ongoing.UserID,
		TaskID:         ongoing.TaskID,
		StartTime:      ongoing.StartTime,
		ElapsedSeconds: ongoing.ElapsedSeconds,
		Notes:          ongoing.Notes,
	}
}
