package api

import (
	"net/http"

	"github.com/applypass/applypass-api/internal/api/middleware"
	"github.com/applypass/applypass-api/internal/api/shared"
	"github.com/applypass/applypass-api/internal/domain"
	"github.com/applypass/applypass-api/internal/service/queue"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// WorkerHandler handles the worker-side protocol endpoints. All routes are
// behind the worker-secret middleware; the worker ID comes from the request
// context, not the body.
type WorkerHandler struct {
	queueService queue.Service
	validator    *validator.Validate
}

// NewWorkerHandler creates a new WorkerHandler.
func NewWorkerHandler(queueService queue.Service) *WorkerHandler {
	return &WorkerHandler{
		queueService: queueService,
		validator:    validator.New(),
	}
}

// ClaimNext handles POST /api/worker/claim-next requests. An empty queue is
// a 204, not an error; workers poll this endpoint continuously.
func (h *WorkerHandler) ClaimNext(w http.ResponseWriter, r *http.Request) {
	workerID, ok := middleware.GetWorkerID(r)
	if !ok || workerID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Worker ID not found")
		return
	}

	task, err := h.queueService.ClaimNext(r.Context(), workerID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if task == nil {
		shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToClaimedResponse(task))
}

// Heartbeat handles POST /api/worker/tasks/{id}/heartbeat requests.
// A 409 tells the worker the task left the running state (canceled or
// swept); it should abandon the batch.
func (h *WorkerHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req HeartbeatRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	var entry *domain.RunLogEntry
	if req.Entry != nil {
		if err := h.validator.Struct(req.Entry); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
			return
		}
		e := domain.NewRunLogEntry(req.Entry.Level, req.Entry.Message, req.Entry.JobID)
		entry = &e
	}

	if err := h.queueService.Heartbeat(r.Context(), taskID, entry); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// Complete handles POST /api/worker/tasks/{id}/complete requests.
func (h *WorkerHandler) Complete(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req CompleteTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.queueService.Complete(r.Context(), taskID, req.Outcomes); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// Fail handles POST /api/worker/tasks/{id}/fail requests, for batches the
// worker had to abandon (browser crash, fatal automation error).
func (h *WorkerHandler) Fail(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req FailTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.queueService.Fail(r.Context(), taskID, req.Outcomes, req.ErrorMessage); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}
