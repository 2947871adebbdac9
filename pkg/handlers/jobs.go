package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
	"github.com/Vvil1568/lct-hackathone/pkg/services/workqueue"
)

// maxBatchBytes bounds a submitted batch body.
const maxBatchBytes = 32 << 20

// JobQueue is what the job endpoints need from the queue.
type JobQueue interface {
	Submit(batch models.Batch) (string, error)
	Get(id string) (workqueue.JobSnapshot, error)
	Result(id string) (models.Outcome, error)
}

// TaskResponse is returned by POST /api/new.
type TaskResponse struct {
	TaskID string `json:"taskid"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Status string `json:"status"`
}

// JobsHandler serves the batch submission API.
type JobsHandler struct {
	queue  JobQueue
	logger *zap.Logger
}

func NewJobsHandler(queue JobQueue, logger *zap.Logger) *JobsHandler {
	return &JobsHandler{queue: queue, logger: logger.Named("jobs-handler")}
}

// RegisterRoutes registers the job routes on the given mux.
// Status and result accept the id in the path or as ?task_id=.
func (h *JobsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/new", h.New)
	mux.HandleFunc("GET /api/status/{id}", h.Status)
	mux.HandleFunc("GET /api/status", h.Status)
	mux.HandleFunc("GET /api/getresult/{id}", h.Result)
	mux.HandleFunc("GET /api/getresult", h.Result)
}

// New handles POST /api/new.
func (h *JobsHandler) New(w http.ResponseWriter, r *http.Request) {
	var batch models.Batch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBytes)).Decode(&batch); err != nil {
		h.respondError(w, fmt.Errorf("%w: request body is not a valid batch: %v", apperrors.ErrInvalidInput, err))
		return
	}
	if err := batch.Validate(); err != nil {
		h.respondError(w, err)
		return
	}

	id, err := h.queue.Submit(batch)
	if err != nil {
		if errors.Is(err, workqueue.ErrQueueClosed) {
			_ = ErrorResponse(w, http.StatusServiceUnavailable, "shutting_down", err.Error())
			return
		}
		h.respondError(w, err)
		return
	}

	h.logger.Info("Batch accepted",
		zap.String("task_id", id),
		zap.Int("queries", len(batch.Queries)),
		zap.Int("ddl", len(batch.DDL)))
	if err := WriteJSON(w, http.StatusAccepted, TaskResponse{TaskID: id}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Status handles GET /api/status/{id}. Pending jobs report RUNNING and
// cancelled jobs report FAILED.
func (h *JobsHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	snap, err := h.queue.Get(id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	status := string(snap.Status)
	switch snap.Status {
	case workqueue.JobStatusPending:
		status = string(workqueue.JobStatusRunning)
	case workqueue.JobStatusCancelled:
		status = string(workqueue.JobStatusFailed)
	}
	if err := WriteJSON(w, http.StatusOK, StatusResponse{Status: status}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Result handles GET /api/getresult/{id}: the remediation, or {"error": ...}.
// A failed job is a 200 with its error payload; an unfinished one is a 409.
func (h *JobsHandler) Result(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	outcome, err := h.queue.Result(id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, outcome); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *JobsHandler) taskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		id = r.URL.Query().Get("task_id")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		h.respondError(w, fmt.Errorf("%w: task id is required", apperrors.ErrInvalidInput))
		return "", false
	}
	return id, true
}

func (h *JobsHandler) respondError(w http.ResponseWriter, err error) {
	status, _ := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}
	if writeErr := WriteError(w, err); writeErr != nil {
		h.logger.Error("Failed to encode error response", zap.Error(writeErr))
	}
}
