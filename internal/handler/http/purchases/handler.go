package purchases_http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"checkout/internal/domain"
	"checkout/internal/repository/outbox_repo"
	"checkout/internal/repository/permissions_repo"
	"checkout/internal/repository/tasks_repo"
	"checkout/internal/util"
)

type PurchaseHandler struct {
	tasks       tasks_repo.TaskRepository
	permissions permissions_repo.PermissionRepository
	db          domain.Querier
	taskTopic   string
	logger      *zap.Logger
}

func NewPurchaseHandler(
	tasks tasks_repo.TaskRepository,
	permissions permissions_repo.PermissionRepository,
	db domain.Querier,
	taskTopic string,
	logger *zap.Logger,
) *PurchaseHandler {
	return &PurchaseHandler{
		tasks:       tasks,
		permissions: permissions,
		db:          db,
		taskTopic:   taskTopic,
		logger:      logger,
	}
}

type CreatePurchaseResponse struct {
	TaskID string `json:"task_id"`
	State  string `json:"state"`
}

type PurchaseTaskResponse struct {
	TaskID   string `json:"task_id"`
	State    string `json:"state"`
	Progress int    `json:"progress"`
	Feedback string `json:"feedback,omitempty"`
}

type PermissionResponse struct {
	UID   string `json:"uid"`
	Slug  string `json:"slug"`
	Valid bool   `json:"valid"`
}

// CreatePurchaseHandler validates the request, then records the ledger
// entry and its queue publish in one transaction. The outbox sender
// delivers the publish to Kafka, so a broker outage cannot leave a task
// recorded but never enqueued.
func (h *PurchaseHandler) CreatePurchaseHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for CreatePurchase", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		h.logger.Warn("Rejected invalid purchase request", zap.String("uid", req.UID))
		http.Error(w, domain.FeedbackInvalidRequest, http.StatusBadRequest)
		return
	}

	now := time.Now()
	task := &domain.PurchaseTask{
		ID:        util.NewTaskID(),
		Request:   req,
		State:     domain.TaskStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	payload, err := json.Marshal(domain.PurchaseTaskEvent{
		TaskID:     task.ID,
		Request:    req,
		EnqueuedAt: now,
	})
	if err != nil {
		h.logger.Error("Failed to marshal purchase task event", zap.String("task_id", task.ID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	outboxMessage := &outbox_repo.OutboxMessage{
		ID:        util.NewTaskID(),
		Topic:     h.taskTopic,
		Key:       task.ID,
		Payload:   payload,
		Status:    outbox_repo.StatusPending,
		CreatedAt: now,
	}

	if err := h.tasks.CreateWithOutboxMessage(r.Context(), task, outboxMessage); err != nil {
		h.logger.Error("Failed to create purchase task record", zap.String("uid", req.UID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := CreatePurchaseResponse{
		TaskID: task.ID,
		State:  string(task.State),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *PurchaseHandler) GetPurchaseTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		http.Error(w, "Task ID is required", http.StatusBadRequest)
		return
	}

	task, err := h.tasks.GetByIDTx(r.Context(), h.db, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			http.Error(w, "Purchase task not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get purchase task", zap.String("task_id", taskID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := PurchaseTaskResponse{
		TaskID:   task.ID,
		State:    string(task.State),
		Progress: task.Progress,
		Feedback: task.Feedback,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

// DeletePurchaseTaskHandler removes the ledger record once the client has
// observed the outcome.
func (h *PurchaseHandler) DeletePurchaseTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		http.Error(w, "Task ID is required", http.StatusBadRequest)
		return
	}

	if err := h.tasks.DeleteTx(r.Context(), h.db, taskID); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			http.Error(w, "Purchase task not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to delete purchase task", zap.String("task_id", taskID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPermissionHandler lets the client check whether access to a purchased
// item has been granted.
func (h *PurchaseHandler) GetPermissionHandler(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	slug := chi.URLParam(r, "slug")
	if uid == "" || slug == "" {
		http.Error(w, "uid and slug are required", http.StatusBadRequest)
		return
	}

	valid, err := h.permissions.IsGrantedTx(r.Context(), h.db, uid, slug)
	if err != nil {
		h.logger.Error("Failed to check permission", zap.String("uid", uid), zap.String("slug", slug), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := PermissionResponse{
		UID:   uid,
		Slug:  slug,
		Valid: valid,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}
