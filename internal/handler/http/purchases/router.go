package purchases_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go.uber.org/zap"

	"checkout/internal/domain"
	"checkout/internal/repository/permissions_repo"
	"checkout/internal/repository/tasks_repo"
)

func RegisterRoutes(
	r chi.Router,
	tasks tasks_repo.TaskRepository,
	permissions permissions_repo.PermissionRepository,
	db domain.Querier,
	taskTopic string,
	l *zap.Logger,
) {
	handler := NewPurchaseHandler(tasks, permissions, db, taskTopic, l.With(zap.String("component", "PurchaseHTTPHandler")))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Checkout service is healthy!"))
		})
	})

	r.Route("/purchases", func(r chi.Router) {
		r.Post("/", handler.CreatePurchaseHandler)
		r.Get("/{id}", handler.GetPurchaseTaskHandler)
		r.Delete("/{id}", handler.DeletePurchaseTaskHandler)
	})

	r.Route("/permissions", func(r chi.Router) {
		r.Get("/{uid}/{slug}", handler.GetPermissionHandler)
	})
}
