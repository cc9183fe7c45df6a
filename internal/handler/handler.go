package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aofbiz/allset/internal/auth"
	"github.com/aofbiz/allset/internal/gzip"
	"github.com/aofbiz/allset/internal/handler/config"
	"github.com/aofbiz/allset/internal/logger"
	"github.com/aofbiz/allset/internal/model"
	"github.com/aofbiz/allset/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Serve обслуживает HTTP API до отмены ctx
func Serve(ctx context.Context, cfg config.Config, auth auth.Auth, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(auth, service, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zaplog.Info("http server started", zap.String("addr", cfg.ServerAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type handler struct {
	auth    auth.Auth
	service service.Service
	zaplog  *zap.Logger
}

func newHandler(auth auth.Auth, service service.Service, zaplog *zap.Logger) *handler {
	return &handler{
		auth:    auth,
		service: service,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/register", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Register, h.zaplog)))
	mux.HandleFunc("POST /api/user/login", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Login, h.zaplog)))
	mux.HandleFunc("POST /api/orders", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.PostOrder), h.zaplog)))
	mux.HandleFunc("GET /api/orders", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.ListOrders), h.zaplog)))
	mux.HandleFunc("GET /api/orders/{id}", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.GetOrder), h.zaplog)))
	mux.HandleFunc("PUT /api/orders/{id}", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.PutOrder), h.zaplog)))
	mux.HandleFunc("POST /api/orders/{id}/sync", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.SyncOrder), h.zaplog)))
	mux.HandleFunc("GET /api/reports/sales", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.GetSales), h.zaplog)))
	mux.HandleFunc("GET /health", h.Health)

	return mux
}

func (h *handler) PostOrder(w http.ResponseWriter, r *http.Request) {
	var order model.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	order.Owner = r.Header.Get(auth.HeaderUserCodeKey)

	order, err := h.service.PostOrder(r.Context(), order)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *handler) PutOrder(w http.ResponseWriter, r *http.Request) {
	var order model.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	order.ID = r.PathValue("id")
	order.Owner = r.Header.Get(auth.HeaderUserCodeKey)

	order, err := h.service.PutOrder(r.Context(), order)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userCode := r.Header.Get(auth.HeaderUserCodeKey)

	order, err := h.service.GetOrder(r.Context(), userCode, r.PathValue("id"))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userCode := r.Header.Get(auth.HeaderUserCodeKey)

	orders, err := h.service.ListOrders(r.Context(), userCode)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

type syncJSONResponse struct {
	service.SyncResult
	Message string `json:"message,omitempty"`
}

func (h *handler) SyncOrder(w http.ResponseWriter, r *http.Request) {
	userCode := r.Header.Get(auth.HeaderUserCodeKey)

	res, err := h.service.SyncOrder(r.Context(), userCode, r.PathValue("id"))
	if err != nil {
		h.serviceError(w, err)
		return
	}

	resp := syncJSONResponse{SyncResult: res}
	if res.Changed {
		resp.Message = service.SyncedMessage
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) GetSales(w http.ResponseWriter, r *http.Request) {
	userCode := r.Header.Get(auth.HeaderUserCodeKey)

	summary, err := h.service.SalesSummary(r.Context(), userCode)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientData):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrAlreadyExists), errors.Is(err, service.ErrNoTrackingNumber):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrCourierDisabled):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, service.ErrCourier):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.zaplog.Error("request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, code int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(responseJSON)
}
