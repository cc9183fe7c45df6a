package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aofbiz/allset/internal/auth"
	"github.com/aofbiz/allset/internal/handler/config"
	"github.com/aofbiz/allset/internal/model"
	"github.com/aofbiz/allset/internal/service"
)

const testUser = "user-1"

type stubAuth struct{}

func (stubAuth) Register(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
func (stubAuth) Login(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func (stubAuth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		r.Header.Set(auth.HeaderUserCodeKey, testUser)
		h(w, r)
	}
}

type stubService struct {
	orders  map[string]model.Order
	sync    service.SyncResult
	syncErr error
	posted  []model.Order
}

func (s *stubService) PostOrder(_ context.Context, order model.Order) (model.Order, error) {
	if order.CustomerName == "" {
		return model.Order{}, service.ErrInsufficientData
	}
	order.ID = "new-id"
	s.posted = append(s.posted, order)
	return order, nil
}

func (s *stubService) PutOrder(_ context.Context, order model.Order) (model.Order, error) {
	if _, ok := s.orders[order.ID]; !ok {
		return model.Order{}, service.ErrNotFound
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubService) GetOrder(_ context.Context, owner string, id string) (model.Order, error) {
	order, ok := s.orders[id]
	if !ok || order.Owner != owner {
		return model.Order{}, service.ErrNotFound
	}
	return order, nil
}

func (s *stubService) ListOrders(_ context.Context, owner string) ([]model.Order, error) {
	var orders []model.Order
	for _, order := range s.orders {
		if order.Owner == owner {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (s *stubService) SyncOrder(_ context.Context, _ string, _ string) (service.SyncResult, error) {
	return s.sync, s.syncErr
}

func (s *stubService) SalesSummary(_ context.Context, _ string) (model.SalesSummary, error) {
	return model.SalesSummary{Revenue: 1500.5, RevenueFormatted: "Rs. 1,500.50", TotalOrders: 2}, nil
}

func (s *stubService) Run(_ context.Context) error { return nil }

func newTestServer(t *testing.T, svc *stubService) *httptest.Server {
	t.Helper()
	h := newHandler(stubAuth{}, svc, zap.NewNop())
	srv := httptest.NewServer(h.newRouter())
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer test")
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(respBody)
}

func TestPostOrder(t *testing.T) {
	svc := &stubService{orders: map[string]model.Order{}}
	srv := newTestServer(t, svc)

	resp, body := doRequest(t, srv, http.MethodPost, "/api/orders", `{"customerName":"Nimali","orderItems":[{"quantity":2,"unitPrice":100}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got model.Order
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "new-id", got.ID)
	require.Len(t, svc.posted, 1)
	assert.Equal(t, testUser, svc.posted[0].Owner)

	resp, _ = doRequest(t, srv, http.MethodPost, "/api/orders", `{"customerName":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, srv, http.MethodPost, "/api/orders", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOrdersRequireAuth(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	resp, err := srv.Client().Get(srv.URL + "/api/orders")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetAndListOrders(t *testing.T) {
	svc := &stubService{orders: map[string]model.Order{}}
	srv := newTestServer(t, svc)

	resp, _ := doRequest(t, srv, http.MethodGet, "/api/orders", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	svc.orders["o-1"] = model.Order{ID: "o-1", Owner: testUser, CustomerName: "Nimali"}
	svc.orders["o-2"] = model.Order{ID: "o-2", Owner: "someone-else", CustomerName: "Kamal"}

	resp, body := doRequest(t, srv, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []model.Order
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "o-1", list[0].ID)

	resp, body = doRequest(t, srv, http.MethodGet, "/api/orders/o-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"customerName":"Nimali"`)

	resp, _ = doRequest(t, srv, http.MethodGet, "/api/orders/o-2", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPutOrder(t *testing.T) {
	svc := &stubService{orders: map[string]model.Order{
		"o-1": {ID: "o-1", Owner: testUser, CustomerName: "Nimali"},
	}}
	srv := newTestServer(t, svc)

	resp, _ := doRequest(t, srv, http.MethodPut, "/api/orders/o-1", `{"customerName":"Nimali Perera"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Nimali Perera", svc.orders["o-1"].CustomerName)
	assert.Equal(t, testUser, svc.orders["o-1"].Owner)

	resp, _ = doRequest(t, srv, http.MethodPut, "/api/orders/missing", `{"customerName":"X"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSyncOrder(t *testing.T) {
	tests := []struct {
		name        string
		result      service.SyncResult
		err         error
		wantCode    int
		wantMessage bool
	}{
		{
			name: "changed",
			result: service.SyncResult{
				Changed: true,
				Fields:  []string{"status"},
				Order:   model.Order{ID: "o-1", Status: model.OrderStatusDelivered},
			},
			wantCode:    http.StatusOK,
			wantMessage: true,
		},
		{
			name:     "unchanged",
			result:   service.SyncResult{Order: model.Order{ID: "o-1"}},
			wantCode: http.StatusOK,
		},
		{name: "no tracking number", err: service.ErrNoTrackingNumber, wantCode: http.StatusConflict},
		{name: "courier disabled", err: service.ErrCourierDisabled, wantCode: http.StatusServiceUnavailable},
		{name: "courier failed", err: fmt.Errorf("%w: %w", service.ErrCourier, errors.New("timeout")), wantCode: http.StatusBadGateway},
		{name: "not found", err: service.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "store failed", err: errors.New("db down"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubService{sync: tt.result, syncErr: tt.err})

			resp, body := doRequest(t, srv, http.MethodPost, "/api/orders/o-1/sync", "")
			require.Equal(t, tt.wantCode, resp.StatusCode)
			if tt.err != nil {
				return
			}
			if tt.wantMessage {
				assert.Contains(t, body, service.SyncedMessage)
			} else {
				assert.NotContains(t, body, "message")
			}
		})
	}
}

func TestGetSales(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	resp, body := doRequest(t, srv, http.MethodGet, "/api/reports/sales", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary model.SalesSummary
	require.NoError(t, json.Unmarshal([]byte(body), &summary))
	assert.Equal(t, 1500.5, summary.Revenue)
	assert.Equal(t, "Rs. 1,500.50", summary.RevenueFormatted)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, config.Config{ServerAddr: "127.0.0.1:0"}, stubAuth{}, &stubService{}, zap.NewNop())
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
