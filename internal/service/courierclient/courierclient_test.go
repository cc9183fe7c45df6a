package courierclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aofbiz/allset/internal/model"
)

const (
	testTenant  = "aofbiz"
	testToken   = "tok-123"
	testWaybill = "CFX1000234"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) CourierClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCourierClient(srv.URL, 5*time.Second)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantTok string
		wantBiz string
		wantErr error
	}{
		{"flat", `{"token":"tok-123","business_id":42}`, "tok-123", "42", nil},
		{"nested", `{"data":{"token":"tok-456","business_id":"7"}}`, "tok-456", "7", nil},
		{"no token", `{"message":"ok"}`, "", "", ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.Equal(t, pathLogin, r.URL.Path)
				require.Equal(t, testTenant, r.Header.Get(headerTenant))

				var req loginRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				require.Equal(t, "shop@aofbiz.lk", req.Email)
				require.Equal(t, "secret", req.Password)

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			})

			session, err := client.Login(context.Background(), "shop@aofbiz.lk", "secret", testTenant)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Session{Tenant: testTenant, Token: tt.wantTok, BusinessID: tt.wantBiz}, session)
		})
	}
}

func TestLoginRejected(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Login(context.Background(), "shop@aofbiz.lk", "wrong", testTenant)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetTracking(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []model.TrackingEvent
	}{
		{
			name: "array with string status",
			body: `[{"status":"DELIVERED","created_at":"2024-03-14 16:05:00","city":"Kandy"},
				{"status":"IN TRANSIT","time":"2024-03-13 09:00:00"}]`,
			want: []model.TrackingEvent{
				{Status: "DELIVERED", City: "Kandy", Timestamp: "2024-03-14 16:05:00"},
				{Status: "IN TRANSIT", Timestamp: "2024-03-13 09:00:00"},
			},
		},
		{
			name: "events object with status object",
			body: `{"events":[{"status":{"name":"RETURNED"},"date":"2024-03-10"},
				{"status":null,"status_name":"PICKED UP","status_code":12}]}`,
			want: []model.TrackingEvent{
				{Status: "RETURNED", Timestamp: "2024-03-10"},
				{Status: "PICKED UP", Code: "12"},
			},
		},
		{
			name: "wrapped in data",
			body: `{"data":[{"status":{"status_name":"Delivered"},"created_at":"2024-03-14"}]}`,
			want: []model.TrackingEvent{{Status: "Delivered", Timestamp: "2024-03-14"}},
		},
		{
			name: "empty events",
			body: `{"events":[]}`,
			want: []model.TrackingEvent{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, pathTracking, r.URL.Path)
				require.Equal(t, testWaybill, r.URL.Query().Get("waybill_number"))
				require.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
				require.Equal(t, testTenant, r.Header.Get(headerTenant))
				w.Write([]byte(tt.body))
			})

			events, err := client.GetTracking(context.Background(), Session{Tenant: testTenant, Token: testToken}, testWaybill)
			require.NoError(t, err)
			assert.Equal(t, tt.want, events)
		})
	}
}

func TestGetTrackingMalformed(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"not tracking"`))
	})

	_, err := client.GetTracking(context.Background(), Session{Token: testToken}, testWaybill)
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestGetFinanceStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *model.FinanceRecord
	}{
		{
			name:   "full record",
			status: http.StatusOK,
			body:   `{"finance_status":"Deposited","invoice_no":5521,"invoice_ref_no":"REF-88","deposited_at":"2024-03-15","deposited_date":"2024-03-14"}`,
			want:   &model.FinanceRecord{Status: "Deposited", InvoiceNo: "5521", InvoiceRef: "REF-88", DepositedDate: "2024-03-14"},
		},
		{
			name:   "wrapped and partial",
			status: http.StatusOK,
			body:   `{"data":{"finance_status":"Pending","invoice_no":null}}`,
			want:   &model.FinanceRecord{Status: "Pending"},
		},
		{
			name:   "null",
			status: http.StatusOK,
			body:   `null`,
		},
		{
			name:   "empty object",
			status: http.StatusOK,
			body:   `{}`,
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"message":"not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, pathFinance, r.URL.Path)
				require.Equal(t, testWaybill, r.URL.Query().Get("waybill_number"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			finance, err := client.GetFinanceStatus(context.Background(), Session{Tenant: testTenant, Token: testToken}, testWaybill)
			require.NoError(t, err)
			assert.Equal(t, tt.want, finance)
		})
	}
}

func TestExpiredSession(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.GetTracking(context.Background(), Session{Token: "expired"}, testWaybill)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = client.GetFinanceStatus(context.Background(), Session{Token: "expired"}, testWaybill)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"status":"IN TRANSIT"}]`))
	})

	events, err := client.GetTracking(context.Background(), Session{Token: testToken}, testWaybill)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryGivesUp(t *testing.T) {
	var calls atomic.Int32
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetTracking(context.Background(), Session{Token: testToken}, testWaybill)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int32(3), calls.Load())
}
