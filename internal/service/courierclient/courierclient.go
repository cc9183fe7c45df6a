package courierclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/aofbiz/allset/internal/model"
)

const (
	pathLogin    = "/api/public/merchant/login"
	pathTracking = "/api/public/merchant/order/tracking-info"
	pathFinance  = "/api/public/merchant/order/finance-status"

	headerTenant = "X-tenant"
)

var (
	ErrUnauthorized     = errors.New("courier: unauthorized")
	ErrUnexpectedStatus = errors.New("courier: unexpected status")
)

// Session - авторизация в API курьера
type Session struct {
	Tenant     string
	Token      string
	BusinessID string
}

type CourierClient interface {
	Login(ctx context.Context, email string, password string, tenant string) (Session, error)
	GetTracking(ctx context.Context, session Session, waybill string) ([]model.TrackingEvent, error)
	GetFinanceStatus(ctx context.Context, session Session, waybill string) (*model.FinanceRecord, error)
}

type courierClient struct {
	rest *resty.Client
}

func NewCourierClient(baseURL string, timeout time.Duration) CourierClient {
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		// 3 попытки: 429 и 5xx повторяем с нарастающей паузой
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil {
				return err != nil
			}
			code := r.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})

	return &courierClient{rest: rest}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (client *courierClient) Login(ctx context.Context, email string, password string, tenant string) (Session, error) {
	resp, err := client.rest.R().
		SetContext(ctx).
		SetHeader(headerTenant, tenant).
		SetBody(loginRequest{Email: email, Password: password}).
		Post(pathLogin)
	if err != nil {
		return Session{}, fmt.Errorf("courier login: %w", err)
	}
	if err = checkStatus(pathLogin, resp); err != nil {
		return Session{}, err
	}

	token, businessID, err := decodeLogin(resp.Body())
	if err != nil {
		return Session{}, fmt.Errorf("courier login: %w", err)
	}
	if token == "" {
		return Session{}, ErrUnauthorized
	}

	return Session{Tenant: tenant, Token: token, BusinessID: businessID}, nil
}

func (client *courierClient) GetTracking(ctx context.Context, session Session, waybill string) ([]model.TrackingEvent, error) {
	resp, err := client.authorized(ctx, session).
		SetQueryParam("waybill_number", waybill).
		Get(pathTracking)
	if err != nil {
		return nil, fmt.Errorf("courier tracking: %w", err)
	}
	if err = checkStatus(pathTracking, resp); err != nil {
		return nil, err
	}

	events, err := decodeTracking(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("courier tracking: %w", err)
	}
	return events, nil
}

// GetFinanceStatus возвращает nil, если у курьера нет финансовых данных по отправлению
func (client *courierClient) GetFinanceStatus(ctx context.Context, session Session, waybill string) (*model.FinanceRecord, error) {
	resp, err := client.authorized(ctx, session).
		SetQueryParam("waybill_number", waybill).
		Get(pathFinance)
	if err != nil {
		return nil, fmt.Errorf("courier finance: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err = checkStatus(pathFinance, resp); err != nil {
		return nil, err
	}

	finance, err := decodeFinance(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("courier finance: %w", err)
	}
	return finance, nil
}

func (client *courierClient) authorized(ctx context.Context, session Session) *resty.Request {
	return client.rest.R().
		SetContext(ctx).
		SetHeader(headerTenant, session.Tenant).
		SetAuthToken(session.Token)
}

func checkStatus(path string, resp *resty.Response) error {
	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code < 200 || code > 299:
		return fmt.Errorf("%w: %s %d", ErrUnexpectedStatus, path, code)
	default:
		return nil
	}
}
