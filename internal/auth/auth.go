package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aofbiz/allset/internal/auth/config"
	"github.com/aofbiz/allset/internal/store"
	"github.com/aofbiz/allset/internal/token"
)

type Auth interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Middleware(h http.HandlerFunc) http.HandlerFunc
}

// UserStore - часть хранилища, нужная для учетных записей
type UserStore interface {
	AuthRegister(ctx context.Context, login string, passwordHash string) (string, error)
	AuthLogin(ctx context.Context, login string) (userCode string, passwordHash string, err error)
}

const (
	HeaderUserCodeKey = "X-User-Code"
	cookieUserToken   = "allsetUserToken"

	maxLoginLength = 64
)

type auth struct {
	cfg    config.Config
	store  UserStore
	zaplog *zap.Logger
}

func NewAuth(cfg config.Config, store UserStore, zaplog *zap.Logger) Auth {
	return &auth{cfg: cfg, store: store, zaplog: zaplog}
}

type authJSONRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (a *auth) Register(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAuthRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userCode, err := a.store.AuthRegister(r.Context(), req.Login, string(hash))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			http.Error(w, "login already exists", http.StatusConflict)
		default:
			a.zaplog.Error("register failed", zap.String("login", req.Login), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	a.setTokenCookie(w, userCode)
}

func (a *auth) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAuthRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userCode, hash, err := a.store.AuthLogin(r.Context(), req.Login)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoRows):
			http.Error(w, "invalid login or password", http.StatusUnauthorized)
		default:
			a.zaplog.Error("login failed", zap.String("login", req.Login), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		http.Error(w, "invalid login or password", http.StatusUnauthorized)
		return
	}

	a.setTokenCookie(w, userCode)
}

func (a *auth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// получение id пользователя
		userCode, err := a.getUserCode(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		// записываем
		r.Header.Set(HeaderUserCodeKey, userCode)

		// передаём управление хендлеру
		h.ServeHTTP(w, r)
	}
}

func (a *auth) getUserCode(_ http.ResponseWriter, r *http.Request) (string, error) {
	// куки пользователя
	tokenCookie, err := r.Cookie(cookieUserToken)
	if err != nil {
		return "", err
	}
	return token.GetUserCode(tokenCookie.Value, a.cfg.SecretKey)
}

func (a *auth) setTokenCookie(w http.ResponseWriter, userCode string) {
	tokenString, err := token.BuildJWTString(userCode, a.cfg.SecretKey, a.cfg.TokenTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieUserToken,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(a.cfg.TokenTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusOK)
}

func decodeAuthRequest(r *http.Request) (authJSONRequest, error) {
	var req authJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return authJSONRequest{}, err
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		return authJSONRequest{}, errors.New("login and password are required")
	}
	if len(req.Login) > maxLoginLength {
		return authJSONRequest{}, errors.New("login is too long")
	}
	return req, nil
}
