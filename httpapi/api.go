package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/clipstream/auth"
	"github.com/clipstream/auth/middleware"
)

// API serves the auth endpoints over HTTP.
type API struct {
	engine *auth.Engine
	log    *slog.Logger
}

// New creates an API bound to engine. A nil logger disables request logging.
func New(engine *auth.Engine, log *slog.Logger) *API {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &API{engine: engine, log: log}
}

// Router builds the chi router with all auth routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.Post("/login", a.handleLogin)
		r.Post("/refresh", a.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(a.engine))
			r.Post("/logout", a.handleLogout)
			r.Get("/me", a.handleMe)
		})
	})

	r.Get("/metrics", a.handleMetrics)
	r.Get("/healthz", a.handleHealth)

	return r
}

type accountBody struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toAccountBody(account auth.Account) accountBody {
	return accountBody{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		CreatedAt:   account.CreatedAt,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	account, err := a.engine.Register(r.Context(), auth.RegisterInput{
		DisplayName: req.Name,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		a.logFailure(r, "register", err)
		writeEngineError(w, err)
		return
	}

	a.log.InfoContext(r.Context(), "account registered", "account_id", account.ID)
	writeJSON(w, http.StatusCreated, toAccountBody(account))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	Account      accountBody `json:"account"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	pair, account, err := a.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.logFailure(r, "login", err)
		writeEngineError(w, err)
		return
	}

	a.log.InfoContext(r.Context(), "login", "account_id", account.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Account:      toAccountBody(account),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	access, err := a.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.logFailure(r, "refresh", err)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	if err := a.engine.Logout(r.Context(), account.ID); err != nil {
		a.logFailure(r, "logout", err)
		writeEngineError(w, err)
		return
	}

	a.log.InfoContext(r.Context(), "logout", "account_id", account.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}
	writeJSON(w, http.StatusOK, toAccountBody(account))
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "session store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// logFailure records rejected operations at debug and unexpected errors at
// error level; expected rejections are routine and must not spam the log.
func (a *API) logFailure(r *http.Request, op string, err error) {
	level := slog.LevelError
	if isExpected(err) {
		level = slog.LevelDebug
	}
	a.log.Log(r.Context(), level, op+" rejected", "err", err)
}

func isExpected(err error) bool {
	for _, known := range []error{
		auth.ErrInvalidCredentials,
		auth.ErrAccountExists,
		auth.ErrAccountInvalid,
		auth.ErrTokenMissing,
		auth.ErrTokenInvalid,
		auth.ErrTokenStale,
		auth.ErrSessionAbsent,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
