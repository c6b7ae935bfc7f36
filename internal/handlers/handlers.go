package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expense-client/internal/expenses"
	"expense-client/internal/logger"
	"expense-client/internal/models"
	"expense-client/internal/storage"
	"expense-client/internal/token"

	"go.uber.org/zap"
)

// Context key type to avoid collisions.
type contextKey string

// UserIDContextKey is the context key for the authenticated user id.
const UserIDContextKey contextKey = "user_id"

// RequestIDHeader carries the request id between client and server.
const RequestIDHeader = "X-Request-ID"

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db  *storage.DB
	log *logger.Logger
	now func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handlers{db: db, log: log, now: time.Now}
}

// GetUserIDFromContext retrieves the authenticated user id from request context.
func GetUserIDFromContext(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(UserIDContextKey).(int64)
	return id, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger tags every request with a request id and logs its outcome.
func (h *Handlers) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.NewRequestIDContext(r.Context(), r.Header.Get(RequestIDHeader))
		id, _ := logger.GetRequestID(ctx)
		w.Header().Set(RequestIDHeader, id)
		ctx = logger.NewContext(ctx, h.log.With(zap.String("method", r.Method), zap.String("path", r.URL.Path)))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		h.log.Info(ctx, "request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// logFor returns the request-scoped logger set up by RequestLogger.
func (h *Handlers) logFor(r *http.Request) *logger.Logger {
	return logger.FromContext(r.Context(), h.log)
}

// AuthMiddleware requires a bearer token and puts its subject into the
// request context. Tokens are unsigned mocks, so only shape and expiry are
// checked.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := token.Check(raw, h.now())
		if err != nil {
			h.logFor(r).Warn(r.Context(), "token rejected", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token subject")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Health reports that the server is up.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListTransactions returns the transactions of the userId query parameter.
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	txs, err := h.listWire(r.Context(), userID)
	if err != nil {
		h.logFor(r).Error(r.Context(), "ListTransactions error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// CreateTransaction validates and stores a transaction for the token's user.
func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserIDFromContext(r)

	var body models.NewTransaction
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft := expenses.Draft{Description: body.Description, Sum: body.Sum, Category: body.Category, Date: body.Date}
	if errs := expenses.Validate(draft); len(errs) > 0 {
		writeError(w, http.StatusUnprocessableEntity, strings.Join(errs, "\n"))
		return
	}
	body.Date, _ = expenses.NormalizeDate(body.Date)
	body.Description = strings.TrimSpace(body.Description)

	if _, err := h.db.CreateTransaction(r.Context(), userID, body); err != nil {
		h.logFor(r).Error(r.Context(), "CreateTransaction error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.respondList(w, r, userID)
}

// DeleteTransaction removes a transaction of the token's user.
func (h *Handlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserIDFromContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	if err := h.db.DeleteTransaction(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, expenses.ErrAlreadyDeleted.Error())
			return
		}
		h.logFor(r).Error(r.Context(), "DeleteTransaction error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.respondList(w, r, userID)
}

func (h *Handlers) respondList(w http.ResponseWriter, r *http.Request, userID int64) {
	txs, err := h.listWire(r.Context(), userID)
	if err != nil {
		h.logFor(r).Error(r.Context(), "list after mutation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, models.TransactionList{Transactions: txs})
}

// listWire returns the user's transactions with dates as RFC 3339 datetimes.
func (h *Handlers) listWire(ctx context.Context, userID int64) ([]models.Transaction, error) {
	txs, err := h.db.ListTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		if d, err := time.Parse(expenses.DateLayout, txs[i].Date); err == nil {
			txs[i].Date = d.UTC().Format(time.RFC3339)
		}
	}
	return txs, nil
}

func queryUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "userId must be numeric")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.APIError{Error: msg})
}
