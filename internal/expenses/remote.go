package expenses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"expense-client/internal/logger"
	"expense-client/internal/models"

	"go.uber.org/zap"
)

// Identity supplies the signed-in user for remote requests.
type Identity interface {
	CurrentUserID(ctx context.Context) (int64, error)
	Token() string
}

// StatusError is an unexpected response from the transactions API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

// Remote keeps the ledger on the transactions API. The in-memory list is
// replaced by the server's list after every call.
type Remote struct {
	mu    sync.Mutex
	state []models.Expense

	baseURL string
	client  *http.Client
	id      Identity
	log     *logger.Logger
}

// NewRemote returns a store talking to the API at baseURL. A nil client
// uses http.DefaultClient.
func NewRemote(baseURL string, id Identity, client *http.Client, log *logger.Logger) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		id:      id,
		log:     log.With(zap.String("component", "expenses.remote")),
	}
}

// Expenses returns a copy of the last fetched ledger.
func (r *Remote) Expenses() []models.Expense {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.state)
}

// List fetches the signed-in user's transactions.
func (r *Remote) List(ctx context.Context) ([]models.Expense, error) {
	userID, err := r.id.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	q := url.Values{"userId": {strconv.FormatInt(userID, 10)}}
	resp, err := r.do(ctx, http.MethodGet, "/transactions?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var txs []models.Transaction
	if err := json.NewDecoder(resp.Body).Decode(&txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	r.log.Debug(ctx, "transactions fetched", zap.Int("count", len(txs)))
	return r.replace(txs), nil
}

// Add validates d and posts it; the server's list replaces the ledger.
func (r *Remote) Add(ctx context.Context, d Draft) error {
	tx, err := check(d)
	if err != nil {
		return err
	}
	body, err := json.Marshal(tx)
	if err != nil {
		return err
	}

	resp, err := r.do(ctx, http.MethodPost, "/transactions", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		err := statusError(resp)
		r.log.Warn(ctx, "transaction rejected", zap.Int("status", resp.StatusCode), zap.Error(err))
		return err
	}
	var list models.TransactionList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fmt.Errorf("decode transactions: %w", err)
	}
	r.replace(list.Transactions)
	return nil
}

// Delete removes transaction id. A 400 answer means it is already gone.
func (r *Remote) Delete(ctx context.Context, id int64) error {
	resp, err := r.do(ctx, http.MethodDelete, "/transactions/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusBadRequest:
		return ErrAlreadyDeleted
	default:
		return statusError(resp)
	}

	var list models.TransactionList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode transactions: %w", err)
	}
	if list.Transactions == nil {
		_, err := r.List(ctx)
		return err
	}
	r.replace(list.Transactions)
	return nil
}

func (r *Remote) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := r.id.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if id, ok := logger.GetRequestID(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Error(ctx, "transactions request failed", zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (r *Remote) replace(txs []models.Transaction) []models.Expense {
	list := make([]models.Expense, 0, len(txs))
	for _, t := range txs {
		list = append(list, fromTransaction(t))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = list
	return clone(list)
}

func fromTransaction(t models.Transaction) models.Expense {
	date, _, _ := strings.Cut(t.Date, "T")
	return models.Expense{
		ID:          t.ID,
		Description: t.Description,
		Amount:      t.Sum,
		Category:    t.Category,
		Date:        date,
		UserID:      t.UserID,
	}
}

func statusError(resp *http.Response) error {
	msg := http.StatusText(resp.StatusCode)
	var apiErr models.APIError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr); err == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
