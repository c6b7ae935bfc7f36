package handlers

import (
	"net/http"
	"strings"

	"expense-client/internal/models"
	"expense-client/internal/stats"

	"go.uber.org/zap"
)

// Statistics returns the monthly category summary of the userId query
// parameter. year and month default to the current month.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	year, month := stats.ParsePeriod(r.URL.Query().Get("year"), r.URL.Query().Get("month"), h.now())

	txs, err := h.db.ListTransactions(r.Context(), userID)
	if err != nil {
		h.logFor(r).Error(r.Context(), "Statistics error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	list := make([]models.Expense, 0, len(txs))
	for _, t := range txs {
		date, _, _ := strings.Cut(t.Date, "T")
		list = append(list, models.Expense{
			ID:          t.ID,
			Description: t.Description,
			Amount:      t.Sum,
			Category:    t.Category,
			Date:        date,
			UserID:      t.UserID,
		})
	}

	writeJSON(w, http.StatusOK, stats.Summarize(list, year, month, h.now()))
}
