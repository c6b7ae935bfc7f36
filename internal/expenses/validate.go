// Package expenses holds the client expense ledger in a local and a remote
// variant sharing one contract.
package expenses

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"expense-client/internal/models"
)

// DateLayout is the canonical date format of stored expenses.
const DateLayout = "2006-01-02"

// MinDescriptionLength is the shortest accepted description, after trimming.
const MinDescriptionLength = 4

var dateLayouts = []string{DateLayout, "2006-01-02T15:04", time.RFC3339}

var (
	ErrAlreadyDeleted = errors.New("transaction already deleted")
	ErrInvalidDate    = errors.New("invalid date")
)

// Draft is an expense submitted for insertion.
type Draft struct {
	Description string
	Sum         float64
	Category    models.Category
	Date        string
}

// Store is the expense ledger contract shared by both variants.
type Store interface {
	// List refreshes the ledger from its source and returns it.
	List(ctx context.Context) ([]models.Expense, error)
	Add(ctx context.Context, d Draft) error
	Delete(ctx context.Context, id int64) error
	// Expenses returns the current in-memory ledger.
	Expenses() []models.Expense
}

// ValidationError lists every problem found in a Draft.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "\n")
}

// Validate returns every violation in d.
func Validate(d Draft) []string {
	var errs []string

	if utf8.RuneCountInString(strings.TrimSpace(d.Description)) < MinDescriptionLength {
		errs = append(errs, fmt.Sprintf("description must be at least %d characters", MinDescriptionLength))
	}
	if math.IsNaN(d.Sum) || math.IsInf(d.Sum, 0) || d.Sum <= 0 {
		errs = append(errs, "sum must be a positive number")
	}
	if !d.Category.Valid() {
		errs = append(errs, "invalid category, allowed values: "+models.CategoryIDs(", "))
	}
	if _, err := NormalizeDate(d.Date); err != nil {
		errs = append(errs, "invalid date format")
	}

	return errs
}

// NormalizeDate parses s in any accepted layout and returns it as YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// check validates d and returns the normalized insert body.
func check(d Draft) (models.NewTransaction, error) {
	if errs := Validate(d); len(errs) > 0 {
		return models.NewTransaction{}, &ValidationError{Messages: errs}
	}
	date, err := NormalizeDate(d.Date)
	if err != nil {
		return models.NewTransaction{}, err
	}
	return models.NewTransaction{
		Description: strings.TrimSpace(d.Description),
		Sum:         d.Sum,
		Category:    d.Category,
		Date:        date,
	}, nil
}

func clone(list []models.Expense) []models.Expense {
	return append([]models.Expense(nil), list...)
}
