// Package stats summarizes expenses per category for a calendar month.
package stats

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"expense-client/internal/models"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the spending of one category in a month.
type CategoryTotal struct {
	Category   models.Category `json:"category"`
	Name       string          `json:"name"`
	Total      float64         `json:"total"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// Summary is the analysis of one month.
type Summary struct {
	Year           int              `json:"year"`
	Month          int              `json:"month"`
	MonthName      string           `json:"monthName"`
	Total          float64          `json:"total"`
	Categories     []CategoryTotal  `json:"categories"`
	Expenses       []models.Expense `json:"expenses"`
	PrevYear       int              `json:"prevYear"`
	PrevMonth      int              `json:"prevMonth"`
	NextYear       int              `json:"nextYear"`
	NextMonth      int              `json:"nextMonth"`
	IsCurrentMonth bool             `json:"isCurrentMonth"`
}

// ParsePeriod reads year and month parameters, defaulting to the month of
// now when a value is missing or out of range.
func ParsePeriod(yearStr, monthStr string, now time.Time) (year, month int) {
	year = now.Year()
	month = int(now.Month())

	if yearStr != "" {
		if y, err := strconv.Atoi(yearStr); err == nil && y > 0 {
			year = y
		}
	}
	if monthStr != "" {
		if m, err := strconv.Atoi(monthStr); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}
	return year, month
}

// Summarize totals the expenses dated in year/month.
func Summarize(list []models.Expense, year, month int, now time.Time) Summary {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)

	type bucket struct {
		total decimal.Decimal
		count int
	}
	buckets := make(map[models.Category]*bucket)
	total := decimal.Zero
	var inMonth []models.Expense

	for _, e := range list {
		if !strings.HasPrefix(e.Date, prefix) {
			continue
		}
		inMonth = append(inMonth, e)
		amount := decimal.NewFromFloat(e.Amount)
		b, ok := buckets[e.Category]
		if !ok {
			b = &bucket{}
			buckets[e.Category] = b
		}
		b.total = b.total.Add(amount)
		b.count++
		total = total.Add(amount)
	}

	categories := make([]CategoryTotal, 0, len(buckets))
	hundred := decimal.NewFromInt(100)
	for cat, b := range buckets {
		pct := decimal.Zero
		if total.IsPositive() {
			pct = b.total.Div(total).Mul(hundred).Round(2)
		}
		categories = append(categories, CategoryTotal{
			Category:   cat,
			Name:       cat.Name(),
			Total:      b.total.InexactFloat64(),
			Count:      b.count,
			Percentage: pct.InexactFloat64(),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Total != categories[j].Total {
			return categories[i].Total > categories[j].Total
		}
		return categories[i].Category < categories[j].Category
	})
	sort.SliceStable(inMonth, func(i, j int) bool { return inMonth[i].Date > inMonth[j].Date })

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)

	return Summary{
		Year:           year,
		Month:          month,
		MonthName:      time.Month(month).String(),
		Total:          total.InexactFloat64(),
		Categories:     categories,
		Expenses:       inMonth,
		PrevYear:       prev.Year(),
		PrevMonth:      int(prev.Month()),
		NextYear:       next.Year(),
		NextMonth:      int(next.Month()),
		IsCurrentMonth: year == now.Year() && month == int(now.Month()),
	}
}
