package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"expense-client/internal/models"
	"expense-client/internal/router"
	"expense-client/internal/stats"

	"github.com/shopspring/decimal"
)

// render prints the page of the current location.
func (a *app) render(ctx context.Context) {
	loc := a.nav.Current()
	route := a.nav.CurrentRoute()
	fmt.Fprintf(a.out, "== %s (%s) ==\n", route.Name, loc)

	switch route.Path {
	case router.PathExpenses:
		list, err := a.ledger.List(ctx)
		if err != nil {
			printError(a.out, err)
			list = a.ledger.Expenses()
		}
		renderExpenses(a.out, list)
	case router.PathAnalysis:
		list, err := a.ledger.List(ctx)
		if err != nil {
			printError(a.out, err)
			list = a.ledger.Expenses()
		}
		year, month := a.year, a.month
		if year == 0 {
			year, month = stats.ParsePeriod("", "", a.now())
		}
		renderSummary(a.out, stats.Summarize(list, year, month, a.now()))
	case router.PathSignIn:
		if loc.Query.Get("logout") == "true" {
			fmt.Fprintln(a.out, "You have been signed out.")
		}
		fmt.Fprintln(a.out, "Sign in with: signin <email>")
	case router.PathSignUp:
		fmt.Fprintln(a.out, "Create an account with: signup <name> <email>")
	default:
		fmt.Fprintf(a.out, "Page %s not found\n", loc.Path)
	}
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func renderExpenses(w io.Writer, list []models.Expense) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No expenses yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tSUM\tDESCRIPTION")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Category.Name(), money(e.Amount), e.Description)
	}
	tw.Flush()
}

func renderSummary(w io.Writer, s stats.Summary) {
	fmt.Fprintf(w, "%s %d: total %s\n", s.MonthName, s.Year, money(s.Total))
	if len(s.Categories) == 0 {
		fmt.Fprintln(w, "No expenses this month.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tCOUNT\tTOTAL\tSHARE")
		for _, c := range s.Categories {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f%%\n", c.Name, c.Count, money(c.Total), c.Percentage)
		}
		tw.Flush()
	}
	fmt.Fprintf(w, "prev: analysis %d %d | next: analysis %d %d\n", s.PrevYear, s.PrevMonth, s.NextYear, s.NextMonth)
}
