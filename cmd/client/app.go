package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"expense-client/internal/auth"
	"expense-client/internal/expenses"
	"expense-client/internal/mockauth"
	"expense-client/internal/models"
	"expense-client/internal/router"
	"expense-client/internal/stats"
	"expense-client/internal/token"
)

const helpText = `Commands:
  go <path>                                 navigate to a page
  signin <email>                            sign in, password is read next
  signup <name> <email>                     create an account, password is read next
  signout                                   end the session
  list                                      show the expenses page
  add <sum> <category> <date> <description> record an expense
  delete <id>                               remove an expense
  analysis [year month]                     show the monthly analysis
  whoami                                    show the signed-in user
  help                                      show this text
  quit                                      leave`

// app is the interactive session of the terminal client.
type app struct {
	in      *bufio.Scanner
	stdin   io.Reader
	out     io.Writer
	session *auth.Store
	nav     *router.Router
	ledger  expenses.Store
	now     func() time.Time

	year, month int
}

func (a *app) loop(ctx context.Context) error {
	a.navigate(ctx, router.PathRoot)

	for {
		fmt.Fprint(a.out, "> ")
		if !a.in.Scan() {
			fmt.Fprintln(a.out)
			return a.in.Err()
		}
		if quit := a.exec(ctx, a.in.Text()); quit {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
	}
}

// exec runs one command line and reports whether the client should exit.
func (a *app) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(a.out, helpText)
	case "go":
		if len(args) != 1 {
			fmt.Fprintln(a.out, "usage: go <path>")
			return false
		}
		a.navigate(ctx, args[0])
	case "signin":
		a.signIn(ctx, args)
	case "signup":
		a.signUp(ctx, args)
	case "signout":
		if err := a.session.Logout(ctx); err != nil {
			fmt.Fprintf(a.out, "sign out failed: %v\n", err)
		}
		a.render(ctx)
	case "list":
		a.navigate(ctx, router.PathExpenses)
	case "analysis":
		a.analysis(ctx, args)
	case "add":
		a.add(ctx, args)
	case "delete":
		a.delete(ctx, args)
	case "whoami":
		a.whoami()
	default:
		fmt.Fprintf(a.out, "unknown command %q, type help\n", cmd)
	}
	return false
}

func (a *app) navigate(ctx context.Context, target string) {
	if err := a.nav.Navigate(ctx, target); err != nil {
		fmt.Fprintf(a.out, "navigation failed: %v\n", err)
	}
	a.render(ctx)
}

func (a *app) password() (string, bool) {
	fmt.Fprint(a.out, "Password: ")
	pw, err := readPassword(a.stdin, a.in)
	fmt.Fprintln(a.out)
	if err != nil {
		fmt.Fprintf(a.out, "failed to read password: %v\n", err)
		return "", false
	}
	return pw, true
}

func (a *app) signIn(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: signin <email>")
		return
	}
	pw, ok := a.password()
	if !ok {
		return
	}

	// The redirect query of the sign-in page survives the login call.
	target := a.nav.Current().Query.Get("redirect")
	if res := a.session.Login(ctx, mockauth.Credentials{Email: args[0], Password: pw}); !res.Success {
		a.printAuthError()
		return
	}
	if target == "" {
		target = router.PathRoot
	}
	a.navigate(ctx, target)
}

func (a *app) signUp(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(a.out, "usage: signup <name> <email>")
		return
	}
	pw, ok := a.password()
	if !ok {
		return
	}

	reg := mockauth.Registration{
		Name:     strings.Join(args[:len(args)-1], " "),
		Email:    args[len(args)-1],
		Password: pw,
	}
	if res := a.session.Register(ctx, reg); !res.Success {
		a.printAuthError()
		return
	}
	a.navigate(ctx, router.PathRoot)
}

func (a *app) printAuthError() {
	snap := a.session.Snapshot()
	if snap.Error == nil {
		fmt.Fprintln(a.out, "authentication failed")
		return
	}
	for _, msg := range snap.Error.Messages {
		fmt.Fprintf(a.out, "error: %s\n", msg)
	}
}

func (a *app) analysis(ctx context.Context, args []string) {
	switch len(args) {
	case 0:
		a.year, a.month = 0, 0
	case 2:
		a.year, a.month = stats.ParsePeriod(args[0], args[1], a.now())
	default:
		fmt.Fprintln(a.out, "usage: analysis [year month]")
		return
	}
	a.navigate(ctx, router.PathAnalysis)
}

// onExpenses enters the expenses page and reports whether the guard let
// the user in.
func (a *app) onExpenses(ctx context.Context) bool {
	if err := a.nav.Navigate(ctx, router.PathExpenses); err != nil {
		fmt.Fprintf(a.out, "navigation failed: %v\n", err)
		return false
	}
	if a.nav.CurrentRoute().Path != router.PathExpenses {
		a.render(ctx)
		return false
	}
	return true
}

func (a *app) add(ctx context.Context, args []string) {
	if len(args) < 4 {
		fmt.Fprintln(a.out, "usage: add <sum> <category> <date> <description>")
		return
	}
	if !a.onExpenses(ctx) {
		return
	}

	sum, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(a.out, "error: sum %q is not a number\n", args[0])
		return
	}
	draft := expenses.Draft{
		Description: strings.Join(args[3:], " "),
		Sum:         sum,
		Category:    models.Category(args[1]),
		Date:        args[2],
	}
	if err := a.ledger.Add(ctx, draft); err != nil {
		printError(a.out, err)
		return
	}
	a.render(ctx)
}

func (a *app) delete(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: delete <id>")
		return
	}
	if !a.onExpenses(ctx) {
		return
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(a.out, "error: id %q is not a number\n", args[0])
		return
	}
	if err := a.ledger.Delete(ctx, id); err != nil {
		printError(a.out, err)
		return
	}
	a.render(ctx)
}

func (a *app) whoami() {
	snap := a.session.Snapshot()
	if snap.User == nil {
		fmt.Fprintln(a.out, "not signed in")
		return
	}
	fmt.Fprintf(a.out, "%s <%s> id=%d\n", snap.User.Name, snap.User.Email, snap.User.ID)
	if claims, err := token.Decode(snap.Token); err == nil && claims.ExpiresAt != nil {
		fmt.Fprintf(a.out, "session expires %s\n", claims.ExpiresAt.Time.Local().Format(time.DateTime))
	}
}

func printError(w io.Writer, err error) {
	var ve *expenses.ValidationError
	switch {
	case errors.As(err, &ve):
		for _, msg := range ve.Messages {
			fmt.Fprintf(w, "error: %s\n", msg)
		}
	case errors.Is(err, expenses.ErrAlreadyDeleted):
		fmt.Fprintln(w, "error: transaction already deleted")
	default:
		fmt.Fprintf(w, "error: %v\n", err)
	}
}
