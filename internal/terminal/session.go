package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/bankterm/atm-terminal/internal/services"
	"github.com/bankterm/atm-terminal/pkg"
	"github.com/bankterm/atm-terminal/pkg/models"
)

// State is the session controller state.
type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateAuthenticatedMenu
	StateTerminated
)

// Session drives the interactive terminal. It owns no global input state: the
// input and output handles are injected and live exactly as long as the session.
type Session struct {
	logger  *zap.Logger
	svc     services.AccountService
	rawIn   io.Reader
	in      *bufio.Reader
	out     io.Writer
	state   State
	account *models.Account
}

func NewSession(logger *zap.Logger, svc services.AccountService, in io.Reader, out io.Writer) *Session {
	return &Session{
		logger: logger,
		svc:    svc,
		rawIn:  in,
		in:     bufio.NewReader(in),
		out:    out,
		state:  StateLoggedOut,
	}
}

// State exposes the current controller state, mainly for tests.
func (s *Session) State() State {
	return s.state
}

// Run executes the top-level menu loop until the user exits or input ends.
func (s *Session) Run(ctx context.Context) error {
	for s.state != StateTerminated {
		fmt.Fprintln(s.out, "\n=== ATM TERMINAL ===")
		fmt.Fprintln(s.out, "1. Login")
		fmt.Fprintln(s.out, "2. Create New Account")
		fmt.Fprintln(s.out, "3. Exit")
		fmt.Fprint(s.out, "Select Option: ")

		choice, err := s.readLine()
		if err != nil {
			// Input stream closed: treat like an explicit exit.
			s.state = StateTerminated
			break
		}
		switch strings.TrimSpace(choice) {
		case "1":
			s.loginScreen(ctx)
		case "2":
			s.createAccountScreen(ctx)
		case "3":
			fmt.Fprintln(s.out, "Exiting System. Goodbye!")
			s.state = StateTerminated
		default:
			fmt.Fprintln(s.out, "Invalid option.")
		}
	}
	return nil
}

func (s *Session) createAccountScreen(ctx context.Context) {
	fmt.Fprint(s.out, "Enter Name: ")
	name, err := s.readLine()
	if err != nil {
		return
	}
	fmt.Fprint(s.out, "Set 4-Digit PIN: ")
	pin, err := s.readPIN()
	if err != nil {
		return
	}

	accountNumber, err := s.svc.CreateAccount(ctx, strings.TrimSpace(name), strings.TrimSpace(pin))
	if err != nil {
		fmt.Fprintf(s.out, "Error creating account: %s\n", pkg.UserMessage(err))
		return
	}
	fmt.Fprintf(s.out, "Account Created! Your Account Number is: %d\n", accountNumber)
}

func (s *Session) loginScreen(ctx context.Context) {
	s.state = StateAuthenticating
	defer func() {
		if s.state == StateAuthenticating {
			s.state = StateLoggedOut
		}
	}()

	sessionID := uuid.New().String()
	ctx = pkg.ContextWithSessionID(ctx, sessionID)
	s.logger.Debug("login attempt", zap.String(pkg.SessionId, sessionID))

	accountNumber, err := s.promptInt64("Enter Account Number: ")
	if err != nil {
		return
	}
	fmt.Fprint(s.out, "Enter PIN: ")
	pin, err := s.readPIN()
	if err != nil {
		return
	}

	account, err := s.svc.Authenticate(ctx, accountNumber, strings.TrimSpace(pin))
	if err != nil {
		if pkg.IsCode(err, pkg.ErrRecordNotFoundCode) {
			fmt.Fprintln(s.out, "Invalid Credentials.")
		} else {
			fmt.Fprintf(s.out, "Login failed: %s\n", pkg.UserMessage(err))
		}
		s.state = StateLoggedOut
		return
	}

	s.account = account
	s.state = StateAuthenticatedMenu
	fmt.Fprintf(s.out, "Welcome, %s\n", account.HolderName)
	s.userMenu(ctx)
	s.account = nil
	s.state = StateLoggedOut
	s.logger.Debug("session ended", zap.String(pkg.SessionId, sessionID))
}

func (s *Session) userMenu(ctx context.Context) {
	for s.state == StateAuthenticatedMenu {
		fmt.Fprintln(s.out, "\n--- User Menu ---")
		fmt.Fprintln(s.out, "1. Check Balance")
		fmt.Fprintln(s.out, "2. Deposit")
		fmt.Fprintln(s.out, "3. Withdraw")
		fmt.Fprintln(s.out, "4. Transaction History")
		fmt.Fprintln(s.out, "5. Delete Account")
		fmt.Fprintln(s.out, "6. Logout")
		fmt.Fprint(s.out, "Choose: ")

		choice, err := s.readLine()
		if err != nil {
			s.state = StateLoggedOut
			return
		}
		switch strings.TrimSpace(choice) {
		case "1":
			fmt.Fprintf(s.out, "Current Balance: $%s\n", s.account.Balance.StringFixed(2))
		case "2":
			s.depositScreen(ctx)
		case "3":
			s.withdrawScreen(ctx)
		case "4":
			s.historyScreen(ctx)
		case "5":
			s.deleteScreen(ctx)
		case "6":
			fmt.Fprintln(s.out, "Logged out.")
			s.state = StateLoggedOut
		default:
			fmt.Fprintln(s.out, "Invalid option.")
		}
	}
}

func (s *Session) depositScreen(ctx context.Context) {
	amount, err := s.promptAmount("Enter Amount to Deposit: ")
	if err != nil {
		return
	}
	if err := s.svc.Deposit(ctx, s.account, amount); err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", pkg.UserMessage(err))
		return
	}
	fmt.Fprintf(s.out, "Success: Deposited $%s\n", amount.StringFixed(2))
}

func (s *Session) withdrawScreen(ctx context.Context) {
	amount, err := s.promptAmount("Enter Amount to Withdraw: ")
	if err != nil {
		return
	}
	if err := s.svc.Withdraw(ctx, s.account, amount); err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", pkg.UserMessage(err))
		return
	}
	fmt.Fprintf(s.out, "Success: Withdrawn $%s\n", amount.StringFixed(2))
}

func (s *Session) historyScreen(ctx context.Context) {
	records, err := s.svc.History(ctx, s.account.Number)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", pkg.UserMessage(err))
		return
	}
	fmt.Fprintf(s.out, "\n--- Last %d Transactions ---\n", len(records))
	for _, record := range records {
		fmt.Fprintf(s.out, "%s | %s | $%s\n",
			record.CreatedAt.Format("2006-01-02 15:04:05"), record.Type, record.Amount.StringFixed(2))
	}
	fmt.Fprintln(s.out, "---------------------------")
}

func (s *Session) deleteScreen(ctx context.Context) {
	fmt.Fprint(s.out, "Are you sure? (yes/no): ")
	confirm, err := s.readLine()
	if err != nil {
		return
	}
	if !strings.EqualFold(strings.TrimSpace(confirm), "yes") {
		return
	}
	if err := s.svc.DeleteAccount(ctx, s.account.Number); err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", pkg.UserMessage(err))
		return
	}
	fmt.Fprintln(s.out, "Account deleted successfully.")
	s.state = StateLoggedOut
}

func (s *Session) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPIN masks input when attached to a real terminal. Piped input (tests,
// scripts) falls back to a plain line read.
func (s *Session) readPIN() (string, error) {
	if f, ok := s.rawIn.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(s.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return s.readLine()
}

// promptInt64 re-prompts on malformed input until a number is read or the
// stream ends.
func (s *Session) promptInt64(prompt string) (int64, error) {
	for {
		fmt.Fprint(s.out, prompt)
		line, err := s.readLine()
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err != nil {
			fmt.Fprintln(s.out, "Invalid number.")
			continue
		}
		return n, nil
	}
}

// promptAmount re-prompts on malformed input until a decimal amount is read or
// the stream ends.
func (s *Session) promptAmount(prompt string) (decimal.Decimal, error) {
	for {
		fmt.Fprint(s.out, prompt)
		line, err := s.readLine()
		if err != nil {
			return decimal.Zero, err
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(line))
		if err != nil {
			fmt.Fprintln(s.out, "Invalid amount.")
			continue
		}
		return amount, nil
	}
}
