package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-pos/meridian-pos/internal/auth"
	"github.com/meridian-pos/meridian-pos/internal/protocol"
	"github.com/meridian-pos/meridian-pos/internal/sales"
)

const lastLoginLayout = "2006-01-02T15:04:05"

// Session owns one terminal connection. It reads delimited lines,
// dispatches them, and writes the reply back on the same socket. One
// goroutine per session; replies for different sessions never mix.
type Session struct {
	id     string
	conn   net.Conn
	reader *bufio.Reader
	logger *slog.Logger
	deps   Deps

	writeMu sync.Mutex
	writer  *bufio.Writer

	userMu sync.RWMutex
	user   *auth.User

	closeOnce sync.Once
}

// NewSession wraps an accepted connection. The session does nothing
// until Run is called.
func NewSession(conn net.Conn, deps Deps, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		deps:   deps,
		logger: logger.With("session_id", id[:8], "remote", conn.RemoteAddr().String()),
	}
}

// ID returns the session's registry identity.
func (s *Session) ID() string {
	return s.id
}

// User returns the user attached by the last successful LOGIN, or nil.
func (s *Session) User() *auth.User {
	s.userMu.RLock()
	defer s.userMu.RUnlock()
	return s.user
}

func (s *Session) attachUser(u *auth.User) {
	s.userMu.Lock()
	s.user = u
	s.userMu.Unlock()
}

// Send writes one framed line to the client. Safe for concurrent use;
// the shutdown broadcast and the read loop may both write.
func (s *Session) Send(message string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.writer == nil {
		return errors.New("terminal: session closed")
	}
	if _, err := s.writer.WriteString(message + "\n"); err != nil {
		return err
	}
	return s.writer.Flush()
}

// Run sends the login notice and then blocks reading lines until the
// client disconnects, DISCONNECT is issued, or the socket is closed by
// the shutdown broadcast. A failure inside line handling ends only this
// session, never its siblings.
func (s *Session) Run(ctx context.Context) {
	defer s.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session panicked", "panic", r)
		}
	}()

	if err := s.Send(protocol.Build(protocol.PrefixCmd, "LOGINREQUEST")); err != nil {
		s.logger.Warn("login notice failed", "error", err)
		return
	}

	for {
		line, err := s.reader.ReadString('\n')
		if len(line) > 0 {
			s.handleLine(ctx, strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
				s.logger.Warn("read failed", "error", err)
			}
			return
		}
	}
}

// Close tears the connection down. Idempotent; close errors are logged
// and swallowed.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.writer = nil
		s.writeMu.Unlock()
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("close failed", "error", err)
		}
		if s.deps.Audit != nil {
			s.deps.Audit.SessionClosed(context.Background(), s.conn.RemoteAddr().String())
		}
	})
}

func (s *Session) handleLine(ctx context.Context, raw string) {
	start := time.Now()
	status := "ok"

	prefix := "INVALID"
	msg, err := protocol.Parse(raw)
	switch {
	case errors.Is(err, protocol.ErrInvalidPrefix):
		s.Send(protocol.InvalidPrefixReply)
		status = "rejected"
	case msg.Empty():
		return
	default:
		prefix = msg.Prefix
		status = s.dispatch(ctx, raw, msg)
	}

	s.deps.Metrics.CommandHandled(prefix, status, time.Since(start))
}

func (s *Session) dispatch(ctx context.Context, raw string, msg protocol.Message) string {
	switch msg.Prefix {
	case protocol.PrefixCmd:
		return s.handleCmd(ctx, msg)
	case protocol.PrefixRec, protocol.PrefixTra:
		// Reserved families; accepted without a reply.
		return "ok"
	case protocol.PrefixDat:
		return s.handleDat(ctx, msg)
	default:
		// Prefix-match let something like "DATX" through the codec.
		s.Send(protocol.Build(protocol.PrefixError, protocol.StatusFail, "Unknown command: "+raw))
		return "rejected"
	}
}

func (s *Session) handleCmd(ctx context.Context, msg protocol.Message) string {
	switch msg.Subcommand() {
	case "TEST":
		s.Send(protocol.Build(protocol.PrefixCmd, "TEST", protocol.StatusOK))
		return "ok"
	case "LOGIN":
		return s.handleLogin(ctx, msg.Rest())
	case "LOGOUT":
		// The attached user is intentionally kept; see handleLogin.
		s.Send(protocol.Build(protocol.PrefixCmd, "LOGOUT", protocol.StatusSuccess))
		return "ok"
	case "DISCONNECT":
		s.Send(protocol.Build(protocol.PrefixCmd, "DISCONNECT", protocol.StatusSuccess, "Disconnected"))
		s.Close()
		return "ok"
	default:
		s.Send(protocol.Build(protocol.PrefixError, protocol.StatusFail, "Unknown command: "+msg.Subcommand()))
		return "rejected"
	}
}

func (s *Session) handleLogin(ctx context.Context, args []string) string {
	if len(args) != 2 {
		s.Send(protocol.Build(protocol.PrefixCmd, "LOGIN", protocol.StatusFail,
			fmt.Sprintf("Invalid argument count for LOGIN. Expected: 2, Got: %d", len(args))))
		return "fail"
	}
	username, password := args[0], args[1]
	if username == "" || password == "" {
		s.Send(protocol.Build(protocol.PrefixCmd, "LOGIN", protocol.StatusFail,
			"Username and password cannot be empty"))
		return "fail"
	}

	remote := s.conn.RemoteAddr().String()
	user, err := s.deps.Auth.Authenticate(ctx, username, password, remote)
	if err != nil {
		// The reply never distinguishes unknown user from bad password.
		s.logger.Info("login rejected", "username", username, "reason", err)
		if s.deps.Audit != nil {
			s.deps.Audit.LoginFailed(ctx, username, remote, err.Error())
		}
		s.Send(protocol.Build(protocol.PrefixCmd, "LOGIN", protocol.StatusFail, "Invalid username or password"))
		return "fail"
	}

	s.attachUser(user)
	s.logger.Info("login accepted", "username", user.Username)
	if s.deps.Audit != nil {
		s.deps.Audit.LoginSucceeded(ctx, user.Username, remote)
	}
	s.Send(protocol.Build(protocol.PrefixCmd, "LOGIN", protocol.StatusSuccess, "Login successful"))
	return "ok"
}

func (s *Session) handleDat(ctx context.Context, msg protocol.Message) string {
	sub := strings.ToUpper(msg.Subcommand())
	args := msg.Rest()

	switch sub {
	case "":
		s.Send(protocol.Build(protocol.PrefixDat, "UNKNOWN", protocol.StatusFail, "Unknown DAT command"))
		return "fail"
	case "PROD_LIST":
		return s.handleProductList(ctx)
	case "U_PERMS":
		return s.handleUserPerms(ctx, args)
	case "U_DATA":
		return s.handleUserData(ctx, args)
	case "TRANSACTION":
		return s.handleTransaction(ctx, args)
	default:
		s.Send(protocol.Build(protocol.PrefixDat, sub, protocol.StatusFail, "Unknown DAT command"))
		return "fail"
	}
}

func (s *Session) handleProductList(ctx context.Context) string {
	products, err := s.deps.Products.ListProducts(ctx)
	if err != nil {
		s.logger.Error("product list failed", "error", err)
		s.Send(protocol.Build(protocol.PrefixDat, "PROD_LIST", protocol.StatusFail, "Product list unavailable"))
		return "fail"
	}

	records := make([]string, 0, len(products))
	for _, p := range products {
		records = append(records, strings.Join([]string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Description,
			p.Price.StringFixed(2),
			strconv.Itoa(p.Stock),
		}, "|"))
	}
	s.Send(protocol.Build(protocol.PrefixDat, "PROD_LIST", strings.Join(records, ";")))
	return "ok"
}

func (s *Session) handleUserPerms(ctx context.Context, args []string) string {
	if len(args) == 0 {
		s.Send(protocol.Build(protocol.PrefixDat, "U_PERMS", protocol.StatusFail, "Username required"))
		return "fail"
	}
	user, status := s.lookupUser(ctx, "U_PERMS", args[0])
	if user == nil {
		return status
	}
	s.Send(protocol.Build(protocol.PrefixDat, "U_PERMS", args[0], strings.Join(user.PermissionIDs(), "|")))
	return "ok"
}

func (s *Session) handleUserData(ctx context.Context, args []string) string {
	if len(args) == 0 {
		s.Send(protocol.Build(protocol.PrefixDat, "U_DATA", protocol.StatusFail, "Username required"))
		return "fail"
	}
	user, status := s.lookupUser(ctx, "U_DATA", args[0])
	if user == nil {
		return status
	}
	payload := strings.Join([]string{
		user.Username,
		strconv.FormatBool(user.Admin),
		strconv.FormatBool(user.Active),
		formatLastLogin(user.LastLogin),
	}, "|")
	s.Send(protocol.Build(protocol.PrefixDat, "U_DATA", args[0], payload))
	return "ok"
}

// lookupUser resolves the username or sends the failure reply itself,
// returning (nil, status) so callers can hand the status straight back.
func (s *Session) lookupUser(ctx context.Context, sub, username string) (*auth.User, string) {
	user, err := s.deps.Users.LookupUser(ctx, username)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		s.Send(protocol.Build(protocol.PrefixDat, sub, protocol.StatusFail, "User not found"))
		return nil, "fail"
	case err != nil:
		s.logger.Error("user lookup failed", "username", username, "error", err)
		s.Send(protocol.Build(protocol.PrefixDat, sub, protocol.StatusFail, "User lookup failed"))
		return nil, "fail"
	}
	return user, "ok"
}

func (s *Session) handleTransaction(ctx context.Context, args []string) string {
	if len(args) == 0 {
		s.Send(protocol.Build(protocol.PrefixDat, "TRANSACTION", protocol.StatusFail, "Transaction ID required"))
		return "fail"
	}
	fields, err := s.deps.Transactions.TransactionByID(ctx, args[0])
	switch {
	case errors.Is(err, sales.ErrNotFound):
		s.Send(protocol.Build(protocol.PrefixDat, "TRANSACTION", protocol.StatusFail, "Transaction not found"))
		return "fail"
	case err != nil:
		s.logger.Error("transaction lookup failed", "transaction_id", args[0], "error", err)
		s.Send(protocol.Build(protocol.PrefixDat, "TRANSACTION", protocol.StatusFail, "Transaction lookup failed"))
		return "fail"
	}

	pairs := make([]string, 0, len(fields))
	for _, f := range fields {
		pairs = append(pairs, f.Key+"="+f.Value)
	}
	s.Send(protocol.Build(protocol.PrefixDat, "TRANSACTION", args[0], strings.Join(pairs, "|")))
	return "ok"
}

func formatLastLogin(t *time.Time) string {
	if t == nil {
		return "null"
	}
	return t.UTC().Format(lastLoginLayout)
}
