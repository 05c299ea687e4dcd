package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/auth"
	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/rbac"
	"github.com/meridian-pos/meridian-pos/internal/sales"
)

type stubUsers struct {
	users     []auth.User
	createErr error
	created   []string
}

func (s *stubUsers) CreateUser(_ context.Context, username, _ string, _ bool, _ []string) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, username)
	return nil
}

func (s *stubUsers) Users(_ context.Context) ([]auth.User, error) {
	return s.users, nil
}

type stubPermissions struct{}

func (stubPermissions) ListPermissions(_ context.Context) ([]rbac.Permission, error) {
	return rbac.DefaultPermissions(), nil
}

type stubProducts struct{ products []catalog.Product }

func (s stubProducts) ListProducts(_ context.Context) ([]catalog.Product, error) {
	return s.products, nil
}

type stubTransactions struct{ fields []sales.Field }

func (s stubTransactions) TransactionByID(_ context.Context, _ string) ([]sales.Field, error) {
	if s.fields == nil {
		return nil, sales.ErrNotFound
	}
	return s.fields, nil
}

func newTestRouter(t *testing.T, users *stubUsers, products stubProducts, txns stubTransactions) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(users, stubPermissions{}, products, txns, logger)
	return NewRouter(RouterParams{
		Logger:  logger,
		Handler: handler,
		Metrics: observability.NewMetrics(),
	})
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &stubUsers{}, stubProducts{}, stubTransactions{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestListUsers(t *testing.T) {
	lastLogin := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	users := &stubUsers{users: []auth.User{
		{ID: 1, Username: "admin", Admin: true, Active: true, LastLogin: &lastLogin},
		{ID: 2, Username: "cashier", Active: true},
	}}
	router := newTestRouter(t, users, stubProducts{}, stubTransactions{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Users []struct {
			Username string `json:"username"`
			IsAdmin  bool   `json:"is_admin"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Users, 2)
	require.Equal(t, "admin", body.Users[0].Username)
	require.True(t, body.Users[0].IsAdmin)
}

func TestCreateUser(t *testing.T) {
	users := &stubUsers{}
	router := newTestRouter(t, users, stubProducts{}, stubTransactions{})

	payload := `{"username":"cashier1","password":"longenough","permissions":["SALES_PROCESS"]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(payload)))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, []string{"cashier1"}, users.created)
}

func TestCreateUserValidation(t *testing.T) {
	router := newTestRouter(t, &stubUsers{}, stubProducts{}, stubTransactions{})

	payload := `{"username":"x","password":"short"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(payload)))

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCreateUserConflict(t *testing.T) {
	users := &stubUsers{createErr: auth.ErrUserExists}
	router := newTestRouter(t, users, stubProducts{}, stubTransactions{})

	payload := `{"username":"cashier1","password":"longenough"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(payload)))

	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestListPermissions(t *testing.T) {
	router := newTestRouter(t, &stubUsers{}, stubProducts{}, stubTransactions{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/permissions", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "SALES_PROCESS")
	require.Contains(t, rr.Body.String(), "PERMISSION_MANAGE")
}

func TestListProducts(t *testing.T) {
	products := stubProducts{products: []catalog.Product{
		{ID: 7, Name: "Espresso", Price: decimal.RequireFromString("2.50"), Stock: 10},
	}}
	router := newTestRouter(t, &stubUsers{}, products, stubTransactions{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"price":"2.50"`)
}

func TestGetTransaction(t *testing.T) {
	txns := stubTransactions{fields: []sales.Field{
		{Key: "transaction_id", Value: "TXN-100"},
		{Key: "status", Value: "COMPLETED"},
	}}
	router := newTestRouter(t, &stubUsers{}, stubProducts{}, txns)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/transactions/TXN-100", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"status":"COMPLETED"`)
}

func TestGetTransactionNotFound(t *testing.T) {
	router := newTestRouter(t, &stubUsers{}, stubProducts{}, stubTransactions{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/transactions/TXN-404", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
}
