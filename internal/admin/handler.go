// Package admin exposes the back-office HTTP API used by management
// tooling. Terminals never talk to it; they stay on the line protocol.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-pos/meridian-pos/internal/auth"
	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/rbac"
	"github.com/meridian-pos/meridian-pos/internal/sales"
)

// UserService is the slice of the auth service the API consumes.
type UserService interface {
	CreateUser(ctx context.Context, username, password string, isAdmin bool, permissionIDs []string) error
	Users(ctx context.Context) ([]auth.User, error)
}

// PermissionCatalog lists the permission definitions.
type PermissionCatalog interface {
	ListPermissions(ctx context.Context) ([]rbac.Permission, error)
}

// ProductCatalog lists products.
type ProductCatalog interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
}

// TransactionStore resolves transactions by business id.
type TransactionStore interface {
	TransactionByID(ctx context.Context, id string) ([]sales.Field, error)
}

// Handler serves the admin JSON endpoints.
type Handler struct {
	users        UserService
	permissions  PermissionCatalog
	products     ProductCatalog
	transactions TransactionStore
	validator    *validator.Validate
	logger       *slog.Logger
}

// NewHandler constructs the admin handler.
func NewHandler(users UserService, permissions PermissionCatalog, products ProductCatalog, transactions TransactionStore, logger *slog.Logger) *Handler {
	return &Handler{
		users:        users,
		permissions:  permissions,
		products:     products,
		transactions: transactions,
		validator:    validator.New(),
		logger:       logger,
	}
}

// MountRoutes registers admin endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/api/users", h.handleListUsers)
	r.Post("/api/users", h.handleCreateUser)
	r.Get("/api/permissions", h.handleListPermissions)
	r.Get("/api/products", h.handleListProducts)
	r.Get("/api/transactions/{transactionID}", h.handleGetTransaction)
}

type userPayload struct {
	Username    string     `json:"username"`
	IsAdmin     bool       `json:"is_admin"`
	IsActive    bool       `json:"is_active"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Users(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "user listing unavailable")
		return
	}
	out := make([]userPayload, 0, len(users))
	for _, u := range users {
		out = append(out, userPayload{
			Username:    u.Username,
			IsAdmin:     u.Admin,
			IsActive:    u.Active,
			Permissions: u.PermissionIDs(),
			CreatedAt:   u.CreatedAt,
			LastLogin:   u.LastLogin,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

type createUserForm struct {
	Username    string   `json:"username" validate:"required,min=3,max=64"`
	Password    string   `json:"password" validate:"required,min=8"`
	IsAdmin     bool     `json:"is_admin"`
	Permissions []string `json:"permissions" validate:"dive,required"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var form createUserForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	err := h.users.CreateUser(r.Context(), form.Username, form.Password, form.IsAdmin, form.Permissions)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		writeError(w, http.StatusConflict, "username already taken")
	case err != nil:
		h.logger.Error("create user", slog.String("username", form.Username), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "user creation failed")
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"username": form.Username})
	}
}

func (h *Handler) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.permissions.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "permission listing unavailable")
		return
	}
	type permPayload struct {
		ID           string   `json:"id"`
		Name         string   `json:"name"`
		Description  string   `json:"description"`
		Category     string   `json:"category"`
		Level        string   `json:"level"`
		Dependencies []string `json:"dependencies"`
		IsActive     bool     `json:"is_active"`
	}
	out := make([]permPayload, 0, len(perms))
	for _, p := range perms {
		out = append(out, permPayload{
			ID:           p.ID,
			Name:         p.Name,
			Description:  p.Description,
			Category:     string(p.Category),
			Level:        p.Level.String(),
			Dependencies: p.Dependencies(),
			IsActive:     p.IsActive,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": out})
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "product listing unavailable")
		return
	}
	type productPayload struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       string `json:"price"`
		Stock       int    `json:"stock"`
	}
	out := make([]productPayload, 0, len(products))
	for _, p := range products {
		out = append(out, productPayload{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price.StringFixed(2),
			Stock:       p.Stock,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (h *Handler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transactionID")
	fields, err := h.transactions.TransactionByID(r.Context(), id)
	switch {
	case errors.Is(err, sales.ErrNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	case err != nil:
		h.logger.Error("get transaction", slog.String("transaction_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "transaction lookup failed")
		return
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": out})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return "invalid field: " + fieldErrs[0].Field()
	}
	return "validation failed"
}
