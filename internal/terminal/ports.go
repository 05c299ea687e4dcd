package terminal

import (
	"context"

	"github.com/meridian-pos/meridian-pos/internal/auth"
	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/sales"
)

// Authenticator verifies terminal credentials and returns the signed-in user.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password, remoteAddr string) (*auth.User, error)
}

// UserDirectory resolves users for the DAT query endpoints.
type UserDirectory interface {
	LookupUser(ctx context.Context, username string) (*auth.User, error)
}

// ProductLister supplies the product catalog for PROD_LIST.
type ProductLister interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
}

// TransactionSource resolves stored transactions for TRANSACTION queries.
type TransactionSource interface {
	TransactionByID(ctx context.Context, id string) ([]sales.Field, error)
}

// Recorder receives terminal audit events. Calls must never block
// protocol processing.
type Recorder interface {
	LoginSucceeded(ctx context.Context, username, remoteAddr string)
	LoginFailed(ctx context.Context, username, remoteAddr, reason string)
	SessionClosed(ctx context.Context, remoteAddr string)
}

// Deps bundles everything a session needs to answer terminal traffic.
// Audit and Metrics are optional.
type Deps struct {
	Auth         Authenticator
	Users        UserDirectory
	Products     ProductLister
	Transactions TransactionSource
	Audit        Recorder
	Metrics      *observability.Metrics
}
