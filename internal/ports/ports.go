package ports

import (
	"context"

	"cashcount/internal/core"
)

// Ports for the remote cash count API. Credentials are passed on every call;
// implementations never hold a logged-in user of their own.
type (
	// Authenticator verifies a username/password pair.
	Authenticator interface {
		Login(ctx context.Context, creds core.Credentials) error
	}

	RegistryReader interface {
		ListRegistries(ctx context.Context, creds core.Credentials) ([]core.Registry, error)
	}

	RegistryWriter interface {
		CreateRegistry(ctx context.Context, creds core.Credentials, name string) (core.Registry, error)
	}

	CashCountReader interface {
		ListCashCounts(ctx context.Context, creds core.Credentials) ([]core.CashCount, error)
	}

	// CashCountWriter persists a cash count and returns the id assigned to it.
	CashCountWriter interface {
		CreateCashCount(ctx context.Context, creds core.Credentials, cc core.CashCount) (int64, error)
	}

	// CashCountExporter mirrors a created cash count into an external ledger.
	CashCountExporter interface {
		Export(ctx context.Context, cc core.CashCount) (ref string, err error)
	}
)
