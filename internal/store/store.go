// Package store persists companies, users, RFQs and everything hanging off
// them. Two backends exist: Postgres for deployments and SQLite for local
// use and tests.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sanctuari/rfq-cli/internal/model"
)

var (
	// ErrNotFound is wrapped by lookups and updates that match no row.
	ErrNotFound = eris.New("store: not found")
	// ErrConflict is wrapped by inserts that violate a uniqueness constraint.
	ErrConflict = eris.New("store: conflict")
	// ErrFreeRFQUsed is returned by CreateRFQ for a free RFQ when the company
	// already has one. At most one free RFQ exists per company.
	ErrFreeRFQUsed = eris.New("store: company already has its free rfq")
)

// Store defines the persistence interface for the RFQ service.
type Store interface {
	// Companies and users
	CreateCompanyWithAdmin(ctx context.Context, company *model.Company, admin *model.User) error
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	RecordLogin(ctx context.Context, userID string, at time.Time) error

	// RFQs
	CreateRFQ(ctx context.Context, rfq *model.RFQ) error
	GetRFQ(ctx context.Context, id string) (*model.RFQ, error)
	ListRFQs(ctx context.Context, companyID string) ([]model.RFQ, error)
	CountRFQs(ctx context.Context, companyID string) (int, error)
	UpdateRFQStatus(ctx context.Context, id string, status model.RFQStatus) error

	// Pending payments
	SavePendingPayment(ctx context.Context, p *model.PendingPayment) error
	GetPendingPayment(ctx context.Context, orderID string) (*model.PendingPayment, error)
	DeletePendingPayment(ctx context.Context, orderID string) error
	CompletePendingPayment(ctx context.Context, orderID string, rfq *model.RFQ) error

	// Distributions
	CreateDistribution(ctx context.Context, d *model.Distribution) error
	ListDistributions(ctx context.Context, rfqID string) ([]model.Distribution, error)
	GetDistributionByLink(ctx context.Context, link string) (*model.Distribution, error)
	// MarkDistributionViewed sets viewed_at and status viewed if the
	// invitation was never opened, and reports whether it changed anything.
	MarkDistributionViewed(ctx context.Context, id string, at time.Time) (bool, error)
	UpdateDistributionStatus(ctx context.Context, id string, status model.DistributionStatus) error

	// Quotes. CreateQuote also moves the distribution to quoted.
	CreateQuote(ctx context.Context, q *model.Quote) error
	ListQuotes(ctx context.Context, rfqID string) ([]model.Quote, error)

	// Communications
	CreateCommunication(ctx context.Context, c *model.Communication) error
	ListCommunications(ctx context.Context, rfqID string) ([]model.Communication, error)

	// Insurer and broker network. Empty ids lists every active entry.
	ListInsurers(ctx context.Context, ids []string) ([]model.Insurer, error)
	ListBrokers(ctx context.Context, ids []string) ([]model.Broker, error)
	ImportInsurers(ctx context.Context, insurers []model.Insurer) (int64, error)
	ImportBrokers(ctx context.Context, brokers []model.Broker) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns a store for driver "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string, pool *PoolConfig) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, dsn, pool)
	case "sqlite", "":
		return NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
