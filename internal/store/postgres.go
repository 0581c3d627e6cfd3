package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sanctuari/rfq-cli/internal/db"
	"github.com/sanctuari/rfq-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying pool for bulk operations.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name         TEXT NOT NULL,
	industry     TEXT NOT NULL DEFAULT '',
	company_size TEXT NOT NULL DEFAULT '',
	address      TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	state        TEXT NOT NULL DEFAULT '',
	pincode      TEXT NOT NULL DEFAULT '',
	gst_number   TEXT NOT NULL DEFAULT '',
	pan_number   TEXT NOT NULL DEFAULT '',
	website      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	email       TEXT NOT NULL UNIQUE,
	full_name   TEXT NOT NULL,
	phone       TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT 'user',
	company_id  TEXT REFERENCES companies(id),
	designation TEXT NOT NULL DEFAULT '',
	is_active   BOOLEAN NOT NULL DEFAULT true,
	last_login  TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rfqs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id   TEXT NOT NULL REFERENCES companies(id),
	created_by   TEXT NOT NULL DEFAULT '',
	product_type TEXT NOT NULL,
	rfq_number   TEXT NOT NULL UNIQUE,
	status       TEXT NOT NULL DEFAULT 'draft',
	data         JSONB NOT NULL DEFAULT '{}',
	deadline     TIMESTAMPTZ,
	is_free      BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pending_payments (
	order_id   TEXT PRIMARY KEY,
	amount     BIGINT NOT NULL,
	draft      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rfq_distributions (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	rfq_id            TEXT NOT NULL REFERENCES rfqs(id),
	recipient_email   TEXT NOT NULL,
	recipient_name    TEXT NOT NULL DEFAULT '',
	recipient_type    TEXT NOT NULL,
	recipient_company TEXT NOT NULL DEFAULT '',
	unique_link       TEXT NOT NULL UNIQUE,
	viewed_at         TIMESTAMPTZ,
	status            TEXT NOT NULL DEFAULT 'pending',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS quotes (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	rfq_id           TEXT NOT NULL REFERENCES rfqs(id),
	distribution_id  TEXT NOT NULL REFERENCES rfq_distributions(id),
	submitted_by     TEXT NOT NULL DEFAULT '',
	insurer_name     TEXT NOT NULL DEFAULT '',
	premium_amount   DOUBLE PRECISION NOT NULL,
	coverage_details TEXT NOT NULL DEFAULT '',
	document_url     TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'submitted',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS communications (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	rfq_id       TEXT NOT NULL REFERENCES rfqs(id),
	sender_type  TEXT NOT NULL,
	sender_id    TEXT NOT NULL,
	recipient_id TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL,
	is_broadcast BOOLEAN NOT NULL DEFAULT false,
	attachments  JSONB NOT NULL DEFAULT '[]',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS insurers (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name          TEXT NOT NULL,
	type          TEXT NOT NULL DEFAULT 'general',
	contact_email TEXT NOT NULL UNIQUE,
	contact_phone TEXT NOT NULL DEFAULT '',
	is_active     BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS brokers (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name           TEXT NOT NULL,
	license_number TEXT NOT NULL DEFAULT '',
	contact_email  TEXT NOT NULL UNIQUE,
	contact_phone  TEXT NOT NULL DEFAULT '',
	is_partner     BOOLEAN NOT NULL DEFAULT false,
	is_active      BOOLEAN NOT NULL DEFAULT true
);

CREATE INDEX IF NOT EXISTS idx_users_company ON users(company_id);
CREATE INDEX IF NOT EXISTS idx_rfqs_company ON rfqs(company_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_rfqs_one_free ON rfqs(company_id) WHERE is_free;
CREATE INDEX IF NOT EXISTS idx_distributions_rfq ON rfq_distributions(rfq_id);
CREATE INDEX IF NOT EXISTS idx_quotes_rfq ON quotes(rfq_id);
CREATE INDEX IF NOT EXISTS idx_communications_rfq ON communications(rfq_id);
`

// Migrate creates all tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- companies and users ---

func (s *PostgresStore) CreateCompanyWithAdmin(ctx context.Context, c *model.Company, admin *model.User) error {
	prepareCompany(c, admin)
	return s.inTx(ctx, "create company", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO companies (id, name, industry, company_size, address, city, state, pincode, gst_number, pan_number, website, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			c.ID, c.Name, c.Industry, c.CompanySize, c.Address, c.City, c.State, c.Pincode,
			c.GSTNumber, c.PANNumber, c.Website, c.CreatedAt,
		); err != nil {
			return eris.Wrap(err, "postgres: insert company")
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, full_name, phone, role, company_id, designation, is_active, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			admin.ID, admin.Email, admin.FullName, admin.Phone, string(admin.Role), admin.CompanyID,
			admin.Designation, admin.IsActive, admin.CreatedAt,
		)
		return pgConflict(err, "postgres: insert admin user")
	})
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var c model.Company
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, industry, company_size, address, city, state, pincode, gst_number, pan_number, website, created_at
		 FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Industry, &c.CompanySize, &c.Address, &c.City, &c.State, &c.Pincode,
		&c.GSTNumber, &c.PANNumber, &c.Website, &c.CreatedAt)
	if err != nil {
		return nil, pgNotFound(err, "company", id)
	}
	return &c, nil
}

const pgUserColumns = `id, email, full_name, phone, role, company_id, designation, is_active, last_login, created_at`

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return scanPGUser(s.pool.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id), id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanPGUser(s.pool.QueryRow(ctx,
		`SELECT `+pgUserColumns+` FROM users WHERE email = $1`, strings.ToLower(email)), email)
}

func (s *PostgresStore) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at.UTC(), userID)
	if err != nil {
		return eris.Wrapf(err, "postgres: record login %s", userID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "user %s", userID)
	}
	return nil
}

func scanPGUser(row pgx.Row, key string) (*model.User, error) {
	var u model.User
	var role string
	var companyID *string
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &role, &companyID, &u.Designation,
		&u.IsActive, &u.LastLogin, &u.CreatedAt)
	if err != nil {
		return nil, pgNotFound(err, "user", key)
	}
	u.Role = model.UserRole(role)
	if companyID != nil {
		u.CompanyID = *companyID
	}
	return &u, nil
}

// --- rfqs ---

func (s *PostgresStore) CreateRFQ(ctx context.Context, r *model.RFQ) error {
	return insertPGRFQ(ctx, s.pool, r)
}

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertPGRFQ(ctx context.Context, ex pgExecer, r *model.RFQ) error {
	data, err := prepareRFQ(r)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx,
		`INSERT INTO rfqs (id, company_id, created_by, product_type, rfq_number, status, data, deadline, is_free, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.CompanyID, r.CreatedBy, r.ProductType, r.RFQNumber, string(r.Status), data,
		r.Deadline, r.IsFree, r.CreatedAt, r.UpdatedAt,
	)
	if pgErr := pgUnique(err); pgErr != nil && pgErr.ConstraintName == "idx_rfqs_one_free" {
		return eris.Wrapf(ErrFreeRFQUsed, "postgres: company %s", r.CompanyID)
	}
	return pgConflict(err, "postgres: insert rfq")
}

const pgRFQColumns = `id, company_id, created_by, product_type, rfq_number, status, data, deadline, is_free, created_at, updated_at`

func (s *PostgresStore) GetRFQ(ctx context.Context, id string) (*model.RFQ, error) {
	return scanPGRFQ(s.pool.QueryRow(ctx, `SELECT `+pgRFQColumns+` FROM rfqs WHERE id = $1`, id), id)
}

func (s *PostgresStore) ListRFQs(ctx context.Context, companyID string) ([]model.RFQ, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgRFQColumns+` FROM rfqs WHERE company_id = $1 ORDER BY created_at DESC`, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rfqs")
	}
	defer rows.Close()

	var out []model.RFQ
	for rows.Next() {
		r, err := scanPGRFQ(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list rfqs iterate")
}

func (s *PostgresStore) CountRFQs(ctx context.Context, companyID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rfqs WHERE company_id = $1`, companyID).Scan(&n)
	return n, eris.Wrap(err, "postgres: count rfqs")
}

func (s *PostgresStore) UpdateRFQStatus(ctx context.Context, id string, status model.RFQStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE rfqs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update rfq status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "rfq %s", id)
	}
	return nil
}

func scanPGRFQ(row pgx.Row, key string) (*model.RFQ, error) {
	var r model.RFQ
	var status string
	var data []byte
	err := row.Scan(&r.ID, &r.CompanyID, &r.CreatedBy, &r.ProductType, &r.RFQNumber, &status,
		&data, &r.Deadline, &r.IsFree, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, pgNotFound(err, "rfq", key)
	}
	r.Status = model.RFQStatus(status)
	if err := json.Unmarshal(data, &r.Data); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal rfq data")
	}
	return &r, nil
}

// --- pending payments ---

func (s *PostgresStore) SavePendingPayment(ctx context.Context, p *model.PendingPayment) error {
	ensureTime(&p.CreatedAt)
	draft, err := json.Marshal(p.Draft)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal draft")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO pending_payments (order_id, amount, draft, created_at) VALUES ($1, $2, $3, $4)`,
		p.OrderID, p.Amount, draft, p.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert pending payment")
}

func (s *PostgresStore) GetPendingPayment(ctx context.Context, orderID string) (*model.PendingPayment, error) {
	var p model.PendingPayment
	var draft []byte
	err := s.pool.QueryRow(ctx,
		`SELECT order_id, amount, draft, created_at FROM pending_payments WHERE order_id = $1`, orderID,
	).Scan(&p.OrderID, &p.Amount, &draft, &p.CreatedAt)
	if err != nil {
		return nil, pgNotFound(err, "pending payment", orderID)
	}
	if err := json.Unmarshal(draft, &p.Draft); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal draft")
	}
	return &p, nil
}

func (s *PostgresStore) DeletePendingPayment(ctx context.Context, orderID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pending_payments WHERE order_id = $1`, orderID)
	return eris.Wrapf(err, "postgres: delete pending payment %s", orderID)
}

func (s *PostgresStore) CompletePendingPayment(ctx context.Context, orderID string, r *model.RFQ) error {
	return s.inTx(ctx, "complete payment", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM pending_payments WHERE order_id = $1`, orderID)
		if err != nil {
			return eris.Wrap(err, "postgres: delete pending payment")
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrNotFound, "pending payment %s", orderID)
		}
		return insertPGRFQ(ctx, tx, r)
	})
}

// --- distributions ---

func (s *PostgresStore) CreateDistribution(ctx context.Context, d *model.Distribution) error {
	prepareDistribution(d)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rfq_distributions (id, rfq_id, recipient_email, recipient_name, recipient_type, recipient_company, unique_link, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.RFQID, d.RecipientEmail, d.RecipientName, string(d.RecipientType), d.RecipientCompany,
		d.UniqueLink, string(d.Status), d.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert distribution")
}

const pgDistributionColumns = `id, rfq_id, recipient_email, recipient_name, recipient_type, recipient_company, unique_link, viewed_at, status, created_at`

func (s *PostgresStore) ListDistributions(ctx context.Context, rfqID string) ([]model.Distribution, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgDistributionColumns+` FROM rfq_distributions WHERE rfq_id = $1 ORDER BY created_at`, rfqID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list distributions")
	}
	defer rows.Close()

	var out []model.Distribution
	for rows.Next() {
		d, err := scanPGDistribution(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list distributions iterate")
}

func (s *PostgresStore) GetDistributionByLink(ctx context.Context, link string) (*model.Distribution, error) {
	return scanPGDistribution(s.pool.QueryRow(ctx,
		`SELECT `+pgDistributionColumns+` FROM rfq_distributions WHERE unique_link = $1`, link), link)
}

func (s *PostgresStore) MarkDistributionViewed(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE rfq_distributions SET viewed_at = $1, status = $2 WHERE id = $3 AND viewed_at IS NULL`,
		at.UTC(), string(model.DistributionViewed), id,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: mark viewed %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) UpdateDistributionStatus(ctx context.Context, id string, status model.DistributionStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE rfq_distributions SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update distribution status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "distribution %s", id)
	}
	return nil
}

func scanPGDistribution(row pgx.Row, key string) (*model.Distribution, error) {
	var d model.Distribution
	var recipientType, status string
	err := row.Scan(&d.ID, &d.RFQID, &d.RecipientEmail, &d.RecipientName, &recipientType,
		&d.RecipientCompany, &d.UniqueLink, &d.ViewedAt, &status, &d.CreatedAt)
	if err != nil {
		return nil, pgNotFound(err, "distribution", key)
	}
	d.RecipientType = model.RecipientType(recipientType)
	d.Status = model.DistributionStatus(status)
	return &d, nil
}

// --- quotes ---

func (s *PostgresStore) CreateQuote(ctx context.Context, q *model.Quote) error {
	prepareQuote(q)
	return s.inTx(ctx, "create quote", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO quotes (id, rfq_id, distribution_id, submitted_by, insurer_name, premium_amount, coverage_details, document_url, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			q.ID, q.RFQID, q.DistributionID, q.SubmittedBy, q.InsurerName, q.PremiumAmount,
			q.CoverageDetails, q.DocumentURL, string(q.Status), q.CreatedAt,
		); err != nil {
			return eris.Wrap(err, "postgres: insert quote")
		}
		tag, err := tx.Exec(ctx, `UPDATE rfq_distributions SET status = $1 WHERE id = $2`,
			string(model.DistributionQuoted), q.DistributionID)
		if err != nil {
			return eris.Wrap(err, "postgres: mark distribution quoted")
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrNotFound, "distribution %s", q.DistributionID)
		}
		return nil
	})
}

func (s *PostgresStore) ListQuotes(ctx context.Context, rfqID string) ([]model.Quote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, rfq_id, distribution_id, submitted_by, insurer_name, premium_amount, coverage_details, document_url, status, created_at
		 FROM quotes WHERE rfq_id = $1 ORDER BY created_at`, rfqID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list quotes")
	}
	defer rows.Close()

	var out []model.Quote
	for rows.Next() {
		var q model.Quote
		var status string
		if err := rows.Scan(&q.ID, &q.RFQID, &q.DistributionID, &q.SubmittedBy, &q.InsurerName,
			&q.PremiumAmount, &q.CoverageDetails, &q.DocumentURL, &status, &q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan quote")
		}
		q.Status = model.QuoteStatus(status)
		out = append(out, q)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list quotes iterate")
}

// --- communications ---

func (s *PostgresStore) CreateCommunication(ctx context.Context, c *model.Communication) error {
	att, err := prepareCommunication(c)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO communications (id, rfq_id, sender_type, sender_id, recipient_id, message, is_broadcast, attachments, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.RFQID, string(c.SenderType), c.SenderID, c.RecipientID, c.Message, c.IsBroadcast,
		att, c.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert communication")
}

func (s *PostgresStore) ListCommunications(ctx context.Context, rfqID string) ([]model.Communication, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, rfq_id, sender_type, sender_id, recipient_id, message, is_broadcast, attachments, created_at
		 FROM communications WHERE rfq_id = $1 ORDER BY created_at`, rfqID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list communications")
	}
	defer rows.Close()

	var out []model.Communication
	for rows.Next() {
		var c model.Communication
		var sender string
		var att []byte
		if err := rows.Scan(&c.ID, &c.RFQID, &sender, &c.SenderID, &c.RecipientID, &c.Message,
			&c.IsBroadcast, &att, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan communication")
		}
		c.SenderType = model.SenderType(sender)
		if err := json.Unmarshal(att, &c.Attachments); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal attachments")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list communications iterate")
}

// --- network ---

func (s *PostgresStore) ListInsurers(ctx context.Context, ids []string) ([]model.Insurer, error) {
	query, args := pgNetworkQuery(`SELECT id, name, type, contact_email, contact_phone, is_active FROM insurers`, ids)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list insurers")
	}
	defer rows.Close()

	var out []model.Insurer
	for rows.Next() {
		var in model.Insurer
		var typ string
		if err := rows.Scan(&in.ID, &in.Name, &typ, &in.ContactEmail, &in.ContactPhone, &in.IsActive); err != nil {
			return nil, eris.Wrap(err, "postgres: scan insurer")
		}
		in.Type = model.InsurerType(typ)
		out = append(out, in)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list insurers iterate")
}

func (s *PostgresStore) ListBrokers(ctx context.Context, ids []string) ([]model.Broker, error) {
	query, args := pgNetworkQuery(
		`SELECT id, name, license_number, contact_email, contact_phone, is_partner, is_active FROM brokers`, ids)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list brokers")
	}
	defer rows.Close()

	var out []model.Broker
	for rows.Next() {
		var b model.Broker
		if err := rows.Scan(&b.ID, &b.Name, &b.LicenseNumber, &b.ContactEmail, &b.ContactPhone,
			&b.IsPartner, &b.IsActive); err != nil {
			return nil, eris.Wrap(err, "postgres: scan broker")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list brokers iterate")
}

func pgNetworkQuery(base string, ids []string) (string, []any) {
	if len(ids) == 0 {
		return base + ` WHERE is_active ORDER BY name`, nil
	}
	return base + ` WHERE is_active AND id = ANY($1) ORDER BY name`, []any{ids}
}

var (
	insurerColumns = []string{"id", "name", "type", "contact_email", "contact_phone", "is_active"}
	brokerColumns  = []string{"id", "name", "license_number", "contact_email", "contact_phone", "is_partner", "is_active"}
)

// ImportInsurers bulk-loads insurers, updating existing rows with the same
// contact email.
func (s *PostgresStore) ImportInsurers(ctx context.Context, insurers []model.Insurer) (int64, error) {
	prepareInsurers(insurers)
	rows := make([][]any, len(insurers))
	for i, in := range insurers {
		rows[i] = []any{in.ID, in.Name, string(in.Type), in.ContactEmail, in.ContactPhone, in.IsActive}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "insurers",
		Columns:      insurerColumns,
		ConflictKeys: []string{"contact_email"},
		UpdateCols:   []string{"name", "type", "contact_phone", "is_active"},
	}, rows)
	return n, eris.Wrap(err, "postgres: import insurers")
}

// ImportBrokers bulk-loads brokers, updating existing rows with the same
// contact email.
func (s *PostgresStore) ImportBrokers(ctx context.Context, brokers []model.Broker) (int64, error) {
	prepareBrokers(brokers)
	rows := make([][]any, len(brokers))
	for i, b := range brokers {
		rows[i] = []any{b.ID, b.Name, b.LicenseNumber, b.ContactEmail, b.ContactPhone, b.IsPartner, b.IsActive}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "brokers",
		Columns:      brokerColumns,
		ConflictKeys: []string{"contact_email"},
		UpdateCols:   []string{"name", "license_number", "contact_phone", "is_partner", "is_active"},
	}, rows)
	return n, eris.Wrap(err, "postgres: import brokers")
}

// helpers

func (s *PostgresStore) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "postgres: begin %s", op)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrapf(tx.Commit(ctx), "postgres: commit %s", op)
}

// pgUnique returns the unique_violation (23505) carried by err, if any.
func pgUnique(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr
	}
	return nil
}

// pgConflict wraps unique violations with ErrConflict and everything else
// with msg.
func pgConflict(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pgErr := pgUnique(err); pgErr != nil {
		return eris.Wrapf(ErrConflict, "%s: %s", msg, pgErr.ConstraintName)
	}
	return eris.Wrap(err, msg)
}

func pgNotFound(err error, entity, key string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, key)
	}
	return eris.Wrapf(err, "postgres: scan %s", entity)
}
