package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sanctuari/rfq-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id           TEXT PRIMARY KEY,
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
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	email       TEXT NOT NULL UNIQUE,
	full_name   TEXT NOT NULL,
	phone       TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT 'user',
	company_id  TEXT REFERENCES companies(id),
	designation TEXT NOT NULL DEFAULT '',
	is_active   INTEGER NOT NULL DEFAULT 1,
	last_login  DATETIME,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS rfqs (
	id           TEXT PRIMARY KEY,
	company_id   TEXT NOT NULL,
	created_by   TEXT NOT NULL DEFAULT '',
	product_type TEXT NOT NULL,
	rfq_number   TEXT NOT NULL UNIQUE,
	status       TEXT NOT NULL DEFAULT 'draft',
	data         TEXT NOT NULL,
	deadline     DATETIME,
	is_free      INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_payments (
	order_id   TEXT PRIMARY KEY,
	amount     INTEGER NOT NULL,
	draft      TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS rfq_distributions (
	id                TEXT PRIMARY KEY,
	rfq_id            TEXT NOT NULL REFERENCES rfqs(id),
	recipient_email   TEXT NOT NULL,
	recipient_name    TEXT NOT NULL DEFAULT '',
	recipient_type    TEXT NOT NULL,
	recipient_company TEXT NOT NULL DEFAULT '',
	unique_link       TEXT NOT NULL UNIQUE,
	viewed_at         DATETIME,
	status            TEXT NOT NULL DEFAULT 'pending',
	created_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS quotes (
	id               TEXT PRIMARY KEY,
	rfq_id           TEXT NOT NULL REFERENCES rfqs(id),
	distribution_id  TEXT NOT NULL REFERENCES rfq_distributions(id),
	submitted_by     TEXT NOT NULL DEFAULT '',
	insurer_name     TEXT NOT NULL DEFAULT '',
	premium_amount   REAL NOT NULL,
	coverage_details TEXT NOT NULL DEFAULT '',
	document_url     TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'submitted',
	created_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS communications (
	id           TEXT PRIMARY KEY,
	rfq_id       TEXT NOT NULL REFERENCES rfqs(id),
	sender_type  TEXT NOT NULL,
	sender_id    TEXT NOT NULL,
	recipient_id TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL,
	is_broadcast INTEGER NOT NULL DEFAULT 0,
	attachments  TEXT NOT NULL DEFAULT '[]',
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS insurers (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	type          TEXT NOT NULL DEFAULT 'general',
	contact_email TEXT NOT NULL UNIQUE,
	contact_phone TEXT NOT NULL DEFAULT '',
	is_active     INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS brokers (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	license_number TEXT NOT NULL DEFAULT '',
	contact_email  TEXT NOT NULL UNIQUE,
	contact_phone  TEXT NOT NULL DEFAULT '',
	is_partner     INTEGER NOT NULL DEFAULT 0,
	is_active      INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_users_company ON users(company_id);
CREATE INDEX IF NOT EXISTS idx_rfqs_company ON rfqs(company_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_rfqs_one_free ON rfqs(company_id) WHERE is_free = 1;
CREATE INDEX IF NOT EXISTS idx_distributions_rfq ON rfq_distributions(rfq_id);
CREATE INDEX IF NOT EXISTS idx_quotes_rfq ON quotes(rfq_id);
CREATE INDEX IF NOT EXISTS idx_communications_rfq ON communications(rfq_id);
`

// Migrate creates all tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- companies and users ---

func (s *SQLiteStore) CreateCompanyWithAdmin(ctx context.Context, c *model.Company, admin *model.User) error {
	prepareCompany(c, admin)
	return s.inTx(ctx, "create company", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO companies (id, name, industry, company_size, address, city, state, pincode, gst_number, pan_number, website, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Industry, c.CompanySize, c.Address, c.City, c.State, c.Pincode,
			c.GSTNumber, c.PANNumber, c.Website, c.CreatedAt,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert company")
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email, full_name, phone, role, company_id, designation, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			admin.ID, admin.Email, admin.FullName, admin.Phone, string(admin.Role), admin.CompanyID,
			admin.Designation, admin.IsActive, admin.CreatedAt,
		)
		return sqliteConflict(err, "sqlite: insert admin user")
	})
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var c model.Company
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, industry, company_size, address, city, state, pincode, gst_number, pan_number, website, created_at
		 FROM companies WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Industry, &c.CompanySize, &c.Address, &c.City, &c.State, &c.Pincode,
		&c.GSTNumber, &c.PANNumber, &c.Website, &c.CreatedAt)
	if err != nil {
		return nil, sqliteNotFound(err, "company", id)
	}
	return &c, nil
}

const sqliteUserColumns = `id, email, full_name, phone, role, company_id, designation, is_active, last_login, created_at`

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
	return scanSQLiteUser(row, id)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
	return scanSQLiteUser(row, email)
}

func (s *SQLiteStore) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), userID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record login %s", userID)
	}
	return checkRowsAffected(res, "user", userID)
}

func scanSQLiteUser(row scannable, key string) (*model.User, error) {
	var u model.User
	var companyID sql.NullString
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &u.Role, &companyID, &u.Designation,
		&u.IsActive, &lastLogin, &u.CreatedAt)
	if err != nil {
		return nil, sqliteNotFound(err, "user", key)
	}
	u.CompanyID = companyID.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// --- rfqs ---

func (s *SQLiteStore) CreateRFQ(ctx context.Context, r *model.RFQ) error {
	return insertSQLiteRFQ(ctx, s.db, r)
}

type sqliteExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSQLiteRFQ(ctx context.Context, ex sqliteExecer, r *model.RFQ) error {
	data, err := prepareRFQ(r)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO rfqs (id, company_id, created_by, product_type, rfq_number, status, data, deadline, is_free, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CompanyID, r.CreatedBy, r.ProductType, r.RFQNumber, string(r.Status), string(data),
		nullTime(r.Deadline), r.IsFree, r.CreatedAt, r.UpdatedAt,
	)
	if isSQLiteUnique(err) && r.IsFree && strings.Contains(err.Error(), "rfqs.company_id") {
		return eris.Wrapf(ErrFreeRFQUsed, "sqlite: company %s", r.CompanyID)
	}
	return sqliteConflict(err, "sqlite: insert rfq")
}

const sqliteRFQColumns = `id, company_id, created_by, product_type, rfq_number, status, data, deadline, is_free, created_at, updated_at`

func (s *SQLiteStore) GetRFQ(ctx context.Context, id string) (*model.RFQ, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRFQColumns+` FROM rfqs WHERE id = ?`, id)
	return scanSQLiteRFQ(row, id)
}

func (s *SQLiteStore) ListRFQs(ctx context.Context, companyID string) ([]model.RFQ, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRFQColumns+` FROM rfqs WHERE company_id = ? ORDER BY created_at DESC`, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rfqs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.RFQ
	for rows.Next() {
		r, err := scanSQLiteRFQ(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list rfqs iterate")
}

func (s *SQLiteStore) CountRFQs(ctx context.Context, companyID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rfqs WHERE company_id = ?`, companyID).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count rfqs")
}

func (s *SQLiteStore) UpdateRFQStatus(ctx context.Context, id string, status model.RFQStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rfqs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update rfq status %s", id)
	}
	return checkRowsAffected(res, "rfq", id)
}

func scanSQLiteRFQ(row scannable, key string) (*model.RFQ, error) {
	var r model.RFQ
	var data string
	var deadline sql.NullTime
	err := row.Scan(&r.ID, &r.CompanyID, &r.CreatedBy, &r.ProductType, &r.RFQNumber, &r.Status,
		&data, &deadline, &r.IsFree, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, sqliteNotFound(err, "rfq", key)
	}
	if err := json.Unmarshal([]byte(data), &r.Data); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal rfq data")
	}
	if deadline.Valid {
		t := deadline.Time
		r.Deadline = &t
	}
	return &r, nil
}

// --- pending payments ---

func (s *SQLiteStore) SavePendingPayment(ctx context.Context, p *model.PendingPayment) error {
	ensureTime(&p.CreatedAt)
	draft, err := json.Marshal(p.Draft)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal draft")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_payments (order_id, amount, draft, created_at) VALUES (?, ?, ?, ?)`,
		p.OrderID, p.Amount, string(draft), p.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert pending payment")
}

func (s *SQLiteStore) GetPendingPayment(ctx context.Context, orderID string) (*model.PendingPayment, error) {
	var p model.PendingPayment
	var draft string
	err := s.db.QueryRowContext(ctx,
		`SELECT order_id, amount, draft, created_at FROM pending_payments WHERE order_id = ?`, orderID,
	).Scan(&p.OrderID, &p.Amount, &draft, &p.CreatedAt)
	if err != nil {
		return nil, sqliteNotFound(err, "pending payment", orderID)
	}
	if err := json.Unmarshal([]byte(draft), &p.Draft); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal draft")
	}
	return &p, nil
}

func (s *SQLiteStore) DeletePendingPayment(ctx context.Context, orderID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_payments WHERE order_id = ?`, orderID)
	return eris.Wrapf(err, "sqlite: delete pending payment %s", orderID)
}

func (s *SQLiteStore) CompletePendingPayment(ctx context.Context, orderID string, r *model.RFQ) error {
	return s.inTx(ctx, "complete payment", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM pending_payments WHERE order_id = ?`, orderID)
		if err != nil {
			return eris.Wrap(err, "sqlite: delete pending payment")
		}
		if err := checkRowsAffected(res, "pending payment", orderID); err != nil {
			return err
		}
		return insertSQLiteRFQ(ctx, tx, r)
	})
}

// --- distributions ---

func (s *SQLiteStore) CreateDistribution(ctx context.Context, d *model.Distribution) error {
	prepareDistribution(d)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rfq_distributions (id, rfq_id, recipient_email, recipient_name, recipient_type, recipient_company, unique_link, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RFQID, d.RecipientEmail, d.RecipientName, string(d.RecipientType), d.RecipientCompany,
		d.UniqueLink, string(d.Status), d.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert distribution")
}

const sqliteDistributionColumns = `id, rfq_id, recipient_email, recipient_name, recipient_type, recipient_company, unique_link, viewed_at, status, created_at`

func (s *SQLiteStore) ListDistributions(ctx context.Context, rfqID string) ([]model.Distribution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteDistributionColumns+` FROM rfq_distributions WHERE rfq_id = ? ORDER BY created_at`, rfqID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list distributions")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Distribution
	for rows.Next() {
		d, err := scanSQLiteDistribution(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list distributions iterate")
}

func (s *SQLiteStore) GetDistributionByLink(ctx context.Context, link string) (*model.Distribution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteDistributionColumns+` FROM rfq_distributions WHERE unique_link = ?`, link)
	return scanSQLiteDistribution(row, link)
}

func (s *SQLiteStore) MarkDistributionViewed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rfq_distributions SET viewed_at = ?, status = ? WHERE id = ? AND viewed_at IS NULL`,
		at.UTC(), string(model.DistributionViewed), id,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: mark viewed %s", id)
	}
	n, err := res.RowsAffected()
	return n > 0, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) UpdateDistributionStatus(ctx context.Context, id string, status model.DistributionStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE rfq_distributions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update distribution status %s", id)
	}
	return checkRowsAffected(res, "distribution", id)
}

func scanSQLiteDistribution(row scannable, key string) (*model.Distribution, error) {
	var d model.Distribution
	var viewed sql.NullTime
	err := row.Scan(&d.ID, &d.RFQID, &d.RecipientEmail, &d.RecipientName, &d.RecipientType,
		&d.RecipientCompany, &d.UniqueLink, &viewed, &d.Status, &d.CreatedAt)
	if err != nil {
		return nil, sqliteNotFound(err, "distribution", key)
	}
	if viewed.Valid {
		t := viewed.Time
		d.ViewedAt = &t
	}
	return &d, nil
}

// --- quotes ---

func (s *SQLiteStore) CreateQuote(ctx context.Context, q *model.Quote) error {
	prepareQuote(q)
	return s.inTx(ctx, "create quote", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quotes (id, rfq_id, distribution_id, submitted_by, insurer_name, premium_amount, coverage_details, document_url, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.RFQID, q.DistributionID, q.SubmittedBy, q.InsurerName, q.PremiumAmount,
			q.CoverageDetails, q.DocumentURL, string(q.Status), q.CreatedAt,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert quote")
		}
		res, err := tx.ExecContext(ctx, `UPDATE rfq_distributions SET status = ? WHERE id = ?`,
			string(model.DistributionQuoted), q.DistributionID)
		if err != nil {
			return eris.Wrap(err, "sqlite: mark distribution quoted")
		}
		return checkRowsAffected(res, "distribution", q.DistributionID)
	})
}

func (s *SQLiteStore) ListQuotes(ctx context.Context, rfqID string) ([]model.Quote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rfq_id, distribution_id, submitted_by, insurer_name, premium_amount, coverage_details, document_url, status, created_at
		 FROM quotes WHERE rfq_id = ? ORDER BY created_at`, rfqID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list quotes")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Quote
	for rows.Next() {
		var q model.Quote
		if err := rows.Scan(&q.ID, &q.RFQID, &q.DistributionID, &q.SubmittedBy, &q.InsurerName,
			&q.PremiumAmount, &q.CoverageDetails, &q.DocumentURL, &q.Status, &q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan quote")
		}
		out = append(out, q)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list quotes iterate")
}

// --- communications ---

func (s *SQLiteStore) CreateCommunication(ctx context.Context, c *model.Communication) error {
	att, err := prepareCommunication(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO communications (id, rfq_id, sender_type, sender_id, recipient_id, message, is_broadcast, attachments, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.RFQID, string(c.SenderType), c.SenderID, c.RecipientID, c.Message, c.IsBroadcast,
		string(att), c.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert communication")
}

func (s *SQLiteStore) ListCommunications(ctx context.Context, rfqID string) ([]model.Communication, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rfq_id, sender_type, sender_id, recipient_id, message, is_broadcast, attachments, created_at
		 FROM communications WHERE rfq_id = ? ORDER BY created_at`, rfqID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list communications")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Communication
	for rows.Next() {
		var c model.Communication
		var att string
		if err := rows.Scan(&c.ID, &c.RFQID, &c.SenderType, &c.SenderID, &c.RecipientID, &c.Message,
			&c.IsBroadcast, &att, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan communication")
		}
		if err := json.Unmarshal([]byte(att), &c.Attachments); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal attachments")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list communications iterate")
}

// --- network ---

func (s *SQLiteStore) ListInsurers(ctx context.Context, ids []string) ([]model.Insurer, error) {
	query, args := sqliteNetworkQuery(
		`SELECT id, name, type, contact_email, contact_phone, is_active FROM insurers`, ids)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list insurers")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Insurer
	for rows.Next() {
		var in model.Insurer
		if err := rows.Scan(&in.ID, &in.Name, &in.Type, &in.ContactEmail, &in.ContactPhone, &in.IsActive); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan insurer")
		}
		out = append(out, in)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list insurers iterate")
}

func (s *SQLiteStore) ListBrokers(ctx context.Context, ids []string) ([]model.Broker, error) {
	query, args := sqliteNetworkQuery(
		`SELECT id, name, license_number, contact_email, contact_phone, is_partner, is_active FROM brokers`, ids)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list brokers")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Broker
	for rows.Next() {
		var b model.Broker
		if err := rows.Scan(&b.ID, &b.Name, &b.LicenseNumber, &b.ContactEmail, &b.ContactPhone,
			&b.IsPartner, &b.IsActive); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan broker")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list brokers iterate")
}

func sqliteNetworkQuery(base string, ids []string) (string, []any) {
	query := base + ` WHERE is_active = 1`
	var args []any
	if len(ids) > 0 {
		query += ` AND id IN (?` + strings.Repeat(`, ?`, len(ids)-1) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	return query + ` ORDER BY name`, args
}

func (s *SQLiteStore) ImportInsurers(ctx context.Context, insurers []model.Insurer) (int64, error) {
	prepareInsurers(insurers)
	var n int64
	err := s.inTx(ctx, "import insurers", func(tx *sql.Tx) error {
		for _, in := range insurers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO insurers (id, name, type, contact_email, contact_phone, is_active) VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT (contact_email) DO UPDATE SET name = excluded.name, type = excluded.type,
				 contact_phone = excluded.contact_phone, is_active = excluded.is_active`,
				in.ID, in.Name, string(in.Type), in.ContactEmail, in.ContactPhone, in.IsActive,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert insurer %s", in.Name)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) ImportBrokers(ctx context.Context, brokers []model.Broker) (int64, error) {
	prepareBrokers(brokers)
	var n int64
	err := s.inTx(ctx, "import brokers", func(tx *sql.Tx) error {
		for _, b := range brokers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO brokers (id, name, license_number, contact_email, contact_phone, is_partner, is_active) VALUES (?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (contact_email) DO UPDATE SET name = excluded.name, license_number = excluded.license_number,
				 contact_phone = excluded.contact_phone, is_partner = excluded.is_partner, is_active = excluded.is_active`,
				b.ID, b.Name, b.LicenseNumber, b.ContactEmail, b.ContactPhone, b.IsPartner, b.IsActive,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert broker %s", b.Name)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// helpers

func (s *SQLiteStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: begin %s", op)
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	return eris.Wrapf(tx.Commit(), "sqlite: commit %s", op)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

// isSQLiteUnique reports whether err is a UNIQUE or PRIMARY KEY violation.
func isSQLiteUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}

// sqliteConflict wraps unique violations with ErrConflict and everything
// else with msg.
func sqliteConflict(err error, msg string) error {
	if err == nil {
		return nil
	}
	if isSQLiteUnique(err) {
		return eris.Wrapf(ErrConflict, "%s: %v", msg, err)
	}
	return eris.Wrap(err, msg)
}

func sqliteNotFound(err error, entity, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, key)
	}
	return eris.Wrapf(err, "sqlite: scan %s", entity)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

type scannable interface {
	Scan(dest ...any) error
}
