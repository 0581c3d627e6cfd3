package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sanctuari/rfq-cli/internal/model"
)

// Callers may leave IDs and creation times blank; the store assigns them.

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func ensureTime(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

func prepareRFQ(r *model.RFQ) ([]byte, error) {
	ensureID(&r.ID)
	ensureTime(&r.CreatedAt)
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	if r.Status == "" {
		r.Status = model.RFQDraft
	}
	if r.Data == nil {
		r.Data = model.AnswerMap{}
	}
	data, err := json.Marshal(r.Data)
	return data, eris.Wrap(err, "store: marshal rfq data")
}

func prepareDistribution(d *model.Distribution) {
	ensureID(&d.ID)
	ensureTime(&d.CreatedAt)
	if d.UniqueLink == "" {
		d.UniqueLink = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = model.DistributionPending
	}
}

func prepareQuote(q *model.Quote) {
	ensureID(&q.ID)
	ensureTime(&q.CreatedAt)
	if q.Status == "" {
		q.Status = model.QuoteSubmitted
	}
}

func prepareCommunication(c *model.Communication) ([]byte, error) {
	ensureID(&c.ID)
	ensureTime(&c.CreatedAt)
	if c.Attachments == nil {
		c.Attachments = []string{}
	}
	att, err := json.Marshal(c.Attachments)
	return att, eris.Wrap(err, "store: marshal attachments")
}

func prepareCompany(c *model.Company, admin *model.User) {
	ensureID(&c.ID)
	ensureTime(&c.CreatedAt)
	ensureID(&admin.ID)
	ensureTime(&admin.CreatedAt)
	admin.CompanyID = c.ID
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	if admin.Role == "" {
		admin.Role = model.RoleAdmin
	}
	admin.IsActive = true
}

func prepareInsurers(in []model.Insurer) {
	for i := range in {
		ensureID(&in[i].ID)
		if in[i].Type == "" {
			in[i].Type = model.InsurerGeneral
		}
	}
}

func prepareBrokers(in []model.Broker) {
	for i := range in {
		ensureID(&in[i].ID)
	}
}
