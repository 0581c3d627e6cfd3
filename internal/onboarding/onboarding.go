// Package onboarding completes a new company's profile after signup and
// creates the company together with its first admin user.
package onboarding

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/store"
)

var (
	// ErrIncomplete is returned when a required onboarding field is missing
	// or not one of the allowed values.
	ErrIncomplete = eris.New("onboarding: incomplete")
	// ErrAlreadyOnboarded is returned for sessions that already belong to a user.
	ErrAlreadyOnboarded = eris.New("onboarding: already onboarded")
	// ErrNoSignup is returned when the session carries no signup details.
	ErrNoSignup = eris.New("onboarding: no signup details in session")
)

// Industries a company can pick in step 1.
var Industries = []string{
	"Manufacturing",
	"IT & Software",
	"Healthcare",
	"Retail & E-commerce",
	"Financial Services",
	"Real Estate",
	"Transportation & Logistics",
	"Hospitality",
	"Education",
	"Construction",
	"Other",
}

// CompanySizes a company can pick in step 1.
var CompanySizes = []string{
	"1-10 employees",
	"11-50 employees",
	"51-200 employees",
	"201-500 employees",
	"500+ employees",
}

// ViewAll is the step 3 choice that opens the full product list.
const ViewAll = "view_all"

// PopularProducts are offered in step 3. Each is a catalog product id.
var PopularProducts = []string{
	"commercial_general_liability",
	"fire_special_perils",
	"cyber_liability",
	"directors_officers",
	"workmen_compensation",
	"professional_indemnity",
	"marine_cargo_open",
	"group_health",
	"product_liability",
	"public_liability_industrial",
	"business_interruption",
}

// Form is everything collected across the three onboarding steps.
type Form struct {
	// Step 1
	Industry    string `json:"industry"`
	CompanySize string `json:"company_size"`

	// Step 2
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	GST     string `json:"gst,omitempty"`
	PAN     string `json:"pan,omitempty"`
	Website string `json:"website,omitempty"`

	// Step 3
	Product string `json:"product,omitempty"`
}

func (f *Form) trim() {
	for _, p := range []*string{
		&f.Industry, &f.CompanySize, &f.Address, &f.City, &f.State,
		&f.Pincode, &f.GST, &f.PAN, &f.Website, &f.Product,
	} {
		*p = strings.TrimSpace(*p)
	}
}

// ValidateStep checks the fields of one step (1, 2 or 3).
func (f Form) ValidateStep(step int) error {
	var missing []string
	switch step {
	case 1:
		if !slices.Contains(Industries, f.Industry) {
			missing = append(missing, "industry")
		}
		if !slices.Contains(CompanySizes, f.CompanySize) {
			missing = append(missing, "company_size")
		}
	case 2:
		for name, v := range map[string]string{
			"address": f.Address, "city": f.City, "state": f.State, "pincode": f.Pincode,
		} {
			if v == "" {
				missing = append(missing, name)
			}
		}
		slices.Sort(missing)
	case 3:
		if f.Product != "" && f.Product != ViewAll && !slices.Contains(PopularProducts, f.Product) {
			missing = append(missing, "product")
		}
	default:
		return eris.Wrapf(ErrIncomplete, "onboarding: no step %d", step)
	}
	if len(missing) > 0 {
		return eris.Wrapf(ErrIncomplete, "onboarding: step %d: %s", step, strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks all three steps.
func (f Form) Validate() error {
	for step := 1; step <= 3; step++ {
		if err := f.ValidateStep(step); err != nil {
			return err
		}
	}
	return nil
}

// Next is where the client goes once onboarding is done.
func (f Form) Next() string {
	switch f.Product {
	case "":
		return "dashboard"
	case ViewAll:
		return "rfq/create"
	default:
		return "rfq/create?product=" + f.Product
	}
}

// Accounts creates the company and its admin atomically.
type Accounts interface {
	CreateCompanyWithAdmin(ctx context.Context, company *model.Company, admin *model.User) error
}

// SessionIssuer signs a session token.
type SessionIssuer interface {
	Session(s *model.Session) (string, error)
}

// Result is returned by Complete.
type Result struct {
	Company *model.Company `json:"company"`
	User    *model.User    `json:"user"`
	Token   string         `json:"token"`
	Next    string         `json:"next"`
}

// Service completes onboarding.
type Service struct {
	accounts Accounts
	sessions SessionIssuer
}

// NewService creates an onboarding service.
func NewService(accounts Accounts, sessions SessionIssuer) *Service {
	return &Service{accounts: accounts, sessions: sessions}
}

// Complete validates the form and creates the company and the admin user
// from the signup details carried by sess. The returned token replaces
// the signup session.
func (s *Service) Complete(ctx context.Context, sess *model.Session, form Form) (*Result, error) {
	if sess == nil {
		return nil, ErrNoSignup
	}
	if sess.Onboarded() {
		return nil, eris.Wrapf(ErrAlreadyOnboarded, "onboarding: user %s", sess.UserID)
	}
	if sess.Signup == nil {
		return nil, ErrNoSignup
	}
	form.trim()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	signup := sess.Signup
	company := &model.Company{
		Name:        signup.CompanyName,
		Industry:    form.Industry,
		CompanySize: form.CompanySize,
		Address:     form.Address,
		City:        form.City,
		State:       form.State,
		Pincode:     form.Pincode,
		GSTNumber:   form.GST,
		PANNumber:   form.PAN,
		Website:     form.Website,
	}
	admin := &model.User{
		Email:    sess.Email,
		FullName: signup.FullName,
		Phone:    signup.Phone,
		Role:     model.RoleAdmin,
	}
	if err := s.accounts.CreateCompanyWithAdmin(ctx, company, admin); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, eris.Wrapf(ErrAlreadyOnboarded, "onboarding: email %s already registered", admin.Email)
		}
		return nil, eris.Wrap(err, "onboarding: create company")
	}

	token, err := s.sessions.Session(&model.Session{
		UserID:    admin.ID,
		CompanyID: company.ID,
		Email:     admin.Email,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("onboarding: company created",
		zap.String("company_id", company.ID),
		zap.String("user_id", admin.ID),
		zap.String("industry", company.Industry),
	)
	return &Result{Company: company, User: admin, Token: token, Next: form.Next()}, nil
}
