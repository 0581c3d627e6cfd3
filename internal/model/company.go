package model

import "time"

// Company is a client organization that raises RFQs.
type Company struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Industry    string    `json:"industry,omitempty"`
	CompanySize string    `json:"company_size,omitempty"`
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	Pincode     string    `json:"pincode,omitempty"`
	GSTNumber   string    `json:"gst_number,omitempty"`
	PANNumber   string    `json:"pan_number,omitempty"`
	Website     string    `json:"website,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserRole is a user's permission level within a company.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleUser   UserRole = "user"
	RoleViewer UserRole = "viewer"
)

// User is a member of a company.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Phone       string     `json:"phone,omitempty"`
	Role        UserRole   `json:"role"`
	CompanyID   string     `json:"company_id,omitempty"`
	Designation string     `json:"designation,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// InsurerType classifies an insurer's line of business.
type InsurerType string

const (
	InsurerGeneral InsurerType = "general"
	InsurerHealth  InsurerType = "health"
	InsurerLife    InsurerType = "life"
)

// Insurer is a network insurer that can receive RFQs.
type Insurer struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         InsurerType `json:"type"`
	ContactEmail string      `json:"contact_email"`
	ContactPhone string      `json:"contact_phone,omitempty"`
	IsActive     bool        `json:"is_active"`
}

// Broker is a network broker that can receive RFQs.
type Broker struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LicenseNumber string `json:"license_number,omitempty"`
	ContactEmail  string `json:"contact_email"`
	ContactPhone  string `json:"contact_phone,omitempty"`
	IsPartner     bool   `json:"is_partner"`
	IsActive      bool   `json:"is_active"`
}

// SignupPayload is what a new user entered before confirming their email.
type SignupPayload struct {
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name"`
	Phone       string `json:"phone,omitempty"`
}

// Session is an authenticated identity. A session created straight after
// signup has no UserID yet and carries the signup details until onboarding
// creates the account.
type Session struct {
	UserID    string         `json:"user_id,omitempty"`
	CompanyID string         `json:"company_id,omitempty"`
	Email     string         `json:"email"`
	Signup    *SignupPayload `json:"signup,omitempty"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Onboarded reports whether the session belongs to an existing user.
func (s *Session) Onboarded() bool {
	return s != nil && s.UserID != ""
}
