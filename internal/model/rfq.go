package model

import "time"

// RFQStatus is the lifecycle state of an RFQ.
type RFQStatus string

const (
	RFQDraft     RFQStatus = "draft"
	RFQPublished RFQStatus = "published"
	RFQClosed    RFQStatus = "closed"
	RFQAwarded   RFQStatus = "awarded"
)

// RFQ is a submitted request for quotation.
type RFQ struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	CreatedBy   string     `json:"created_by"`
	ProductType string     `json:"product_type"`
	RFQNumber   string     `json:"rfq_number"`
	Status      RFQStatus  `json:"status"`
	Data        AnswerMap  `json:"data"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	IsFree      bool       `json:"is_free"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RecipientType distinguishes broker from insurer recipients.
type RecipientType string

const (
	RecipientBroker  RecipientType = "broker"
	RecipientInsurer RecipientType = "insurer"
)

// DistributionStatus tracks a recipient's progress on an invitation.
type DistributionStatus string

const (
	DistributionPending  DistributionStatus = "pending"
	DistributionViewed   DistributionStatus = "viewed"
	DistributionQuoted   DistributionStatus = "quoted"
	DistributionDeclined DistributionStatus = "declined"
)

// Distribution is one invitation of an RFQ sent to one recipient.
type Distribution struct {
	ID               string             `json:"id"`
	RFQID            string             `json:"rfq_id"`
	RecipientEmail   string             `json:"recipient_email"`
	RecipientName    string             `json:"recipient_name,omitempty"`
	RecipientType    RecipientType      `json:"recipient_type"`
	RecipientCompany string             `json:"recipient_company,omitempty"`
	UniqueLink       string             `json:"unique_link"`
	ViewedAt         *time.Time         `json:"viewed_at,omitempty"`
	Status           DistributionStatus `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
}

// QuoteStatus is the state of a recipient's quote.
type QuoteStatus string

const (
	QuoteDraft     QuoteStatus = "draft"
	QuoteSubmitted QuoteStatus = "submitted"
	QuoteRevised   QuoteStatus = "revised"
	QuoteAccepted  QuoteStatus = "accepted"
	QuoteRejected  QuoteStatus = "rejected"
)

// Quote is a recipient's priced response to an RFQ.
type Quote struct {
	ID              string      `json:"id"`
	RFQID           string      `json:"rfq_id"`
	DistributionID  string      `json:"distribution_id"`
	SubmittedBy     string      `json:"submitted_by,omitempty"`
	InsurerName     string      `json:"insurer_name"`
	PremiumAmount   float64     `json:"premium_amount"`
	CoverageDetails string      `json:"coverage_details,omitempty"`
	DocumentURL     string      `json:"document_url,omitempty"`
	Status          QuoteStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
}

// SenderType identifies who wrote a communication.
type SenderType string

const (
	SenderClient SenderType = "client"
	SenderBidder SenderType = "bidder"
)

// Communication is a message exchanged on an RFQ.
type Communication struct {
	ID          string     `json:"id"`
	RFQID       string     `json:"rfq_id"`
	SenderType  SenderType `json:"sender_type"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id,omitempty"`
	Message     string     `json:"message"`
	IsBroadcast bool       `json:"is_broadcast"`
	Attachments []string   `json:"attachments,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PendingPayment holds an RFQ draft until the payment gateway confirms the charge.
type PendingPayment struct {
	OrderID   string    `json:"order_id"`
	Amount    int64     `json:"amount"`
	Draft     RFQ       `json:"draft"`
	CreatedAt time.Time `json:"created_at"`
}
