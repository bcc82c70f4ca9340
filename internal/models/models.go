package models

import "time"

// Tenant lifecycle statuses.
const (
	TenantActive   = "ACTIVE"
	TenantArchived = "ARCHIVED"
	TenantDeleted  = "DELETED"
)

// Template lifecycle statuses.
const (
	TemplateDraft    = "DRAFT"
	TemplateActive   = "ACTIVE"
	TemplateArchived = "ARCHIVED"
	TemplateDeleted  = "DELETED"
)

// Delivery record statuses.
const (
	DeliverySent   = "SENT"
	DeliveryFailed = "FAILED"
)

// Tag datatypes accepted by template placeholders.
const (
	DatatypeString  = "STRING"
	DatatypeNumber  = "NUMBER"
	DatatypeBoolean = "BOOLEAN"
)

type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"apiKey"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy"`
	UpdatedBy string    `json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Template struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenantId"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy"`
	UpdatedBy string    `json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TemplateTag struct {
	ID         int64     `json:"id"`
	TemplateID int64     `json:"templateId"`
	Name       string    `json:"name"`
	Datatype   string    `json:"datatype"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DeliveryRecord is the persisted outcome of one recipient's dispatch.
type DeliveryRecord struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenantId"`
	TemplateID   int64     `json:"templateId"`
	Recipient    string    `json:"recipient"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	RetryCount   int       `json:"retryCount"`
	CreatedBy    string    `json:"createdBy"`
	UpdatedBy    string    `json:"updatedBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ValidDatatype reports whether dt is one of the supported tag datatypes.
func ValidDatatype(dt string) bool {
	switch dt {
	case DatatypeString, DatatypeNumber, DatatypeBoolean:
		return true
	}
	return false
}
