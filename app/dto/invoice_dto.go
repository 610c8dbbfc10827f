// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LineItemRequest represents one invoice line in a create request.
// Quantity and unit price are decimal strings to avoid float rounding on
// the wire; plain JSON numbers are also accepted by the decoder.
type LineItemRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Quantity    string `json:"quantity" validate:"required"`
	UnitPrice   string `json:"unit_price" validate:"required"`
}

// GenerateInvoiceRequest represents the invoice creation form data
type GenerateInvoiceRequest struct {
	ClientName    string  `json:"client_name" validate:"required,max=255"`
	ClientEmail   string  `json:"client_email" validate:"required,email,max=255"`
	ClientPhone   *string `json:"client_phone,omitempty" validate:"omitempty,max=20"`
	ClientAddress *string `json:"client_address,omitempty" validate:"omitempty,max=500"`

	Language string `json:"language,omitempty" validate:"omitempty,invoice_language"`
	Currency string `json:"currency,omitempty" validate:"omitempty,invoice_currency"`

	Items []LineItemRequest `json:"items" validate:"required,min=1,dive"`

	TaxRate      string  `json:"tax_rate,omitempty" validate:"omitempty"`
	DiscountRate string  `json:"discount_rate,omitempty" validate:"omitempty"`
	DueDate      *string `json:"due_date,omitempty" validate:"omitempty"`
	Notes        *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// GenerateInvoiceResponse represents the response after invoice creation
type GenerateInvoiceResponse struct {
	Message string     `json:"message"`
	Invoice InvoiceDTO `json:"invoice"`
}

// UpdateInvoiceRequest represents a partial invoice update. Only client
// fields, status, notes and due date are mutable.
type UpdateInvoiceRequest struct {
	ClientName    *string `json:"client_name,omitempty" validate:"omitempty,max=255"`
	ClientEmail   *string `json:"client_email,omitempty" validate:"omitempty,email,max=255"`
	ClientPhone   *string `json:"client_phone,omitempty" validate:"omitempty,max=20"`
	ClientAddress *string `json:"client_address,omitempty" validate:"omitempty,max=500"`
	Status        *string `json:"status,omitempty" validate:"omitempty,invoice_status"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	DueDate       *string `json:"due_date,omitempty" validate:"omitempty"`
}

// UpdateInvoiceResponse represents the invoice after a successful update
type UpdateInvoiceResponse struct {
	Message string     `json:"message"`
	Invoice InvoiceDTO `json:"invoice"`
}

// ListInvoicesRequest represents pagination and filter query parameters
type ListInvoicesRequest struct {
	Page     int     `query:"page" validate:"omitempty,min=1"`
	PageSize int     `query:"page_size" validate:"omitempty,min=1,max=100"`
	Status   *string `query:"status" validate:"omitempty,invoice_status"`
}

// ListInvoicesResponse represents one page of an account's invoices
type ListInvoicesResponse struct {
	Invoices   []InvoiceDTO  `json:"invoices"`
	Pagination PaginationDTO `json:"pagination"`
}

// SendInvoiceEmailRequest represents an email dispatch request. Recipient
// defaults to the invoice's client email when omitted.
type SendInvoiceEmailRequest struct {
	Recipient *string `json:"recipient,omitempty" validate:"omitempty,email,max=255"`
	Message   *string `json:"message,omitempty" validate:"omitempty,max=2000"`
}

// SendInvoiceEmailResponse represents the outcome of an email dispatch
type SendInvoiceEmailResponse struct {
	Message        string `json:"message"`
	Recipient      string `json:"recipient"`
	RemainingSends int    `json:"remaining_sends"`
}

// LineItemDTO represents one invoice line in API responses
type LineItemDTO struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

// InvoiceDTO represents invoice data for API responses. Money fields are
// decimal strings with two fraction digits.
type InvoiceDTO struct {
	ID             uint          `json:"id"`
	UUID           string        `json:"uuid"`
	InvoiceNumber  string        `json:"invoice_number"`
	ClientName     string        `json:"client_name"`
	ClientEmail    string        `json:"client_email"`
	ClientPhone    *string       `json:"client_phone,omitempty"`
	ClientAddress  *string       `json:"client_address,omitempty"`
	Language       string        `json:"language"`
	Currency       string        `json:"currency"`
	Items          []LineItemDTO `json:"items"`
	Subtotal       string        `json:"subtotal"`
	TaxRate        string        `json:"tax_rate"`
	TaxAmount      string        `json:"tax_amount"`
	DiscountRate   string        `json:"discount_rate"`
	DiscountAmount string        `json:"discount_amount"`
	Total          string        `json:"total"`
	IssueDate      string        `json:"issue_date"`
	DueDate        *string       `json:"due_date,omitempty"`
	PDFPath        *string       `json:"pdf_path,omitempty"`
	QRCodePath     *string       `json:"qr_code_path,omitempty"`
	PaymentLink    *string       `json:"payment_link,omitempty"`
	Status         string        `json:"status"`
	IsSentEmail    *bool         `json:"is_sent_email"`
	EmailSentAt    *string       `json:"email_sent_at,omitempty"`
	Notes          *string       `json:"notes,omitempty"`
	CreatedAt      string        `json:"created_at"`
	UpdatedAt      string        `json:"updated_at"`
}
