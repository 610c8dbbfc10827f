// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/fatoora-io/fatoora/app/dto"
	"github.com/fatoora-io/fatoora/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToAuthUserDTO converts a user model to AuthUserDTO for authentication responses
func ToAuthUserDTO(user models.User) dto.AuthUserDTO {
	return dto.AuthUserDTO{
		ID:          user.ID,
		UUID:        user.UUID.String(),
		Email:       user.Email,
		Username:    user.Username,
		FullName:    user.FullName,
		CompanyName: user.CompanyName,
		Phone:       user.Phone,
		Address:     user.Address,
		PaymentLink: user.PaymentLink,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}

func ToUserSessionDTO(session models.UserSession) dto.UserSessionDTO {
	return dto.UserSessionDTO{
		SessionToken: session.SessionToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int(time.Until(session.ExpiresAt).Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
	}
}

// ToInvoiceDTO converts an invoice model to its API representation.
// Items decoding failures degrade to an empty list rather than failing
// the whole response; the stored JSON is written by us and trusted.
func ToInvoiceDTO(invoice models.Invoice) dto.InvoiceDTO {
	items, _ := invoice.LineItems()
	itemDTOs := make([]dto.LineItemDTO, 0, len(items))
	for _, it := range items {
		itemDTOs = append(itemDTOs, dto.LineItemDTO{
			Name:        it.Name,
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitPrice:   it.UnitPrice.String(),
			Total:       it.Total.String(),
		})
	}

	d := dto.InvoiceDTO{
		ID:             invoice.ID,
		UUID:           invoice.UUID.String(),
		InvoiceNumber:  invoice.InvoiceNumber,
		ClientName:     invoice.ClientName,
		ClientEmail:    invoice.ClientEmail,
		ClientPhone:    invoice.ClientPhone,
		ClientAddress:  invoice.ClientAddress,
		Language:       invoice.Language,
		Currency:       invoice.Currency,
		Items:          itemDTOs,
		Subtotal:       invoice.Subtotal.StringFixed(2),
		TaxRate:        invoice.TaxRate.String(),
		TaxAmount:      invoice.TaxAmount.StringFixed(2),
		DiscountRate:   invoice.DiscountRate.String(),
		DiscountAmount: invoice.DiscountAmount.StringFixed(2),
		Total:          invoice.Total.StringFixed(2),
		IssueDate:      invoice.IssueDate.Format(time.RFC3339),
		PDFPath:        invoice.PDFPath,
		QRCodePath:     invoice.QRCodePath,
		PaymentLink:    invoice.PaymentLink,
		Status:         invoice.Status,
		IsSentEmail:    invoice.IsSentEmail,
		Notes:          invoice.Notes,
		CreatedAt:      invoice.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      invoice.UpdatedAt.Format(time.RFC3339),
	}
	if invoice.DueDate != nil {
		due := invoice.DueDate.Format(time.RFC3339)
		d.DueDate = &due
	}
	if invoice.EmailSentAt != nil {
		sent := invoice.EmailSentAt.Format(time.RFC3339)
		d.EmailSentAt = &sent
	}
	return d
}
