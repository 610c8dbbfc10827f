// Package dto contains Data Transfer Objects for API request and response structures
package dto

// GetProfileResponse represents the authenticated user's profile
type GetProfileResponse struct {
	User AuthUserDTO `json:"user"`
}

// UpdateProfileRequest represents a partial profile update. Nil fields are
// left untouched.
type UpdateProfileRequest struct {
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,max=255"`
	CompanyName *string `json:"company_name,omitempty" validate:"omitempty,max=255"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// UpdateProfileResponse represents the profile after a successful update
type UpdateProfileResponse struct {
	Message string      `json:"message"`
	User    AuthUserDTO `json:"user"`
}

// StatusStatDTO represents one status bucket in account statistics
type StatusStatDTO struct {
	Count int64  `json:"count"`
	Total string `json:"total"`
}

// UserStatsResponse represents aggregate statistics for one account
type UserStatsResponse struct {
	TotalInvoices  int64                    `json:"total_invoices"`
	ByStatus       map[string]StatusStatDTO `json:"by_status"`
	PaidRevenue    string                   `json:"paid_revenue"`
	PendingRevenue string                   `json:"pending_revenue"`
	PaymentLink    *string                  `json:"payment_link,omitempty"`
}
