// Package dto contains Data Transfer Objects for API request and response structures
package dto

// RegisterRequest represents the registration form data
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Username        string `json:"username" validate:"required,min=3,max=50,username_format"`
	Password        string `json:"password" validate:"required,min=8,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`

	// Optional seller profile, printed on invoices
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,max=255"`
	CompanyName *string `json:"company_name,omitempty" validate:"omitempty,max=255"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// RegisterResponse represents the response after successful registration
type RegisterResponse struct {
	Message      string      `json:"message"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
	User         AuthUserDTO `json:"user"`
}

// LoginRequest represents the login form data. Identifier accepts either
// the username or the email address.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Password   string `json:"password" validate:"required"`
}

// LoginResponse represents the response after successful authentication
type LoginResponse struct {
	Message      string      `json:"message"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
	User         AuthUserDTO `json:"user"`
}

// AuthUserDTO represents user data for authentication responses
type AuthUserDTO struct {
	ID          uint    `json:"id"`
	UUID        string  `json:"uuid"`
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	FullName    *string `json:"full_name,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	PaymentLink *string `json:"payment_link,omitempty"`
	IsActive    *bool   `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

// UserSessionDTO represents the issued session tokens
type UserSessionDTO struct {
	SessionToken string  `json:"session_token"`
	RefreshToken *string `json:"refresh_token,omitempty"`
	ExpiresIn    int     `json:"expires_in"`
	TokenType    string  `json:"token_type"`
	CreatedAt    string  `json:"created_at"`
}
