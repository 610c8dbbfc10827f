// Package businessflow contains the core business logic and use cases for invoicing workflows
package businessflow

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fatoora-io/fatoora/app/dto"
	"github.com/fatoora-io/fatoora/app/services"
	"github.com/fatoora-io/fatoora/models"
	"github.com/fatoora-io/fatoora/repository"
	"github.com/fatoora-io/fatoora/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignupFlow handles the complete registration business logic
type SignupFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error)
}

// SignupFlowImpl implements the registration business flow
type SignupFlowImpl struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.UserSessionRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	baseURL      string
	db           *gorm.DB
}

// NewSignupFlow creates a new signup flow instance
func NewSignupFlow(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	baseURL string,
	db *gorm.DB,
) SignupFlow {
	return &SignupFlowImpl{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		baseURL:      baseURL,
		db:           db,
	}
}

// Register creates the account, assigns its payment link and issues tokens
func (s *SignupFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error) {
	// Validate business rules
	if err := s.validateRegisterRequest(ctx, req); err != nil {
		return nil, NewBusinessError("REGISTRATION_VALIDATION_FAILED", "Registration validation failed", err)
	}

	var user *models.User
	var tokens struct {
		access  string
		refresh string
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		// Create user
		var err error
		user, err = s.createUser(txCtx, req)
		if err != nil {
			return err
		}

		// The payment link needs the assigned ID, so it is set after insert
		link := models.BuildPaymentLink(s.baseURL, user.Username, user.ID)
		user.PaymentLink = &link
		if err := s.userRepo.Update(txCtx, user); err != nil {
			return err
		}

		// Generate tokens
		tokens.access, tokens.refresh, err = s.tokenService.GenerateTokens(user.ID)
		if err != nil {
			return err
		}

		// Create session
		return s.createSession(txCtx, user.ID, tokens.access, tokens.refresh, metadata)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Registration failed: %s", err.Error())
		_ = s.createAuditLog(ctx, user, models.AuditActionSignupCompleted, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	}

	msg := fmt.Sprintf("Registration completed successfully: %d", user.ID)
	_ = s.createAuditLog(ctx, user, models.AuditActionSignupCompleted, msg, true, nil, metadata)

	return &dto.RegisterResponse{
		Message:      "Registration completed successfully",
		Token:        tokens.access,
		RefreshToken: tokens.refresh,
		User:         ToAuthUserDTO(*user),
	}, nil
}

// Private helper methods

func (s *SignupFlowImpl) validateRegisterRequest(ctx context.Context, req *dto.RegisterRequest) error {
	// Check if email already exists
	existingUser, err := s.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if existingUser != nil {
		return ErrEmailAlreadyExists
	}

	// Check if username already exists
	existingUser, err = s.userRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	if existingUser != nil {
		return ErrUsernameAlreadyExists
	}

	return nil
}

func (s *SignupFlowImpl) createUser(ctx context.Context, req *dto.RegisterRequest) (*models.User, error) {
	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		UUID:         uuid.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		FullName:     req.FullName,
		CompanyName:  req.CompanyName,
		Phone:        req.Phone,
		Address:      req.Address,
		IsActive:     utils.ToPtr(true),
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *SignupFlowImpl) createSession(ctx context.Context, userID uint, accessToken, refreshToken string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	session := &models.UserSession{
		CorrelationID: uuid.New(),
		UserID:        userID,
		SessionToken:  accessToken,
		RefreshToken:  &refreshToken,
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
		IsActive:      utils.ToPtr(true),
		ExpiresAt:     time.Now().Add(utils.SessionTimeout),
	}

	return s.sessionRepo.Save(ctx, session)
}

func (s *SignupFlowImpl) createAuditLog(ctx context.Context, user *models.User, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var userID *uint
	if user != nil {
		userID = &user.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return s.auditRepo.Save(ctx, audit)
}
