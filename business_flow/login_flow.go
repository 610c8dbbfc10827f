// Package businessflow contains the core business logic and use cases for invoicing workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"
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

// LoginFlow handles the authentication business logic
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.UserSessionRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	db           *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		db:           db,
	}
}

// Login authenticates by username or email and issues a fresh session
func (l *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	user, err := l.findUser(ctx, req.Identifier)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if user == nil {
		_ = l.createAuditLog(ctx, nil, models.AuditActionLoginFailed, fmt.Sprintf("Unknown identifier: %s", req.Identifier), false, nil, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrUserNotFound)
	}

	if !utils.IsTrue(user.IsActive) {
		_ = l.createAuditLog(ctx, user, models.AuditActionLoginFailed, "Inactive account", false, nil, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrAccountInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		errMsg := "Incorrect password"
		_ = l.createAuditLog(ctx, user, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrIncorrectPassword)
	}

	var tokens struct {
		access  string
		refresh string
	}

	err = repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		var err error
		tokens.access, tokens.refresh, err = l.tokenService.GenerateTokens(user.ID)
		if err != nil {
			return err
		}

		if err := l.createSession(txCtx, user.ID, tokens.access, tokens.refresh, metadata); err != nil {
			return err
		}

		return l.userRepo.UpdateLastLogin(txCtx, user.ID, utils.UTCNow())
	})

	if err != nil {
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		_ = l.createAuditLog(ctx, user, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	msg := fmt.Sprintf("Login successful: %d", user.ID)
	_ = l.createAuditLog(ctx, user, models.AuditActionLoginSuccessful, msg, true, nil, metadata)

	return &dto.LoginResponse{
		Message:      "Login successful",
		Token:        tokens.access,
		RefreshToken: tokens.refresh,
		User:         ToAuthUserDTO(*user),
	}, nil
}

// findUser resolves the identifier as email when it contains '@',
// otherwise as username.
func (l *LoginFlowImpl) findUser(ctx context.Context, identifier string) (*models.User, error) {
	if strings.Contains(identifier, "@") {
		return l.userRepo.ByEmail(ctx, identifier)
	}
	return l.userRepo.ByUsername(ctx, identifier)
}

func (l *LoginFlowImpl) createSession(ctx context.Context, userID uint, accessToken, refreshToken string, metadata *ClientMetadata) error {
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

	return l.sessionRepo.Save(ctx, session)
}

func (l *LoginFlowImpl) createAuditLog(ctx context.Context, user *models.User, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return l.auditRepo.Save(ctx, audit)
}
