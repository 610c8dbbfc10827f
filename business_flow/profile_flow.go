package businessflow

import (
	"context"
	"fmt"

	"github.com/fatoora-io/fatoora/app/dto"
	"github.com/fatoora-io/fatoora/models"
	"github.com/fatoora-io/fatoora/repository"
	"github.com/shopspring/decimal"
)

type ProfileFlow interface {
	GetProfile(ctx context.Context, userID uint) (*dto.GetProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UpdateProfileResponse, error)
	GetStats(ctx context.Context, userID uint) (*dto.UserStatsResponse, error)
}

type ProfileFlowImpl struct {
	userRepo    repository.UserRepository
	invoiceRepo repository.InvoiceRepository
	auditRepo   repository.AuditLogRepository
}

func NewProfileFlow(
	userRepo repository.UserRepository,
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditLogRepository,
) ProfileFlow {
	return &ProfileFlowImpl{
		userRepo:    userRepo,
		invoiceRepo: invoiceRepo,
		auditRepo:   auditRepo,
	}
}

func (f *ProfileFlowImpl) GetProfile(ctx context.Context, userID uint) (*dto.GetProfileResponse, error) {
	user, err := f.fetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.GetProfileResponse{User: ToAuthUserDTO(*user)}, nil
}

// UpdateProfile applies the non-nil fields of the request. An email change
// is checked for uniqueness first.
func (f *ProfileFlowImpl) UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UpdateProfileResponse, error) {
	user, err := f.fetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		existing, err := f.userRepo.ByEmail(ctx, *req.Email)
		if err != nil {
			return nil, NewBusinessError("USER_FETCH_FAILED", "Failed to fetch user", err)
		}
		if existing != nil {
			return nil, NewBusinessError("EMAIL_TAKEN", "Email already exists", ErrEmailAlreadyExists)
		}
		user.Email = *req.Email
	}
	if req.FullName != nil {
		user.FullName = req.FullName
	}
	if req.CompanyName != nil {
		user.CompanyName = req.CompanyName
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Address != nil {
		user.Address = req.Address
	}

	if err := f.userRepo.Update(ctx, user); err != nil {
		return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Failed to update profile", err)
	}

	desc := fmt.Sprintf("Profile updated: %d", user.ID)
	_ = f.auditProfileUpdate(ctx, user.ID, desc, metadata)

	return &dto.UpdateProfileResponse{
		Message: "Profile updated successfully",
		User:    ToAuthUserDTO(*user),
	}, nil
}

// GetStats aggregates the account's invoices per status. Paid revenue is
// the sum of paid totals; pending revenue the sum of sent totals.
func (f *ProfileFlowImpl) GetStats(ctx context.Context, userID uint) (*dto.UserStatsResponse, error) {
	user, err := f.fetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts, err := f.invoiceRepo.StatusCountsByUser(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("STATS_FAILED", "Failed to compute account statistics", err)
	}

	resp := &dto.UserStatsResponse{
		ByStatus:       make(map[string]dto.StatusStatDTO, len(counts)),
		PaidRevenue:    decimal.Zero.StringFixed(2),
		PendingRevenue: decimal.Zero.StringFixed(2),
		PaymentLink:    user.PaymentLink,
	}

	for _, row := range counts {
		resp.TotalInvoices += row.Count
		resp.ByStatus[row.Status] = dto.StatusStatDTO{
			Count: row.Count,
			Total: row.Total.StringFixed(2),
		}
		switch row.Status {
		case models.InvoiceStatusPaid:
			resp.PaidRevenue = row.Total.StringFixed(2)
		case models.InvoiceStatusSent:
			resp.PendingRevenue = row.Total.StringFixed(2)
		}
	}

	return resp, nil
}

func (f *ProfileFlowImpl) fetchUser(ctx context.Context, userID uint) (*models.User, error) {
	if userID == 0 {
		return nil, NewBusinessError("USER_ID_REQUIRED", "user_id must be greater than 0", ErrUserNotFound)
	}

	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_FETCH_FAILED", "Failed to fetch user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}
	return user, nil
}

func (f *ProfileFlowImpl) auditProfileUpdate(ctx context.Context, userID uint, description string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	success := true
	audit := &models.AuditLog{
		UserID:      &userID,
		Action:      models.AuditActionProfileUpdated,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	return f.auditRepo.Save(ctx, audit)
}
