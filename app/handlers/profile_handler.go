// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/fatoora-io/fatoora/app/dto"
	"github.com/fatoora-io/fatoora/app/middleware"
	businessflow "github.com/fatoora-io/fatoora/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ProfileHandlerInterface defines the contract for profile handlers
type ProfileHandlerInterface interface {
	GetProfile(c fiber.Ctx) error
	UpdateProfile(c fiber.Ctx) error
	GetStats(c fiber.Ctx) error
}

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profileFlow businessflow.ProfileFlow
	validator   *validator.Validate
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileFlow businessflow.ProfileFlow) *ProfileHandler {
	return &ProfileHandler{
		profileFlow: profileFlow,
		validator:   newValidator(),
	}
}

func (h *ProfileHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ProfileHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetProfile returns the authenticated user's profile
func (h *ProfileHandler) GetProfile(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.profileFlow.GetProfile(createRequestContext(c, "/api/v1/users/me"), userID)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}

		log.Println("Get profile failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch profile", "PROFILE_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile retrieved successfully", result)
}

// UpdateProfile applies a partial update to the authenticated user's profile
func (h *ProfileHandler) UpdateProfile(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.UpdateProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.profileFlow.UpdateProfile(createRequestContext(c, "/api/v1/users/me"), userID, &req, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email already exists", "EMAIL_EXISTS", nil)
		}

		log.Println("Update profile failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update profile", "PROFILE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetStats returns invoice counts and revenue aggregates for the account
func (h *ProfileHandler) GetStats(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.profileFlow.GetStats(createRequestContext(c, "/api/v1/users/me/stats"), userID)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}

		log.Println("Get stats failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch statistics", "STATS_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Statistics retrieved successfully", result)
}
