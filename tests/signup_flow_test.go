package tests

import (
	"context"
	"testing"
	"time"

	"github.com/fatoora-io/fatoora/app/dto"
	"github.com/fatoora-io/fatoora/app/services"
	businessflow "github.com/fatoora-io/fatoora/business_flow"
	"github.com/fatoora-io/fatoora/models"
	"github.com/fatoora-io/fatoora/repository"
	testingutil "github.com/fatoora-io/fatoora/testing"
	"github.com/fatoora-io/fatoora/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newSignupFlow(t *testing.T, testDB *testingutil.TestDB) businessflow.SignupFlow {
	t.Helper()

	userRepo := repository.NewUserRepository(testDB.DB)
	sessionRepo := repository.NewUserSessionRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	tokenService, err := services.NewTokenService(1*time.Hour, 24*time.Hour, "test-issuer", "test-audience", false, "", "", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	return businessflow.NewSignupFlow(userRepo, sessionRepo, auditRepo, tokenService, "https://fatoora.io", testDB.DB)
}

func registerRequest(email, username string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Email:           email,
		Username:        username,
		Password:        "SecurePass123",
		ConfirmPassword: "SecurePass123",
		FullName:        utils.ToPtr("Amina Benali"),
		CompanyName:     utils.ToPtr("Atlas Trading SARL"),
		Phone:           utils.ToPtr("+212612345678"),
	}
}

func TestRegister(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		signupFlow := newSignupFlow(t, testDB)

		userRepo := repository.NewUserRepository(testDB.DB)
		sessionRepo := repository.NewUserSessionRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")

		t.Run("SuccessfulRegistration", func(t *testing.T) {
			req := registerRequest("amina@example.com", "amina")

			result, err := signupFlow.Register(ctx, req, metadata)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.NotEmpty(t, result.Token)
			assert.NotEmpty(t, result.RefreshToken)
			assert.Equal(t, "amina", result.User.Username)
			assert.Equal(t, "amina@example.com", result.User.Email)

			// Payment link derives from username and assigned ID
			require.NotNil(t, result.User.PaymentLink)
			assert.Contains(t, *result.User.PaymentLink, "https://fatoora.io/pay/amina-")

			// Verify the persisted user
			user, err := userRepo.ByEmail(ctx, "amina@example.com")
			require.NoError(t, err)
			require.NotNil(t, user)
			assert.True(t, utils.IsTrue(user.IsActive))
			assert.NotEmpty(t, user.UUID)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("SecurePass123")))

			// A session was opened inside the same transaction
			sessions, err := sessionRepo.ByFilter(ctx, models.UserSessionFilter{UserID: &user.ID}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, sessions, 1)
			assert.True(t, sessions[0].IsValid())

			// Audit trail records the signup
			audits, err := auditRepo.ListByAction(ctx, models.AuditActionSignupCompleted, 0, 0)
			require.NoError(t, err)
			require.NotEmpty(t, audits)
			assert.False(t, audits[0].IsFailed())
		})

		t.Run("DuplicateEmail", func(t *testing.T) {
			req := registerRequest("dup@example.com", "first_user")
			_, err := signupFlow.Register(ctx, req, metadata)
			require.NoError(t, err)

			req = registerRequest("dup@example.com", "second_user")
			_, err = signupFlow.Register(ctx, req, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))
		})

		t.Run("DuplicateUsername", func(t *testing.T) {
			req := registerRequest("unique1@example.com", "taken_name")
			_, err := signupFlow.Register(ctx, req, metadata)
			require.NoError(t, err)

			req = registerRequest("unique2@example.com", "taken_name")
			_, err = signupFlow.Register(ctx, req, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsUsernameAlreadyExists(err))
		})

		t.Run("IssuedTokensAreValid", func(t *testing.T) {
			req := registerRequest("tokens@example.com", "token_user")

			result, err := signupFlow.Register(ctx, req, metadata)
			require.NoError(t, err)

			tokenService, err := services.NewTokenService(1*time.Hour, 24*time.Hour, "test-issuer", "test-audience", false, "", "", "test-secret-key-for-jwt-signing-32-chars")
			require.NoError(t, err)

			claims, err := tokenService.ValidateToken(result.Token)
			require.NoError(t, err)
			assert.Equal(t, result.User.ID, claims.UserID)
			assert.Equal(t, "access", claims.TokenType)
		})

		return nil
	})
	require.NoError(t, err)
}
