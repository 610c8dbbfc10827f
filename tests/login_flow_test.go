// Package tests contains integration tests for the login flow
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
)

func newLoginFlow(t *testing.T, testDB *testingutil.TestDB) businessflow.LoginFlow {
	t.Helper()

	userRepo := repository.NewUserRepository(testDB.DB)
	sessionRepo := repository.NewUserSessionRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	tokenService, err := services.NewTokenService(1*time.Hour, 24*time.Hour, "test-issuer", "test-audience", false, "", "", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	return businessflow.NewLoginFlow(userRepo, sessionRepo, auditRepo, tokenService, testDB.DB)
}

func TestLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		loginFlow := newLoginFlow(t, testDB)

		userRepo := repository.NewUserRepository(testDB.DB)
		sessionRepo := repository.NewUserSessionRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")

		// Fixture users carry the password TestPass123
		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)

		t.Run("LoginByEmail", func(t *testing.T) {
			result, err := loginFlow.Login(ctx, &dto.LoginRequest{
				Identifier: user.Email,
				Password:   "TestPass123",
			}, metadata)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.NotEmpty(t, result.Token)
			assert.NotEmpty(t, result.RefreshToken)
			assert.Equal(t, user.ID, result.User.ID)

			// Last login timestamp is stamped
			refreshed, err := userRepo.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.NotNil(t, refreshed.LastLoginAt)

			// A new session exists
			sessions, err := sessionRepo.ByFilter(ctx, models.UserSessionFilter{
				UserID:   &user.ID,
				IsActive: utils.ToPtr(true),
			}, "", 0, 0)
			require.NoError(t, err)
			assert.NotEmpty(t, sessions)
		})

		t.Run("LoginByUsername", func(t *testing.T) {
			result, err := loginFlow.Login(ctx, &dto.LoginRequest{
				Identifier: user.Username,
				Password:   "TestPass123",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, user.ID, result.User.ID)
		})

		t.Run("WrongPassword", func(t *testing.T) {
			_, err := loginFlow.Login(ctx, &dto.LoginRequest{
				Identifier: user.Email,
				Password:   "WrongPass999",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsIncorrectPassword(err))

			// Failure is audited
			audits, err := auditRepo.ListByAction(ctx, models.AuditActionLoginFailed, 0, 0)
			require.NoError(t, err)
			assert.NotEmpty(t, audits)
		})

		t.Run("UnknownIdentifier", func(t *testing.T) {
			_, err := loginFlow.Login(ctx, &dto.LoginRequest{
				Identifier: "ghost@example.com",
				Password:   "TestPass123",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		t.Run("InactiveAccount", func(t *testing.T) {
			inactive, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			inactive.IsActive = utils.ToPtr(false)
			require.NoError(t, userRepo.Update(ctx, inactive))

			_, err = loginFlow.Login(ctx, &dto.LoginRequest{
				Identifier: inactive.Email,
				Password:   "TestPass123",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountInactive(err))
		})

		t.Run("SuccessfulLoginIsAudited", func(t *testing.T) {
			_, err := loginFlow.Login(ctx, &dto.LoginRequest{
				Identifier: user.Email,
				Password:   "TestPass123",
			}, metadata)
			require.NoError(t, err)

			audits, err := auditRepo.ListByAction(ctx, models.AuditActionLoginSuccessful, 0, 0)
			require.NoError(t, err)
			assert.NotEmpty(t, audits)
			assert.False(t, audits[0].IsFailed())
		})

		return nil
	})
	require.NoError(t, err)
}
