package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
	"github.com/prperemyshlev/spamdetect-backend/internal/dto"
	"github.com/stretchr/testify/suite"
)

type AuthServiceSuite struct {
	suite.Suite
	f   *fixture
	ctx context.Context
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.f = newFixture()
	s.ctx = context.Background()
}

// registerVerified registers email and completes verification
func (s *AuthServiceSuite) registerVerified(email, password string) {
	s.Require().NoError(s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: email, Password: password}))
	sent, ok := s.f.mailer.last()
	s.Require().True(ok)
	s.Require().NoError(s.f.auth.VerifyEmail(s.ctx, sent.token))
}

func (s *AuthServiceSuite) login(email, password string) (*AuthResult, error) {
	return s.f.auth.Login(s.ctx, &dto.LoginRequest{Email: email, Password: password})
}

func (s *AuthServiceSuite) TestRegisterCreatesUnverifiedAccountAndSendsToken() {
	err := s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: " a@x.com ", Password: "pw1"})
	s.Require().NoError(err)

	sent, ok := s.f.mailer.last()
	s.Require().True(ok)
	s.Equal("a@x.com", sent.to)
	s.NotEmpty(sent.token)

	user, err := s.f.repo.GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.False(user.IsVerified)
	s.Equal(domain.RoleUser, user.Role)
	s.Require().NotNil(user.VerificationToken)
	s.Equal(sent.token, *user.VerificationToken)
	s.NotEqual("pw1", user.PasswordHash)
	s.Nil(user.AuthProvider)
}

func (s *AuthServiceSuite) TestRegisterDuplicateEmail() {
	s.Require().NoError(s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "pw1"}))

	err := s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "other"})
	s.ErrorIs(err, ErrDuplicateEmail)
	s.Equal(1, s.f.repo.Count())
}

func (s *AuthServiceSuite) TestRegisterEmailsAreCaseSensitive() {
	s.Require().NoError(s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "pw1"}))
	s.Require().NoError(s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: "A@x.com", Password: "pw1"}))
	s.Equal(2, s.f.repo.Count())
}

func (s *AuthServiceSuite) TestRegisterValidation() {
	tests := []struct {
		name  string
		req   dto.RegisterRequest
		field string
	}{
		{name: "malformed email", req: dto.RegisterRequest{Email: "not-an-email", Password: "pw1"}, field: "email"},
		{name: "blank password", req: dto.RegisterRequest{Email: "a@x.com", Password: "   "}, field: "password"},
		{name: "password too long", req: dto.RegisterRequest{Email: "a@x.com", Password: string(make([]byte, 73))}, field: "password"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			err := s.f.auth.Register(s.ctx, &tt.req)
			var vErr *ValidationError
			s.Require().True(errors.As(err, &vErr))
			s.Equal(tt.field, vErr.Field)
		})
	}
	s.Equal(0, s.f.repo.Count())
}

func (s *AuthServiceSuite) TestRegisterReportsDeliveryFailureButKeepsAccount() {
	s.f.mailer.fail(errors.New("smtp unavailable"))

	err := s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "pw1"})
	s.ErrorIs(err, ErrEmailDeliveryFailed)

	user, err := s.f.repo.GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.False(user.IsVerified)

	s.f.mailer.fail(nil)
	sent, err := s.f.auth.ResendVerification(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.True(sent)

	last, ok := s.f.mailer.last()
	s.Require().True(ok)
	s.Require().NoError(s.f.auth.VerifyEmail(s.ctx, last.token))
}

func (s *AuthServiceSuite) TestVerifyEmailIsSingleUse() {
	s.Require().NoError(s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "pw1"}))
	sent, _ := s.f.mailer.last()

	s.Require().NoError(s.f.auth.VerifyEmail(s.ctx, sent.token))

	user, err := s.f.repo.GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.True(user.IsVerified)
	s.Nil(user.VerificationToken)

	s.ErrorIs(s.f.auth.VerifyEmail(s.ctx, sent.token), ErrInvalidToken)
}

func (s *AuthServiceSuite) TestVerifyEmailUnknownToken() {
	s.ErrorIs(s.f.auth.VerifyEmail(s.ctx, "does-not-exist"), ErrInvalidToken)
	s.ErrorIs(s.f.auth.VerifyEmail(s.ctx, ""), ErrInvalidToken)
}

func (s *AuthServiceSuite) TestRegisterVerifyLoginScenario() {
	s.Require().NoError(s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "pw1"}))

	_, err := s.login("a@x.com", "pw1")
	s.ErrorIs(err, ErrEmailNotVerified)

	sent, ok := s.f.mailer.last()
	s.Require().True(ok)
	s.Require().NoError(s.f.auth.VerifyEmail(s.ctx, sent.token))

	result, err := s.login("a@x.com", "pw1")
	s.Require().NoError(err)
	s.NotEmpty(result.Tokens.AccessToken)
	s.NotEmpty(result.Tokens.RefreshToken)
	s.Equal("Bearer", result.Tokens.TokenType)
	s.Equal(int(testAccessExpiry.Seconds()), result.Tokens.ExpiresIn)
	s.Equal(int(testRefreshExpiry.Seconds()), result.RefreshExpiresIn)

	subject, err := s.f.jwt.ExtractSubject(result.Tokens.AccessToken)
	s.Require().NoError(err)
	s.Equal("a@x.com", subject)

	claims, err := s.f.jwt.ValidateAccessToken(result.Tokens.AccessToken)
	s.Require().NoError(err)
	s.Equal("USER", claims.Role)
	s.Equal([]string{"USER"}, claims.Roles)

	stored, err := s.f.repo.GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.Require().NotNil(stored.RefreshToken)
	s.Equal(result.Tokens.RefreshToken, *stored.RefreshToken)
}

func (s *AuthServiceSuite) TestLoginUnverifiedIsReportedBeforePasswordCheck() {
	s.Require().NoError(s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "pw1"}))

	_, err := s.login("a@x.com", "wrong")
	s.ErrorIs(err, ErrEmailNotVerified)
}

func (s *AuthServiceSuite) TestLoginDoesNotDistinguishUnknownEmailFromWrongPassword() {
	s.registerVerified("a@x.com", "pw1")

	_, wrongPassword := s.login("a@x.com", "wrong")
	_, unknownEmail := s.login("nobody@x.com", "pw1")

	s.ErrorIs(wrongPassword, ErrInvalidCredentials)
	s.ErrorIs(unknownEmail, ErrInvalidCredentials)
	s.Equal(wrongPassword.Error(), unknownEmail.Error())
}

func (s *AuthServiceSuite) TestLoginRejectsFederatedOnlyAccount() {
	user := &domain.User{
		Email:        "g@x.com",
		PasswordHash: domain.UnusablePassword("random"),
		Role:         domain.RoleUser,
		IsVerified:   true,
	}
	user.LinkProvider(domain.ProviderGoogle, "google-1")
	s.Require().NoError(s.f.repo.Create(s.ctx, user))

	for _, password := range []string{"random", "!random", "pw1"} {
		_, err := s.login("g@x.com", password)
		s.ErrorIs(err, ErrInvalidCredentials, password)
	}
}

func (s *AuthServiceSuite) TestLoginOverwritesPreviousRefreshToken() {
	s.registerVerified("a@x.com", "pw1")

	first, err := s.login("a@x.com", "pw1")
	s.Require().NoError(err)
	second, err := s.login("a@x.com", "pw1")
	s.Require().NoError(err)
	s.NotEqual(first.Tokens.RefreshToken, second.Tokens.RefreshToken)

	_, err = s.f.auth.RefreshTokens(s.ctx, first.Tokens.RefreshToken)
	s.ErrorIs(err, ErrInvalidToken)

	_, err = s.f.auth.RefreshTokens(s.ctx, second.Tokens.RefreshToken)
	s.NoError(err)
}

func (s *AuthServiceSuite) TestRefreshRotatesTokens() {
	s.registerVerified("a@x.com", "pw1")

	login, err := s.login("a@x.com", "pw1")
	s.Require().NoError(err)
	rt1 := login.Tokens.RefreshToken

	refreshed, err := s.f.auth.RefreshTokens(s.ctx, rt1)
	s.Require().NoError(err)
	rt2 := refreshed.Tokens.RefreshToken
	s.NotEqual(rt1, rt2)
	s.NotEqual(login.Tokens.AccessToken, refreshed.Tokens.AccessToken)

	_, err = s.f.auth.RefreshTokens(s.ctx, rt1)
	s.ErrorIs(err, ErrInvalidToken)

	_, err = s.f.auth.RefreshTokens(s.ctx, rt2)
	s.NoError(err)
}

func (s *AuthServiceSuite) TestRefreshRejectsInvalidTokens() {
	s.registerVerified("a@x.com", "pw1")
	login, err := s.login("a@x.com", "pw1")
	s.Require().NoError(err)

	ghost, err := s.f.jwt.GenerateRefreshToken(&domain.User{Email: "ghost@x.com", Role: domain.RoleUser})
	s.Require().NoError(err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "access token", token: login.Tokens.AccessToken},
		{name: "unknown subject", token: ghost},
		{name: "tampered", token: login.Tokens.RefreshToken + "x"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.f.auth.RefreshTokens(s.ctx, tt.token)
			s.ErrorIs(err, ErrInvalidToken)
		})
	}
}

func (s *AuthServiceSuite) TestRefreshRejectsExpiredToken() {
	s.registerVerified("a@x.com", "pw1")
	login, err := s.login("a@x.com", "pw1")
	s.Require().NoError(err)

	s.f.clock.Advance(testRefreshExpiry)

	_, err = s.f.auth.RefreshTokens(s.ctx, login.Tokens.RefreshToken)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *AuthServiceSuite) TestResendVerification() {
	sent, err := s.f.auth.ResendVerification(s.ctx, "nobody@x.com")
	s.Require().NoError(err)
	s.False(sent)

	s.Require().NoError(s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "pw1"}))
	original, _ := s.f.mailer.last()

	sent, err = s.f.auth.ResendVerification(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.True(sent)

	fresh, _ := s.f.mailer.last()
	s.NotEqual(original.token, fresh.token)
	s.ErrorIs(s.f.auth.VerifyEmail(s.ctx, original.token), ErrInvalidToken)
	s.Require().NoError(s.f.auth.VerifyEmail(s.ctx, fresh.token))

	sent, err = s.f.auth.ResendVerification(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.False(sent)
}

func (s *AuthServiceSuite) TestResendVerificationDeliveryFailure() {
	s.Require().NoError(s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "pw1"}))
	s.f.mailer.fail(errors.New("smtp unavailable"))

	sent, err := s.f.auth.ResendVerification(s.ctx, "a@x.com")
	s.False(sent)
	s.ErrorIs(err, ErrEmailDeliveryFailed)
}

func (s *AuthServiceSuite) TestLogoutRevokesRefreshToken() {
	s.registerVerified("a@x.com", "pw1")
	login, err := s.login("a@x.com", "pw1")
	s.Require().NoError(err)

	s.Require().NoError(s.f.auth.Logout(s.ctx, login.User.ID))

	_, err = s.f.auth.RefreshTokens(s.ctx, login.Tokens.RefreshToken)
	s.ErrorIs(err, ErrInvalidToken)

	s.ErrorIs(s.f.auth.Logout(s.ctx, "missing"), ErrUserNotFound)
}

func (s *AuthServiceSuite) TestAuthenticate() {
	s.registerVerified("a@x.com", "pw1")
	login, err := s.login("a@x.com", "pw1")
	s.Require().NoError(err)

	identity, err := s.f.auth.Authenticate(s.ctx, login.Tokens.AccessToken)
	s.Require().NoError(err)
	s.Equal("a@x.com", identity.User.Email)
	s.Equal([]string{"ROLE_USER"}, identity.Authorities)
	s.True(identity.HasRole(domain.RoleUser))
	s.False(identity.HasRole(domain.RoleAdmin))

	_, err = s.f.auth.Authenticate(s.ctx, login.Tokens.RefreshToken)
	s.ErrorIs(err, ErrInvalidToken)

	s.Require().NoError(s.f.repo.UpdateRole(s.ctx, login.User.ID, domain.RoleAdmin))
	identity, err = s.f.auth.Authenticate(s.ctx, login.Tokens.AccessToken)
	s.Require().NoError(err)
	s.True(identity.HasRole(domain.RoleAdmin))

	s.f.clock.Advance(testAccessExpiry)
	_, err = s.f.auth.Authenticate(s.ctx, login.Tokens.AccessToken)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *AuthServiceSuite) TestAuthenticateRejectsUnverifiedLocalAccount() {
	s.Require().NoError(s.f.auth.Register(s.ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "pw1"}))
	user, err := s.f.repo.GetByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)

	token, err := s.f.jwt.GenerateAccessToken(user)
	s.Require().NoError(err)

	_, err = s.f.auth.Authenticate(s.ctx, token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *AuthServiceSuite) TestOriginalAccessTokenExpiresAfterRefresh() {
	s.registerVerified("a@x.com", "pw1")
	login, err := s.login("a@x.com", "pw1")
	s.Require().NoError(err)

	s.f.clock.Advance(time.Minute)
	refreshed, err := s.f.auth.RefreshTokens(s.ctx, login.Tokens.RefreshToken)
	s.Require().NoError(err)

	s.f.clock.Advance(testAccessExpiry - time.Minute)

	_, err = s.f.auth.Authenticate(s.ctx, login.Tokens.AccessToken)
	s.ErrorIs(err, ErrInvalidToken)

	_, err = s.f.auth.Authenticate(s.ctx, refreshed.Tokens.AccessToken)
	s.NoError(err)
}
