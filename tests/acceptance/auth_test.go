package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/prperemyshlev/spamdetect-backend/internal/dto"
)

func (s *Suite) send(method, path string, body any, header map[string]string) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, s.BaseURL+path, &buf)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *Suite) decode(resp *http.Response, v any) {
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
}

func (s *Suite) verificationToken(email string) string {
	var token *string
	err := s.Postgres.DB.QueryRow(
		"SELECT verification_token FROM users WHERE email = $1", email,
	).Scan(&token)
	s.Require().NoError(err)
	s.Require().NotNil(token)
	return *token
}

func (s *Suite) registerVerified(email, password string) {
	resp := s.send(http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{Email: email, Password: password}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.send(http.MethodGet, "/api/v1/auth/verify?token="+s.verificationToken(email), nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) login(email, password string) dto.AuthResponse {
	resp := s.send(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: email, Password: password}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var auth dto.AuthResponse
	s.decode(resp, &auth)
	return auth
}

func (s *Suite) TestRegister_RequiresVerification() {
	resp := s.send(http.MethodPost, "/api/v1/auth/register",
		dto.RegisterRequest{Email: "test@example.com", Password: "Password123"}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var msg dto.SuccessResponse
	s.decode(resp, &msg)
	s.Contains(msg.Message, "verify")

	resp = s.send(http.MethodPost, "/api/v1/auth/login",
		dto.LoginRequest{Email: "test@example.com", Password: "Password123"}, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	body := dto.RegisterRequest{Email: "duplicate@example.com", Password: "Password123"}

	resp := s.send(http.MethodPost, "/api/v1/auth/register", body, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.send(http.MethodPost, "/api/v1/auth/register", body, nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.decode(resp, &errResp)
	s.Equal("Email is already in use", errResp.Message)
}

func (s *Suite) TestRegister_InvalidEmail() {
	resp := s.send(http.MethodPost, "/api/v1/auth/register",
		dto.RegisterRequest{Email: "invalid-email", Password: "Password123"}, nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestVerify_TokenIsSingleUse() {
	resp := s.send(http.MethodPost, "/api/v1/auth/register",
		dto.RegisterRequest{Email: "once@example.com", Password: "Password123"}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	token := s.verificationToken("once@example.com")

	resp = s.send(http.MethodGet, "/api/v1/auth/verify?token="+token, nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.send(http.MethodGet, "/api/v1/auth/verify?token="+token, nil, nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_Success() {
	s.registerVerified("login@example.com", "Password123")

	resp := s.send(http.MethodPost, "/api/v1/auth/login",
		dto.LoginRequest{Email: "login@example.com", Password: "Password123"}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var auth dto.AuthResponse
	s.decode(resp, &auth)
	s.NotEmpty(auth.AccessToken)
	s.NotEmpty(auth.RefreshToken)
	s.Equal("Bearer", auth.TokenType)
	s.Equal(900, auth.ExpiresIn)
	s.Equal("login@example.com", auth.User.Email)
	s.Equal("USER", auth.User.Role)
	s.NotEmpty(resp.Cookies(), "Should have refresh token cookie")
}

func (s *Suite) TestLogin_WrongPassword() {
	s.registerVerified("wrong@example.com", "Password123")

	resp := s.send(http.MethodPost, "/api/v1/auth/login",
		dto.LoginRequest{Email: "wrong@example.com", Password: "nope"}, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestRefresh_RotatesToken() {
	s.registerVerified("refresh@example.com", "Password123")
	first := s.login("refresh@example.com", "Password123")

	resp := s.send(http.MethodPost, "/api/v1/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: first.RefreshToken}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var second dto.AuthResponse
	s.decode(resp, &second)
	s.NotEqual(first.RefreshToken, second.RefreshToken)

	var stored string
	err := s.Postgres.DB.QueryRow("SELECT refresh_token FROM users WHERE email = $1", "refresh@example.com").Scan(&stored)
	s.Require().NoError(err)
	s.Equal(second.RefreshToken, stored)

	resp = s.send(http.MethodPost, "/api/v1/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: first.RefreshToken}, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestMeAndLogout() {
	s.registerVerified("me@example.com", "Password123")
	auth := s.login("me@example.com", "Password123")
	header := map[string]string{"Authorization": "Bearer " + auth.AccessToken}

	resp := s.send(http.MethodGet, "/api/v1/auth/me", nil, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.send(http.MethodGet, "/api/v1/auth/me", nil, header)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var me dto.UserResponse
	s.decode(resp, &me)
	s.Equal("me@example.com", me.Email)
	s.True(me.IsVerified)

	resp = s.send(http.MethodPost, "/api/v1/auth/logout", nil, header)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.send(http.MethodPost, "/api/v1/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: auth.RefreshToken}, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestAdmin_PromoteUser() {
	resp := s.send(http.MethodPost, "/api/v1/admin/register-admin",
		dto.RegisterRequest{Email: "root@example.com", Password: "Password123"},
		map[string]string{"X-Admin-Secret": adminSecret})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	s.registerVerified("user@example.com", "Password123")
	user := s.login("user@example.com", "Password123")
	admin := s.login("root@example.com", "Password123")

	path := "/api/v1/admin/users/" + user.User.ID + "/role"

	resp = s.send(http.MethodPut, path, dto.UpdateRoleRequest{Role: "ADMIN"},
		map[string]string{"Authorization": "Bearer " + user.AccessToken})
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp = s.send(http.MethodPut, path, dto.UpdateRoleRequest{Role: "ADMIN"},
		map[string]string{"Authorization": "Bearer " + admin.AccessToken})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var updated dto.UserResponse
	s.decode(resp, &updated)
	s.Equal("ADMIN", updated.Role)
}

func (s *Suite) TestRateLimit_Login() {
	body := dto.LoginRequest{Email: "nobody@example.com", Password: "Password123"}

	for range 10 {
		resp := s.send(http.MethodPost, "/api/v1/auth/login", body, nil)
		s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
	}

	resp := s.send(http.MethodPost, "/api/v1/auth/login", body, nil)
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("Retry-After"))
}
