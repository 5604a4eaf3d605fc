package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"guestreport_client/internal/common"
	"guestreport_client/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockTokenService struct {
	mock.Mock
}

func (m *mockTokenService) GenerateAccessToken(u shared.UserDataForToken) (string, time.Time, error) {
	args := m.Called(u)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *mockTokenService) ValidateToken(token string) (*shared.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Claims), args.Error(1)
}

func newTestRouter(tokens shared.TokenService, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ZapLogger(zap.NewNop(), gin.TestMode), ErrorHandler(zap.NewNop()))
	chain := append([]gin.HandlerFunc{AuthMiddleware(tokens, zap.NewNop())}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userId": common.GetUserIDFromContext(c),
			"email":  c.GetString(common.UserEmailKey),
		})
	})
	r.GET("/protected", chain...)
	return r
}

func get(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set(common.AuthorizationHeader, authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := new(mockTokenService)
	tokens.On("ValidateToken", "good").Return(&shared.Claims{Email: "a@example.com", NameID: "12", RoleID: common.RoleUser}, nil)
	tokens.On("ValidateToken", "bad").Return(nil, errors.New("signature is invalid"))
	tokens.On("ValidateToken", "odd-id").Return(&shared.Claims{NameID: "abc"}, nil)
	r := newTestRouter(tokens)

	tests := []struct {
		name        string
		header      string
		wantCode    int
		wantMessage string
		wantDetails string
		wantBody    string
	}{
		{name: "missing header", wantCode: http.StatusUnauthorized, wantDetails: "Authorization header is required."},
		{name: "wrong scheme", header: "Basic abc", wantCode: http.StatusUnauthorized, wantDetails: "Authorization header format must be 'Bearer <token>'."},
		{name: "invalid token", header: "Bearer bad", wantCode: http.StatusUnauthorized, wantMessage: "Session expired or invalid."},
		{name: "non numeric nameid", header: "Bearer odd-id", wantCode: http.StatusUnauthorized, wantMessage: "Session expired or invalid."},
		{name: "valid token", header: "Bearer good", wantCode: http.StatusOK, wantBody: `"userId":12`},
		{name: "scheme is case insensitive", header: "bearer good", wantCode: http.StatusOK, wantBody: `"email":"a@example.com"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.header)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
			if tt.wantCode == http.StatusOK {
				assert.Contains(t, w.Body.String(), tt.wantBody)
				return
			}

			var apiErr common.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
			assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, apiErr.Message)
			}
			if tt.wantDetails != "" {
				assert.Equal(t, tt.wantDetails, apiErr.Details)
			}
		})
	}
}

func TestRoleAuthMiddleware(t *testing.T) {
	tokens := new(mockTokenService)
	tokens.On("ValidateToken", "admin").Return(&shared.Claims{NameID: "1", RoleID: common.RoleAdmin}, nil)
	tokens.On("ValidateToken", "user").Return(&shared.Claims{NameID: "2", RoleID: common.RoleUser}, nil)
	r := newTestRouter(tokens, RoleAuthMiddleware(common.RoleAdmin))

	assert.Equal(t, http.StatusOK, get(r, "Bearer admin").Code)

	w := get(r, "Bearer user")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}

func TestGetUserClaimsFromContext(t *testing.T) {
	tokens := new(mockTokenService)
	want := &shared.Claims{NameID: "5", Email: "c@example.com"}
	tokens.On("ValidateToken", "t").Return(want, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	var got *shared.Claims
	r.GET("/claims", AuthMiddleware(tokens, zap.NewNop()), func(c *gin.Context) {
		got = GetUserClaimsFromContext(c)
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/claims", nil)
	req.Header.Set(common.AuthorizationHeader, "Bearer t")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, want, got)
}

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop()))
	r.GET("/api-error", func(c *gin.Context) { _ = c.Error(common.ErrConflict.WithMessage("taken")) })
	r.GET("/plain-error", func(c *gin.Context) { _ = c.Error(errors.New("boom")) })
	r.GET("/written", func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"message": "custom"}) })

	serve := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := serve("/api-error")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"taken"`)

	w = serve("/plain-error")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")

	w = serve("/written")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"custom"}`, w.Body.String())

	w = serve("/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestZapLogger_KeepsIncomingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ZapLogger(zap.NewNop(), gin.ReleaseMode))
	var scoped interface{}
	r.GET("/", func(c *gin.Context) {
		scoped, _ = c.Get(LoggerContextKey)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.IsType(t, &zap.Logger{}, scoped)
}
