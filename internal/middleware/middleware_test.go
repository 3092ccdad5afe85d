package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-absensi-api/internal/models"
	"github.com/noah-isme/sma-absensi-api/internal/service"
	appErrors "github.com/noah-isme/sma-absensi-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	got    string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.got = token
	return v.claims, v.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/sessions/:slotId", handlers...)
	return router
}

func perform(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/sessions/10", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	validator := &validatorStub{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleTeacher, TeacherID: 7}}
	router := newRouter(JWT(validator), RBAC(string(models.RoleTeacher)))

	assert.Equal(t, http.StatusUnauthorized, perform(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(router, "Basic abc").Code)

	w := perform(router, "Bearer token-1")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "token-1", validator.got)
}

func TestJWTMiddlewareRejectsInvalidToken(t *testing.T) {
	validator := &validatorStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")}
	router := newRouter(JWT(validator))

	assert.Equal(t, http.StatusUnauthorized, perform(router, "Bearer nope").Code)
}

func TestOptionalJWT(t *testing.T) {
	validator := &validatorStub{err: errors.New("bad")}
	var seen *models.JWTClaims
	router := newRouter(OptionalJWT(validator), func(c *gin.Context) { seen = Claims(c) })

	assert.Equal(t, http.StatusNoContent, perform(router, "Bearer nope").Code)
	assert.Nil(t, seen)
}

func TestRBACForbidsOtherRoles(t *testing.T) {
	validator := &validatorStub{claims: &models.JWTClaims{Role: models.RoleTeacher, TeacherID: 7}}
	router := newRouter(JWT(validator), RequireRoles(models.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, perform(router, "Bearer t").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(newRouter(RBAC(string(models.RoleAdmin))), "").Code)
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	metrics := service.NewMetricsService()
	router := newRouter(Metrics(metrics))

	perform(router, "")
	perform(router, "")

	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestResponseMeta(t *testing.T) {
	var meta map[string]interface{}
	router := newRouter(WithResponseMeta(), func(c *gin.Context) {
		SetMeta(c, "date", "2025-01-06")
		meta = ResponseMeta(c)
	})

	perform(router, "")
	require.NotNil(t, meta)
	assert.Equal(t, "2025-01-06", meta["date"])
	assert.Contains(t, meta, processingTimeMS)
}
