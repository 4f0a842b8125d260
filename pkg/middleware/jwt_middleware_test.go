package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"hairsim/pkg/utils"
)

var testSecret = []byte("test-secret")

func newAuthRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceIDMiddleware())
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"account_id": c.GetString("account_id"),
			"role":       c.GetString("Role"),
			"trace_id":   c.GetString("trace_id"),
		})
	})
	r.GET("/whoami", handlers...)
	return r
}

func get(r *gin.Engine, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := newAuthRouter(JWTAuthMiddleware(testSecret))

	token, err := utils.CreateToken(testSecret, "acc-1", "clinician", time.Hour)
	require.NoError(t, err)
	rec := get(r, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"account_id":"acc-1"`)
	require.Contains(t, rec.Body.String(), `"role":"clinician"`)

	rec = get(r, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(r, map[string]string{"Authorization": token})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := utils.CreateToken([]byte("other-secret"), "acc-1", "clinician", time.Hour)
	require.NoError(t, err)
	rec = get(r, map[string]string{"Authorization": "Bearer " + other})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := utils.CreateToken(testSecret, "acc-1", "clinician", -time.Minute)
	require.NoError(t, err)
	rec = get(r, map[string]string{"Authorization": "Bearer " + expired})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateToken_RequiresAccount(t *testing.T) {
	token, err := utils.CreateToken(testSecret, "", "admin", time.Hour)
	require.NoError(t, err)
	_, err = utils.ValidateToken(testSecret, token)
	require.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestRoleMiddleware(t *testing.T) {
	r := newAuthRouter(JWTAuthMiddleware(testSecret), RoleMiddleware("admin"))

	admin, err := utils.CreateToken(testSecret, "ops", "admin", time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get(r, map[string]string{"Authorization": "Bearer " + admin}).Code)

	clinician, err := utils.CreateToken(testSecret, "acc-1", "clinician", time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, get(r, map[string]string{"Authorization": "Bearer " + clinician}).Code)
}

func TestTraceIDMiddleware(t *testing.T) {
	r := newAuthRouter()

	incoming := uuid.NewString()
	rec := get(r, map[string]string{"X-Trace-ID": incoming})
	require.Equal(t, incoming, rec.Header().Get("X-Trace-ID"))
	require.Contains(t, rec.Body.String(), incoming)

	rec = get(r, map[string]string{"X-Trace-ID": "not-a-uuid"})
	generated := rec.Header().Get("X-Trace-ID")
	require.NotEqual(t, "not-a-uuid", generated)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
}
