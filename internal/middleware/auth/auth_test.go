package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/campus-awards-api/internal/domain/participant"
)

const secret = "test-secret"

func newRouter(m *Middleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", m.RequireAuth())
	api.GET("/me", func(c *gin.Context) {
		id, ok := Identity(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"uid": id.UserID, "admin": IsAdmin(c)})
	})
	api.GET("/admin", m.RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func do(t *testing.T, r http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	m := New(secret, "awards", participant.NewPolicy([]string{"karunya.edu"}, []string{"dean@karunya.edu"}))
	r := newRouter(m)

	student, err := SignToken(secret, "awards", participant.Identity{UserID: "u1", Email: "stu@karunya.edu"}, time.Hour)
	require.NoError(t, err)
	dean, err := SignToken(secret, "awards", participant.Identity{UserID: "d1", Email: "Dean@Karunya.edu"}, time.Hour)
	require.NoError(t, err)
	foreign, err := SignToken(secret, "awards", participant.Identity{UserID: "x", Email: "x@gmail.com"}, time.Hour)
	require.NoError(t, err)
	expired, err := SignToken(secret, "awards", participant.Identity{UserID: "u1", Email: "stu@karunya.edu"}, -time.Minute)
	require.NoError(t, err)
	wrongIssuer, err := SignToken(secret, "other", participant.Identity{UserID: "u1", Email: "stu@karunya.edu"}, time.Hour)
	require.NoError(t, err)
	wrongKey, err := SignToken("other-secret", "awards", participant.Identity{UserID: "u1", Email: "stu@karunya.edu"}, time.Hour)
	require.NoError(t, err)

	w := do(t, r, "/api/me", student)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"u1","admin":false}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(t, r, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, "/api/me", "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, "/api/me", expired).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, "/api/me", wrongIssuer).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, "/api/me", wrongKey).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, "/api/me", foreign).Code)

	assert.Equal(t, http.StatusForbidden, do(t, r, "/api/admin", student).Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, "/api/admin", dean).Code)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	m := New(secret, "", participant.NewPolicy([]string{"karunya.edu"}, nil))

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		Email: "stu@karunya.edu",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRequiresSubjectAndEmail(t *testing.T) {
	m := New(secret, "", participant.NewPolicy([]string{"karunya.edu"}, nil))

	raw, err := SignToken(secret, "", participant.Identity{Email: "stu@karunya.edu"}, time.Hour)
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, participant.ErrMissingIdentity)

	raw, err = SignToken(secret, "", participant.Identity{UserID: "u1", Email: "stu@karunya.edu", DisplayName: "Stu"}, time.Hour)
	require.NoError(t, err)
	id, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Stu", id.DisplayName)
}

func TestParseRejectsSubjectsThatAreNotDocumentIDs(t *testing.T) {
	m := New(secret, "", participant.NewPolicy([]string{"karunya.edu"}, nil))
	r := newRouter(m)

	for _, subject := range []string{"u1/votes/x", "u1.progress"} {
		raw, err := SignToken(secret, "", participant.Identity{UserID: subject, Email: "stu@karunya.edu"}, time.Hour)
		require.NoError(t, err)

		_, err = m.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, subject)
		assert.Equal(t, http.StatusUnauthorized, do(t, r, "/api/me", raw).Code, subject)
	}
}
