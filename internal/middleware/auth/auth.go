// Package auth verifies the bearer tokens issued by the identity provider.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gravadigital/campus-awards-api/internal/domain/participant"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/response"
	"github.com/gravadigital/campus-awards-api/internal/validation"
)

const (
	identityKey = "identity"
	adminKey    = "is_admin"
)

var (
	ErrMissingToken = errors.New("authorization header is required")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the token fields the API relies on. The subject is the user id.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Middleware authenticates requests and applies the sign in policy.
type Middleware struct {
	secret []byte
	issuer string
	policy *participant.Policy
	log    *log.Logger
}

// New creates the middleware for HS256 tokens signed with secret.
func New(secret, issuer string, policy *participant.Policy) *Middleware {
	return &Middleware{
		secret: []byte(secret),
		issuer: issuer,
		policy: policy,
		log:    logger.WithContext("component", "middleware", "middleware", "auth"),
	}
}

// Parse verifies a raw token and returns the identity it carries.
func (m *Middleware) Parse(raw string) (participant.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return participant.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id := participant.Identity{
		UserID:      claims.Subject,
		Email:       strings.ToLower(strings.TrimSpace(claims.Email)),
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
	}
	if id.UserID == "" || id.Email == "" {
		return participant.Identity{}, participant.ErrMissingIdentity
	}
	// The subject keys documents under users/.
	if err := validation.ValidateDocumentID(id.UserID, "subject"); err != nil {
		return participant.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !m.policy.IsAllowedEmail(id.Email) {
		return participant.Identity{}, participant.ErrEmailNotAllowed
	}
	return id, nil
}

// RequireAuth rejects requests without a valid token from an allowed domain.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if header == "" || !ok || strings.TrimSpace(raw) == "" {
			response.UnauthorizedError(c, ErrMissingToken.Error())
			c.Abort()
			return
		}

		id, err := m.Parse(strings.TrimSpace(raw))
		switch {
		case err == nil:
		case errors.Is(err, participant.ErrEmailNotAllowed):
			m.log.Warn("Rejected token from foreign domain", "path", c.FullPath())
			response.ForbiddenError(c, "Please sign in with your university email")
			c.Abort()
			return
		default:
			m.log.Debug("Rejected token", "path", c.FullPath(), "error", err)
			response.UnauthorizedError(c, ErrInvalidToken.Error())
			c.Abort()
			return
		}

		c.Set(identityKey, id)
		c.Set(adminKey, m.policy.IsAdminEmail(id.Email))
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (m *Middleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			response.ForbiddenError(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Identity returns the authenticated identity of the request.
func Identity(c *gin.Context) (participant.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return participant.Identity{}, false
	}
	id, ok := v.(participant.Identity)
	return id, ok
}

// IsAdmin reports whether the authenticated user administers the awards.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(adminKey)
}

// SignToken issues an HS256 token for id. Used by tests and local tooling.
func SignToken(secret, issuer string, id participant.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:   id.Email,
		Name:    id.DisplayName,
		Picture: id.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
