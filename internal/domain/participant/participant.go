package participant

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

const (
	UsersCollection = "users"

	RoleStudent = "student"
	RoleAdmin   = "admin"
)

var (
	ErrEmailNotAllowed = errors.New("email domain is not allowed")
	ErrMissingIdentity = errors.New("user id and email are required")
)

// User is the profile kept for every account that signed in.
type User struct {
	ID          string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLogin   time.Time `json:"lastLogin"`
}

// Identity is what the identity provider vouches for.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	PhotoURL    string
}

// NewUser builds the profile created on first sign in.
func NewUser(id Identity, role string) *User {
	now := time.Now().UTC()
	return &User{
		ID:          id.UserID,
		Email:       strings.ToLower(id.Email),
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		Role:        role,
		IsActive:    true,
		CreatedAt:   now,
		LastLogin:   now,
	}
}

// IsAdmin reports whether the profile carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Ref addresses the profile document of a user.
func Ref(userID string) document.Ref {
	return document.Doc(UsersCollection, userID)
}

// Policy decides who may sign in and who administers the awards.
type Policy struct {
	allowedDomains []string
	adminEmails    []string
}

// NewPolicy normalizes domains ("karunya.edu" or "@karunya.edu") and admin emails.
func NewPolicy(allowedDomains, adminEmails []string) *Policy {
	p := &Policy{}
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if !strings.HasPrefix(d, "@") {
			d = "@" + d
		}
		p.allowedDomains = append(p.allowedDomains, d)
	}
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			p.adminEmails = append(p.adminEmails, e)
		}
	}
	return p
}

// IsAllowedEmail reports whether email belongs to one of the university domains.
func (p *Policy) IsAllowedEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, d := range p.allowedDomains {
		if strings.HasSuffix(email, d) && len(email) > len(d) {
			return true
		}
	}
	return false
}

// IsAdminEmail reports whether email is on the admin list.
func (p *Policy) IsAdminEmail(email string) bool {
	return slices.Contains(p.adminEmails, strings.ToLower(strings.TrimSpace(email)))
}

// RoleFor returns the role granted to email.
func (p *Policy) RoleFor(email string) string {
	if p.IsAdminEmail(email) {
		return RoleAdmin
	}
	return RoleStudent
}
