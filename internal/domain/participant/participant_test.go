package participant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyAllowedEmail(t *testing.T) {
	p := NewPolicy([]string{"karunya.edu", "@karunya.edu.in", " "}, nil)

	assert.True(t, p.IsAllowedEmail("student@karunya.edu"))
	assert.True(t, p.IsAllowedEmail("Student@Karunya.EDU.in"))
	assert.False(t, p.IsAllowedEmail("student@gmail.com"))
	assert.False(t, p.IsAllowedEmail("student@notkarunya.edu.org"))
	assert.False(t, p.IsAllowedEmail("@karunya.edu"))
}

func TestPolicyAdmins(t *testing.T) {
	p := NewPolicy([]string{"karunya.edu.in"}, []string{"Head@karunya.edu.in"})

	assert.True(t, p.IsAdminEmail("head@KARUNYA.edu.in"))
	assert.False(t, p.IsAdminEmail("someone@karunya.edu.in"))
	assert.Equal(t, RoleAdmin, p.RoleFor("head@karunya.edu.in"))
	assert.Equal(t, RoleStudent, p.RoleFor("someone@karunya.edu.in"))
}

func TestNewUser(t *testing.T) {
	u := NewUser(Identity{UserID: "u1", Email: "A@karunya.edu", DisplayName: "A"}, RoleStudent)
	assert.Equal(t, "a@karunya.edu", u.Email)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsAdmin())
	assert.Equal(t, "users/u1", Ref("u1").Path())
}
