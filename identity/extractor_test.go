package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRoles(t *testing.T) {
	t.Parallel()
	const clientID = "console-client"
	tests := []struct {
		name   string
		claims Claims
		want   []string
	}{
		{
			name: "realm-roles",
			claims: Claims{
				"realm_access": map[string]interface{}{
					"roles": []interface{}{"admin", "student"},
				},
			},
			want: []string{"admin", "student"},
		},
		{
			name: "flat-roles",
			claims: Claims{
				"roles": []interface{}{"teacher"},
			},
			want: []string{"teacher"},
		},
		{
			name: "client-roles",
			claims: Claims{
				"resource_access": map[string]interface{}{
					clientID: map[string]interface{}{
						"roles": []interface{}{"staff"},
					},
				},
			},
			want: []string{"staff"},
		},
		{
			name: "realm-wins-over-flat",
			claims: Claims{
				"realm_access": map[string]interface{}{
					"roles": []interface{}{"admin"},
				},
				"roles": []interface{}{"teacher"},
			},
			want: []string{"admin"},
		},
		{
			name: "flat-wins-over-client",
			claims: Claims{
				"roles": []interface{}{"teacher"},
				"resource_access": map[string]interface{}{
					clientID: map[string]interface{}{
						"roles": []interface{}{"staff"},
					},
				},
			},
			want: []string{"teacher"},
		},
		{
			name: "other-client-ignored",
			claims: Claims{
				"resource_access": map[string]interface{}{
					"other-client": map[string]interface{}{
						"roles": []interface{}{"staff"},
					},
				},
			},
			want: nil,
		},
		{
			name: "empty-realm-list-falls-through",
			claims: Claims{
				"realm_access": map[string]interface{}{
					"roles": []interface{}{},
				},
				"roles": []interface{}{"teacher"},
			},
			want: []string{"teacher"},
		},
		{
			name:   "no-role-container",
			claims: Claims{"sub": "oidc|student-emily"},
			want:   nil,
		},
		{
			name:   "nil-claims",
			claims: nil,
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRoles(tt.claims, DefaultExtractors(clientID)...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRole(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		candidates []string
		want       Role
	}{
		{"single-known", []string{"teacher"}, RoleTeacher},
		{"highest-privilege-wins", []string{"student", "admin"}, RoleAdmin},
		{"super-admin-outranks-admin", []string{"admin", "super_admin"}, RoleSuperAdmin},
		{"case-normalized", []string{"ADMIN"}, RoleAdmin},
		{"unknown-ignored", []string{"offline_access", "uma_authorization", "staff"}, RoleStaff},
		{"all-unknown-defaults", []string{"offline_access"}, DefaultRole},
		{"empty-defaults", nil, DefaultRole},
		{"committee-roles", []string{"sports_committee_member", "student_council_member"}, RoleStudentCouncilMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ResolveRole(tt.candidates))
		})
	}
}

func TestRole_IsKnown(t *testing.T) {
	assert := assert.New(t)
	assert.True(RoleSuperAdmin.IsKnown())
	assert.True(RoleStudent.IsKnown())
	assert.False(Role("owner").IsKnown())
	assert.False(Role("").IsKnown())
}
