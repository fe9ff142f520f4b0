package identity

// Role is an application role. Every AuthUser carries exactly one Role
// and it is always a member of the known set below; provider-supplied
// role strings never leak through unvalidated.
type Role string

const (
	RoleSuperAdmin              Role = "super_admin"
	RoleAdmin                   Role = "admin"
	RoleStaff                   Role = "staff"
	RoleTeacher                 Role = "teacher"
	RoleStudent                 Role = "student"
	RoleStudentCouncilPresident Role = "student_council_president"
	RoleStudentCouncilMember    Role = "student_council_member"
	RoleSportsCommitteeMember   Role = "sports_committee_member"
)

// DefaultRole is assigned when no claim yields a recognized role.
const DefaultRole = RoleStudent

// rolesByPrivilege orders the known roles by descending privilege.
// When claims carry several recognized roles the earliest entry here
// wins.
var rolesByPrivilege = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleStaff,
	RoleTeacher,
	RoleStudent,
	RoleStudentCouncilPresident,
	RoleStudentCouncilMember,
	RoleSportsCommitteeMember,
}

// IsKnown reports whether r is a member of the known role set.
func (r Role) IsKnown() bool {
	for _, known := range rolesByPrivilege {
		if r == known {
			return true
		}
	}
	return false
}
