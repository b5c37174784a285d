package domain

type Role string

const (
	RoleViewer  Role = "VIEWER"
	RoleStaff   Role = "STAFF"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleViewer:  1,
	RoleStaff:   2,
	RoleManager: 3,
	RoleAdmin:   4,
}

// AtLeast reports whether r grants everything min grants. Unknown roles grant nothing.
func (r Role) AtLeast(min Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[min]
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Actor is the authenticated user performing a transition.
type Actor struct {
	UserID int32  `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
}
