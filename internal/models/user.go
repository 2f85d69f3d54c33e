package models

// Role represents a platform user role.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher || r == RoleAdmin
}

// User represents a platform user. Students carry a class assignment;
// teachers and admins do not.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	ClassID      *int64 `json:"class_id,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Introduction string `json:"introduction"`
	Avatar       string `json:"avatar"`
	Password     string `json:"-"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	ClassID      *int64 `json:"class_id,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Introduction string `json:"introduction"`
	Avatar       string `json:"avatar"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:           u.ID,
		Name:         u.Name,
		Role:         u.Role,
		ClassID:      u.ClassID,
		Email:        u.Email,
		Phone:        u.Phone,
		Introduction: u.Introduction,
		Avatar:       u.Avatar,
	}
}
