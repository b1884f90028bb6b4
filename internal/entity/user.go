package entity

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleCompany  Role = "COMPANY"
	RoleAdmin    Role = "ADMIN"
)

// User is the authenticated identity. Immutable for the lifetime of a session.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Sender is the message-author projection embedded in every Message.
type Sender struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ProfileImage *string `json:"profileImage,omitempty"`
}
