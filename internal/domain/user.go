package domain

// User is the authenticated shopper as reported by the identity provider.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CompanyID string `json:"companyId"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

// CanOwnOrders reports whether the user carries the identity needed to create orders.
func (u *User) CanOwnOrders() bool {
	return u != nil && u.ID != "" && u.CompanyID != ""
}
