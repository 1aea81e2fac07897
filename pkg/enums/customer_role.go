package enums

import "slices"

// CustomerRole is the role carried in storefront access tokens.
type CustomerRole string

const (
	CustomerRoleCustomer CustomerRole = "customer"
	CustomerRoleGuest    CustomerRole = "guest"
	CustomerRoleAdmin    CustomerRole = "admin"
)

var validCustomerRoles = []CustomerRole{
	CustomerRoleCustomer,
	CustomerRoleGuest,
	CustomerRoleAdmin,
}

// String implements fmt.Stringer.
func (r CustomerRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known CustomerRole.
func (r CustomerRole) IsValid() bool {
	return slices.Contains(validCustomerRoles, r)
}

// ParseCustomerRole converts raw input into a CustomerRole.
func ParseCustomerRole(value string) (CustomerRole, error) {
	return parse("customer role", validCustomerRoles, value)
}
