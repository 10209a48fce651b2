package domain

var Tables = []interface{}{
	// System
	&User{},
	// Billing
	&Invoice{},
}
