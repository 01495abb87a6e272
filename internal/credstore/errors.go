package credstore

// InvalidRegistrationError indicates a registration that fails validation:
// missing identity fields or a scope outside the known set.
type InvalidRegistrationError struct {
	Reason string
}

// Error implements the error interface.
func (e *InvalidRegistrationError) Error() string {
	return "invalid registration: " + e.Reason
}
