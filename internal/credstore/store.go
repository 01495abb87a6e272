package credstore

// Store is the durable mapping from client name/id to registration and from
// client name to its current token set.
//
// Lookup misses are reported through the ok result, not an error: a missing
// registration or token set is a normal state for callers, not a failure.
type Store interface {
	// Put durably appends the registration after validating it. The
	// backing storage location is created if absent.
	Put(reg Registration) error

	// Delete removes the registration with the given name and its token
	// set, if any. Unknown names are a no-op.
	Delete(name string) error

	// Get looks up a registration by name or client id, whichever matches
	// first.
	Get(identifier string) (Registration, bool, error)

	// List returns all registrations in the insertion order of the backing
	// store. Rows with identical names are not deduplicated.
	List() ([]Registration, error)

	// SaveTokens fully replaces the token set stored for the named client.
	SaveTokens(name string, tokens TokenSet) error

	// LoadTokens reads the token set stored for the named client.
	LoadTokens(name string) (TokenSet, bool, error)

	// DeleteTokens removes the token set stored for the named client while
	// keeping the registration. Unknown names are a no-op.
	DeleteTokens(name string) error
}
