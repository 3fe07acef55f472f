package contextKey

// key is the private type for context keys defined by this package, so no
// other package can collide with them.
type key int

const (
	// UserIDKey carries the authenticated user's id through a request context.
	UserIDKey key = iota
	// JwtErrorKey carries a JWT validation error through a request context.
	JwtErrorKey
)
