package auth

// Gin context keys set by the JWT middlewares.
const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
	// ContextTokenScope is the key for the token scope (session or guest).
	ContextTokenScope = "token_scope"
)
