package middlewares

// gin context keys
const (
	CtxUserID = "auth.userID"
)
