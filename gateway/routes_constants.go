package gateway

// Remote API route constants
// Shared by the client and the fake server so both sides agree on paths
const (
	// Profile
	RouteMe = "/api/me"

	// Phone code login
	RouteSendCode   = "/auth/send-code"
	RouteVerifyCode = "/auth/verify-code"

	// Credential lifetime
	RouteRefresh = "/auth/refresh"
	RouteLogout  = "/auth/logout"
)

// HeaderRequestID carries a per-request correlation id.
const HeaderRequestID = "X-Request-ID"
