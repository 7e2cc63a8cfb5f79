package upstream

import "fmt"

// AuthError means the platform rejected our login outright (bad credentials,
// missing token in the response). It is not retried beyond the built-in
// refresh-then-authenticate fallback.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "upstream auth failed: " + e.Message
}

// UpstreamError is any non-2xx or transport failure from the listing API.
type UpstreamError struct {
	Status  int // 0 for transport errors
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return "upstream request failed: " + e.Message
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
}

// AuthRejected reports whether the failure looks like an expired or revoked
// token rather than an upstream outage.
func (e *UpstreamError) AuthRejected() bool {
	return e.Status == 401 || e.Status == 403
}
