package contentstore

import "fmt"

// UpstreamUnavailableError is returned by Get for any status other than
// 200 or 404, per spec §7 (UpstreamUnavailable).
type UpstreamUnavailableError struct {
	Status int
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("content store unavailable: status %d", e.Status)
}
