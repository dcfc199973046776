package paystack

import "fmt"

// ErrorKind classifies a gateway failure. Callers map these onto HTTP
// statuses (502 for unreachable) or swallow them on the webhook path where
// the provider will redeliver.
type ErrorKind int

const (
	// KindUnreachable is a transport-level failure: DNS, connect, timeout.
	KindUnreachable ErrorKind = iota
	// KindRejected is a non-2xx HTTP response or an API-level status=false.
	KindRejected
	// KindMalformed is a 2xx response whose body could not be decoded.
	KindMalformed
)

type UpstreamError struct {
	Kind       ErrorKind
	StatusCode int
	Detail     string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case KindUnreachable:
		return fmt.Sprintf("paystack unreachable: %v", e.Err)
	case KindRejected:
		return fmt.Sprintf("paystack rejected (HTTP %d): %s", e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("paystack malformed response: %s", e.Detail)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func unreachable(err error) *UpstreamError {
	return &UpstreamError{Kind: KindUnreachable, Err: err}
}

func rejected(status int, detail string) *UpstreamError {
	return &UpstreamError{Kind: KindRejected, StatusCode: status, Detail: detail}
}

func malformed(detail string) *UpstreamError {
	return &UpstreamError{Kind: KindMalformed, Detail: detail}
}
