package connection

import "fmt"

// FatalError is a protocol violation serious enough to close the
// connection outright rather than answer it with RESPONSE{ok:false} — an
// unauthenticated frame before CONNECT, an unknown subscription or query
// id, a malformed frame the codec itself rejected.
type FatalError struct {
	Reason string
}

func (e FatalError) Error() string { return fmt.Sprintf("connection: fatal: %s", e.Reason) }

func fatalf(format string, args ...any) FatalError {
	return FatalError{Reason: fmt.Sprintf(format, args...)}
}
