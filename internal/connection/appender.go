package connection

import storagelog "github.com/mewbase/mewbase/internal/storage/log"

// AppendResult is what a PUBLISH's asynchronous persist resolves to.
type AppendResult struct {
	RecordNumber int64
	Err          error
}

// Appender persists one PUBLISH's record payload to its channel, resolving
// the returned channel once complete. It is asynchronous by contract:
// concurrently issued appends to different channels (or the same one) are
// free to complete in any order, which is exactly what OrderedWriter exists
// to reorder back into request order.
type Appender interface {
	Append(channel string, payload []byte) <-chan AppendResult
}

// RegistryAppender is the production Appender, backed by the channel log
// registry. Each call runs the actual disk append on its own goroutine, so
// two PUBLISHes to channels whose chunk files rotate at different times can
// genuinely finish out of issue order.
type RegistryAppender struct {
	registry *storagelog.Registry
}

// NewRegistryAppender wraps registry as an Appender.
func NewRegistryAppender(registry *storagelog.Registry) *RegistryAppender {
	return &RegistryAppender{registry: registry}
}

// Append starts the persist and returns immediately.
func (a *RegistryAppender) Append(channel string, payload []byte) <-chan AppendResult {
	result := make(chan AppendResult, 1)
	go func() {
		cl, err := a.registry.GetOrCreate(channel)
		if err != nil {
			result <- AppendResult{Err: err}
			return
		}
		n, err := cl.Append(payload)
		result <- AppendResult{RecordNumber: n, Err: err}
	}()
	return result
}
