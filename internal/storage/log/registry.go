package log

import (
	"sync"

	"github.com/mewbase/mewbase/internal/metrics"
)

// Registry is the server-side map from channel name to its open
// ChannelLog, created lazily (spec §3's ChannelRegistry).
type Registry struct {
	dir       string
	chunkSize int64
	metrics   *metrics.ChannelMetrics

	mu   sync.Mutex
	logs map[string]*ChannelLog
}

// NewRegistry creates a channel registry rooted at dir, where each
// channel's chunk files live directly under dir. An optional
// ChannelMetrics is passed through to every ChannelLog it opens.
func NewRegistry(dir string, chunkSize int64, channelMetrics ...*metrics.ChannelMetrics) *Registry {
	var cm *metrics.ChannelMetrics
	if len(channelMetrics) > 0 {
		cm = channelMetrics[0]
	}
	return &Registry{dir: dir, chunkSize: chunkSize, metrics: cm, logs: make(map[string]*ChannelLog)}
}

// GetOrCreate returns the channel's log, opening/creating it on disk on
// first use. Used by PUBLISH, which is permitted to bring a channel into
// existence.
func (r *Registry) GetOrCreate(channel string) (*ChannelLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cl, ok := r.logs[channel]; ok {
		return cl, nil
	}
	cl, err := openChannelLog(r.dir, channel, r.chunkSize, r.metrics)
	if err != nil {
		return nil, err
	}
	r.logs[channel] = cl
	return cl, nil
}

// Get returns the channel's log only if it has already been opened or
// exists on disk; it does not create one. Used by SUBSCRIBE, where an
// unknown channel is a request-level failure (spec §7 redesign).
func (r *Registry) Get(channel string) (*ChannelLog, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cl, ok := r.logs[channel]; ok {
		return cl, true, nil
	}

	lastFileNumber, err := checkAndGetLastFile(r.dir, channel, r.chunkSize)
	if err != nil {
		return nil, false, err
	}
	if lastFileNumber < 0 {
		return nil, false, nil
	}
	cl, err := openChannelLog(r.dir, channel, r.chunkSize, r.metrics)
	if err != nil {
		return nil, false, err
	}
	r.logs[channel] = cl
	return cl, true, nil
}

// CloseAll closes every open channel log, used during server shutdown.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, cl := range r.logs {
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
