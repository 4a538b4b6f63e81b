package docs

import (
	"encoding/json"
	"errors"

	"github.com/cockroachdb/pebble"

	"github.com/mewbase/mewbase/internal/filter"
)

// ErrStreamDone is returned by DocStream.Next once every document in the
// binder has been visited.
var ErrStreamDone = errors.New("docs: stream exhausted")

// DocStream is the credit-gated document cursor that backs
// QUERY{name, params}; QueryExecution pulls from it one matched document
// at a time, the same shape Subscription pulls records from a channel
// cursor.
type DocStream struct {
	iter    *pebble.Iterator
	matcher filter.Expression
	params  map[string]any
	started bool
}

// OpenStream resolves a registered named query and opens a document
// cursor over its binder, filtered by the query's matcher template
// evaluated against each document's fields plus the supplied params.
func (m *Manager) OpenStream(queryName string, params map[string]any) (*DocStream, error) {
	q, ok := m.lookupQuery(queryName)
	if !ok {
		return nil, QueryNotFoundError{Name: queryName}
	}

	db, err := m.openBinder(q.Binder)
	if err != nil {
		return nil, err
	}

	var matcher filter.Expression
	if q.MatcherTemplate != "" {
		matcher, err = filter.Parse(q.MatcherTemplate)
		if err != nil {
			return nil, err
		}
	}

	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}

	return &DocStream{iter: iter, matcher: matcher, params: params}, nil
}

// Next returns the next document whose fields satisfy the stream's
// matcher, skipping non-matching and undecodable documents silently, the
// same contract Subscription's matcher gives (spec §4.5).
func (s *DocStream) Next() (docID string, doc []byte, err error) {
	for {
		var valid bool
		if !s.started {
			valid = s.iter.First()
			s.started = true
		} else {
			valid = s.iter.Next()
		}
		if !valid {
			return "", nil, ErrStreamDone
		}

		docID = string(s.iter.Key())
		doc = append([]byte(nil), s.iter.Value()...)

		if s.matcher == nil {
			return docID, doc, nil
		}
		ctx := filter.Context{"params": s.params}
		var fields map[string]any
		if jsonErr := json.Unmarshal(doc, &fields); jsonErr == nil {
			for k, v := range fields {
				ctx[k] = v
			}
		}
		matched, evalErr := s.matcher.Evaluate(ctx)
		if evalErr != nil {
			continue
		}
		if b, ok := matched.(bool); ok && b {
			return docID, doc, nil
		}
	}
}

// Close releases the underlying pebble iterator.
func (s *DocStream) Close() error {
	return s.iter.Close()
}
