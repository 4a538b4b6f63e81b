package docs

import "fmt"

// BinderNotFoundError indicates a QUERY referenced a binder that has never
// been opened (no pebble instance exists for it yet and the operation is
// not permitted to create one).
type BinderNotFoundError struct {
	Binder string
}

func (e BinderNotFoundError) Error() string {
	return fmt.Sprintf("unknown binder: %q", e.Binder)
}

// QueryNotFoundError indicates a QUERY{name, params} referenced a named
// query that was never registered.
type QueryNotFoundError struct {
	Name string
}

func (e QueryNotFoundError) Error() string {
	return fmt.Sprintf("unknown named query: %q", e.Name)
}
