package connection

import (
	"encoding/json"

	"github.com/mewbase/mewbase/internal/wire"
)

// jsonToFrame translates a JSON document (as stored by the docs binder)
// into a wire frame so it can ride a QUERYRESULT's result field, which is
// typed as a nested frame on the wire. Fields of a type the frame codec
// doesn't carry (arrays, nested objects) are dropped rather than failing
// the whole query — the protocol only promises flat scalar fields.
func jsonToFrame(doc []byte) *wire.Frame {
	f := wire.New(wire.KindDoc)
	if len(doc) == 0 {
		return f
	}
	var fields map[string]any
	if err := json.Unmarshal(doc, &fields); err != nil {
		return f
	}
	for name, v := range fields {
		switch val := v.(type) {
		case string:
			f.WithString(name, val)
		case bool:
			f.WithBool(name, val)
		case float64:
			if val == float64(int64(val)) {
				f.WithInt64(name, int64(val))
			}
		}
	}
	return f
}
