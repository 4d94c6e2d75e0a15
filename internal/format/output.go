package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// Gridder is implemented by payloads with a plain-text grid rendering.
type Gridder interface {
	GridText() string
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - edn
// - grid (payloads implementing Gridder; others fall back to pretty JSON)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	case "grid":
		if g, ok := v.(Gridder); ok {
			_, err := io.WriteString(w, g.GridText())
			return err
		}
		return WriteJSON(w, v, true)
	default:
		return fmt.Errorf("unknown format: %s (expected json|edn|grid)", format)
	}
}

// WriteJSON writes strict JSON.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
