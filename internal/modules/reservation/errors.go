package reservation

import "fmt"

// SchemaError reports a required column absent from the input.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: missing required column %q", e.Column)
}
