package infra

import "fmt"

// FieldSchema is the narrow capability the validator needs from a step's
// input contract: a name-existence query. Callers implement it per schema
// technology (JSON schema, CUE, protobuf descriptors) and inject it; the
// validator never depends on a specific schema library.
type FieldSchema interface {
	// HasField reports whether the schema declares a top-level field with
	// the given name.
	HasField(name string) bool
}

// FieldSchemaFunc adapts a plain function to the FieldSchema interface.
type FieldSchemaFunc func(name string) bool

// HasField implements FieldSchema.
func (f FieldSchemaFunc) HasField(name string) bool {
	return f(name)
}

// queryField runs the caller-supplied schema query inside a fault boundary.
// A panic out of a malformed schema implementation is converted into an
// error so the surrounding validation pass can report it as a violation
// instead of crashing.
func queryField(schema FieldSchema, name string) (found bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("input schema query panicked: %v", r)
		}
	}()
	return schema.HasField(name), nil
}
