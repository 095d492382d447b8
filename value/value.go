// Package value implements the item index's value primitive: a possibly
// absent scatter/gather byte vector, copied by flattening into a caller
// buffer rather than ever being lent out by reference.
package value

// Value is a possibly-empty byte string with a definite total length; a
// scatter/gather vector is flattened into it at construction. The zero
// Value is the "null" value, distinct from an empty one: a
// tombstone's value is always null, but a live item may also legitimately
// store a zero-length, non-null value.
type Value struct {
	parts []byte
	isSet bool
}

// Null returns the absent value.
func Null() Value {
	return Value{}
}

// FromBytes returns a Value that owns a copy of b. b may be empty (but
// non-nil) to represent a live, zero-length value.
func FromBytes(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{parts: cp, isSet: true}
}

// FromScatter flattens a scatter/gather vector into a single owned Value.
func FromScatter(parts ...[]byte) Value {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	buf := make([]byte, 0, total)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return Value{parts: buf, isSet: true}
}

// IsNull reports whether this is the absent value.
func (v Value) IsNull() bool {
	return !v.isSet
}

// Len returns the total byte length, 0 for a null value.
func (v Value) Len() int {
	return len(v.parts)
}

// CopyTo flattens the value into out, truncating if out is shorter than the
// value, and returns the number of bytes copied. Copying a null value into
// any buffer copies zero bytes.
func CopyTo(v Value, out []byte) int {
	if v.IsNull() {
		return 0
	}
	return copy(out, v.parts)
}

// Bytes returns the value's backing bytes. Callers must not mutate the
// result; it is shared with the Value, not a defensive copy.
func (v Value) Bytes() []byte {
	return v.parts
}
