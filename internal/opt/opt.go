// Package opt provides an explicit "value or absent" type.
//
// A zero Value is absent. Absent values encode to JSON null, so a field that
// was never computed is distinguishable from one that is zero.
package opt

import (
	"bytes"
	"encoding/json"
)

// Value holds either a T or nothing.
type Value[T any] struct {
	v  T
	ok bool
}

// Some wraps v as a present value.
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// None returns an absent value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Get returns the value and whether it is present.
func (o Value[T]) Get() (T, bool) {
	return o.v, o.ok
}

// Present reports whether a value is held.
func (o Value[T]) Present() bool {
	return o.ok
}

// OrElse returns the held value or fallback.
func (o Value[T]) OrElse(fallback T) T {
	if o.ok {
		return o.v
	}
	return fallback
}

// Ptr returns a pointer to a copy of the value, or nil when absent.
func (o Value[T]) Ptr() *T {
	if !o.ok {
		return nil
	}
	v := o.v
	return &v
}

// Or returns o when present, otherwise other.
func (o Value[T]) Or(other Value[T]) Value[T] {
	if o.ok {
		return o
	}
	return other
}

// Map applies fn to a present value.
func Map[T, U any](o Value[T], fn func(T) U) Value[U] {
	if !o.ok {
		return None[U]()
	}
	return Some(fn(o.v))
}

// FlatMap applies fn to a present value and returns its result as is.
func FlatMap[T, U any](o Value[T], fn func(T) Value[U]) Value[U] {
	if !o.ok {
		return None[U]()
	}
	return fn(o.v)
}

var null = []byte("null")

// MarshalJSON encodes an absent value as null.
func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return null, nil
	}
	return json.Marshal(o.v)
}

// UnmarshalJSON decodes null as absent.
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), null) {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
