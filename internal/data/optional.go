package data

import "eta/internal/serial"

// Optional holds a record field that may be unset. An Optional set from an
// explicit null is set, reads back as the zero value and serializes as null.
type Optional[T any] struct {
	value T
	set   bool
	null  bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Null returns an Optional set to an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{set: true, null: true}
}

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value was assigned.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// IsNull reports whether the field was set to an explicit null.
func (o Optional[T]) IsNull() bool {
	return o.null
}

// OrElse returns the value, or fallback when unset.
func (o Optional[T]) OrElse(fallback T) T {
	if !o.set {
		return fallback
	}
	return o.value
}

// Set assigns v.
func (o *Optional[T]) Set(v T) {
	o.value = v
	o.set = true
	o.null = false
}

// Clear returns the field to the unset state.
func (o *Optional[T]) Clear() {
	var zero T
	o.value = zero
	o.set = false
	o.null = false
}

func (o Optional[T]) optionalValue() (any, bool) {
	if o.null {
		return nil, true
	}
	return o.value, o.set
}

func (o *Optional[T]) assignOptional(v any) error {
	var value T
	if v != nil {
		if err := serial.Assign(v, &value); err != nil {
			return err
		}
	}
	o.value = value
	o.set = true
	o.null = v == nil
	return nil
}

type optionalField interface {
	optionalValue() (any, bool)
}

type optionalAssigner interface {
	assignOptional(v any) error
}
