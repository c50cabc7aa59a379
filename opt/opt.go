// Package opt holds an optional index type used wherever an id may be absent
// (joint parents, birth indices of subset entities).
package opt

import (
	"encoding/json"
	"fmt"
)

// Index is either an index value or nothing.
// The zero value is None.
type Index[T ~int] struct {
	v  T
	ok bool
}

func Of[T ~int](v T) Index[T] {
	return Index[T]{v: v, ok: true}
}

func None[T ~int]() Index[T] {
	return Index[T]{}
}

func (i Index[T]) Valid() bool {
	return i.ok
}

func (i Index[T]) Get() (T, bool) {
	return i.v, i.ok
}

// MustGet panics when the index is absent.
func (i Index[T]) MustGet() T {
	if !i.ok {
		panic("opt: MustGet on empty index")
	}
	return i.v
}

// Or returns the index value or def when absent.
func (i Index[T]) Or(def T) T {
	if !i.ok {
		return def
	}
	return i.v
}

func (i Index[T]) String() string {
	if !i.ok {
		return "none"
	}
	return fmt.Sprintf("%d", int(i.v))
}

func (i Index[T]) MarshalJSON() ([]byte, error) {
	if !i.ok {
		return []byte("null"), nil
	}
	return json.Marshal(int(i.v))
}

func (i *Index[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = Index[T]{}
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*i = Of(T(v))
	return nil
}
