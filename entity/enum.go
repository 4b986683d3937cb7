package entity

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownEnumValue = errors.New("unknown enum value")

// EnumTable maps subgraph wire strings to stored variants of a single enum type.
type EnumTable[T ~string] struct {
	graphQLType string
	variants    []T
	wire        map[string]T
}

func NewEnumTable[T ~string](graphQLType string, variants []T, wire map[string]T) *EnumTable[T] {
	return &EnumTable[T]{
		graphQLType: graphQLType,
		variants:    variants,
		wire:        wire,
	}
}

func (t *EnumTable[T]) GraphQLType() string {
	return t.graphQLType
}

func (t *EnumTable[T]) Decode(raw string) (T, error) {
	v, ok := t.wire[raw]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %q: %w", t.graphQLType, raw, ErrUnknownEnumValue)
	}
	return v, nil
}

func (t *EnumTable[T]) WireValues() []string {
	res := make([]string, 0, len(t.wire))
	for k := range t.wire {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// Validate checks that the mapping is a bijection onto the declared variants.
func (t *EnumTable[T]) Validate() error {
	seen := make(map[T]string, len(t.wire))
	for raw, v := range t.wire {
		if prev, ok := seen[v]; ok {
			return fmt.Errorf("%s: wire values %q and %q map to the same variant %q", t.graphQLType, prev, raw, v)
		}
		seen[v] = raw
	}
	for _, v := range t.variants {
		if _, ok := seen[v]; !ok {
			return fmt.Errorf("%s: variant %q has no wire value", t.graphQLType, v)
		}
		delete(seen, v)
	}
	for v := range seen {
		return fmt.Errorf("%s: wire table maps to undeclared variant %q", t.graphQLType, v)
	}
	return nil
}

// ValidateRemote checks that every value the remote schema declares is mapped.
func (t *EnumTable[T]) ValidateRemote(values []string) error {
	for _, raw := range values {
		if _, ok := t.wire[raw]; !ok {
			return fmt.Errorf("%s %q is not mapped: %w", t.graphQLType, raw, ErrUnknownEnumValue)
		}
	}
	return nil
}

type EnumValidator interface {
	GraphQLType() string
	Validate() error
	ValidateRemote(values []string) error
}
