package subgraph

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotEnum = errors.New("graphql type is not an enum")

const introspectEnumQuery = `query IntrospectEnum($name: String!) {
  __type(name: $name) {
    kind
    enumValues {
      name
    }
  }
}`

// Introspect returns the values of the named GraphQL enum type.
// It returns ErrNotEnum when the schema has no such enum.
func Introspect(ctx context.Context, client Client, typeName string) ([]string, error) {
	var res struct {
		Type *struct {
			Kind       string `json:"kind"`
			EnumValues []struct {
				Name string `json:"name"`
			} `json:"enumValues"`
		} `json:"__type"`
	}
	if err := client.Query(ctx, introspectEnumQuery, Vars{"name": typeName}, &res); err != nil {
		return nil, fmt.Errorf("can't introspect %s: %w", typeName, err)
	}
	if res.Type == nil || res.Type.Kind != "ENUM" {
		return nil, fmt.Errorf("%s: %w", typeName, ErrNotEnum)
	}
	values := make([]string, len(res.Type.EnumValues))
	for i, v := range res.Type.EnumValues {
		values[i] = v.Name
	}
	return values, nil
}
