package subgraph

import (
	"context"
	"fmt"

	"github.com/sugawarayuuta/sonnet"
)

// ClientFunc adapts a function returning a decoded data object to Client.
// The result is round-tripped through JSON into out, like a real response.
type ClientFunc func(ctx context.Context, query string, vars Vars) (interface{}, error)

func (f ClientFunc) Query(ctx context.Context, query string, vars Vars, out interface{}) error {
	res, err := f(ctx, query, vars)
	if err != nil {
		return err
	}
	blob, err := sonnet.Marshal(res)
	if err != nil {
		return fmt.Errorf("can't encode data: %w", err)
	}
	if err = sonnet.Unmarshal(blob, out); err != nil {
		return fmt.Errorf("%w: %s", ErrDecode, err.Error())
	}
	return nil
}

func (f ClientFunc) Endpoint() string {
	return "func"
}
