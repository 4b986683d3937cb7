package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/utils"
)

var (
	// ErrNoData means the endpoint returned no usable data after every retry.
	ErrNoData  = errors.New("no data available from subgraph")
	ErrGraphQL = errors.New("subgraph returned graphql errors")
	ErrDecode  = errors.New("can't decode subgraph data")
)

type Vars map[string]interface{}

type Client interface {
	Query(ctx context.Context, query string, vars Vars, out interface{}) error
	Endpoint() string
}

type request struct {
	Query     string `json:"query"`
	Variables Vars   `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type httpClient struct {
	endpoint string
	name     string
	timeout  time.Duration
	backoff  utils.Backoff
	client   *http.Client
	logger   logging.Logger
}

func NewClient(endpoint string, cfg *config.SubgraphConfig, logger logging.Logger) Client {
	return &httpClient{
		endpoint: endpoint,
		name:     endpointName(endpoint),
		timeout:  cfg.Timeout,
		backoff: utils.Backoff{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialBackoff,
			MaxDelay:     cfg.MaxBackoff,
			Multiplier:   cfg.Multiplier,
			Jitter:       cfg.Multiplier > 1,
		},
		client: &http.Client{},
		logger: logger.WithField("endpoint", endpointName(endpoint)),
	}
}

func (c *httpClient) Endpoint() string {
	return c.endpoint
}

func (c *httpClient) Query(ctx context.Context, query string, vars Vars, out interface{}) error {
	body, err := sonnet.Marshal(&request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("can't encode subgraph request: %w", err)
	}
	op := operationName(query)
	err = utils.WithBackoff(ctx, c.backoff, c.logger.WithField("operation", op), "subgraph query "+op, func() error {
		return c.do(ctx, op, body, out)
	})
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrGraphQL), errors.Is(err, ErrDecode):
		return err
	default:
		ObserveResult(c.name, op, "no-data")
		return fmt.Errorf("%w: %s", ErrNoData, err.Error())
	}
}

func (c *httpClient) do(ctx context.Context, op string, body []byte, out interface{}) (err error) {
	defer ObserveDuration(c.name, op)()
	defer func() {
		ObserveError(c.name, op, err)
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return utils.Permanent(fmt.Errorf("can't build subgraph request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("can't send subgraph request: %w", err)
	}
	defer res.Body.Close()

	blob, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("can't read subgraph response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("subgraph responded with status %d", res.StatusCode)
	}
	var parsed response
	if err = sonnet.Unmarshal(blob, &parsed); err != nil {
		return fmt.Errorf("can't decode subgraph response: %w", err)
	}
	hasData := len(parsed.Data) > 0 && !bytes.Equal(bytes.TrimSpace(parsed.Data), []byte("null"))
	if !hasData {
		if len(parsed.Errors) > 0 {
			return fmt.Errorf("subgraph returned no data: %s", joinErrors(parsed.Errors))
		}
		return errors.New("subgraph returned no data")
	}
	if len(parsed.Errors) > 0 {
		return utils.Permanent(fmt.Errorf("%w: %s", ErrGraphQL, joinErrors(parsed.Errors)))
	}
	if err = sonnet.Unmarshal(parsed.Data, out); err != nil {
		return utils.Permanent(fmt.Errorf("%w: %s", ErrDecode, err.Error()))
	}
	return nil
}

func joinErrors(errs []gqlError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// operationName extracts the name of a named query, used as a metric label.
func operationName(query string) string {
	fields := strings.Fields(query)
	for i, f := range fields {
		if f == "query" && i+1 < len(fields) {
			name := fields[i+1]
			if idx := strings.IndexAny(name, "({"); idx >= 0 {
				name = name[:idx]
			}
			if name != "" {
				return name
			}
		}
	}
	return "anonymous"
}

// endpointName strips credentials and query strings so endpoints are safe to use as labels.
func endpointName(endpoint string) string {
	if idx := strings.Index(endpoint, "?"); idx >= 0 {
		endpoint = endpoint[:idx]
	}
	if idx := strings.LastIndex(endpoint, "/subgraphs/"); idx >= 0 {
		return endpoint[idx+1:]
	}
	parts := strings.Split(strings.TrimRight(endpoint, "/"), "/")
	return parts[len(parts)-1]
}
