package subgraph_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/subgraph"
)

const poolQuery = `query Pools($from: Int!) { pools(where: {index_gte: $from}) { id } }`

type poolsResult struct {
	Pools []struct {
		ID string `json:"id"`
	} `json:"pools"`
}

func testConfig() *config.SubgraphConfig {
	return &config.SubgraphConfig{
		Timeout:        time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     1,
	}
}

func newServer(t *testing.T, responses []string, statuses []int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1) - 1
		if n >= int32(len(responses)) {
			n = int32(len(responses)) - 1
		}
		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status := http.StatusOK
		if statuses != nil {
			status = statuses[n]
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(responses[n]))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient_Query(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		Name          string
		Responses     []string
		Statuses      []int
		ExpectedCalls int32
		ExpectedErr   error
		ExpectedIDs   []string
	}{
		{
			Name:          "Data",
			Responses:     []string{`{"data":{"pools":[{"id":"a"},{"id":"b"}]}}`},
			ExpectedCalls: 1,
			ExpectedIDs:   []string{"a", "b"},
		},
		{
			Name:          "EmptyPage",
			Responses:     []string{`{"data":{"pools":[]}}`},
			ExpectedCalls: 1,
			ExpectedIDs:   []string{},
		},
		{
			Name:          "RetriedNullData",
			Responses:     []string{`{"data":null}`, `{"errors":[{"message":"indexing"}]}`, `{"data":{"pools":[{"id":"c"}]}}`},
			ExpectedCalls: 3,
			ExpectedIDs:   []string{"c"},
		},
		{
			Name:          "RetriedStatus",
			Responses:     []string{`bad gateway`, `{"data":{"pools":[{"id":"d"}]}}`},
			Statuses:      []int{http.StatusBadGateway, http.StatusOK},
			ExpectedCalls: 2,
			ExpectedIDs:   []string{"d"},
		},
		{
			Name:          "NoData",
			Responses:     []string{`{"data":null}`},
			ExpectedCalls: 3,
			ExpectedErr:   subgraph.ErrNoData,
		},
		{
			Name:          "Undecodable",
			Responses:     []string{`<html>`},
			ExpectedCalls: 3,
			ExpectedErr:   subgraph.ErrNoData,
		},
		{
			Name:          "PartialErrors",
			Responses:     []string{`{"data":{"pools":[]},"errors":[{"message":"bad field"}]}`},
			ExpectedCalls: 1,
			ExpectedErr:   subgraph.ErrGraphQL,
		},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			srv, calls := newServer(t, test.Responses, test.Statuses)
			client := subgraph.NewClient(srv.URL, testConfig(), logging.Discard())

			var res poolsResult
			err := client.Query(context.Background(), poolQuery, subgraph.Vars{"from": 0}, &res)
			require.Equal(t, test.ExpectedCalls, atomic.LoadInt32(calls))
			if test.ExpectedErr != nil {
				require.ErrorIs(t, err, test.ExpectedErr)
				return
			}
			require.NoError(t, err)
			ids := make([]string, 0, len(res.Pools))
			for _, p := range res.Pools {
				ids = append(ids, p.ID)
			}
			require.Equal(t, test.ExpectedIDs, ids)
		})
	}
}

func TestClient_QueryCancelled(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, []string{`{"data":null}`}, nil)
	cfg := testConfig()
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour
	client := subgraph.NewClient(srv.URL, cfg, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var res poolsResult
	err := client.Query(ctx, poolQuery, nil, &res)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotErrorIs(t, err, subgraph.ErrNoData)
}

func TestIntrospect(t *testing.T) {
	t.Parallel()
	client := subgraph.ClientFunc(func(_ context.Context, _ string, vars subgraph.Vars) (interface{}, error) {
		switch vars["name"] {
		case "TroveStatus":
			return map[string]interface{}{
				"__type": map[string]interface{}{
					"kind":       "ENUM",
					"enumValues": []map[string]string{{"name": "open"}, {"name": "closedByOwner"}},
				},
			}, nil
		case "Trove":
			return map[string]interface{}{"__type": map[string]interface{}{"kind": "OBJECT"}}, nil
		default:
			return map[string]interface{}{"__type": nil}, nil
		}
	})

	values, err := subgraph.Introspect(context.Background(), client, "TroveStatus")
	require.NoError(t, err)
	require.Equal(t, []string{"open", "closedByOwner"}, values)

	_, err = subgraph.Introspect(context.Background(), client, "Trove")
	require.ErrorIs(t, err, subgraph.ErrNotEnum)

	_, err = subgraph.Introspect(context.Background(), client, "Missing")
	require.ErrorIs(t, err, subgraph.ErrNotEnum)
}

func TestInt_UnmarshalJSON(t *testing.T) {
	t.Parallel()
	var res struct {
		A subgraph.Int `json:"a"`
		B subgraph.Int `json:"b"`
		C subgraph.Int `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12, "b": "1700000000", "c": null}`), &res))
	require.EqualValues(t, 12, res.A)
	require.EqualValues(t, 1700000000, res.B)
	require.EqualValues(t, 0, res.C)
	require.Error(t, json.Unmarshal([]byte(`{"a": "1.5"}`), &res))
}
