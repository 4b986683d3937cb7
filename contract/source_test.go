package contract_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/contract"
	"github.com/prisma-monitor/indexer/logging"
)

func TestEtherscanSource_ABI(t *testing.T) {
	t.Parallel()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, "getabi", r.URL.Query().Get("action"))
		require.Equal(t, "key", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":"[{\"type\":\"function\",\"name\":\"ping\",\"inputs\":[],\"outputs\":[]}]"}`))
	}))
	defer srv.Close()

	source, err := contract.NewEtherscanSource(&config.EtherscanConfig{URL: srv.URL, APIKey: "key"}, logging.Discard())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		parsed, err := source.ABI(context.Background(), "0xABC")
		require.NoError(t, err)
		require.Contains(t, parsed.Methods, "ping")
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
