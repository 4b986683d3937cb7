package contract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sugawarayuuta/sonnet"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/utils"
)

var ErrABINotFound = errors.New("contract abi not available")

type ABISource interface {
	ABI(ctx context.Context, address string) (*abi.ABI, error)
}

type etherscanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// EtherscanSource fetches verified contract ABIs and caches them by address.
type EtherscanSource struct {
	url     string
	apiKey  string
	client  *http.Client
	cache   *lru.Cache
	backoff utils.Backoff
	logger  logging.Logger
}

func NewEtherscanSource(cfg *config.EtherscanConfig, logger logging.Logger) (*EtherscanSource, error) {
	cache, err := lru.New(256)
	if err != nil {
		return nil, fmt.Errorf("can't create abi cache: %w", err)
	}
	return &EtherscanSource{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  cache,
		backoff: utils.Backoff{
			MaxAttempts:  3,
			InitialDelay: 5 * time.Second,
			Multiplier:   1,
		},
		logger: logger,
	}, nil
}

func (s *EtherscanSource) ABI(ctx context.Context, address string) (*abi.ABI, error) {
	address = strings.ToLower(address)
	if cached, ok := s.cache.Get(address); ok {
		return cached.(*abi.ABI), nil
	}
	var parsed *abi.ABI
	err := utils.WithBackoff(ctx, s.backoff, s.logger.WithField("address", address), "etherscan abi request", func() error {
		res, err := s.fetch(ctx, address)
		if err != nil {
			return err
		}
		parsed = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Add(address, parsed)
	return parsed, nil
}

func (s *EtherscanSource) fetch(ctx context.Context, address string) (*abi.ABI, error) {
	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "getabi")
	q.Set("address", address)
	q.Set("apikey", s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, utils.Permanent(fmt.Errorf("can't build etherscan request: %w", err))
	}
	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't request abi: %w", err)
	}
	defer res.Body.Close()
	blob, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("can't read etherscan response: %w", err)
	}
	var parsed etherscanResponse
	if err = sonnet.Unmarshal(blob, &parsed); err != nil {
		return nil, fmt.Errorf("can't decode etherscan response: %w", err)
	}
	if parsed.Status != "1" {
		return nil, fmt.Errorf("etherscan: %s: %w", parsed.Message, ErrABINotFound)
	}
	contractABI, err := abi.JSON(strings.NewReader(parsed.Result))
	if err != nil {
		return nil, utils.Permanent(fmt.Errorf("can't parse abi: %w", err))
	}
	return &contractABI, nil
}

// StaticSource serves one ABI for every address.
type StaticSource struct {
	abi abi.ABI
}

func NewStaticSource(contractABI abi.ABI) *StaticSource {
	return &StaticSource{abi: contractABI}
}

func (s *StaticSource) ABI(context.Context, string) (*abi.ABI, error) {
	return &s.abi, nil
}
