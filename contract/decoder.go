package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/utils"
)

// Call is one action of an ownership proposal payload.
type Call struct {
	Target string `json:"target"`
	Data   string `json:"data"`
}

// PayloadDecoder renders proposal payloads as human readable call descriptions.
type PayloadDecoder struct {
	sources []ABISource
	logger  logging.Logger
}

// NewPayloadDecoder tries sources in order until one knows the called method.
func NewPayloadDecoder(logger logging.Logger, sources ...ABISource) *PayloadDecoder {
	return &PayloadDecoder{
		sources: sources,
		logger:  logger,
	}
}

func (d *PayloadDecoder) DecodePayload(ctx context.Context, calls []Call) string {
	res := make([]string, len(calls))
	for i, call := range calls {
		res[i] = d.DecodeCall(ctx, call.Target, call.Data)
	}
	return strings.Join(res, "\n")
}

// DecodeCall never fails: undecodable calldata is rendered raw.
func (d *PayloadDecoder) DecodeCall(ctx context.Context, target, calldata string) string {
	to := utils.ChecksumAddress(target)
	data, err := hexutil.Decode(calldata)
	if err == nil && len(data) >= 4 {
		for _, source := range d.sources {
			contractABI, err := source.ABI(ctx, target)
			if err != nil {
				d.logger.WithError(err).WithField("target", to).Debug("abi source failed")
				continue
			}
			fn, inputs, err := unpackCall(contractABI, data)
			if err != nil {
				continue
			}
			return fmt.Sprintf("Call:\n ├─ To: %s\n ├─ Function: %s\n └─ Inputs: [%s]", to, fn, strings.Join(inputs, ", "))
		}
	}
	d.logger.WithField("target", to).WithField("calldata", calldata).Warn("unable to parse call data")
	return fmt.Sprintf("Call:\n ├─ To: %s\n └─ Calldata: %s", to, calldata)
}

func unpackCall(contractABI *abi.ABI, data []byte) (string, []string, error) {
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return "", nil, err
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return "", nil, fmt.Errorf("can't unpack %s inputs: %w", method.Name, err)
	}
	inputs := make([]string, len(values))
	for i, v := range values {
		arg := method.Inputs[i]
		inputs[i] = fmt.Sprintf("(%s, %s, %s)", arg.Type.String(), arg.Name, formatValue(v))
	}
	return method.Name, inputs, nil
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case common.Address:
		return val.Hex()
	case []common.Address:
		res := make([]string, len(val))
		for i, a := range val {
			res[i] = a.Hex()
		}
		return "[" + strings.Join(res, ", ") + "]"
	case []byte:
		return hexutil.Encode(val)
	case [32]byte:
		return hexutil.Encode(val[:])
	case *big.Int:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
