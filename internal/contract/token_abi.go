package contract

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// airborneEagleJSON is the compiled ABI of the AirborneEagle (GLDE) token:
// a plain ERC-20 with public name/symbol/decimals/totalSupply/balanceOf/
// allowance getters, transfer, approve, transferFrom and the two standard
// events.
//
//go:embed abis/AirborneEagle.json
var airborneEagleJSON []byte

var tokenABI = mustParseABI(airborneEagleJSON)

// ErrNotTransferCall is returned by UnpackTransfer when the calldata does not
// start with the transfer(address,uint256) selector (0xa9059cbb).
var ErrNotTransferCall = errors.New("calldata is not a transfer(address,uint256) call")

func mustParseABI(data []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("contract: embedded token ABI: %v", err))
	}
	return parsed
}

// ABI returns the parsed token ABI.
func ABI() abi.ABI { return tokenABI }

// PackTransfer encodes transfer(to, amount) calldata.
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("transfer amount must be non-negative")
	}
	return tokenABI.Pack("transfer", to, amount)
}

// UnpackTransfer decodes transfer(to, amount) calldata produced by PackTransfer.
func UnpackTransfer(data []byte) (common.Address, *big.Int, error) {
	method := tokenABI.Methods["transfer"]
	if len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return common.Address{}, nil, ErrNotTransferCall
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("decoding transfer args: %w", err)
	}
	to, ok := args[0].(common.Address)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("unexpected recipient type %T", args[0])
	}
	amount, ok := args[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("unexpected amount type %T", args[1])
	}
	return to, amount, nil
}

// TransferEvent is a decoded Transfer(from, to, value) log.
type TransferEvent struct {
	From     common.Address
	To       common.Address
	Value    *big.Int
	TxHash   common.Hash
	LogIndex uint
}

// ParseTransferLogs returns the Transfer events emitted by token in logs.
// Logs from other contracts or with a foreign topic are skipped, as are
// logs whose data does not decode.
func ParseTransferLogs(token common.Address, logs []*types.Log) []TransferEvent {
	event := tokenABI.Events["Transfer"]
	var out []TransferEvent
	for _, lg := range logs {
		if lg == nil || lg.Address != token || len(lg.Topics) != 3 || lg.Topics[0] != event.ID {
			continue
		}
		vals, err := event.Inputs.NonIndexed().Unpack(lg.Data)
		if err != nil || len(vals) != 1 {
			continue
		}
		value, ok := vals[0].(*big.Int)
		if !ok {
			continue
		}
		out = append(out, TransferEvent{
			From:     common.BytesToAddress(lg.Topics[1].Bytes()),
			To:       common.BytesToAddress(lg.Topics[2].Bytes()),
			Value:    value,
			TxHash:   lg.TxHash,
			LogIndex: lg.Index,
		})
	}
	return out
}
