package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// ContractCaller is an interface that defines the CallContract method. This is copied from the
// go-ethereum package method to limit the scope of dependencies provided to the functions.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// getErrorReasonFromTx replays a failed transaction with eth_call at the block it was mined in
// and extracts the revert reason from the returned error.
func getErrorReasonFromTx(
	ctx context.Context,
	caller ContractCaller,
	from common.Address,
	tx *types.Transaction,
	receipt *types.Receipt,
) (string, error) {
	call := ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Data:  tx.Data(),
		Value: tx.Value(),
		Gas:   tx.Gas(),
	}
	if tx.Type() == types.LegacyTxType {
		call.GasPrice = tx.GasPrice()
	} else {
		call.GasFeeCap = tx.GasFeeCap()
		call.GasTipCap = tx.GasTipCap()
	}

	_, err := caller.CallContract(ctx, call, receipt.BlockNumber)
	if err == nil {
		return "", fmt.Errorf("tx %s reverted with no reason", tx.Hash().Hex())
	}

	reason, perr := getJSONErrorData(err)
	if perr == nil && reason != "" {
		return reason, nil
	}

	return err.Error(), nil
}

// getJSONErrorData extracts the revert reason carried by a JSON-RPC error. ABI encoded
// Error(string) payloads are decoded, anything else is returned as is.
func getJSONErrorData(err error) (string, error) {
	if err == nil {
		return "", errors.New("cannot parse nil error")
	}

	// The JSON error type is private in go-ethereum.
	//
	// https://github.com/ethereum/go-ethereum/blob/0983cd789ee1905aedaed96f72793e5af8466f34/rpc/json.go#L140
	type jsonError interface {
		Error() string
		ErrorCode() int
		ErrorData() any
	}

	var jerr jsonError
	if !errors.As(err, &jerr) {
		return "", fmt.Errorf("error must be of type jsonError: %w", err)
	}

	if jerr.ErrorData() == nil {
		if strings.Contains(jerr.Error(), "missing trie node") {
			return "", errors.New("missing trie node, likely due to not using an archive node")
		}

		return jerr.Error(), nil
	}

	data := fmt.Sprintf("%v", jerr.ErrorData())
	if raw, derr := hexutil.Decode(data); derr == nil {
		if reason, uerr := abi.UnpackRevert(raw); uerr == nil {
			return reason, nil
		}
	}

	return data, nil
}
