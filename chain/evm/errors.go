package evm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrTxNil is returned when a confirm function is called without a transaction.
	ErrTxNil = errors.New("tx was nil, nothing to confirm")
	// ErrConfirmTimeout is returned when a transaction did not reach the required confirmation
	// depth before the confirmation deadline.
	ErrConfirmTimeout = errors.New("timed out waiting for confirmation")
)

// RevertError is returned when a transaction was mined but its receipt reports a failed status.
type RevertError struct {
	TxHash      common.Hash
	BlockNumber uint64
	// Reason is the decoded revert reason. It is empty when the node did not return one.
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("tx %s reverted in block %d, could not decode error reason",
			e.TxHash.Hex(), e.BlockNumber,
		)
	}

	return fmt.Sprintf("tx %s reverted in block %d: %s", e.TxHash.Hex(), e.BlockNumber, e.Reason)
}
