package deployer

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Stage names the step of a deployment that failed.
type Stage string

const (
	// StageResolve covers artifact lookup and constructor checks. Nothing was sent.
	StageResolve Stage = "resolve"
	// StageSubmit covers gas estimation, signing and broadcasting. The transaction may not exist.
	StageSubmit Stage = "submit"
	// StageConfirm covers waiting for the receipt. The transaction was broadcast.
	StageConfirm Stage = "confirm"
	// StageVerify covers checks on the mined contract.
	StageVerify Stage = "verify"
)

var (
	// ErrConstructorArgs is returned when the artifact's constructor declares parameters.
	ErrConstructorArgs = errors.New("constructor requires arguments")
	// ErrNoCode is returned when no runtime code exists at the deployed address.
	ErrNoCode = errors.New("no code at deployed address")
	// ErrAddressMismatch is returned when the receipt reports a contract address other than the
	// one derived from the sender and nonce.
	ErrAddressMismatch = errors.New("receipt contract address does not match the predicted address")
	// ErrNoDeployerKey is returned when the chain has no deployer key.
	ErrNoDeployerKey = errors.New("chain has no deployer key")
)

// Error is a failed deployment. TxHash is set once the transaction has been broadcast.
type Error struct {
	Stage    Stage
	Contract string
	TxHash   common.Hash
	Err      error
}

func (e *Error) Error() string {
	if e.TxHash == (common.Hash{}) {
		return fmt.Sprintf("deploy %s: %s: %v", e.Contract, e.Stage, e.Err)
	}

	return fmt.Sprintf("deploy %s: %s (tx %s): %v", e.Contract, e.Stage, e.TxHash.Hex(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StageOf returns the stage at which err occurred, if err is a deployment Error.
func StageOf(err error) (Stage, bool) {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Stage, true
	}

	return "", false
}
