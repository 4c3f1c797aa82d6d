// Package deployer creates contracts from compiled artifacts and verifies the result on chain.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/scholardao/scholardao-deployer/artifact"
	"github.com/scholardao/scholardao-deployer/chain/evm"
	"github.com/scholardao/scholardao-deployer/pkg/logger"
)

// DefaultContract is the contract deployed when a request does not name one.
const DefaultContract = "SimpleScholarDAO"

// Request names the contract to deploy.
type Request struct {
	Contract string `json:"contract"`
}

// Result describes a confirmed deployment. Admin is the account that signed the creation
// transaction.
type Result struct {
	Contract    string         `json:"contract"`
	Address     common.Address `json:"address"`
	Admin       common.Address `json:"admin"`
	TxHash      common.Hash    `json:"txHash"`
	BlockNumber uint64         `json:"blockNumber"`
	GasUsed     uint64         `json:"gasUsed"`
	ChainID     uint64         `json:"chainId"`
	Network     string         `json:"network"`
}

// GasSettings overrides the node's gas estimation and fee suggestion. Zero values keep the node
// defaults. PriceWei selects a legacy transaction and cannot be combined with the EIP-1559 caps.
type GasSettings struct {
	Limit     uint64 `json:"limit,omitempty"`
	PriceWei  uint64 `json:"priceWei,omitempty"`
	FeeCapWei uint64 `json:"feeCapWei,omitempty"`
	TipCapWei uint64 `json:"tipCapWei,omitempty"`
}

// Validate checks that legacy and dynamic fee settings are not mixed.
func (g GasSettings) Validate() error {
	if g.PriceWei > 0 && (g.FeeCapWei > 0 || g.TipCapWei > 0) {
		return errors.New("gas price cannot be combined with fee cap or tip cap")
	}
	if g.FeeCapWei > 0 && g.TipCapWei > g.FeeCapWei {
		return fmt.Errorf("tip cap %d exceeds fee cap %d", g.TipCapWei, g.FeeCapWei)
	}

	return nil
}

func (g GasSettings) apply(opts *bind.TransactOpts) {
	if g.Limit > 0 {
		opts.GasLimit = g.Limit
	}
	if g.PriceWei > 0 {
		opts.GasPrice = new(big.Int).SetUint64(g.PriceWei)
	}
	if g.FeeCapWei > 0 {
		opts.GasFeeCap = new(big.Int).SetUint64(g.FeeCapWei)
	}
	if g.TipCapWei > 0 {
		opts.GasTipCap = new(big.Int).SetUint64(g.TipCapWei)
	}
}

type options struct {
	lggr        logger.Logger
	gas         GasSettings
	explorerURL string
}

// Option configures Deploy.
type Option func(*options)

// WithLogger sets the logger used to report progress.
func WithLogger(lggr logger.Logger) Option {
	return func(o *options) {
		o.lggr = lggr
	}
}

// WithGas overrides gas estimation and fee suggestion.
func WithGas(gas GasSettings) Option {
	return func(o *options) {
		o.gas = gas
	}
}

// WithExplorerURL sets the block explorer base URL used in log output.
func WithExplorerURL(url string) Option {
	return func(o *options) {
		o.explorerURL = strings.TrimRight(url, "/")
	}
}

// Deploy resolves the requested artifact, sends a contract creation transaction signed by the
// chain's deployer key without constructor arguments, waits for chain.Confirm and checks that
// code exists at the new address. It never resends the transaction.
//
// Failures are returned as *Error carrying the Stage that failed.
func Deploy(
	ctx context.Context, chain evm.Chain, registry artifact.Registry, req Request, opts ...Option,
) (Result, error) {
	o := options{lggr: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	name := req.Contract
	if name == "" {
		name = DefaultContract
	}
	lggr := o.lggr.Named("deployer")

	fail := func(stage Stage, txHash common.Hash, err error) (Result, error) {
		return Result{}, &Error{Stage: stage, Contract: name, TxHash: txHash, Err: err}
	}

	a, err := registry.Resolve(name)
	if err != nil {
		return fail(StageResolve, common.Hash{}, err)
	}
	if inputs := a.ConstructorInputs(); len(inputs) > 0 {
		return fail(StageResolve, common.Hash{},
			fmt.Errorf("%w: %s declares %d constructor parameters", ErrConstructorArgs, name, len(inputs)),
		)
	}
	lggr.Infow("Resolved artifact",
		"contract", a.FullyQualifiedName(), "format", a.Format, "path", a.Path, "bytecodeSize", len(a.Bytecode),
	)

	if chain.DeployerKey == nil {
		return fail(StageSubmit, common.Hash{}, ErrNoDeployerKey)
	}
	if err = o.gas.Validate(); err != nil {
		return fail(StageSubmit, common.Hash{}, err)
	}

	txOpts := *chain.DeployerKey
	txOpts.Context = ctx
	o.gas.apply(&txOpts)

	lggr.Debugw("Submitting deployment",
		"network", chain.String(), "from", txOpts.From, "gas", o.gas,
	)

	addr, tx, _, err := bind.DeployContract(&txOpts, a.ABI, a.Bytecode, chain.Client)
	if err != nil {
		return fail(StageSubmit, common.Hash{}, err)
	}
	lggr.Infow("Deployment transaction sent", "tx", tx.Hash(), "nonce", tx.Nonce(), "predictedAddress", addr)

	receipt, err := chain.Confirm(ctx, tx)
	if err != nil {
		return fail(StageConfirm, tx.Hash(), err)
	}
	lggr.Infow("Deployment transaction confirmed",
		"tx", tx.Hash(), "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed,
	)

	if receipt.ContractAddress != addr {
		return fail(StageVerify, tx.Hash(),
			fmt.Errorf("%w: receipt %s, predicted %s", ErrAddressMismatch, receipt.ContractAddress.Hex(), addr.Hex()),
		)
	}

	code, err := chain.Client.CodeAt(ctx, addr, nil)
	if err != nil {
		return fail(StageVerify, tx.Hash(), fmt.Errorf("failed to read code at %s: %w", addr.Hex(), err))
	}
	if len(code) == 0 {
		return fail(StageVerify, tx.Hash(), fmt.Errorf("%w: %s", ErrNoCode, addr.Hex()))
	}

	res := Result{
		Contract:    name,
		Address:     addr,
		Admin:       txOpts.From,
		TxHash:      tx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Network:     chain.Name(),
	}
	if chain.ChainID != nil {
		res.ChainID = chain.ChainID.Uint64()
	}

	fields := []any{"contract", name, "address", addr, "admin", res.Admin}
	if o.explorerURL != "" {
		fields = append(fields, "explorer", o.explorerURL+"/address/"+addr.Hex())
	}
	lggr.Infow("Contract deployed", fields...)

	return res, nil
}
