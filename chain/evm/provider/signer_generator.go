package provider

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignerGenerator produces geth's *bind.TransactOpts for the deployer account and exposes the
// account's address before any transaction is built.
type SignerGenerator interface {
	Generate(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
	Address(ctx context.Context) (common.Address, error)
}

var (
	_ SignerGenerator = (*transactorFromKey)(nil)
	_ SignerGenerator = (*transactorFromKMSSigner)(nil)
)

// GeneratorOptions contains configuration options for the SignerGenerator.
type GeneratorOptions struct {
	gasLimit uint64
}

// GeneratorOption is a function that modifies GeneratorOptions.
type GeneratorOption func(*GeneratorOptions)

// WithGasLimit fixes the gas limit on generated transactors. Zero leaves gas estimation to the
// node.
func WithGasLimit(gasLimit uint64) GeneratorOption {
	return func(opts *GeneratorOptions) {
		opts.gasLimit = gasLimit
	}
}

func applyGeneratorOptions(opts []GeneratorOption) GeneratorOptions {
	o := GeneratorOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// transactorFromKey is a SignerGenerator backed by an in-memory ECDSA key. The key is produced
// lazily by loadKey the first time it is needed and reused afterwards.
type transactorFromKey struct {
	loadKey  func() (*ecdsa.PrivateKey, error)
	gasLimit uint64

	once sync.Once
	key  *ecdsa.PrivateKey
	err  error
}

func (g *transactorFromKey) privateKey() (*ecdsa.PrivateKey, error) {
	g.once.Do(func() {
		g.key, g.err = g.loadKey()
	})

	return g.key, g.err
}

// Generate returns bind transactor options signing with the key for chainID.
func (g *transactorFromKey) Generate(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	privKey, err := g.privateKey()
	if err != nil {
		return nil, err
	}

	transactor, err := bind.NewKeyedTransactorWithChainID(privKey, chainID)
	if err != nil {
		return nil, err
	}
	if g.gasLimit > 0 {
		transactor.GasLimit = g.gasLimit
	}
	transactor.Context = ctx

	return transactor, nil
}

// Address returns the address derived from the key.
func (g *transactorFromKey) Address(_ context.Context) (common.Address, error) {
	privKey, err := g.privateKey()
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(privKey.PublicKey), nil
}

// TransactorFromRaw returns a generator which signs with a hex encoded private key. A leading
// "0x" is accepted.
func TransactorFromRaw(privKey string, opts ...GeneratorOption) SignerGenerator {
	o := applyGeneratorOptions(opts)

	return &transactorFromKey{
		gasLimit: o.gasLimit,
		loadKey: func() (*ecdsa.PrivateKey, error) {
			key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privKey), "0x"))
			if err != nil {
				return nil, fmt.Errorf("failed to convert private key to ECDSA: %w", err)
			}

			return key, nil
		},
	}
}

// TransactorRandom returns a generator which signs with a random key. The key is generated on
// first use and the same key is used for subsequent calls.
func TransactorRandom() SignerGenerator {
	return &transactorFromKey{
		loadKey: func() (*ecdsa.PrivateKey, error) {
			key, err := crypto.GenerateKey()
			if err != nil {
				return nil, fmt.Errorf("failed to generate random private key: %w", err)
			}

			return key, nil
		},
	}
}

// TransactorFromMnemonic returns a generator which signs with the account at
// m/44'/60'/0'/0/index derived from a BIP-39 mnemonic, the same derivation Hardhat and anvil use
// for their default accounts.
func TransactorFromMnemonic(mnemonic string, index uint32, opts ...GeneratorOption) SignerGenerator {
	o := applyGeneratorOptions(opts)

	return &transactorFromKey{
		gasLimit: o.gasLimit,
		loadKey: func() (*ecdsa.PrivateKey, error) {
			return deriveMnemonicKey(mnemonic, index)
		},
	}
}

// deriveMnemonicKey walks the BIP-44 Ethereum path for the account at index.
func deriveMnemonicKey(mnemonic string, index uint32) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if mnemonic == "" {
		return nil, errors.New("mnemonic is empty")
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}

	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + 60,
		hdkeychain.HardenedKeyStart,
		0,
		index,
	}
	for _, i := range path {
		key, err = key.Derive(i)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child key %d: %w", i, err)
		}
	}

	btcecKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}

	return crypto.ToECDSA(btcecKey.Serialize())
}

// TransactorFromKMS creates a SignerGenerator that uses a KMS key to sign transactions.
//
// It requires the KMS key ID, region, and optionally an AWS profile name. If the AWS profile
// name is not provided, it defaults to using the environment variables to determine the AWS
// profile.
func TransactorFromKMS(keyID, keyRegion, awsProfileName string) (SignerGenerator, error) {
	signer, err := NewKMSSigner(keyID, keyRegion, awsProfileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create KMS signer: %w", err)
	}

	return &transactorFromKMSSigner{
		signer: signer,
	}, nil
}

// TransactorFromKMSSigner creates a SignerGenerator from an existing KMSSigner instance.
func TransactorFromKMSSigner(signer *KMSSigner) SignerGenerator {
	return &transactorFromKMSSigner{
		signer: signer,
	}
}

// transactorFromKMSSigner is a SignerGenerator that creates a transactor using a KMS signer.
type transactorFromKMSSigner struct {
	signer *KMSSigner
}

// Generate uses KMS to create a bind.TransactOpts instance for signing transactions.
func (g *transactorFromKMSSigner) Generate(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	transactor, err := g.signer.GetTransactOpts(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transact opts from KMS signer: %w", err)
	}

	return transactor, nil
}

// Address returns the address of the KMS key.
func (g *transactorFromKMSSigner) Address(ctx context.Context) (common.Address, error) {
	return g.signer.GetAddress(ctx)
}
