package provider

import (
	"crypto/ecdsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	kmslib "github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"

	"github.com/scholardao/scholardao-deployer/chain/internal/kms"
)

// The default Hardhat and anvil development account.
var (
	testMnemonic   = "test test test test test test test test test test test junk"
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr0      = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testAddr1      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// testChainIDBig is the chain ID of a local anvil node.
var testChainIDBig = big.NewInt(31337)

// Variables used for testing the KMS provider.
var (
	testKMSKeyID       = "1234567-1234-1234-1234-123456789012"
	testKMSKeyRegion   = "ap-southeast-1"
	testKMSKeyIDAWSStr = aws.String(testKMSKeyID)
)

var (
	// testDeployCode is init code that deploys a 10 byte runtime which returns 1.
	testDeployCode = hexutil.MustDecode("0x600a600c600039600a6000f3600160005260206000f3")
	// testRevertCode is init code that reverts without data.
	testRevertCode = hexutil.MustDecode("0x60006000fd")
)

var (
	oidECPublicKey = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidSecp256k1   = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
)

// testKMSKey generates a secp256k1 key and returns it with its SubjectPublicKeyInfo encoding, as
// returned by KMS GetPublicKey.
func testKMSKey(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	params, err := asn1.Marshal(oidSecp256k1)
	require.NoError(t, err)

	pub := crypto.FromECDSAPub(&key.PublicKey)
	spki, err := asn1.Marshal(kms.SPKI{
		AlgorithmIdentifier: pkix.AlgorithmIdentifier{
			Algorithm:  oidECPublicKey,
			Parameters: asn1.RawValue{FullBytes: params},
		},
		SubjectPublicKey: asn1.BitString{Bytes: pub, BitLength: len(pub) * 8},
	})
	require.NoError(t, err)

	return key, spki
}

// testKMSSign returns a function which signs the input digest with key and DER encodes the
// signature the way KMS Sign does.
func testKMSSign(t *testing.T, key *ecdsa.PrivateKey) func(*kmslib.SignInput) *kmslib.SignOutput {
	t.Helper()

	return func(in *kmslib.SignInput) *kmslib.SignOutput {
		sig, err := crypto.Sign(in.Message, key)
		require.NoError(t, err)

		der, err := kms.ECDSASigFromInts(
			new(big.Int).SetBytes(sig[:32]),
			new(big.Int).SetBytes(sig[32:64]),
		)
		require.NoError(t, err)

		return &kmslib.SignOutput{Signature: der}
	}
}

// newTestBackend starts a simulated backend with key prefunded.
func newTestBackend(t *testing.T, key *ecdsa.PrivateKey) *SimClient {
	t.Helper()

	backend := simulated.NewBackend(types.GenesisAlloc{
		crypto.PubkeyToAddress(key.PublicKey): {Balance: prefundAmountWei},
	})
	t.Cleanup(func() { _ = backend.Close() })
	backend.Commit()

	return NewSimClient(t, backend)
}

// sendCreateTx signs and sends a contract creation transaction with a fixed gas limit.
func sendCreateTx(t *testing.T, client *SimClient, key *ecdsa.PrivateKey, code []byte) *types.Transaction {
	t.Helper()

	ctx := t.Context()
	nonce, err := client.PendingNonceAt(ctx, crypto.PubkeyToAddress(key.PublicKey))
	require.NoError(t, err)
	gasPrice, err := client.SuggestGasPrice(ctx)
	require.NoError(t, err)

	tx, err := types.SignTx(
		types.NewContractCreation(nonce, big.NewInt(0), 200_000, gasPrice, code),
		types.LatestSignerForChainID(simChainID),
		key,
	)
	require.NoError(t, err)
	require.NoError(t, client.SendTransaction(ctx, tx))

	return tx
}
