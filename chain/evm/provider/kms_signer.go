package provider

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	kmslib "github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/scholardao/scholardao-deployer/chain/internal/kms"
)

// KMSSigner signs EVM transactions and digests with an AWS KMS secp256k1 key.
type KMSSigner struct {
	client   kms.Client
	kmsKeyID string

	mu     sync.Mutex
	pubKey *ecdsa.PublicKey // cached after the first GetPublicKey call
}

// NewKMSSigner creates a new KMSSigner instance using the provided KMS key ID, region, and
// AWS profile. Pass an empty awsProfile to use the default AWS credential chain.
func NewKMSSigner(keyID, keyRegion string, awsProfile string) (*KMSSigner, error) {
	client, err := kms.NewClient(kms.ClientConfig{
		KeyID:      keyID,
		KeyRegion:  keyRegion,
		AWSProfile: awsProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KMS Client: %w", err)
	}

	return newKMSSignerWithClient(client, keyID), nil
}

func newKMSSignerWithClient(client kms.Client, keyID string) *KMSSigner {
	return &KMSSigner{client: client, kmsKeyID: keyID}
}

// GetECDSAPublicKey returns the ECDSA public key of the KMS key.
func (s *KMSSigner) GetECDSAPublicKey(ctx context.Context) (*ecdsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pubKey != nil {
		return s.pubKey, nil
	}

	out, err := s.client.GetPublicKeyWithContext(ctx, &kmslib.GetPublicKeyInput{
		KeyId: aws.String(s.kmsKeyID),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot get public key from KMS for KeyId=%s: %w", s.kmsKeyID, err)
	}

	var spki kms.SPKI
	if _, err = asn1.Unmarshal(out.PublicKey, &spki); err != nil {
		return nil, fmt.Errorf("cannot parse asn1 public key for KeyId=%s: %w", s.kmsKeyID, err)
	}

	pubKey, err := crypto.UnmarshalPubkey(spki.SubjectPublicKey.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cannot unmarshal public key bytes: %w", err)
	}
	s.pubKey = pubKey

	return pubKey, nil
}

// GetAddress returns the EVM address of the KMS key.
func (s *KMSSigner) GetAddress(ctx context.Context) (common.Address, error) {
	pubKey, err := s.GetECDSAPublicKey(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// GetTransactOpts returns transactor options whose Signer calls KMS for every transaction. ctx
// bounds the public key lookup and every later signing call.
func (s *KMSSigner) GetTransactOpts(
	ctx context.Context, chainID *big.Int,
) (*bind.TransactOpts, error) {
	if chainID == nil {
		return nil, errors.New("chainID is required")
	}

	from, err := s.GetAddress(ctx)
	if err != nil {
		return nil, err
	}

	signer := types.LatestSignerForChainID(chainID)

	return &bind.TransactOpts{
		From: from,
		Signer: func(address common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if address != from {
				return nil, bind.ErrNotAuthorized
			}

			sig, err := s.SignHash(ctx, signer.Hash(tx).Bytes())
			if err != nil {
				return nil, fmt.Errorf("failed to sign tx %s: %w", tx.Hash().Hex(), err)
			}

			return tx.WithSignature(signer, sig)
		},
		Context: ctx,
	}, nil
}

// SignHash signs a 32 byte digest with the KMS key and returns a 65 byte [R || S || V] signature.
func (s *KMSSigner) SignHash(ctx context.Context, hash []byte) ([]byte, error) {
	pubKey, err := s.GetECDSAPublicKey(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mType = kmslib.MessageTypeDigest
		algo  = kmslib.SigningAlgorithmSpecEcdsaSha256
	)

	out, err := s.client.SignWithContext(ctx, &kmslib.SignInput{
		KeyId:            &s.kmsKeyID,
		SigningAlgorithm: &algo,
		MessageType:      &mType,
		Message:          hash,
	})
	if err != nil {
		return nil, fmt.Errorf("call to kms.Sign() failed: %w", err)
	}

	sig, err := kmsToEVMSig(out.Signature, crypto.FromECDSAPub(pubKey), hash)
	if err != nil {
		return nil, fmt.Errorf("failed to convert KMS signature to Ethereum signature: %w", err)
	}

	return sig, nil
}

var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Div(secp256k1N, big.NewInt(2))
)

// kmsToEVMSig converts a DER encoded KMS signature into the 65 byte EVM form. S is normalised to
// the lower half of the curve order (EIP-2) and the recovery id is found by trial.
func kmsToEVMSig(kmsSig, ecdsaPubKeyBytes, hash []byte) ([]byte, error) {
	var ecdsaSig kms.ECDSASig
	if _, err := asn1.Unmarshal(kmsSig, &ecdsaSig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal KMS signature: %w", err)
	}

	rBytes := ecdsaSig.R.Bytes
	sBytes := ecdsaSig.S.Bytes

	sBigInt := new(big.Int).SetBytes(sBytes)
	if sBigInt.Cmp(secp256k1HalfN) > 0 {
		sBytes = new(big.Int).Sub(secp256k1N, sBigInt).Bytes()
	}

	// R may alias kmsSig, so the signature is built in a fresh buffer.
	rs := make([]byte, 0, 65)
	rs = append(rs, padTo32Bytes(rBytes)...)
	rs = append(rs, padTo32Bytes(sBytes)...)
	for _, v := range []byte{0, 1} {
		sig := append(rs[:64:64], v)

		recovered, err := crypto.Ecrecover(hash, sig)
		if err != nil {
			return nil, fmt.Errorf("failed to recover signature with v=%d: %w", v, err)
		}
		if bytes.Equal(recovered, ecdsaPubKeyBytes) {
			return sig, nil
		}
	}

	return nil, errors.New("cannot reconstruct public key from sig")
}

// padTo32Bytes left pads buffer with zeros to 32 bytes after trimming leading zeros.
func padTo32Bytes(buffer []byte) []byte {
	buffer = bytes.TrimLeft(buffer, "\x00")
	if len(buffer) >= 32 {
		return buffer
	}

	return append(make([]byte, 32-len(buffer)), buffer...)
}
