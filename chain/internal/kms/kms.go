// Package kms wraps the AWS KMS client used to sign deployment transactions with keys that never
// leave KMS.
package kms

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"math/big"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	kmslib "github.com/aws/aws-sdk-go/service/kms"
)

// Client is the subset of the AWS KMS API used by the deployer.
type Client interface {
	GetPublicKeyWithContext(ctx aws.Context, input *kmslib.GetPublicKeyInput, opts ...request.Option) (*kmslib.GetPublicKeyOutput, error)
	SignWithContext(ctx aws.Context, input *kmslib.SignInput, opts ...request.Option) (*kmslib.SignOutput, error)
}

var _ Client = (*kmslib.KMS)(nil)

// ClientConfig identifies the KMS key and the AWS credentials used to reach it.
type ClientConfig struct {
	KeyID     string
	KeyRegion string
	// AWSProfile is the named profile in the shared AWS config. When empty the default credential
	// chain (environment variables, instance role) is used.
	AWSProfile string
}

func (c ClientConfig) validate() error {
	if c.KeyID == "" {
		return errors.New("KMS key ID is required")
	}
	if c.KeyRegion == "" {
		return errors.New("KMS key region is required")
	}

	return nil
}

// NewClient creates a KMS client for the configured region and profile.
func NewClient(config ClientConfig) (Client, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	opts := session.Options{
		Config: aws.Config{Region: aws.String(config.KeyRegion)},
	}
	if config.AWSProfile != "" {
		opts.Profile = config.AWSProfile
		opts.SharedConfigState = session.SharedConfigEnable
	}

	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, err
	}

	return kmslib.New(sess), nil
}

// SPKI is the ASN.1 SubjectPublicKeyInfo structure KMS returns from GetPublicKey.
type SPKI struct {
	AlgorithmIdentifier pkix.AlgorithmIdentifier
	SubjectPublicKey    asn1.BitString
}

// ECDSASig is the ASN.1 DER encoded signature KMS returns from Sign.
type ECDSASig struct {
	R asn1.RawValue
	S asn1.RawValue
}

// ECDSASigFromInts builds the ASN.1 signature structure from r and s. It is the inverse of the
// conversion applied to KMS responses.
func ECDSASigFromInts(r, s *big.Int) ([]byte, error) {
	return asn1.Marshal(struct {
		R *big.Int
		S *big.Int
	}{r, s})
}
