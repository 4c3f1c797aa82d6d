package kms

import (
	"encoding/asn1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ClientConfig_validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    ClientConfig
		wantErr string
	}{
		{
			name: "valid config",
			give: ClientConfig{KeyID: "test-key-id", KeyRegion: "us-west-2"},
		},
		{
			name:    "missing KeyID",
			give:    ClientConfig{KeyRegion: "us-west-2"},
			wantErr: "KMS key ID is required",
		},
		{
			name:    "missing KeyRegion",
			give:    ClientConfig{KeyID: "test-key-id"},
			wantErr: "KMS key region is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.give.validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_NewClient(t *testing.T) {
	t.Parallel()

	got, err := NewClient(ClientConfig{KeyID: "test-key-id", KeyRegion: "us-west-2"})
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = NewClient(ClientConfig{KeyRegion: "us-west-2"})
	require.ErrorContains(t, err, "KMS key ID is required")
}

func Test_ECDSASigFromInts(t *testing.T) {
	t.Parallel()

	r, s := big.NewInt(12345), big.NewInt(67890)

	der, err := ECDSASigFromInts(r, s)
	require.NoError(t, err)

	var sig ECDSASig
	_, err = asn1.Unmarshal(der, &sig)
	require.NoError(t, err)

	assert.Equal(t, r, new(big.Int).SetBytes(sig.R.Bytes))
	assert.Equal(t, s, new(big.Int).SetBytes(sig.S.Bytes))
}
