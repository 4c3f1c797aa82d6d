package provider

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholardao/scholardao-deployer/chain/evm"
)

func Test_ConfirmFuncGeth_Generate(t *testing.T) {
	t.Parallel()

	_, err := ConfirmFuncGeth(time.Second).Generate("test", nil, common.Address{})
	require.ErrorContains(t, err, "client is required")
}

func Test_ConfirmFuncGeth_ConfirmFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		giveTimeout       time.Duration
		giveConfirmations uint64
		giveCode          []byte
		giveCommits       uint64
		giveNilTx         bool
		wantErrIs         error
		wantRevert        bool
	}{
		{
			name:        "confirms a mined transaction",
			giveTimeout: time.Minute,
			giveCode:    testDeployCode,
			giveCommits: 1,
		},
		{
			name:      "nil transaction",
			giveNilTx: true,
			wantErrIs: evm.ErrTxNil,
		},
		{
			name:        "times out when the transaction is never mined",
			giveTimeout: 100 * time.Millisecond,
			giveCode:    testDeployCode,
			wantErrIs:   evm.ErrConfirmTimeout,
		},
		{
			name:        "reports a reverted transaction",
			giveTimeout: time.Minute,
			giveCode:    testRevertCode,
			giveCommits: 1,
			wantRevert:  true,
		},
		{
			name:              "waits for the confirmation depth",
			giveTimeout:       time.Minute,
			giveConfirmations: 3,
			giveCode:          testDeployCode,
			giveCommits:       3,
		},
		{
			name:              "times out before reaching the confirmation depth",
			giveTimeout:       200 * time.Millisecond,
			giveConfirmations: 3,
			giveCode:          testDeployCode,
			giveCommits:       1,
			wantErrIs:         evm.ErrConfirmTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			key, err := crypto.GenerateKey()
			require.NoError(t, err)

			client := newTestBackend(t, key)

			confirm, err := ConfirmFuncGeth(tt.giveTimeout,
				WithTickInterval(10*time.Millisecond),
				WithConfirmations(tt.giveConfirmations),
			).Generate("simulated", client, crypto.PubkeyToAddress(key.PublicKey))
			require.NoError(t, err)

			var tx *types.Transaction
			if !tt.giveNilTx {
				tx = sendCreateTx(t, client, key, tt.giveCode)
				client.CommitN(tt.giveCommits)
			}

			receipt, err := confirm(t.Context(), tx)

			switch {
			case tt.wantErrIs != nil:
				require.ErrorIs(t, err, tt.wantErrIs)
			case tt.wantRevert:
				var revertErr *evm.RevertError
				require.ErrorAs(t, err, &revertErr)
				assert.Equal(t, tx.Hash(), revertErr.TxHash)
				require.NotNil(t, receipt)
				assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
			default:
				require.NoError(t, err)
				require.NotNil(t, receipt)
				assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
				assert.NotEqual(t, common.Address{}, receipt.ContractAddress)
			}
		})
	}
}

func Test_ConfirmFuncGeth_ConfirmFunc_parentCanceled(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	client := newTestBackend(t, key)
	confirm, err := ConfirmFuncGeth(time.Minute, WithTickInterval(10*time.Millisecond)).
		Generate("simulated", client, crypto.PubkeyToAddress(key.PublicKey))
	require.NoError(t, err)

	tx := sendCreateTx(t, client, key, testDeployCode)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = confirm(ctx, tx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, evm.ErrConfirmTimeout))
}

func Test_WaitMinedWithInterval(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	client := newTestBackend(t, key)
	tx := sendCreateTx(t, client, key, testDeployCode)

	go func() {
		time.Sleep(50 * time.Millisecond)
		client.Commit()
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	receipt, err := WaitMinedWithInterval(ctx, 10*time.Millisecond, client, tx.Hash())
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), receipt.TxHash)
}

// reorgClient serves scripted receipts for any tx hash. Each TransactionReceipt call consumes the
// next entry of receipts, repeating the last one; a nil entry answers ethereum.NotFound. The
// chain head is always far past the inclusion block.
type reorgClient struct {
	evm.OnchainClient

	mu       sync.Mutex
	receipts []*types.Receipt
	calls    int
}

func (c *reorgClient) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.receipts[min(c.calls, len(c.receipts)-1)]
	c.calls++
	if r == nil {
		return nil, ethereum.NotFound
	}

	return r, nil
}

func (c *reorgClient) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100)}, nil
}

func (c *reorgClient) receiptCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}

func Test_ConfirmFuncGeth_ConfirmFunc_reorg(t *testing.T) {
	t.Parallel()

	receiptIn := func(block int64, hash string) *types.Receipt {
		return &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			BlockNumber: big.NewInt(block),
			BlockHash:   common.HexToHash(hash),
		}
	}

	tests := []struct {
		name          string
		giveReceipts  []*types.Receipt
		wantBlockHash common.Hash
		wantCalls     int
	}{
		{
			name:          "stable inclusion block",
			giveReceipts:  []*types.Receipt{receiptIn(5, "0xa")},
			wantBlockHash: common.HexToHash("0xa"),
			wantCalls:     2,
		},
		{
			name: "restarts when the inclusion block changes",
			giveReceipts: []*types.Receipt{
				receiptIn(5, "0xa"),
				receiptIn(6, "0xb"),
				receiptIn(6, "0xb"),
				receiptIn(6, "0xb"),
			},
			wantBlockHash: common.HexToHash("0xb"),
			wantCalls:     4,
		},
		{
			name: "restarts when the receipt disappears",
			giveReceipts: []*types.Receipt{
				receiptIn(5, "0xa"),
				nil,
				receiptIn(7, "0xc"),
				receiptIn(7, "0xc"),
			},
			wantBlockHash: common.HexToHash("0xc"),
			wantCalls:     4,
		},
		{
			name: "restarts on every reorg until stable",
			giveReceipts: []*types.Receipt{
				receiptIn(5, "0xa"),
				receiptIn(5, "0xd"),
				receiptIn(5, "0xd"),
				nil,
				receiptIn(8, "0xe"),
				receiptIn(8, "0xe"),
			},
			wantBlockHash: common.HexToHash("0xe"),
			wantCalls:     6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &reorgClient{receipts: tt.giveReceipts}
			confirm, err := ConfirmFuncGeth(time.Minute,
				WithTickInterval(time.Millisecond),
				WithConfirmations(3),
			).Generate("test", client, common.Address{})
			require.NoError(t, err)

			tx := types.NewTx(&types.LegacyTx{Nonce: 1, Gas: 21000, GasPrice: big.NewInt(1)})
			got, err := confirm(t.Context(), tx)
			require.NoError(t, err)

			assert.Equal(t, tt.wantBlockHash, got.BlockHash)
			assert.Equal(t, tt.wantCalls, client.receiptCalls())
		})
	}
}
