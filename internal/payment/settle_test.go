package payment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saakshiraut28/roastarena/internal/payment"
)

// fakeLedger scripts the RPC responses the settler sees. Each status
// poll consumes the next entry of statuses; the last entry repeats.
type fakeLedger struct {
	mu        sync.Mutex
	sendErr   error
	signature solana.Signature
	statuses  []*rpc.SignatureStatusesResult
	sendCalls int
	pollCalls int
}

func (f *fakeLedger) SendRawTransactionWithOpts(_ context.Context, _ []byte, _ rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return f.signature, nil
}

func (f *fakeLedger) GetSignatureStatuses(_ context.Context, _ bool, _ ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	var status *rpc.SignatureStatusesResult
	if len(f.statuses) > 0 {
		status = f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
	}
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{status},
	}, nil
}

func confirmedStatus() *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}
}

func finalizedStatus() *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusFinalized}
}

func newTestSettler(client *fakeLedger, commitment rpc.CommitmentType, confirmTimeout time.Duration) *payment.Settler {
	return payment.NewSettler(client, commitment, time.Second, confirmTimeout,
		payment.WithPollInterval(time.Millisecond))
}

func TestSettlerSettle(t *testing.T) {
	sig := solana.Signature{0x42}

	t.Run("confirms after pending polls", func(t *testing.T) {
		client := &fakeLedger{
			signature: sig,
			statuses:  []*rpc.SignatureStatusesResult{nil, nil, confirmedStatus()},
		}
		settler := newTestSettler(client, rpc.CommitmentConfirmed, time.Second)

		receipt, err := settler.Settle(context.Background(), []byte("tx"))
		require.NoError(t, err)
		assert.Equal(t, sig, receipt.Signature)
		assert.Equal(t, rpc.CommitmentConfirmed, receipt.Commitment)
		assert.False(t, receipt.ConfirmedAt.IsZero())
		assert.Equal(t, 1, client.sendCalls)
	})

	t.Run("broadcast failure", func(t *testing.T) {
		client := &fakeLedger{sendErr: assert.AnError}
		settler := newTestSettler(client, rpc.CommitmentConfirmed, time.Second)

		_, err := settler.Settle(context.Background(), []byte("tx"))
		assertGateCode(t, err, payment.ErrBroadcastFailed)
	})

	t.Run("confirmation timeout, no resubmission", func(t *testing.T) {
		client := &fakeLedger{signature: sig}
		settler := newTestSettler(client, rpc.CommitmentConfirmed, 30*time.Millisecond)

		_, err := settler.Settle(context.Background(), []byte("tx"))
		assertGateCode(t, err, payment.ErrConfirmationFailed)
		assert.Equal(t, 1, client.sendCalls)
	})

	t.Run("rejected at confirmation", func(t *testing.T) {
		client := &fakeLedger{
			signature: sig,
			statuses: []*rpc.SignatureStatusesResult{
				{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
			},
		}
		settler := newTestSettler(client, rpc.CommitmentConfirmed, time.Second)

		_, err := settler.Settle(context.Background(), []byte("tx"))
		assertGateCode(t, err, payment.ErrConfirmationFailed)
	})

	t.Run("finalized commitment waits past confirmed", func(t *testing.T) {
		client := &fakeLedger{
			signature: sig,
			statuses:  []*rpc.SignatureStatusesResult{confirmedStatus(), confirmedStatus(), finalizedStatus()},
		}
		settler := newTestSettler(client, rpc.CommitmentFinalized, time.Second)

		receipt, err := settler.Settle(context.Background(), []byte("tx"))
		require.NoError(t, err)
		assert.Equal(t, rpc.CommitmentFinalized, receipt.Commitment)
		assert.GreaterOrEqual(t, client.pollCalls, 3)
	})

	t.Run("confirmed commitment satisfied by finalized", func(t *testing.T) {
		client := &fakeLedger{
			signature: sig,
			statuses:  []*rpc.SignatureStatusesResult{finalizedStatus()},
		}
		settler := newTestSettler(client, rpc.CommitmentConfirmed, time.Second)

		_, err := settler.Settle(context.Background(), []byte("tx"))
		require.NoError(t, err)
	})
}
