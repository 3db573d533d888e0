package payment

import (
	"context"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/saakshiraut28/roastarena/internal/ledger"
)

// Receipt is the proof that a payment landed on the ledger. It is passed
// downstream to the response and the record store; the gate itself keeps
// no copy beyond the settlement cache window.
type Receipt struct {
	Signature   solana.Signature
	Commitment  rpc.CommitmentType
	ConfirmedAt time.Time
}

// Settler broadcasts a verified transaction and waits for it to reach
// the configured commitment level. It performs no retries: resubmitting
// a signed transaction risks a duplicate spend attempt, so retrying is
// the client's decision.
type Settler struct {
	client           ledger.Client
	commitment       rpc.CommitmentType
	broadcastTimeout time.Duration
	confirmTimeout   time.Duration
	pollInterval     time.Duration
	log              zerolog.Logger
}

// SettlerOption configures a Settler.
type SettlerOption func(*Settler)

// WithPollInterval overrides the confirmation poll interval.
func WithPollInterval(d time.Duration) SettlerOption {
	return func(s *Settler) {
		s.pollInterval = d
	}
}

// WithSettlerLogger sets the settler's logger.
func WithSettlerLogger(log zerolog.Logger) SettlerOption {
	return func(s *Settler) {
		s.log = log
	}
}

// NewSettler creates a settler. Broadcast and confirmation timeouts are
// independent: broadcast bounds the submission RPC call, confirmation
// bounds the status-polling loop.
func NewSettler(client ledger.Client, commitment rpc.CommitmentType, broadcastTimeout, confirmTimeout time.Duration, opts ...SettlerOption) *Settler {
	s := &Settler{
		client:           client,
		commitment:       commitment,
		broadcastTimeout: broadcastTimeout,
		confirmTimeout:   confirmTimeout,
		pollInterval:     500 * time.Millisecond,
		log:              zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settle broadcasts the raw transaction and blocks until it is confirmed
// at the settler's commitment level or a timeout elapses. A timeout is a
// conservative false-negative: the transaction may still land later, but
// the caller must not perform the paid side effect.
func (s *Settler) Settle(ctx context.Context, rawTx []byte) (*Receipt, error) {
	bctx, cancel := context.WithTimeout(ctx, s.broadcastTimeout)
	defer cancel()

	sig, err := s.client.SendRawTransactionWithOpts(bctx, rawTx, rpc.TransactionOpts{
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("transaction broadcast failed")
		return nil, NewGateError(ErrBroadcastFailed, "transaction was rejected at submission")
	}

	if err := s.awaitConfirmation(ctx, sig); err != nil {
		return nil, err
	}

	return &Receipt{
		Signature:   sig,
		Commitment:  s.commitment,
		ConfirmedAt: time.Now().UTC(),
	}, nil
}

func (s *Settler) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	cctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cctx.Done():
			s.log.Warn().Stringer("signature", sig).Msg("confirmation wait timed out")
			return NewGateError(ErrConfirmationFailed, "transaction was not confirmed in time").
				WithDetail("signature", sig.String())
		case <-ticker.C:
			out, err := s.client.GetSignatureStatuses(cctx, true, sig)
			if err != nil {
				// Transient RPC failures are retried until the deadline.
				s.log.Debug().Err(err).Msg("signature status poll failed")
				continue
			}
			if len(out.Value) == 0 || out.Value[0] == nil {
				continue
			}
			status := out.Value[0]
			if status.Err != nil {
				s.log.Warn().Stringer("signature", sig).Interface("txErr", status.Err).Msg("transaction rejected at confirmation")
				return NewGateError(ErrConfirmationFailed, "transaction was rejected by the ledger").
					WithDetail("signature", sig.String())
			}
			if commitmentReached(status.ConfirmationStatus, s.commitment) {
				return nil
			}
		}
	}
}

// commitmentReached reports whether an observed confirmation status
// satisfies the required commitment level.
func commitmentReached(observed rpc.ConfirmationStatusType, required rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case string(rpc.ConfirmationStatusProcessed):
			return 1
		case string(rpc.ConfirmationStatusConfirmed):
			return 2
		case string(rpc.ConfirmationStatusFinalized):
			return 3
		}
		return 0
	}
	return rank(string(observed)) >= rank(string(required))
}
