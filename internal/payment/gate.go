// Package payment implements the micropayment gate in front of record
// creation: quote issuance, proof decoding, transfer verification and
// ledger settlement. The gate holds no cross-request state beyond the
// settlement cache; every request runs its own quote/proof exchange.
package payment

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"

	"github.com/saakshiraut28/roastarena/internal/ledger"
	"github.com/saakshiraut28/roastarena/internal/metrics"
)

// PaymentHeader carries the base64-encoded payment proof.
const PaymentHeader = "X-Payment"

// AcceptPaymentHeader names the ledger a quote can be paid on.
const AcceptPaymentHeader = "X-Accept-Payment"

const settlementContextKey = "roastarena.settlement"

// CreateBody is the request body the gate validates before charging
// anyone: rejecting a missing text after capturing payment would strand
// the payer.
type CreateBody struct {
	Text string `json:"text"`
}

// Settlement is what a successful gate pass leaves on the request
// context for the fulfillment handler.
type Settlement struct {
	Receipt     *Receipt
	Paid        uint64
	Requirement Requirement
}

// Details is the paymentDetails object returned alongside the created
// record.
type Details struct {
	SignatureOrTxID     string `json:"signatureOrTxId"`
	Amount              uint64 `json:"amount"`
	AmountInDisplayUnit string `json:"amountInDisplayUnit"`
	Recipient           string `json:"recipient"`
	ExplorerURL         string `json:"explorerUrl"`
}

// Details renders the settlement for the response body.
func (s *Settlement) Details() Details {
	return Details{
		SignatureOrTxID:     s.Receipt.Signature.String(),
		Amount:              s.Paid,
		AmountInDisplayUnit: FormatSol(s.Paid),
		Recipient:           s.Requirement.Recipient.String(),
		ExplorerURL:         ledger.ExplorerTxURL(s.Receipt.Signature.String(), s.Requirement.Network),
	}
}

// SettlementFrom retrieves the settlement placed on the context by the
// gate middleware. The bool is false when the route was not gated.
func SettlementFrom(c *gin.Context) (*Settlement, bool) {
	v, ok := c.Get(settlementContextKey)
	if !ok {
		return nil, false
	}
	st, ok := v.(*Settlement)
	return st, ok
}

// Gate orchestrates the two-phase exchange: no proof gets a quote,
// a proof gets decoded, verified and settled before the guarded handler
// runs.
type Gate struct {
	requirement Requirement
	settler     *Settler
	cache       *SettlementCache
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets the gate's logger.
func WithLogger(log zerolog.Logger) GateOption {
	return func(g *Gate) {
		g.log = log
	}
}

// WithMetrics wires payment outcome counters.
func WithMetrics(m *metrics.Metrics) GateOption {
	return func(g *Gate) {
		g.metrics = m
	}
}

// WithSettlementCache overrides the default settlement cache.
func WithSettlementCache(cache *SettlementCache) GateOption {
	return func(g *Gate) {
		g.cache = cache
	}
}

// NewGate creates a payment gate charging the given requirement.
func NewGate(requirement Requirement, settler *Settler, opts ...GateOption) *Gate {
	g := &Gate{
		requirement: requirement,
		settler:     settler,
		cache:       NewSettlementCache(defaultCacheTTL),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Requirement returns the quote the gate charges against.
func (g *Gate) Requirement() Requirement {
	return g.requirement
}

// Middleware returns the gin handler enforcing payment. On success it
// stores a Settlement on the context and calls the next handler; on any
// failure it aborts with the mapped status and never lets the guarded
// handler run.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body CreateBody
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil || strings.TrimSpace(body.Text) == "" {
			g.reject(c, NewGateError(ErrTextRequired, "text is required"))
			return
		}

		credential := c.GetHeader(PaymentHeader)
		if credential == "" {
			g.quote(c)
			return
		}

		proof, err := DecodeProof(credential)
		if err != nil {
			g.reject(c, err.(*GateError))
			return
		}

		tx, err := DecodeTransaction(proof.RawTransaction)
		if err != nil {
			g.reject(c, err.(*GateError))
			return
		}

		paid, err := VerifyTransfer(tx, g.requirement)
		if err != nil {
			g.reject(c, err.(*GateError))
			return
		}

		receipt, gerr := g.settleOnce(c.Request.Context(), proof.RawTransaction)
		if gerr != nil {
			g.reject(c, gerr)
			return
		}

		if g.metrics != nil {
			g.metrics.PaymentObserved("settled", "")
		}
		g.log.Info().
			Stringer("signature", receipt.Signature).
			Uint64("lamports", paid).
			Msg("payment settled")

		c.Set(settlementContextKey, &Settlement{
			Receipt:     receipt,
			Paid:        paid,
			Requirement: g.requirement,
		})
		c.Next()
	}
}

// settleOnce settles the raw transaction exactly once per cache window.
// Concurrent duplicates wait for the first attempt; a transaction that
// already settled is refused rather than fulfilled twice.
func (g *Gate) settleOnce(reqCtx context.Context, rawTx []byte) (*Receipt, *GateError) {
	key := SettlementKey(rawTx)

	for {
		status, receipt, done := g.cache.CheckAndMark(key)
		switch status {
		case StatusSettled:
			return nil, NewGateError(ErrProofReplayed, "this payment was already used").
				WithDetail("signature", receipt.Signature.String())

		case StatusInFlight:
			waited, err := g.cache.Wait(reqCtx, key, done)
			if err != nil {
				return nil, NewGateError(ErrConfirmationFailed, "request cancelled while awaiting settlement")
			}
			if waited != nil {
				return nil, NewGateError(ErrProofReplayed, "this payment was already used").
					WithDetail("signature", waited.Signature.String())
			}
			// The other attempt failed without caching; this one may try.
			continue

		default:
			// Settlement is detached from the request context so a client
			// disconnect cannot abandon a transaction that was already
			// broadcast. The per-stage timeouts still bound the work.
			receipt, err := g.settler.Settle(context.WithoutCancel(reqCtx), rawTx)
			if err != nil {
				g.cache.Fail(key, done)
				return nil, err.(*GateError)
			}
			g.cache.Complete(key, receipt, done)
			return receipt, nil
		}
	}
}

func (g *Gate) quote(c *gin.Context) {
	if g.metrics != nil {
		g.metrics.PaymentObserved("quoted", "")
	}
	c.Header(AcceptPaymentHeader, "solana")
	c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
		"error":   "payment required",
		"payment": quotedPayment(g.requirement),
	})
}

func (g *Gate) reject(c *gin.Context, err *GateError) {
	status := StatusCode(err.Code)
	if g.metrics != nil {
		g.metrics.PaymentObserved("rejected", err.Code)
	}
	g.log.Info().Str("code", err.Code).Int("status", status).Msg("payment rejected")

	resp := gin.H{
		"error": err.Message,
		"code":  err.Code,
	}
	if len(err.Details) > 0 {
		resp["details"] = err.Details
	}
	if status == http.StatusPaymentRequired {
		// A rejected payer retries against a fresh quote.
		resp["payment"] = quotedPayment(g.requirement)
	}
	c.AbortWithStatusJSON(status, resp)
}

func quotedPayment(req Requirement) gin.H {
	return gin.H{
		"recipient":           req.Recipient.String(),
		"amount":              req.Lamports,
		"amountInDisplayUnit": req.DisplayAmount,
		"network":             req.Network,
	}
}
