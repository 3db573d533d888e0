package records

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"

	"github.com/saakshiraut28/roastarena/internal/payment"
)

// Handler serves the record routes.
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a record handler on the given store.
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// Register mounts the record routes. The create route is guarded by the
// payment gate; list and laugh are free.
func (h *Handler) Register(r gin.IRouter, gate gin.HandlerFunc) {
	r.GET("/records", h.List)
	r.POST("/records", gate, h.Create)
	r.POST("/records/:id/laugh", h.Laugh)
}

// List returns all records, newest first.
func (h *Handler) List(c *gin.Context) {
	recs, err := h.store.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("record listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, recs)
}

// Create runs after the payment gate settled the payment. A storage
// failure here means payment was captured with no content delivered,
// which is logged as a distinct alertable event and surfaced with the
// captured signature so it can be reconciled manually.
func (h *Handler) Create(c *gin.Context) {
	settlement, ok := payment.SettlementFrom(c)
	if !ok {
		// Route wired without the gate; refuse rather than give away a paid write.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment gate missing"})
		return
	}

	var body payment.CreateBody
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	signature := settlement.Receipt.Signature.String()
	rec, err := h.store.Create(c.Request.Context(), body.Text, signature)
	if err != nil {
		h.log.Error().
			Err(err).
			Str("event", "fulfillment_inconsistency").
			Str("signature", signature).
			Msg("payment captured but record creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "record creation failed after payment was captured",
			"code":  payment.ErrFulfillmentInconsistency,
			"details": gin.H{
				"signature": signature,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record":         rec,
		"paymentDetails": settlement.Details(),
	})
}

// Laugh increments a record's laugh counter.
func (h *Handler) Laugh(c *gin.Context) {
	rec, err := h.store.AddLaugh(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("laugh update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
