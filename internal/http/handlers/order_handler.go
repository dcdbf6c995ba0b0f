// README: Order handlers; finalization, executor gate, and inbound signals.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gofer/internal/http/middleware"
	"gofer/internal/modules/escrow"
	"gofer/internal/modules/fulfillment"
	"gofer/internal/modules/intent"
	"gofer/internal/modules/order"
	"gofer/internal/modules/stage"
	"gofer/internal/types"
)

type OrderHandler struct {
	orders      *order.Service
	intents     *intent.Service
	stages      *stage.Service
	ledger      *escrow.Service
	fulfillment *fulfillment.Service
}

func NewOrderHandler(
	orders *order.Service,
	intents *intent.Service,
	stages *stage.Service,
	ledger *escrow.Service,
	ful *fulfillment.Service,
) *OrderHandler {
	return &OrderHandler{orders: orders, intents: intents, stages: stages, ledger: ledger, fulfillment: ful}
}

type createOrderReq struct {
	DraftID string `json:"draft_id"`
}

// Create finalizes a draft into an order with its stage plan.
func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil || !isValidID(req.DraftID) {
		writeError(c, http.StatusBadRequest, "missing draft_id")
		return
	}
	d, err := h.intents.Get(c.Request.Context(), types.ID(req.DraftID))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if string(d.CustomerID) != middleware.CallerUID(c) {
		writeError(c, http.StatusForbidden, "not your draft")
		return
	}
	id, err := h.orders.CreateFromDraft(c.Request.Context(), d)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	// The draft is spent; a leftover copy would allow double finalization.
	_ = h.intents.Discard(c.Request.Context(), d.ID)
	writeJSON(c, http.StatusCreated, gin.H{"order_id": id, "status": order.StatusPending})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.orders.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	stages, err := h.stages.List(c.Request.Context(), o.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	escrowStatus, sums, err := h.ledger.StatusOf(c.Request.Context(), o.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"order":  o,
		"stages": stages,
		"escrow": gin.H{
			"status":    escrowStatus,
			"held":      sums.Held,
			"released":  sums.Released,
			"refunded":  sums.Refunded,
			"remaining": sums.Remaining(),
			"currency":  sums.Currency,
		},
	})
}

// Accept is the all-or-nothing executor intake gate.
func (h *OrderHandler) Accept(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	if middleware.CallerRole(c) != "executor" {
		writeError(c, http.StatusForbidden, "executor role required")
		return
	}
	err := h.orders.Accept(c.Request.Context(), order.AcceptCommand{
		OrderID:    types.ID(id),
		ExecutorID: types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusInProgress})
}

type rejectReq struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Reject(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	if middleware.CallerRole(c) != "executor" {
		writeError(c, http.StatusForbidden, "executor role required")
		return
	}
	var req rejectReq
	_ = c.ShouldBindJSON(&req)
	err := h.orders.Reject(c.Request.Context(), order.RejectCommand{
		OrderID:    types.ID(id),
		ExecutorID: types.ID(middleware.CallerUID(c)),
		Reason:     req.Reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusCancelled})
}

type paymentReq struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Payment is the payment-captured signal from the gateway callback.
func (h *OrderHandler) Payment(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	var req paymentReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount < 0 || req.Currency == "" {
		writeError(c, http.StatusBadRequest, "invalid payment payload")
		return
	}
	tx, err := h.fulfillment.HandlePaymentCaptured(c.Request.Context(), fulfillment.PaymentCaptured{
		OrderID:  types.ID(id),
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"transaction_id": tx.ID, "escrow_status": escrow.StatusHeld})
}

type stageStatusReq struct {
	Status string `json:"status"`
}

// StageStatus is the stage-change signal that drives fulfillment.
func (h *OrderHandler) StageStatus(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq < 1 {
		writeError(c, http.StatusBadRequest, "invalid stage seq")
		return
	}
	if middleware.CallerRole(c) != "executor" {
		writeError(c, http.StatusForbidden, "executor role required")
		return
	}
	var req stageStatusReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		writeError(c, http.StatusBadRequest, "missing status")
		return
	}
	executorID := types.ID(middleware.CallerUID(c))
	err = h.fulfillment.HandleStageStatus(c.Request.Context(), fulfillment.StageStatusChanged{
		OrderID:    types.ID(id),
		Seq:        seq,
		NewStatus:  stage.Status(req.Status),
		ExecutorID: &executorID,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"applied": true})
}
