// README: Draft handlers; editing, navigation gate, and conversion.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gofer/internal/http/middleware"
	"gofer/internal/modules/intent"
	"gofer/internal/types"
)

type DraftHandler struct {
	intents *intent.Service
}

func NewDraftHandler(svc *intent.Service) *DraftHandler {
	return &DraftHandler{intents: svc}
}

type createDraftReq struct {
	Intent        string `json:"intent"`
	RecipientType string `json:"recipient_type"`
}

type stagePlanReq struct {
	Type    string   `json:"type"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Note    string   `json:"note"`
}

type updateDraftReq struct {
	RecipientType string         `json:"recipient_type"`
	HasPurchase   bool           `json:"has_purchase"`
	Recurring     bool           `json:"recurring"`
	PriceCap      *moneyReq      `json:"price_cap"`
	Stages        []stagePlanReq `json:"stages"`
}

type moneyReq struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type promptResp struct {
	Show            bool   `json:"show"`
	SuggestedIntent string `json:"suggested_intent,omitempty"`
	Reason          string `json:"reason,omitempty"`
	AutoConvert     bool   `json:"auto_convert,omitempty"`
}

func toPromptResp(r intent.PromptResult) promptResp {
	return promptResp{
		Show:            r.Show,
		SuggestedIntent: string(r.SuggestedIntent),
		Reason:          string(r.Reason),
		AutoConvert:     r.AutoConvert,
	}
}

func draftResp(d *intent.Draft) gin.H {
	snap := d.Snapshot()
	return gin.H{
		"draft":          d,
		"order_type":     snap.OrderType(),
		"stages_count":   snap.StagesCount,
		"actionable":     d.Intent.Actionable(),
		"try_constraint": d.Intent == intent.IntentTry,
	}
}

func (h *DraftHandler) Create(c *gin.Context) {
	var req createDraftReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.intents.CreateDraft(c.Request.Context(), intent.CreateDraftCommand{
		CustomerID:    types.ID(middleware.CallerUID(c)),
		Intent:        intent.Intent(req.Intent),
		RecipientType: intent.RecipientType(req.RecipientType),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, draftResp(d))
}

func (h *DraftHandler) owned(c *gin.Context) (*intent.Draft, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid draft id")
		return nil, false
	}
	d, err := h.intents.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeServiceError(c, err)
		return nil, false
	}
	if string(d.CustomerID) != middleware.CallerUID(c) {
		writeError(c, http.StatusForbidden, "not your draft")
		return nil, false
	}
	return d, true
}

func (h *DraftHandler) Get(c *gin.Context) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, draftResp(d))
}

func (h *DraftHandler) Update(c *gin.Context) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	var req updateDraftReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := intent.UpdateDraftCommand{
		DraftID:       d.ID,
		RecipientType: intent.RecipientType(req.RecipientType),
		HasPurchase:   req.HasPurchase,
		Recurring:     req.Recurring,
	}
	if req.PriceCap != nil {
		cmd.PriceCap = &types.Money{Amount: req.PriceCap.Amount, Currency: req.PriceCap.Currency}
	}
	if req.Stages != nil {
		cmd.Stages = make([]intent.StagePlan, len(req.Stages))
		for i, sp := range req.Stages {
			plan := intent.StagePlan{Type: sp.Type, Address: sp.Address, Note: sp.Note}
			if sp.Lat != nil && sp.Lng != nil {
				plan.Coord = &types.Point{Lat: *sp.Lat, Lng: *sp.Lng}
			}
			cmd.Stages[i] = plan
		}
	}
	updated, prompt, err := h.intents.UpdateDraft(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"draft": updated, "prompt": toPromptResp(prompt)})
}

// Advance is the forward-navigation gate: the client calls it before
// moving to the next step and blocks on a non-auto prompt.
func (h *DraftHandler) Advance(c *gin.Context) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	updated, prompt, err := h.intents.Advance(c.Request.Context(), d.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"draft": updated, "prompt": toPromptResp(prompt)})
}

type convertReq struct {
	Intent string `json:"intent"`
}

func (h *DraftHandler) Convert(c *gin.Context) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	var req convertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	updated, err := h.intents.Convert(c.Request.Context(), d.ID, intent.Intent(req.Intent))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, draftResp(updated))
}

func (h *DraftHandler) Discard(c *gin.Context) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	if err := h.intents.Discard(c.Request.Context(), d.ID); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"deleted": true})
}
