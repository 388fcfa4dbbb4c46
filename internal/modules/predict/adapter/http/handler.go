// Package http exposes the settlement engine over HTTP.
package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/usecase"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/wallet"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
)

// Handler handles prediction game HTTP requests
type Handler struct {
	settleUC     *usecase.SettleUseCase
	payoutUC     *usecase.PayoutUseCase
	sweepUC      *usecase.SweepUseCase
	wagerUC      *usecase.WagerUseCase
	volumeReader *usecase.VolumeReader
	roundRepo    domain.RoundRepository
	historyRepo  domain.HistoryRepository
}

// NewHandler creates a new HTTP handler
func NewHandler(
	settleUC *usecase.SettleUseCase,
	payoutUC *usecase.PayoutUseCase,
	sweepUC *usecase.SweepUseCase,
	wagerUC *usecase.WagerUseCase,
	volumeReader *usecase.VolumeReader,
	roundRepo domain.RoundRepository,
	historyRepo domain.HistoryRepository,
) *Handler {
	return &Handler{
		settleUC:     settleUC,
		payoutUC:     payoutUC,
		sweepUC:      sweepUC,
		wagerUC:      wagerUC,
		volumeReader: volumeReader,
		roundRepo:    roundRepo,
		historyRepo:  historyRepo,
	}
}

// RegisterRoutes registers all prediction game routes
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/predict")
	api.POST("/rounds", h.CreateRound)
	api.GET("/rounds/replacement", h.FindReplacement)
	api.GET("/rounds/:round_id", h.GetRound)
	api.POST("/rounds/:round_id/wagers", h.PlaceWager)
	api.POST("/rounds/:round_id/cycle", h.CycleRound)
	api.POST("/rounds/:round_id/finalize", h.FinalizeRound)
	api.POST("/rounds/:round_id/payouts", h.DistributePayouts)
	api.POST("/sweep", h.Sweep)
}

type createRoundReq struct {
	RoundID         string `json:"round_id" binding:"required"`
	Mode            string `json:"mode"`
	DurationSeconds int    `json:"duration_seconds" binding:"required"`
	StakeUnit       int64  `json:"stake_unit" binding:"required"`
	CardCount       int    `json:"card_count"`
	TierRestricted  bool   `json:"tier_restricted"`
	Theme           string `json:"theme"`
	Question        string `json:"question"`
}

// CreateRound creates a new round slot (admin action)
func (h *Handler) CreateRound(c *gin.Context) {
	var req createRoundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := domain.RoundMode(req.Mode)
	if mode != domain.RoundModeManual {
		mode = domain.RoundModeAuto
	}
	cardCount := req.CardCount
	if cardCount < 2 {
		cardCount = 2
	}

	round := &domain.Round{
		RoundID:          req.RoundID,
		Mode:             mode,
		Status:           domain.RoundStatusActive,
		StartTime:        time.Now(),
		DurationSeconds:  req.DurationSeconds,
		WinningCardIndex: domain.WinnerUndecided,
		StakeUnit:        req.StakeUnit,
		CardCount:        cardCount,
		TierRestricted:   req.TierRestricted,
		Theme:            req.Theme,
		Question:         req.Question,
	}
	if err := h.roundRepo.Create(c.Request.Context(), round); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, round)
}

// FindReplacement resolves a vanished slot to a live one with matching
// configuration. Clients hit this after a 404 on cycle or wager.
func (h *Handler) FindReplacement(c *gin.Context) {
	durationSeconds, err := strconv.Atoi(c.Query("duration_seconds"))
	if err != nil || durationSeconds <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_seconds required"})
		return
	}
	tierRestricted := c.Query("tier_restricted") == "true"

	round, err := h.settleUC.FindReplacement(c.Request.Context(), durationSeconds, tierRestricted)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

// GetRound returns the round's current instance with live volumes and
// recent history.
func (h *Handler) GetRound(c *gin.Context) {
	ctx := c.Request.Context()

	round, err := h.roundRepo.Get(ctx, c.Param("round_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	volumes, total, err := h.volumeReader.Volumes(ctx, round.Key(), round.CardCount)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("Volume read failed for round view")
		volumes = make([]int64, round.CardCount)
	}

	history, err := h.historyRepo.ListRecent(ctx, round.RoundID, 10)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("History read failed for round view")
	}

	c.JSON(http.StatusOK, gin.H{
		"round":        round,
		"volumes":      volumes,
		"total_volume": total,
		"deadline":     round.Deadline(),
		"history":      history,
	})
}

type placeWagerReq struct {
	UserID    int64 `json:"user_id" binding:"required"`
	CardIndex *int  `json:"card_index" binding:"required"`
}

// PlaceWager stakes one unit on a card
func (h *Handler) PlaceWager(c *gin.Context) {
	var req placeWagerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.wagerUC.PlaceWager(c.Request.Context(), req.UserID, c.Param("round_id"), *req.CardIndex)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type instanceReq struct {
	StartTimeMs int64 `json:"start_time_ms"`
}

// instanceKey resolves the target instance: an explicit start time in
// the body, or the round's current instance when the body is empty. A
// body that fails to parse is rejected rather than silently retargeted
// at the current instance.
func (h *Handler) instanceKey(c *gin.Context) (domain.InstanceKey, bool) {
	roundID := c.Param("round_id")

	var req instanceReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body: " + err.Error()})
		return domain.InstanceKey{}, false
	}
	if req.StartTimeMs > 0 {
		return domain.InstanceKey{RoundID: roundID, StartTime: time.UnixMilli(req.StartTimeMs)}, true
	}

	round, err := h.roundRepo.Get(c.Request.Context(), roundID)
	if err != nil {
		h.writeError(c, err)
		return domain.InstanceKey{}, false
	}
	return round.Key(), true
}

// CycleRound drives settlement and recycling/archival in one call. This
// is what the user-facing timer hits at the round boundary.
func (h *Handler) CycleRound(c *gin.Context) {
	key, ok := h.instanceKey(c)
	if !ok {
		return
	}

	result, err := h.settleUC.Cycle(c.Request.Context(), key)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{
		"winning_card_index": result.WinningCardIndex,
		"already_settled":    result.AlreadySettled,
		"archived":           result.Archived,
	}
	if result.NewKey != nil {
		resp["new_round_start_ms"] = result.NewKey.StartTime.UnixMilli()
	}
	c.JSON(http.StatusOK, resp)
}

// FinalizeRound settles one instance; idempotent
func (h *Handler) FinalizeRound(c *gin.Context) {
	key, ok := h.instanceKey(c)
	if !ok {
		return
	}

	winner, err := h.settleUC.Finalize(c.Request.Context(), key)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"winning_card_index": winner})
}

type payoutReq struct {
	StartTimeMs      int64 `json:"start_time_ms" binding:"required"`
	WinningCardIndex *int  `json:"winning_card_index" binding:"required"`
}

// DistributePayouts re-invokes the payout distributor for a settled
// instance; safe to call redundantly.
func (h *Handler) DistributePayouts(c *gin.Context) {
	var req payoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := domain.InstanceKey{RoundID: c.Param("round_id"), StartTime: time.UnixMilli(req.StartTimeMs)}
	report, err := h.payoutUC.Distribute(c.Request.Context(), key, *req.WinningCardIndex)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Sweep runs the recovery sweep on demand
func (h *Handler) Sweep(c *gin.Context) {
	report, err := h.sweepUC.Sweep(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// writeError maps domain errors to HTTP statuses
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRoundNotFound):
		// Retryable: a recycled replacement slot may exist (matched by
		// configuration on the caller's side).
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found", "retryable": true})
	case errors.Is(err, domain.ErrRoundNotDue):
		c.JSON(http.StatusConflict, gin.H{"error": "round not due for settlement"})
	case errors.Is(err, domain.ErrWagerClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "betting closed for this round"})
	case errors.Is(err, domain.ErrDuplicateWager):
		c.JSON(http.StatusConflict, gin.H{"error": "already staked this card"})
	case errors.Is(err, domain.ErrCardIndexOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
