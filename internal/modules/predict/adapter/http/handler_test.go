package http

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/engine"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/repository/memory"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/usecase"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/wallet"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init(logger.Config{Level: "error", Format: "console"})
}

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	walletSvc := wallet.NewMockService()

	payoutUC := usecase.NewPayoutUseCase(store.Wagers(), store.Ledger(), walletSvc, nil, 2, 100)
	settleUC := usecase.NewSettleUseCase(store.Rounds(), engine.NewSelector(), nil)
	sweepUC := usecase.NewSweepUseCase(store.Rounds(), store.Wagers(), store.History(), settleUC, payoutUC, time.Hour)
	wagerUC := usecase.NewWagerUseCase(store.Rounds(), store.Wagers(), store.Ledger(), walletSvc, nil)
	volumeReader := usecase.NewVolumeReader(store.Wagers(), nil)

	h := NewHandler(settleUC, payoutUC, sweepUC, wagerUC, volumeReader, store.Rounds(), store.History())
	router := gin.New()
	h.RegisterRoutes(router)
	return router, store
}

func seedOverdueRound(t *testing.T, store *memory.Store, roundID string) {
	t.Helper()
	round := &domain.Round{
		RoundID:          roundID,
		Mode:             domain.RoundModeAuto,
		Status:           domain.RoundStatusActive,
		StartTime:        time.Now().Add(-5 * time.Minute),
		DurationSeconds:  240,
		WinningCardIndex: domain.WinnerUndecided,
		StakeUnit:        10,
		CardCount:        2,
		Theme:            "crypto",
	}
	require.NoError(t, store.Rounds().Create(context.Background(), round))
}

func TestCycleRejectsMalformedBody(t *testing.T) {
	router, store := newTestRouter(t)
	seedOverdueRound(t, store, "r-http-bad")

	req := httptest.NewRequest(nethttp.MethodPost, "/api/predict/rounds/r-http-bad/cycle",
		strings.NewReader(`{"start_time_ms":"oops"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// A body that does not parse must not fall through to the current
	// instance.
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, store.History().Count(), "malformed request must not settle anything")
}

func TestCycleEmptyBodyTargetsCurrentInstance(t *testing.T) {
	router, store := newTestRouter(t)
	seedOverdueRound(t, store, "r-http-ok")

	req := httptest.NewRequest(nethttp.MethodPost, "/api/predict/rounds/r-http-ok/cycle", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, 1, store.History().Count())
}
