package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/league-sim/internal/analyzer"
	"github.com/stitts-dev/league-sim/internal/config"
	"github.com/stitts-dev/league-sim/internal/types"
)

// AnalysisHandler handles trade analysis and free-agent endpoints.
type AnalysisHandler struct {
	analyzer *analyzer.Analyzer
	config   *config.Config
	logger   *logrus.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(a *analyzer.Analyzer, cfg *config.Config, logger *logrus.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: a,
		config:   cfg,
		logger:   logger,
	}
}

// AnalyzeTrade evaluates a trade proposal from the proposer's perspective.
func (h *AnalysisHandler) AnalyzeTrade(c *gin.Context) {
	var proposal types.TradeProposal
	if err := c.ShouldBindJSON(&proposal); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "Invalid request format",
			Code:  "INVALID_REQUEST",
			Details: map[string]string{
				"validation_error": err.Error(),
			},
		})
		return
	}

	analysis, err := h.analyzer.AnalyzeTrade(c.Request.Context(), proposal)
	if err != nil {
		if errors.Is(err, analyzer.ErrOverlappingPlayers) || errors.Is(err, analyzer.ErrPlayerNotOnRoster) {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error: "Invalid trade proposal",
				Code:  "INVALID_TRADE",
				Details: map[string]string{
					"validation_error": err.Error(),
				},
			})
			return
		}
		h.logger.WithError(err).Error("Trade analysis failed")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error: "Trade analysis failed",
			Code:  "ANALYSIS_FAILED",
			Details: map[string]string{
				"error": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// TradeTargetsRequest asks for suggested proposals against one counterparty.
type TradeTargetsRequest struct {
	Mine         types.RosterSnapshot `json:"mine"`
	Theirs       types.RosterSnapshot `json:"theirs"`
	MinAdvantage float64              `json:"min_advantage,omitempty"`
	Limit        int                  `json:"limit,omitempty"`
}

// FindTradeTargets scans 1-for-1 and 2-for-1 swaps against another roster.
func (h *AnalysisHandler) FindTradeTargets(c *gin.Context) {
	var req TradeTargetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "Invalid request format",
			Code:  "INVALID_REQUEST",
			Details: map[string]string{
				"validation_error": err.Error(),
			},
		})
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	targets, err := h.analyzer.FindTradeTargets(c.Request.Context(), req.Mine, req.Theirs, req.MinAdvantage, limit)
	if err != nil {
		h.logger.WithError(err).Error("Trade target scan failed")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error: "Trade target scan failed",
			Code:  "ANALYSIS_FAILED",
			Details: map[string]string{
				"error": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"targets": targets,
		"count":   len(targets),
	})
}

// FreeAgentRequest asks for ranked pickup suggestions for one roster.
type FreeAgentRequest struct {
	Roster     types.RosterSnapshot `json:"roster"`
	Candidates []types.Player       `json:"candidates"`
	TopN       int                  `json:"top_n,omitempty"`
	Positions  []types.Position     `json:"positions,omitempty"`
	// ExcludeInjured overrides the configured default when set.
	ExcludeInjured *bool `json:"exclude_injured,omitempty"`
}

// RecommendFreeAgents ranks free-agent candidates by marginal value.
func (h *AnalysisHandler) RecommendFreeAgents(c *gin.Context) {
	var req FreeAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "Invalid request format",
			Code:  "INVALID_REQUEST",
			Details: map[string]string{
				"validation_error": err.Error(),
			},
		})
		return
	}

	excludeInjured := h.config.ExcludeInjured
	if req.ExcludeInjured != nil {
		excludeInjured = *req.ExcludeInjured
	}

	recs, err := h.analyzer.RecommendFreeAgents(c.Request.Context(), req.Roster, req.Candidates, analyzer.RecommendOptions{
		TopN:           req.TopN,
		Positions:      req.Positions,
		ExcludeInjured: excludeInjured,
	})
	if err != nil {
		h.logger.WithError(err).Error("Free agent recommendation failed")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error: "Free agent recommendation failed",
			Code:  "ANALYSIS_FAILED",
			Details: map[string]string{
				"error": err.Error(),
			},
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"team":            req.Roster.TeamName,
		"candidates":      len(req.Candidates),
		"recommendations": len(recs),
	}).Debug("Free agents ranked")

	c.JSON(http.StatusOK, gin.H{
		"recommendations": recs,
		"count":           len(recs),
	})
}
