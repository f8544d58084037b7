package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/league-sim/internal/config"
	"github.com/stitts-dev/league-sim/internal/simulator"
	"github.com/stitts-dev/league-sim/internal/types"
	"github.com/stitts-dev/league-sim/internal/ws"
)

// SimulationHandler handles matchup and season simulation endpoints.
type SimulationHandler struct {
	models simulator.ModelProvider
	wsHub  *ws.Hub
	config *config.Config
	logger *logrus.Logger
}

// NewSimulationHandler creates a new simulation handler.
func NewSimulationHandler(
	models simulator.ModelProvider,
	wsHub *ws.Hub,
	cfg *config.Config,
	logger *logrus.Logger,
) *SimulationHandler {
	return &SimulationHandler{
		models: models,
		wsHub:  wsHub,
		config: cfg,
		logger: logger,
	}
}

// MatchupRequest is a request to simulate one head-to-head matchup.
type MatchupRequest struct {
	RosterA types.RosterSnapshot `json:"roster_a"`
	RosterB types.RosterSnapshot `json:"roster_b"`
	// Trials overrides the configured default when positive.
	Trials int `json:"trials,omitempty"`
	// Seed makes the run reproducible when set.
	Seed *int64 `json:"seed,omitempty"`
}

// MatchupResponse wraps a matchup result with its simulation ID.
type MatchupResponse struct {
	SimulationID string              `json:"simulation_id"`
	Result       types.MatchupResult `json:"result"`
	CreatedAt    time.Time           `json:"created_at"`
}

// SimulateMatchup runs a Monte Carlo matchup simulation between two rosters.
func (h *SimulationHandler) SimulateMatchup(c *gin.Context) {
	var req MatchupRequest
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

	trials := req.Trials
	if trials <= 0 {
		trials = h.config.MatchupTrials
	}
	simulationID := uuid.New().String()

	sim := simulator.NewMatchupSimulator(h.models, h.config.SimulationWorkers, h.seed(req.Seed), h.logger)
	sim.OnProgress = func(completed, total int) {
		h.wsHub.BroadcastProgress(ws.ProgressUpdate{
			SimulationID: simulationID,
			Kind:         "matchup",
			Completed:    completed,
			Total:        total,
		})
	}

	result, err := sim.Simulate(c.Request.Context(), req.RosterA, req.RosterB, trials)
	if err != nil {
		h.logger.WithError(err).Error("Matchup simulation failed")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error: "Simulation failed",
			Code:  "SIMULATION_FAILED",
			Details: map[string]string{
				"error": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, MatchupResponse{
		SimulationID: simulationID,
		Result:       *result,
		CreatedAt:    time.Now(),
	})
}

// SeasonRequest is a request to project the rest of a season.
type SeasonRequest struct {
	League   types.LeagueState `json:"league"`
	Schedule types.Schedule    `json:"schedule"`
	Trials   int               `json:"trials,omitempty"`
	Seed     *int64            `json:"seed,omitempty"`
}

// SeasonResponse wraps per-team season projections.
type SeasonResponse struct {
	SimulationID string                          `json:"simulation_id"`
	Trials       int                             `json:"trials"`
	Projections  map[int]*types.SeasonProjection `json:"projections"`
	CreatedAt    time.Time                       `json:"created_at"`
}

// SimulateSeason projects playoff and championship odds for every team.
func (h *SimulationHandler) SimulateSeason(c *gin.Context) {
	var req SeasonRequest
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

	trials := req.Trials
	if trials <= 0 {
		trials = h.config.SeasonTrials
	}
	simulationID := uuid.New().String()

	sim := simulator.NewSeasonSimulator(h.models, nil, h.config.SimulationWorkers, h.seed(req.Seed), h.logger)
	projections, err := sim.ProjectSeason(c.Request.Context(), req.League, req.Schedule, trials)
	if err != nil {
		h.logger.WithError(err).Error("Season projection failed")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error: "Simulation failed",
			Code:  "SIMULATION_FAILED",
			Details: map[string]string{
				"error": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, SeasonResponse{
		SimulationID: simulationID,
		Trials:       trials,
		Projections:  projections,
		CreatedAt:    time.Now(),
	})
}

func (h *SimulationHandler) seed(requested *int64) int64 {
	if requested != nil {
		return *requested
	}
	return time.Now().UnixNano()
}
