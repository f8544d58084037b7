package types

import (
	"strings"
	"time"
)

// Position represents a fantasy roster position.
type Position string

const (
	PositionQB   Position = "QB"
	PositionRB   Position = "RB"
	PositionWR   Position = "WR"
	PositionTE   Position = "TE"
	PositionK    Position = "K"
	PositionDST  Position = "D/ST"
	PositionFlex Position = "FLEX"
)

// Availability is the closed availability enumeration produced at the
// ingestion boundary. The core never inspects raw provider strings.
type Availability int

const (
	AvailabilityHealthy Availability = iota
	AvailabilityUnavailable
	AvailabilityUnknown
)

// unavailableStatuses are the provider strings that mark a player as not
// playable this week. Comparison is case-insensitive.
var unavailableStatuses = map[string]struct{}{
	"OUT":            {},
	"DOUBTFUL":       {},
	"QUESTIONABLE":   {},
	"INJURY_RESERVE": {},
	"IR":             {},
	"SUSPENSION":     {},
	"SUSPENDED":      {},
}

// ParseAvailability maps a raw provider injury-status string onto the closed
// enumeration. ACTIVE, NORMAL and empty are healthy; known injury statuses are
// unavailable; anything else is Unknown and treated as healthy downstream
// (fail open, so a malformed status never hides an available player).
func ParseAvailability(raw string) Availability {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" || s == "ACTIVE" || s == "NORMAL" {
		return AvailabilityHealthy
	}
	if _, ok := unavailableStatuses[s]; ok {
		return AvailabilityUnavailable
	}
	return AvailabilityUnknown
}

// Playable reports whether the player may be rostered/recommended this week.
func (a Availability) Playable() bool {
	return a != AvailabilityUnavailable
}

func (a Availability) String() string {
	switch a {
	case AvailabilityHealthy:
		return "healthy"
	case AvailabilityUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// WeeklyScore is one observed (week, points) pair for a player.
type WeeklyScore struct {
	Week   int     `json:"week"`
	Points float64 `json:"points"`
}

// ScoreHistory is a player's ordered sequence of weekly scores for one season.
// It is append-only during a season and owned by the ingestion side.
type ScoreHistory []WeeklyScore

// Points returns just the score values, in week order.
func (h ScoreHistory) Points() []float64 {
	pts := make([]float64, len(h))
	for i, s := range h {
		pts[i] = s.Points
	}
	return pts
}

// Recent returns the last n score values (fewer if the history is shorter).
func (h ScoreHistory) Recent(n int) []float64 {
	pts := h.Points()
	if len(pts) <= n {
		return pts
	}
	return pts[len(pts)-n:]
}

// Player is the core's view of a rostered or free-agent player. All optional
// provider fields are resolved once at ingestion; ProjectedAvg serves as the
// fallback mean for players with no score history.
type Player struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Team         string       `json:"team"`
	Position     Position     `json:"position"`
	Availability Availability `json:"availability"`
	ProjectedAvg float64      `json:"projected_avg"`
	History      ScoreHistory `json:"history,omitempty"`
}

// RosterSnapshot is one team's roster at simulation time, already partitioned
// into starters and bench by the league's lineup rules.
type RosterSnapshot struct {
	TeamID   int      `json:"team_id"`
	TeamName string   `json:"team_name"`
	Starters []Player `json:"starters"`
	Bench    []Player `json:"bench"`
}

// Players returns starters followed by bench.
func (r RosterSnapshot) Players() []Player {
	out := make([]Player, 0, len(r.Starters)+len(r.Bench))
	out = append(out, r.Starters...)
	out = append(out, r.Bench...)
	return out
}

// LineupSlot is one slot in a lineup rule set: how many players it takes and
// which positions are eligible to fill it.
type LineupSlot struct {
	Eligible []Position `json:"eligible"`
	Count    int        `json:"count"`
}

// LineupRules describe a league's starting lineup, filled in declaration order.
type LineupRules []LineupSlot

// DefaultLineupRules is the standard lineup:
// 1 QB, 2 RB, 2 WR, 1 TE, 1 FLEX (RB/WR/TE), 1 K, 1 D/ST.
func DefaultLineupRules() LineupRules {
	return LineupRules{
		{Eligible: []Position{PositionQB}, Count: 1},
		{Eligible: []Position{PositionRB}, Count: 2},
		{Eligible: []Position{PositionWR}, Count: 2},
		{Eligible: []Position{PositionTE}, Count: 1},
		{Eligible: []Position{PositionK}, Count: 1},
		{Eligible: []Position{PositionDST}, Count: 1},
		{Eligible: []Position{PositionRB, PositionWR, PositionTE}, Count: 1},
	}
}

// Game is one scheduled matchup.
type Game struct {
	Week       int `json:"week"`
	HomeTeamID int `json:"home_team_id"`
	AwayTeamID int `json:"away_team_id"`
}

// Schedule is the list of remaining scheduled games.
type Schedule []Game

// TeamRecord is a team's current standing.
type TeamRecord struct {
	TeamID    int     `json:"team_id"`
	TeamName  string  `json:"team_name"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	PointsFor float64 `json:"points_for"`
}

// LeagueState is the current standings plus rosters, as supplied by the
// ingestion side.
type LeagueState struct {
	Season       int                    `json:"season"`
	CurrentWeek  int                    `json:"current_week"`
	PlayoffSlots int                    `json:"playoff_slots"`
	Records      []TeamRecord           `json:"records"`
	Rosters      map[int]RosterSnapshot `json:"rosters"`
}

// TeamDistribution summarizes one side's simulated score distribution.
type TeamDistribution struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P10    float64 `json:"p10"`
	P90    float64 `json:"p90"`
}

// MatchupResult is the aggregate outcome of a simulated head-to-head matchup.
// Win probabilities exclude pushes (equal totals) from the denominator.
type MatchupResult struct {
	Trials          int              `json:"trials"`
	WinsA           int              `json:"wins_a"`
	WinsB           int              `json:"wins_b"`
	Pushes          int              `json:"pushes"`
	WinProbabilityA float64          `json:"win_probability_a"`
	WinProbabilityB float64          `json:"win_probability_b"`
	TeamA           TeamDistribution `json:"team_a"`
	TeamB           TeamDistribution `json:"team_b"`
	ExecutionTime   time.Duration    `json:"execution_time"`
}

// SeasonProjection is one team's aggregated rest-of-season outlook.
type SeasonProjection struct {
	TeamID           int     `json:"team_id"`
	TeamName         string  `json:"team_name"`
	CurrentWins      int     `json:"current_wins"`
	ProjectedWins    float64 `json:"projected_wins"`
	PlayoffOdds      float64 `json:"playoff_odds"`
	ChampionshipOdds float64 `json:"championship_odds"`
}

// TradeProposal is two disjoint player sets swapped between two rosters.
// Give leaves the proposer's roster; Receive leaves the counterparty's.
type TradeProposal struct {
	Proposer     RosterSnapshot `json:"proposer"`
	Counterparty RosterSnapshot `json:"counterparty"`
	Give         []Player       `json:"give"`
	Receive      []Player       `json:"receive"`
}

// Recommendation is the final trade verdict.
type Recommendation string

const (
	RecommendationAccept Recommendation = "ACCEPT"
	RecommendationReject Recommendation = "REJECT"
)

// TradeClassification qualifies the verdict for presentation.
type TradeClassification string

const (
	TradeBalanced            TradeClassification = "BALANCED"
	TradeAsymmetricRealistic TradeClassification = "ASYMMETRIC_REALISTIC"
	TradeAsymmetricUnfair    TradeClassification = "ASYMMETRIC_UNFAIR"
)

// TradeAnalysis is the computed outcome of a trade proposal.
type TradeAnalysis struct {
	ProposerDelta         float64             `json:"proposer_delta"`
	CounterpartyDelta     float64             `json:"counterparty_delta"`
	AsymmetricAdvantage   bool                `json:"asymmetric_advantage"`
	AdvantageMargin       float64             `json:"advantage_margin"`
	AcceptanceProbability float64             `json:"acceptance_probability"`
	AcceptanceRule        string              `json:"acceptance_rule"`
	Realistic             bool                `json:"realistic"`
	Recommendation        Recommendation      `json:"recommendation"`
	Classification        TradeClassification `json:"classification"`
}

// Priority tags a free-agent recommendation's urgency.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// FreeAgentRecommendation is one ranked pickup suggestion.
type FreeAgentRecommendation struct {
	Player        Player   `json:"player"`
	Position      Position `json:"position"`
	ValueAdded    float64  `json:"value_added"`
	DropCandidate string   `json:"drop_candidate"`
	CandidateAvg  float64  `json:"candidate_avg"`
	DropAvg       float64  `json:"drop_avg"`
	Priority      Priority `json:"priority"`
}

// ErrorResponse is the standard error body returned by the HTTP layer.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}
