package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/stitts-dev/league-sim/internal/types"
)

// WeeklyScoreRow is one persisted weekly score observation.
type WeeklyScoreRow struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	PlayerID string  `gorm:"index:idx_player_season_week,unique;not null" json:"player_id"`
	Season   int     `gorm:"index:idx_player_season_week,unique;not null" json:"season"`
	Week     int     `gorm:"index:idx_player_season_week,unique;not null" json:"week"`
	Points   float64 `gorm:"not null" json:"points"`
}

func (WeeklyScoreRow) TableName() string {
	return "weekly_scores"
}

// HistoryRepository reads and writes player score histories.
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a repository and ensures the schema exists.
func NewHistoryRepository(db *DB) (*HistoryRepository, error) {
	if err := db.AutoMigrate(&WeeklyScoreRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate weekly_scores: %w", err)
	}
	return &HistoryRepository{db: db}, nil
}

// LoadHistory returns a player's score history for a season, in week order.
func (r *HistoryRepository) LoadHistory(ctx context.Context, playerID string, season int) (types.ScoreHistory, error) {
	var rows []WeeklyScoreRow
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND season = ?", playerID, season).
		Order("week ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history for player %s: %w", playerID, err)
	}

	history := make(types.ScoreHistory, len(rows))
	for i, row := range rows {
		history[i] = types.WeeklyScore{Week: row.Week, Points: row.Points}
	}
	return history, nil
}

// SaveScores upserts a player's weekly scores for a season. Histories are
// append-only during a season, but a re-ingested week overwrites its row.
func (r *HistoryRepository) SaveScores(ctx context.Context, playerID string, season int, history types.ScoreHistory) error {
	if len(history) == 0 {
		return nil
	}
	rows := make([]WeeklyScoreRow, len(history))
	for i, score := range history {
		rows[i] = WeeklyScoreRow{
			PlayerID: playerID,
			Season:   season,
			Week:     score.Week,
			Points:   score.Points,
		}
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}, {Name: "season"}, {Name: "week"}},
			DoUpdates: clause.AssignmentColumns([]string{"points"}),
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to save scores for player %s: %w", playerID, err)
	}
	return nil
}

// PlayerIDs lists every player with persisted scores in a season.
func (r *HistoryRepository) PlayerIDs(ctx context.Context, season int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&WeeklyScoreRow{}).
		Where("season = ?", season).
		Distinct("player_id").
		Pluck("player_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list players for season %d: %w", season, err)
	}
	return ids, nil
}
