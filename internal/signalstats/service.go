package signalstats

import (
	"errors"
	"time"

	"signalcatch/internal/models"

	"gorm.io/gorm"
)

// PageSize is the fixed page size for signal listings
const PageSize = 20

// PublicDelay is how old a signal must be before unauthenticated callers
// may see it. The gate is applied in the query, not in presentation.
const PublicDelay = 24 * time.Hour

// MentionWindow is the trailing window for repeat-mention counts and hit
// accounts, measured back from each signal's own time.
const MentionWindow = 7 * 24 * time.Hour

var ErrUnsupportedDimension = errors.New("no statistics dimension for provider type")

// Service answers the read-only statistics queries over signals and their
// heterogeneous sources.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService creates the statistics service on the given handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// TagStat is one row of grouped signal performance: rise/fall counts come
// from the mentioned projects' 24h extremes.
type TagStat struct {
	Entity      string  `json:"entity"`
	SignalCount int64   `json:"signal_count"`
	RiseCount   int64   `json:"rise_count"`
	FallCount   int64   `json:"fall_count"`
	AvgRiseRate float64 `json:"avg_rise_rate"`
	AvgFallRate float64 `json:"avg_fall_rate"`
}

// TagStatistics aggregates signals by the provider-specific dimension:
// exchange for announcements, posting account for tweets. entityID narrows
// to one dimension value when non-empty. All math happens in one grouped
// query; nothing is folded in application code.
func (s *Service) TagStatistics(providerType models.ProviderType, entityID string) ([]TagStat, error) {
	var entityExpr, join, entityCol string
	switch providerType {
	case models.ProviderAnnouncement:
		entityExpr = "a.exchange"
		join = "JOIN exchange_announcements a ON s.provider_id = a.announcement_id"
		entityCol = "a.exchange"
	case models.ProviderTwitter:
		entityExpr = "k.handle"
		join = "JOIN tweets t ON s.provider_id = t.tweet_id JOIN kol_accounts k ON k.id = t.account_id"
		entityCol = "k.handle"
	default:
		return nil, ErrUnsupportedDimension
	}

	sql := `
		SELECT ` + entityExpr + ` AS entity,
		       COUNT(*) AS signal_count,
		       SUM(CASE WHEN p.high_rate_24h > 0 THEN 1 ELSE 0 END) AS rise_count,
		       SUM(CASE WHEN p.low_rate_24h < 0 THEN 1 ELSE 0 END) AS fall_count,
		       COALESCE(AVG(CASE WHEN p.high_rate_24h > 0 THEN p.high_rate_24h END), 0) AS avg_rise_rate,
		       COALESCE(AVG(CASE WHEN p.low_rate_24h < 0 THEN p.low_rate_24h END), 0) AS avg_fall_rate
		FROM signals s
		` + join + `
		JOIN projects p ON p.id = s.project_id
		WHERE s.provider_type = ?`

	args := []interface{}{providerType}
	if entityID != "" {
		sql += " AND " + entityCol + " = ?"
		args = append(args, entityID)
	}
	sql += " GROUP BY " + entityExpr + " ORDER BY signal_count DESC"

	var stats []TagStat
	if err := s.db.Raw(sql, args...).Scan(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// KolRank is one row of the account win-rate ranking.
type KolRank struct {
	Handle      string  `json:"handle"`
	DisplayName string  `json:"display_name"`
	SignalCount int64   `json:"signal_count"`
	WinCount    int64   `json:"win_count"`
	WinRate     float64 `json:"win_rate"`
}

// KolRanking ranks tracked accounts by the share of their tweet signals
// whose project posted a positive 24h high rate, over the given window.
func (s *Service) KolRanking(window time.Duration, limit int) ([]KolRank, error) {
	if limit <= 0 {
		limit = PageSize
	}
	since := s.now().Add(-window)

	var ranks []KolRank
	err := s.db.Raw(`
		SELECT k.handle AS handle,
		       k.display_name AS display_name,
		       COUNT(*) AS signal_count,
		       SUM(CASE WHEN p.high_rate_24h > 0 THEN 1 ELSE 0 END) AS win_count,
		       AVG(CASE WHEN p.high_rate_24h > 0 THEN 1.0 ELSE 0.0 END) AS win_rate
		FROM signals s
		JOIN tweets t ON s.provider_id = t.tweet_id
		JOIN kol_accounts k ON k.id = t.account_id
		JOIN projects p ON p.id = s.project_id
		WHERE s.provider_type = ? AND s.signal_time > ?
		GROUP BY k.handle, k.display_name
		ORDER BY win_rate DESC, signal_count DESC
		LIMIT ?`,
		models.ProviderTwitter, since, limit).
		Scan(&ranks).Error
	if err != nil {
		return nil, err
	}
	return ranks, nil
}
