package signalstats

import (
	"time"

	"signalcatch/internal/models"

	"gorm.io/gorm"
)

// SignalFilter narrows the paginated signal listing.
type SignalFilter struct {
	CategoryCode string              `json:"categoryCode"`
	ProviderType models.ProviderType `json:"providerType"`
	ProviderID   string              `json:"providerId"`
	ProjectID    *uint               `json:"entityId"`
	SignalID     *uint               `json:"signalId"`
}

// SignalItem is a signal joined with its source record and the derived
// mention aggregates.
type SignalItem struct {
	models.Signal
	Project     *models.Project `json:"project,omitempty"`
	Source      interface{}     `json:"source,omitempty"`
	Times       int             `json:"times"`
	HitAccounts int             `json:"hit_accounts"`
}

// SignalPage is one page of the listing.
type SignalPage struct {
	Items    []SignalItem `json:"items"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Total    int64        `json:"total"`
}

// sourceLoader fetches the source records for a batch of provider ids,
// keyed by provider id. One loader per provider type; the dispatch table
// replaces the per-type branching a polymorphic join would need.
type sourceLoader func(db *gorm.DB, ids []string) (map[string]interface{}, error)

var sourceLoaders = map[models.ProviderType]sourceLoader{
	models.ProviderTwitter:      loadTweets,
	models.ProviderAnnouncement: loadAnnouncements,
	models.ProviderNews:         loadNews,
}

func loadTweets(db *gorm.DB, ids []string) (map[string]interface{}, error) {
	var rows []models.Tweet
	if err := db.Preload("Account").Where("tweet_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(rows))
	for i := range rows {
		out[rows[i].TweetID] = &rows[i]
	}
	return out, nil
}

func loadAnnouncements(db *gorm.DB, ids []string) (map[string]interface{}, error) {
	var rows []models.ExchangeAnnouncement
	if err := db.Where("announcement_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(rows))
	for i := range rows {
		out[rows[i].AnnouncementID] = &rows[i]
	}
	return out, nil
}

func loadNews(db *gorm.DB, ids []string) (map[string]interface{}, error) {
	var rows []models.NewsItem
	if err := db.Where("guid IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(rows))
	for i := range rows {
		out[rows[i].GUID] = &rows[i]
	}
	return out, nil
}

// SignalsPaginated lists signals newest-first with their sources attached.
// Unauthenticated callers only ever see signals older than PublicDelay;
// the cutoff is part of the WHERE clause, so hidden rows are not merely
// undisplayed, they are never selected.
func (s *Service) SignalsPaginated(page int, filter SignalFilter, authed bool) (*SignalPage, error) {
	if page < 1 {
		page = 1
	}

	q := s.db.Model(&models.Signal{})
	if filter.CategoryCode != "" {
		q = q.Where("category_code = ?", filter.CategoryCode)
	}
	if filter.ProviderType != "" {
		q = q.Where("provider_type = ?", filter.ProviderType)
	}
	if filter.ProviderID != "" {
		q = q.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.ProjectID != nil {
		q = q.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.SignalID != nil {
		q = q.Where("id = ?", *filter.SignalID)
	}
	if !authed {
		q = q.Where("signal_time < ?", s.now().Add(-PublicDelay))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var signals []models.Signal
	if err := q.Order("signal_time DESC").
		Offset((page - 1) * PageSize).
		Limit(PageSize).
		Find(&signals).Error; err != nil {
		return nil, err
	}

	items := make([]SignalItem, len(signals))
	for i := range signals {
		items[i] = SignalItem{Signal: signals[i]}
	}

	if err := s.attachSources(items); err != nil {
		return nil, err
	}
	if err := s.attachProjects(items); err != nil {
		return nil, err
	}
	if err := s.attachMentionAggregates(items); err != nil {
		return nil, err
	}

	return &SignalPage{
		Items:    items,
		Page:     page,
		PageSize: PageSize,
		Total:    total,
	}, nil
}

func (s *Service) attachSources(items []SignalItem) error {
	idsByType := make(map[models.ProviderType][]string)
	for i := range items {
		idsByType[items[i].ProviderType] = append(idsByType[items[i].ProviderType], items[i].ProviderID)
	}

	loaded := make(map[models.ProviderType]map[string]interface{}, len(idsByType))
	for pt, ids := range idsByType {
		loader, ok := sourceLoaders[pt]
		if !ok {
			continue
		}
		m, err := loader(s.db, ids)
		if err != nil {
			return err
		}
		loaded[pt] = m
	}

	for i := range items {
		if m, ok := loaded[items[i].ProviderType]; ok {
			items[i].Source = m[items[i].ProviderID]
		}
	}
	return nil
}

func (s *Service) attachProjects(items []SignalItem) error {
	idSet := make(map[uint]struct{})
	for i := range items {
		if items[i].ProjectID != nil {
			idSet[*items[i].ProjectID] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	var projects []models.Project
	if err := s.db.Where("id IN ?", ids).Find(&projects).Error; err != nil {
		return err
	}
	byID := make(map[uint]*models.Project, len(projects))
	for i := range projects {
		byID[projects[i].ID] = &projects[i]
	}
	for i := range items {
		if items[i].ProjectID != nil {
			items[i].Project = byID[*items[i].ProjectID]
		}
	}
	return nil
}

// mentionRow is one candidate mention for the derived aggregates: the
// entity is the account dimension behind the signal (KOL handle, exchange,
// or news source).
type mentionRow struct {
	ProjectID  uint
	SignalTime time.Time
	Entity     string
}

// attachMentionAggregates derives, per signal, the repeat-mention count
// and the number of distinct accounts mentioning the same project within
// the trailing window ending at the signal's own time. Derived on read;
// never stored.
func (s *Service) attachMentionAggregates(items []SignalItem) error {
	projectSet := make(map[uint]struct{})
	var earliest time.Time
	for i := range items {
		if items[i].ProjectID == nil {
			continue
		}
		projectSet[*items[i].ProjectID] = struct{}{}
		if earliest.IsZero() || items[i].SignalTime.Before(earliest) {
			earliest = items[i].SignalTime
		}
	}
	if len(projectSet) == 0 {
		return nil
	}
	projectIDs := make([]uint, 0, len(projectSet))
	for id := range projectSet {
		projectIDs = append(projectIDs, id)
	}

	var rows []mentionRow
	err := s.db.Raw(`
		SELECT s.project_id AS project_id,
		       s.signal_time AS signal_time,
		       CASE s.provider_type
		            WHEN 'twitter' THEN k.handle
		            WHEN 'announcement' THEN a.exchange
		            ELSE n.source
		       END AS entity
		FROM signals s
		LEFT JOIN tweets t ON s.provider_type = 'twitter' AND s.provider_id = t.tweet_id
		LEFT JOIN kol_accounts k ON k.id = t.account_id
		LEFT JOIN exchange_announcements a ON s.provider_type = 'announcement' AND s.provider_id = a.announcement_id
		LEFT JOIN news_items n ON s.provider_type = 'news' AND s.provider_id = n.guid
		WHERE s.project_id IN ? AND s.signal_time > ?`,
		projectIDs, earliest.Add(-MentionWindow)).
		Scan(&rows).Error
	if err != nil {
		return err
	}

	for i := range items {
		if items[i].ProjectID == nil {
			continue
		}
		windowStart := items[i].SignalTime.Add(-MentionWindow)
		entities := make(map[string]struct{})
		times := 0
		for _, row := range rows {
			if row.ProjectID != *items[i].ProjectID {
				continue
			}
			if row.SignalTime.After(items[i].SignalTime) || !row.SignalTime.After(windowStart) {
				continue
			}
			times++
			if row.Entity != "" {
				entities[row.Entity] = struct{}{}
			}
		}
		items[i].Times = times
		items[i].HitAccounts = len(entities)
	}
	return nil
}
