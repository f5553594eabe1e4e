package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"signalcatch/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SignalQueue is the queue collectors publish raw signal events to.
const SignalQueue = "signal_ingest"

// TweetPayload carries the source fields for a twitter event.
type TweetPayload struct {
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"published_at"`
}

// AnnouncementPayload carries the source fields for an announcement event.
type AnnouncementPayload struct {
	Exchange    string    `json:"exchange"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsPayload carries the source fields for a news event.
type NewsPayload struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// SignalEvent is the collector-produced message: a tagged union mirroring
// Signal's provider reference. Exactly one payload must match ProviderType.
type SignalEvent struct {
	ProviderType  models.ProviderType  `json:"provider_type"`
	ProviderID    string               `json:"provider_id"`
	ProjectSymbol string               `json:"project_symbol"`
	CategoryCode  string               `json:"category_code"`
	SignalTime    time.Time            `json:"signal_time"`
	Tweet         *TweetPayload        `json:"tweet,omitempty"`
	Announcement  *AnnouncementPayload `json:"announcement,omitempty"`
	News          *NewsPayload         `json:"news,omitempty"`
}

// HandleMessage decodes and applies one queue message.
func HandleMessage(db *gorm.DB, body []byte) error {
	var evt SignalEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		// Malformed messages are dropped, not requeued forever.
		log.Errorf("dropping malformed signal event: %v", err)
		return nil
	}
	return Apply(db, &evt)
}

// Apply upserts the source record and inserts the signal. Duplicate
// deliveries hit the (provider_type, provider_id) unique index and are
// ignored, so the consumer is idempotent.
func Apply(db *gorm.DB, evt *SignalEvent) error {
	if !evt.ProviderType.Valid() {
		return fmt.Errorf("unknown provider type %q", evt.ProviderType)
	}
	if evt.ProviderID == "" {
		return errors.New("missing provider id")
	}
	if evt.SignalTime.IsZero() {
		return errors.New("missing signal time")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := upsertSource(tx, evt); err != nil {
			return err
		}

		signal := models.Signal{
			ProviderType: evt.ProviderType,
			ProviderID:   evt.ProviderID,
			CategoryCode: evt.CategoryCode,
			SignalTime:   evt.SignalTime,
		}

		if evt.ProjectSymbol != "" {
			var project models.Project
			err := tx.Where("symbol = ?", evt.ProjectSymbol).First(&project).Error
			if err == nil {
				signal.ProjectID = &project.ID
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			// Unknown symbols still produce a signal, just unlinked.
		}

		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&signal).Error
	})
}

func upsertSource(tx *gorm.DB, evt *SignalEvent) error {
	switch evt.ProviderType {
	case models.ProviderTwitter:
		if evt.Tweet == nil {
			return errors.New("twitter event missing tweet payload")
		}
		account := models.KolAccount{Handle: evt.Tweet.Handle, DisplayName: evt.Tweet.DisplayName}
		if err := tx.Where("handle = ?", evt.Tweet.Handle).FirstOrCreate(&account).Error; err != nil {
			return err
		}
		tweet := models.Tweet{
			TweetID:     evt.ProviderID,
			AccountID:   account.ID,
			Content:     evt.Tweet.Content,
			PublishedAt: evt.Tweet.PublishedAt,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tweet).Error

	case models.ProviderAnnouncement:
		if evt.Announcement == nil {
			return errors.New("announcement event missing payload")
		}
		ann := models.ExchangeAnnouncement{
			AnnouncementID: evt.ProviderID,
			Exchange:       evt.Announcement.Exchange,
			Title:          evt.Announcement.Title,
			URL:            evt.Announcement.URL,
			PublishedAt:    evt.Announcement.PublishedAt,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ann).Error

	case models.ProviderNews:
		if evt.News == nil {
			return errors.New("news event missing payload")
		}
		item := models.NewsItem{
			GUID:        evt.ProviderID,
			Source:      evt.News.Source,
			Title:       evt.News.Title,
			URL:         evt.News.URL,
			PublishedAt: evt.News.PublishedAt,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error
	}
	return fmt.Errorf("unknown provider type %q", evt.ProviderType)
}
