package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"signalcatch/internal/models"
	"signalcatch/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.AutoMigrate(db))
	return db
}

func tweetEvent(tweetID, symbol string, at time.Time) *SignalEvent {
	return &SignalEvent{
		ProviderType:  models.ProviderTwitter,
		ProviderID:    tweetID,
		ProjectSymbol: symbol,
		CategoryCode:  "kol",
		SignalTime:    at,
		Tweet: &TweetPayload{
			Handle:      "alpha",
			DisplayName: "Alpha",
			Content:     "gm",
			PublishedAt: at,
		},
	}
}

func TestApply(t *testing.T) {
	now := time.Now().UTC()

	t.Run("Tweet Creates Account Source And Signal", func(t *testing.T) {
		db := newTestDB(t)
		project := models.Project{Symbol: "PRJ"}
		require.NoError(t, db.Create(&project).Error)

		require.NoError(t, Apply(db, tweetEvent("tw-1", "PRJ", now)))

		var signal models.Signal
		require.NoError(t, db.Where("provider_id = ?", "tw-1").First(&signal).Error)
		assert.Equal(t, models.ProviderTwitter, signal.ProviderType)
		require.NotNil(t, signal.ProjectID)
		assert.Equal(t, project.ID, *signal.ProjectID)

		var tweet models.Tweet
		require.NoError(t, db.Where("tweet_id = ?", "tw-1").First(&tweet).Error)

		var account models.KolAccount
		require.NoError(t, db.Where("handle = ?", "alpha").First(&account).Error)
		assert.Equal(t, account.ID, tweet.AccountID)
	})

	t.Run("Duplicate Delivery Is Idempotent", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, Apply(db, tweetEvent("tw-dup", "", now)))
		require.NoError(t, Apply(db, tweetEvent("tw-dup", "", now)))

		var signals, tweets, accounts int64
		require.NoError(t, db.Model(&models.Signal{}).Count(&signals).Error)
		require.NoError(t, db.Model(&models.Tweet{}).Count(&tweets).Error)
		require.NoError(t, db.Model(&models.KolAccount{}).Count(&accounts).Error)
		assert.EqualValues(t, 1, signals)
		assert.EqualValues(t, 1, tweets)
		assert.EqualValues(t, 1, accounts)
	})

	t.Run("Unknown Symbol Leaves Signal Unlinked", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, Apply(db, tweetEvent("tw-unk", "NOPE", now)))

		var signal models.Signal
		require.NoError(t, db.Where("provider_id = ?", "tw-unk").First(&signal).Error)
		assert.Nil(t, signal.ProjectID)
	})

	t.Run("Announcement Source", func(t *testing.T) {
		db := newTestDB(t)
		evt := &SignalEvent{
			ProviderType: models.ProviderAnnouncement,
			ProviderID:   "ann-1",
			CategoryCode: "listing",
			SignalTime:   now,
			Announcement: &AnnouncementPayload{
				Exchange:    "binance",
				Title:       "Will list PRJ",
				PublishedAt: now,
			},
		}
		require.NoError(t, Apply(db, evt))

		var ann models.ExchangeAnnouncement
		require.NoError(t, db.Where("announcement_id = ?", "ann-1").First(&ann).Error)
		assert.Equal(t, "binance", ann.Exchange)
	})

	t.Run("Validation Failures", func(t *testing.T) {
		db := newTestDB(t)

		evt := tweetEvent("tw-bad", "", now)
		evt.ProviderType = "rss"
		assert.Error(t, Apply(db, evt))

		evt = tweetEvent("", "", now)
		assert.Error(t, Apply(db, evt))

		evt = tweetEvent("tw-bad", "", time.Time{})
		assert.Error(t, Apply(db, evt))

		evt = tweetEvent("tw-bad", "", now)
		evt.Tweet = nil
		assert.Error(t, Apply(db, evt))
	})
}

func TestHandleMessage(t *testing.T) {
	db := newTestDB(t)

	t.Run("Malformed Message Dropped", func(t *testing.T) {
		assert.NoError(t, HandleMessage(db, []byte("not json")))
	})

	t.Run("Valid Message Applied", func(t *testing.T) {
		body, err := json.Marshal(tweetEvent("tw-msg", "", time.Now().UTC()))
		require.NoError(t, err)
		require.NoError(t, HandleMessage(db, body))

		var count int64
		require.NoError(t, db.Model(&models.Signal{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})
}
