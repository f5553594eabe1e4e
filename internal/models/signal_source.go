package models

import "time"

// KolAccount is a tracked social-media account whose mentions are scored
type KolAccount struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	Handle         string    `gorm:"size:100;not null;uniqueIndex:idx_kol_accounts_handle" json:"handle"`
	DisplayName    string    `gorm:"size:255;default:''" json:"display_name"`
	AvatarURL      string    `gorm:"size:512;default:''" json:"avatar_url"`
	FollowersCount uint      `gorm:"default:0" json:"followers_count"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (KolAccount) TableName() string {
	return "kol_accounts"
}

// Tweet is the source record behind a twitter signal. TweetID is the
// platform-native id that Signal.ProviderID points at.
type Tweet struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	TweetID     string      `gorm:"size:128;not null;uniqueIndex:idx_tweets_tweet_id" json:"tweet_id"`
	AccountID   uint        `gorm:"not null;index" json:"account_id"`
	Content     string      `gorm:"type:text" json:"content"`
	PublishedAt time.Time   `gorm:"not null" json:"published_at"`
	CreatedAt   time.Time   `json:"created_at" gorm:"autoCreateTime"`
	Account     *KolAccount `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}

func (Tweet) TableName() string {
	return "tweets"
}

// ExchangeAnnouncement is the source record behind an announcement signal.
type ExchangeAnnouncement struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	AnnouncementID string    `gorm:"size:128;not null;uniqueIndex:idx_exchange_announcements_announcement_id" json:"announcement_id"`
	Exchange       string    `gorm:"size:50;not null;index" json:"exchange"`
	Title          string    `gorm:"size:512;not null" json:"title"`
	URL            string    `gorm:"size:512;default:''" json:"url"`
	PublishedAt    time.Time `gorm:"not null" json:"published_at"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ExchangeAnnouncement) TableName() string {
	return "exchange_announcements"
}

// NewsItem is the source record behind a news signal.
type NewsItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	GUID        string    `gorm:"size:128;not null;uniqueIndex:idx_news_items_guid" json:"guid"`
	Source      string    `gorm:"size:100;not null;index" json:"source"`
	Title       string    `gorm:"size:512;not null" json:"title"`
	URL         string    `gorm:"size:512;default:''" json:"url"`
	PublishedAt time.Time `gorm:"not null" json:"published_at"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (NewsItem) TableName() string {
	return "news_items"
}
