// Package domain defines the persistence models for the chat directory and
// the daily-limited features. These types are mapped with GORM and form the
// durable data layer of the bot.
package domain

import "time"

// KnownChat is a durable record of a chat the bot has observed. Rows are
// upserted on every inbound message and never deleted; the directory reloads
// them into memory at startup so broadcasts survive redeploys.
type KnownChat struct {
	Platform   string    `gorm:"type:varchar(8);not null;primaryKey"`
	ChatID     int64     `gorm:"not null;primaryKey"`
	LastSeenAt time.Time `gorm:"type:DATETIME NOT NULL"`
}

// TableName returns the database table name for KnownChat.
func (KnownChat) TableName() string { return "known_chats" }

// ChatUser is a durable record of a user observed inside a specific chat,
// keyed by (platform, chat_id, user_id). DisplayName is refreshed
// opportunistically and never overwritten with an empty value.
type ChatUser struct {
	Platform    string    `gorm:"type:varchar(8);not null;primaryKey"`
	ChatID      int64     `gorm:"not null;primaryKey"`
	UserID      int64     `gorm:"not null;primaryKey"`
	DisplayName string    `gorm:"type:varchar(128);not null;default:''"`
	LastSeenAt  time.Time `gorm:"type:DATETIME NOT NULL"`
}

// TableName returns the database table name for ChatUser.
func (ChatUser) TableName() string { return "chat_users" }

// DailyAssignment records that a user received a title in a chat on a given
// day. Rows are insert-only; the unique index enforces at most one title per
// user per chat per day, so a duplicate insert is mapped to a no-op by the
// repository.
type DailyAssignment struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Platform  string    `gorm:"type:varchar(8);not null;uniqueIndex:ux_assignment_user_day,priority:1"`
	ChatID    int64     `gorm:"not null;uniqueIndex:ux_assignment_user_day,priority:2"`
	Day       string    `gorm:"type:varchar(10);not null;uniqueIndex:ux_assignment_user_day,priority:3"`
	UserID    int64     `gorm:"not null;uniqueIndex:ux_assignment_user_day,priority:4"`
	Title     string    `gorm:"type:varchar(120);not null"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName returns the database table name for DailyAssignment.
func (DailyAssignment) TableName() string { return "daily_assignments" }

// TarotDraw records the card-of-the-day drawn by a user. One row per
// (platform, user, day); a second request the same day finds the row and is
// answered with an "already given" phrase. The user-scoped reset command
// deletes the current day's row.
type TarotDraw struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Platform  string    `gorm:"type:varchar(8);not null;uniqueIndex:ux_tarot_user_day,priority:1"`
	UserID    int64     `gorm:"not null;uniqueIndex:ux_tarot_user_day,priority:2"`
	Day       string    `gorm:"type:varchar(10);not null;uniqueIndex:ux_tarot_user_day,priority:3"`
	Card      string    `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName returns the database table name for TarotDraw.
func (TarotDraw) TableName() string { return "tarot_draws" }

// AngelSighting is one logged "mirror time" hit (the user typed the current
// HH:MM and it carried a meaning). The per-user statistics command aggregates
// these rows.
type AngelSighting struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Platform  string    `gorm:"type:varchar(8);not null;index:idx_angel_chat_user,priority:1"`
	ChatID    int64     `gorm:"not null;index:idx_angel_chat_user,priority:2"`
	UserID    int64     `gorm:"not null;index:idx_angel_chat_user,priority:3"`
	TimeValue string    `gorm:"type:varchar(5);not null"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName returns the database table name for AngelSighting.
func (AngelSighting) TableName() string { return "angel_sightings" }
