package models

import (
	"time"

	"gorm.io/gorm"
)

// GormRound 投掷记录模型
type GormRound struct {
	gorm.Model
	TableID    string         `gorm:"index;not null"`
	Turn       int            `gorm:"not null"`
	Player     int            `gorm:"not null"`
	TotalSteps int            `gorm:"default:0"`
	Counts     map[string]int `gorm:"serializer:json;type:jsonb"`
	Fallen     int            `gorm:"default:0"`
	Reason     string
}

func (GormRound) TableName() string { return "rounds" }

// GormMatch 比赛记录模型
type GormMatch struct {
	gorm.Model
	TableID     string `gorm:"uniqueIndex;not null"`
	PlayerCount int    `gorm:"not null"`
	Winner      int    `gorm:"not null"`
	Turns       int    `gorm:"default:0"`
	StartedAt   time.Time
	FinishedAt  time.Time `gorm:"index"`
}

func (GormMatch) TableName() string { return "matches" }

func NewGormRound(r RoundRecord) GormRound {
	return GormRound{
		TableID:    r.TableID,
		Turn:       r.Turn,
		Player:     r.Player,
		TotalSteps: r.TotalSteps,
		Counts:     r.Counts,
		Fallen:     r.Fallen,
		Reason:     r.Reason,
	}
}

func NewGormMatch(m MatchRecord) GormMatch {
	return GormMatch{
		TableID:     m.TableID,
		PlayerCount: m.PlayerCount,
		Winner:      m.Winner,
		Turns:       m.Turns,
		StartedAt:   m.StartedAt,
		FinishedAt:  m.FinishedAt,
	}
}

func (g GormMatch) Record() MatchRecord {
	return MatchRecord{
		TableID:     g.TableID,
		PlayerCount: g.PlayerCount,
		Winner:      g.Winner,
		Turns:       g.Turns,
		StartedAt:   g.StartedAt,
		FinishedAt:  g.FinishedAt,
	}
}
