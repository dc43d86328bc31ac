package models

import (
	"time"
)

// RoundRecord 一局投掷的结果
type RoundRecord struct {
	TableID    string         `json:"table_id"`
	Turn       int            `json:"turn"`
	Player     int            `json:"player"`
	TotalSteps int            `json:"total_steps"`
	Counts     map[string]int `json:"counts"`
	Fallen     int            `json:"fallen"`
	Reason     string         `json:"reason,omitempty"` // empty when the piece moved
	CreatedAt  time.Time      `json:"created_at"`
}

// MatchRecord 一场比赛的结果
type MatchRecord struct {
	TableID     string    `json:"table_id"`
	PlayerCount int       `json:"player_count"`
	Winner      int       `json:"winner"`
	Turns       int       `json:"turns"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (m MatchRecord) Duration() time.Duration {
	return m.FinishedAt.Sub(m.StartedAt)
}
