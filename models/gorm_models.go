// models/gorm_models.go
package models

import (
	"time"
)

// GormGameDocument stores one session document as JSONB, keyed by room code.
type GormGameDocument struct {
	RoomCode  string      `gorm:"primaryKey;size:16"`
	Data      GameSession `gorm:"type:jsonb;not null;serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (GormGameDocument) TableName() string { return "games" }

// GormGameRecord archives the outcome of a finished session.
type GormGameRecord struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	RoomCode  string     `gorm:"index;not null;size:16" json:"roomCode"`
	DJName    string     `json:"djName"`
	Rounds    int        `json:"rounds"`
	WinnerID  string     `json:"winnerId,omitempty"`
	Winner    string     `json:"winner,omitempty"`
	Standings []Standing `gorm:"type:jsonb;serializer:json" json:"standings"`
	Duration  int        `gorm:"default:0" json:"duration"` // seconds
	EndedAt   time.Time  `gorm:"index" json:"endedAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (GormGameRecord) TableName() string { return "game_records" }
