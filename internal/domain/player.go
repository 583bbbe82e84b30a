package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Player represents a participant in a room
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ConnID    string    `json:"-"`
	Score     int       `json:"score"`
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// NewPlayer creates a connected player with a zero score
func NewPlayer(id, name, connID string, joinedAt time.Time) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		ConnID:    connID,
		Connected: true,
		JoinedAt:  joinedAt,
	}
}

// Disconnect marks the player as disconnected
func (p *Player) Disconnect() {
	p.Connected = false
	p.ConnID = ""
}

// Reconnect attaches a new connection to the player
func (p *Player) Reconnect(connID string) {
	p.Connected = true
	p.ConnID = connID
}

// PlayerInfo is the public view of a player
type PlayerInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

// ToInfo converts a Player to PlayerInfo
func (p *Player) ToInfo() PlayerInfo {
	return PlayerInfo{
		ID:        p.ID,
		Name:      p.Name,
		Score:     p.Score,
		Connected: p.Connected,
	}
}

// PlayerScore is one row of a scoreboard
type PlayerScore struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// PlayerRef names a player in reveal payloads
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SanitizeName trims, truncates to maxLen runes and upper-cases a display name
func SanitizeName(raw string, maxLen int) string {
	return strings.ToUpper(truncate(strings.TrimSpace(raw), maxLen))
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:maxLen]))
}
