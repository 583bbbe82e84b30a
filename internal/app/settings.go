package app

import (
	"time"

	"fibtrivia/internal/domain"
	"fibtrivia/internal/reveal"
)

// Settings holds everything the hub needs to create and run rooms
type Settings struct {
	Rules            domain.Rules
	Timings          reveal.Timings
	QuestionsPerGame int
	RoomCodeLength   int
	RoomCodeChars    string
	TickInterval     time.Duration
	StartDelay       time.Duration
	VotingDelay      time.Duration
	ResultsDelay     time.Duration
	CleanupInterval  time.Duration
	StaleRoomTimeout time.Duration
}

// DefaultSettings returns the stock game settings
func DefaultSettings() Settings {
	return Settings{
		Rules:            domain.DefaultRules(),
		Timings:          reveal.DefaultTimings(),
		QuestionsPerGame: 2,
		RoomCodeLength:   DefaultRoomCodeLength,
		RoomCodeChars:    RoomCodeChars,
		TickInterval:     time.Second,
		StartDelay:       1 * time.Second,
		VotingDelay:      2 * time.Second,
		ResultsDelay:     1 * time.Second,
		CleanupInterval:  5 * time.Minute,
		StaleRoomTimeout: StaleGameTimeout,
	}
}

// normalize fills zero values and keeps the timer lead-ins in step with the
// announcement delays
func (s Settings) normalize() Settings {
	def := DefaultSettings()
	if s.RoomCodeLength <= 0 {
		s.RoomCodeLength = def.RoomCodeLength
	}
	if s.RoomCodeChars == "" {
		s.RoomCodeChars = def.RoomCodeChars
	}
	if s.TickInterval <= 0 {
		s.TickInterval = def.TickInterval
	}
	if s.QuestionsPerGame <= 0 {
		s.QuestionsPerGame = def.QuestionsPerGame
	}
	if s.CleanupInterval <= 0 {
		s.CleanupInterval = def.CleanupInterval
	}
	if s.StaleRoomTimeout <= 0 {
		s.StaleRoomTimeout = def.StaleRoomTimeout
	}
	s.Rules.ReadingLeadIn = s.StartDelay
	s.Rules.VotingLeadIn = s.VotingDelay
	return s
}
