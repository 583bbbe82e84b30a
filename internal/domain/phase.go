package domain

// Phase represents the current phase of a room
type Phase string

const (
	PhaseLobby    Phase = "lobby"    // Waiting for players to join
	PhaseReading  Phase = "reading"  // Question shown, no input yet
	PhaseSubmit   Phase = "submit"   // Players write their lies
	PhaseVoting   Phase = "voting"   // Players pick the answer they believe
	PhaseResults  Phase = "results"  // Reveal sequence and scoreboard
	PhaseGameOver Phase = "gameOver" // Final standings
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// Timed reports whether the phase runs against the room timer
func (p Phase) Timed() bool {
	return p == PhaseReading || p == PhaseSubmit || p == PhaseVoting
}

// CanTransitionTo checks if a transition from current phase to target phase is valid
func (p Phase) CanTransitionTo(target Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseLobby:   {PhaseReading, PhaseGameOver},
		PhaseReading: {PhaseSubmit},
		PhaseSubmit:  {PhaseVoting},
		PhaseVoting:  {PhaseResults},
		PhaseResults: {PhaseReading, PhaseGameOver},
	}

	for _, phase := range validTransitions[p] {
		if phase == target {
			return true
		}
	}
	return false
}
