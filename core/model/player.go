package model

// Squad composition rules.
const (
	StarterCount = 11
	BenchCount   = 4
	SquadSize    = StarterCount + BenchCount
	MaxPerClub   = 3
	CaptainCount = 0
	Goalkeepers  = 1
)

// Player is one row of the input table. It is never mutated by the optimizer.
type Player struct {
	Name     string
	ID       string
	Team     string
	Position Position
	Cost     float64
	// Projections maps a criterion name to the projected score under that
	// methodology.
	Projections map[string]float64
}

// Score returns the projection for criterion and whether the player has one.
func (p Player) Score(criterion string) (float64, bool) {
	v, ok := p.Projections[criterion]
	return v, ok
}
