package squad

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/squadopt/core/metrics"
	"github.com/kilianp07/squadopt/core/milp"
	"github.com/kilianp07/squadopt/core/model"
)

const criterion = "xP"

func player(id, team string, pos model.Position, cost, score float64) model.Player {
	return model.Player{
		Name:        "Player " + id,
		ID:          id,
		Team:        team,
		Position:    pos,
		Cost:        cost,
		Projections: map[string]float64{criterion: score, "form": score / 2},
	}
}

// league returns 22 players spread over eight clubs: 3 GK, 7 DEF, 7 MID, 5 FWD.
func league() []model.Player {
	counts := []struct {
		pos model.Position
		n   int
	}{{model.Goalkeeper, 3}, {model.Defender, 7}, {model.Midfielder, 7}, {model.Forward, 5}}
	var out []model.Player
	i := 0
	for _, c := range counts {
		for k := 0; k < c.n; k++ {
			cost := 4 + float64((i*7)%9)
			score := 2 + float64((i*5)%11) + cost/3
			out = append(out, player(fmt.Sprintf("p%02d", i), fmt.Sprintf("club%d", i%8), c.pos, cost, score))
			i++
		}
	}
	return out
}

func cfg343(budget float64) Config {
	return Config{Criterion: criterion, Formation: model.Formation{Defenders: 3, Midfielders: 4, Forwards: 3}, Budget: budget}
}

func assertSquadInvariants(t *testing.T, res *Result, cfg Config) {
	t.Helper()
	starters, bench := res.Starters(), res.Bench()
	require.Len(t, starters, model.StarterCount)
	require.Len(t, bench, model.BenchCount)

	count := func(rows []Row) map[model.Position]int {
		out := map[model.Position]int{}
		for _, r := range rows {
			out[r.Position]++
		}
		return out
	}
	for _, p := range model.Positions {
		assert.Equal(t, cfg.Formation.StarterTargets()[p], count(starters)[p], "starters %s", p)
		assert.Equal(t, cfg.Formation.BenchTargets()[p], count(bench)[p], "bench %s", p)
	}

	assert.LessOrEqual(t, res.Table.Cost(), cfg.Budget+1e-9)

	clubs := map[string]int{}
	ids := map[string]bool{}
	for _, r := range res.Table {
		clubs[r.Team]++
		assert.False(t, ids[r.ID], "player %s selected twice", r.ID)
		ids[r.ID] = true
	}
	for team, n := range clubs {
		assert.LessOrEqual(t, n, model.MaxPerClub, "club %s", team)
	}

	var score float64
	for _, r := range starters {
		score += r.Score
	}
	assert.InDelta(t, score, res.Objective, 1e-6)
}

func TestPick_Example343(t *testing.T) {
	players := league()
	cfg := cfg343(1000)
	res, err := Pick(context.Background(), players, cfg)
	require.NoError(t, err)
	assertSquadInvariants(t, res, cfg)
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.Decisions[model.Starter], len(players))
	assert.Len(t, res.Decisions[model.Captain], len(players))
	for _, s := range res.Decisions[model.Captain] {
		assert.False(t, s.Selected())
	}
}

func TestPick_AllFormations(t *testing.T) {
	players := league()
	for d := 0; d <= 5; d++ {
		for m := 0; m <= 5; m++ {
			for f := 0; f <= 3; f++ {
				form := model.Formation{Defenders: d, Midfielders: m, Forwards: f}
				if form.Validate() != nil {
					continue
				}
				t.Run(form.String(), func(t *testing.T) {
					cfg := Config{Criterion: criterion, Formation: form, Budget: 120}
					res, err := Pick(context.Background(), players, cfg)
					require.NoError(t, err)
					assertSquadInvariants(t, res, cfg)
				})
			}
		}
	}
}

func TestPick_UnlimitedBudgetTakesBestPerPosition(t *testing.T) {
	var players []model.Player
	add := func(pos model.Position, scores ...float64) {
		for _, s := range scores {
			id := fmt.Sprintf("%s%d", pos, len(players))
			players = append(players, player(id, id, pos, 5, s))
		}
	}
	add(model.Goalkeeper, 4, 6)
	add(model.Defender, 1, 7, 3, 5, 2, 6)
	add(model.Midfielder, 9, 1, 8, 2, 7, 6)
	add(model.Forward, 3, 8, 5)

	res, err := Pick(context.Background(), players, cfg343(1000))
	require.NoError(t, err)
	want := 6.0 + (7 + 6 + 5) + (9 + 8 + 7 + 6) + (8 + 5 + 3)
	assert.InDelta(t, want, res.Objective, 1e-9)
	assertSquadInvariants(t, res, cfg343(1000))
}

func TestPick_ClubCapBinds(t *testing.T) {
	players := league()
	for i := 0; i < 5; i++ {
		players = append(players, player(fmt.Sprintf("star%d", i), "stars", model.Midfielder, 5, 50))
	}
	res, err := Pick(context.Background(), players, cfg343(1000))
	require.NoError(t, err)
	assertSquadInvariants(t, res, cfg343(1000))

	var stars int
	for _, r := range res.Table {
		if r.Team == "stars" {
			stars++
		}
	}
	assert.Equal(t, model.MaxPerClub, stars)
}

// bruteForce enumerates every squad of a table holding exactly 2 GK, 6 DEF,
// 6 MID and 3 FWD: one defender and one midfielder stay out.
func bruteForce(players []model.Player, cfg Config) float64 {
	byPos := map[model.Position][]model.Player{}
	for _, p := range players {
		byPos[p.Position] = append(byPos[p.Position], p)
	}
	best := math.Inf(-1)
	for dOut := range byPos[model.Defender] {
		for mOut := range byPos[model.Midfielder] {
			var squad []model.Player
			squad = append(squad, byPos[model.Goalkeeper]...)
			squad = append(squad, byPos[model.Forward]...)
			for i, p := range byPos[model.Defender] {
				if i != dOut {
					squad = append(squad, p)
				}
			}
			for i, p := range byPos[model.Midfielder] {
				if i != mOut {
					squad = append(squad, p)
				}
			}
			var cost float64
			clubs := map[string]int{}
			for _, p := range squad {
				cost += p.Cost
				clubs[p.Team]++
			}
			ok := cost <= cfg.Budget
			for _, n := range clubs {
				ok = ok && n <= model.MaxPerClub
			}
			if !ok {
				continue
			}
			var score float64
			for pos, n := range cfg.Formation.StarterTargets() {
				var in []float64
				for _, p := range squad {
					if p.Position == pos {
						in = append(in, p.Projections[criterion])
					}
				}
				score += topSum(in, n)
			}
			best = math.Max(best, score)
		}
	}
	return best
}

func topSum(v []float64, n int) float64 {
	s := append([]float64(nil), v...)
	var sum float64
	for k := 0; k < n; k++ {
		bi := 0
		for i := range s {
			if s[i] > s[bi] {
				bi = i
			}
		}
		sum += s[bi]
		s[bi] = math.Inf(-1)
	}
	return sum
}

func TestPick_MatchesBruteForce(t *testing.T) {
	var players []model.Player
	layout := []struct {
		pos model.Position
		n   int
	}{{model.Goalkeeper, 2}, {model.Defender, 6}, {model.Midfielder, 6}, {model.Forward, 3}}
	i := 0
	for _, l := range layout {
		for k := 0; k < l.n; k++ {
			cost := 4 + float64((i*3)%7)
			score := 1 + float64((i*7)%10)
			players = append(players, player(fmt.Sprintf("b%02d", i), fmt.Sprintf("c%d", i%6), l.pos, cost, score))
			i++
		}
	}
	for _, budget := range []float64{95, 100, 105, 200} {
		cfg := cfg343(budget)
		want := bruteForce(players, cfg)
		res, err := Pick(context.Background(), players, cfg)
		if math.IsInf(want, -1) {
			assert.ErrorIs(t, err, ErrNoFeasibleSquad, "budget %v", budget)
			continue
		}
		require.NoError(t, err, "budget %v", budget)
		assert.InDelta(t, want, res.Objective, 1e-6, "budget %v", budget)
		assertSquadInvariants(t, res, cfg)
	}
}

// randomLeague draws n players cycling through GK, DEF, DEF, MID, MID, FWD,
// spread over twenty clubs with costs between 4.0 and 13.0.
func randomLeague(n int, seed int64) []model.Player {
	rng := rand.New(rand.NewSource(seed))
	cycle := []model.Position{model.Goalkeeper, model.Defender, model.Defender, model.Midfielder, model.Midfielder, model.Forward}
	out := make([]model.Player, n)
	for i := range out {
		cost := 4 + float64(rng.Intn(91))/10
		score := math.Round((0.5*cost+4*rng.Float64())*100) / 100
		out[i] = player(fmt.Sprintf("r%03d", i), fmt.Sprintf("club%02d", rng.Intn(20)), cycle[i%len(cycle)], cost, score)
	}
	return out
}

func TestPick_LargeLeagueWithinTimeBudget(t *testing.T) {
	const budget = 20 * time.Second
	cases := []struct {
		players int
		seed    int64
	}{{300, 1}, {300, 2}, {500, 3}}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_players_seed_%d", tc.players, tc.seed), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), budget)
			defer cancel()
			cfg := cfg343(100)

			start := time.Now()
			res, err := Pick(ctx, randomLeague(tc.players, tc.seed), cfg)
			require.NoError(t, err)
			assert.Less(t, time.Since(start), budget)
			assertSquadInvariants(t, res, cfg)
		})
	}
}

func TestPick_EnginesAgree(t *testing.T) {
	players := league()
	gonum := NewOptimizer(milp.NewBranchAndBound(milp.Options{Engine: milp.EngineGonum}, nil), nil, nil)
	dual := NewOptimizer(milp.NewBranchAndBound(milp.Options{Engine: milp.EngineDual}, nil), nil, nil)
	for _, budget := range []float64{80, 90, 100, 120} {
		cfg := cfg343(budget)
		want, wantErr := gonum.Pick(context.Background(), players, cfg)
		got, err := dual.Pick(context.Background(), players, cfg)
		if wantErr != nil {
			assert.True(t, IsInfeasible(wantErr), "budget %v", budget)
			assert.True(t, IsInfeasible(err), "budget %v", budget)
			continue
		}
		require.NoError(t, err, "budget %v", budget)
		assert.InDelta(t, want.Objective, got.Objective, 1e-6, "budget %v", budget)
	}
}

func TestPick_Idempotent(t *testing.T) {
	players := league()
	cfg := cfg343(105)
	first, err := Pick(context.Background(), players, cfg)
	require.NoError(t, err)
	second, err := Pick(context.Background(), players, cfg)
	require.NoError(t, err)
	assert.InDelta(t, first.Objective, second.Objective, 1e-9)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestPick_ZeroBudgetInfeasible(t *testing.T) {
	_, err := Pick(context.Background(), league(), cfg343(0))
	require.Error(t, err)
	assert.True(t, IsInfeasible(err))
	assert.Contains(t, err.Error(), "budget")
}

func TestPick_MissingPositionInfeasible(t *testing.T) {
	var players []model.Player
	for _, p := range league() {
		if p.Position != model.Goalkeeper || p.ID == "p00" {
			players = append(players, p)
		}
	}
	_, err := Pick(context.Background(), players, cfg343(1000))
	assert.ErrorIs(t, err, ErrNoFeasibleSquad)
	assert.Contains(t, err.Error(), "starter_GK+bench_GK")
}

func TestPick_LockAndExclude(t *testing.T) {
	players := league()
	base, err := Pick(context.Background(), players, cfg343(1000))
	require.NoError(t, err)

	best := base.Starters()[0]
	cheap := players[len(players)-1]
	for _, p := range players {
		if p.Position == model.Defender && p.Projections[criterion] < cheap.Projections[criterion] {
			cheap = p
		}
	}

	cfg := cfg343(1000)
	cfg.Excluded = []string{best.ID}
	cfg.Locked = []string{cheap.ID}
	res, err := Pick(context.Background(), players, cfg)
	require.NoError(t, err)
	assertSquadInvariants(t, res, cfg)
	assert.LessOrEqual(t, res.Objective, base.Objective+1e-9)

	var hasCheap bool
	for _, r := range res.Table {
		assert.NotEqual(t, best.ID, r.ID)
		hasCheap = hasCheap || r.ID == cheap.ID
	}
	assert.True(t, hasCheap, "locked player missing")
}

func TestPick_InputValidation(t *testing.T) {
	ctx := context.Background()
	good := league()

	bad := append([]model.Player(nil), good...)
	bad[3].Position = "GKP"
	_, err := Pick(ctx, bad, cfg343(100))
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad = append([]model.Player(nil), good...)
	bad[4] = player("p04", "club4", model.Defender, 5, 0)
	delete(bad[4].Projections, criterion)
	_, err = Pick(ctx, bad, cfg343(100))
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad = append([]model.Player(nil), good...)
	bad[5].ID = bad[6].ID
	_, err = Pick(ctx, bad, cfg343(100))
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad = append([]model.Player(nil), good...)
	bad[7].Cost = -1
	_, err = Pick(ctx, bad, cfg343(100))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Pick(ctx, nil, cfg343(100))
	assert.ErrorIs(t, err, ErrInvalidInput)

	cfg := cfg343(100)
	cfg.Formation = model.Formation{Defenders: 5, Midfielders: 5, Forwards: 3}
	_, err = Pick(ctx, good, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Pick(ctx, good, Config{Formation: cfg343(1).Formation, Budget: 100})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Pick(ctx, good, cfg343(-5))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = cfg343(100)
	cfg.Locked = []string{"nobody"}
	_, err = Pick(ctx, good, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = cfg343(100)
	cfg.Locked, cfg.Excluded = []string{"p01"}, []string{"p01"}
	_, err = Pick(ctx, good, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPick_AlternateCriterion(t *testing.T) {
	players := league()
	cfg := cfg343(1000)
	cfg.Criterion = "form"
	res, err := Pick(context.Background(), players, cfg)
	require.NoError(t, err)
	xp, err := Pick(context.Background(), players, cfg343(1000))
	require.NoError(t, err)
	assert.InDelta(t, xp.Objective/2, res.Objective, 1e-6)
}

type stubSolver struct {
	sol *milp.Solution
	err error
}

func (s stubSolver) Solve(context.Context, *milp.Model) (*milp.Solution, error) { return s.sol, s.err }

type captureSink struct {
	solves []metrics.SolveEvent
	squads []metrics.SquadEvent
}

func (c *captureSink) RecordSolve(ev metrics.SolveEvent) error {
	c.solves = append(c.solves, ev)
	return nil
}

func (c *captureSink) RecordSquad(ev metrics.SquadEvent) error {
	c.squads = append(c.squads, ev)
	return nil
}

func TestOptimizer_SolverFailures(t *testing.T) {
	players := league()
	cases := []struct {
		name   string
		solver milp.Solver
		status string
	}{
		{"error", stubSolver{err: errors.New("binary missing")}, "error"},
		{"node limit", stubSolver{sol: &milp.Solution{Status: milp.StatusNodeLimit}}, "node_limit"},
		{"unbounded", stubSolver{sol: &milp.Solution{Status: milp.StatusUnbounded}}, "unbounded"},
		{"optimal without values", stubSolver{sol: &milp.Solution{Status: milp.StatusOptimal}}, "error"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sink := &captureSink{}
			_, err := NewOptimizer(c.solver, nil, sink).Pick(context.Background(), players, cfg343(100))
			assert.ErrorIs(t, err, ErrSolver)
			require.Len(t, sink.solves, 1)
			assert.Equal(t, c.status, sink.solves[0].Status)
			assert.Empty(t, sink.squads)
		})
	}
}

func TestOptimizer_RecordsMetrics(t *testing.T) {
	sink := &captureSink{}
	res, err := NewOptimizer(nil, nil, sink).Pick(context.Background(), league(), cfg343(1000))
	require.NoError(t, err)
	require.Len(t, sink.solves, 1)
	ev := sink.solves[0]
	assert.Equal(t, "optimal", ev.Status)
	assert.Equal(t, res.RunID, ev.RunID)
	assert.Equal(t, "3-4-3", ev.Formation)
	assert.InDelta(t, res.Objective, ev.Objective, 1e-9)
	require.Len(t, sink.squads, 1)
	assert.Len(t, sink.squads[0].Players, model.SquadSize)
}

func TestOptimizer_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Pick(ctx, league(), cfg343(100))
	assert.ErrorIs(t, err, ErrSolver)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestByPosition(t *testing.T) {
	res, err := Pick(context.Background(), league(), cfg343(1000))
	require.NoError(t, err)
	groups := ByPosition(res.Table)
	require.Len(t, groups, len(model.Positions))
	assert.Len(t, groups[model.Goalkeeper].Starters, 1)
	assert.Len(t, groups[model.Goalkeeper].Bench, 1)
	assert.Len(t, groups[model.Midfielder].Starters, 4)
	assert.Len(t, groups[model.Forward].Bench, 0)
}
