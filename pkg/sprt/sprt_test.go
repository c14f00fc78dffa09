package sprt_test

import (
	"testing"

	"github.com/mangar2/qaplatester/pkg/sprt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndecidedBeforeAnyGames(t *testing.T) {
	test := sprt.New(sprt.DefaultParams)
	assert.Equal(t, sprt.Undecided, test.Decision())
	assert.Equal(t, 0.0, test.LLR())
}

func TestAcceptsH1OnSustainedWins(t *testing.T) {
	test := sprt.New(sprt.Params{Elo0: 0, Elo1: 20, Alpha: 0.05, Beta: 0.05})
	for i := 0; i < 500 && test.Decision() == sprt.Undecided; i++ {
		test.Record(sprt.Win)
	}
	require.Equal(t, sprt.AcceptH1, test.Decision())
	wins, losses, draws := test.Counts()
	assert.Greater(t, wins, 0)
	assert.Equal(t, 0, losses)
	assert.Equal(t, 0, draws)
}

func TestAcceptsH0OnSustainedLosses(t *testing.T) {
	test := sprt.New(sprt.Params{Elo0: 0, Elo1: 20, Alpha: 0.05, Beta: 0.05})
	for i := 0; i < 500 && test.Decision() == sprt.Undecided; i++ {
		test.Record(sprt.Loss)
	}
	require.Equal(t, sprt.AcceptH0, test.Decision())
}

func TestFrozenAfterDecision(t *testing.T) {
	test := sprt.New(sprt.Params{Elo0: 0, Elo1: 20, Alpha: 0.05, Beta: 0.05})
	for test.Decision() == sprt.Undecided {
		test.Record(sprt.Win)
	}
	llr := test.LLR()
	wins, _, _ := test.Counts()

	test.Record(sprt.Loss) // no-op once frozen
	assert.Equal(t, llr, test.LLR())
	stillWins, losses, _ := test.Counts()
	assert.Equal(t, wins, stillWins)
	assert.Equal(t, 0, losses)
}

func TestBoundsOrderedAroundZero(t *testing.T) {
	test := sprt.New(sprt.DefaultParams)
	lower, upper := test.Bounds()
	assert.Less(t, lower, 0.0)
	assert.Greater(t, upper, 0.0)
}

// An unbroken run of draws is itself strong evidence against a true Elo
// gap of Elo1 or more: the BayesElo draw-rate scale grows with the draw
// rate, pulling the H1 hypothesis toward near-certain decisiveness that
// the draws contradict, so the test settles on H0 well before 1000 games.
func TestDrawsAloneAcceptH0(t *testing.T) {
	test := sprt.New(sprt.Params{Elo0: 0, Elo1: 20, Alpha: 0.05, Beta: 0.05})
	for i := 0; i < 1000 && test.Decision() == sprt.Undecided; i++ {
		test.Record(sprt.DrawResult)
	}
	require.Equal(t, sprt.AcceptH0, test.Decision())
	_, _, draws := test.Counts()
	assert.Greater(t, draws, 0)
}
