// Package sprt implements the Sequential Probability Ratio Test used to
// decide, with bounded false-positive/false-negative rates, whether a
// candidate engine is stronger or weaker than a baseline, per spec.md
// §4.8. The statistical model follows the BayesElo log-likelihood-ratio
// procedure used by cutechess-cli and Fishtest.
package sprt

import "math"

// Decision is the SPRT's current verdict.
type Decision int

const (
	Undecided Decision = iota
	AcceptH1          // candidate is at least elo1 stronger -- accept
	AcceptH0          // candidate is at most elo0 stronger -- reject
)

func (d Decision) String() string {
	switch d {
	case AcceptH1:
		return "H1 (accept)"
	case AcceptH0:
		return "H0 (reject)"
	default:
		return "undecided"
	}
}

// Params configures a Test: the two Elo hypotheses under the BayesElo
// draw-aware logistic model, and the two error rates bounding the
// sequential boundaries (Wald's approximation).
type Params struct {
	Elo0, Elo1 float64 // H0: true elo <= Elo0; H1: true elo >= Elo1
	Alpha      float64 // false-positive rate (accepting H1 when H0 true)
	Beta       float64 // false-negative rate (accepting H0 when H1 true)
}

// DefaultParams mirrors the conventional Fishtest defaults.
var DefaultParams = Params{Elo0: 0, Elo1: 5, Alpha: 0.05, Beta: 0.05}

// Test accumulates W/D/L counts and reports the running log-likelihood
// ratio and decision. Not safe for concurrent use by multiple writers;
// callers serialize updates (typically from the single goroutine folding
// finished games into a tournament result).
type Test struct {
	params Params

	wins, losses, draws int
	llr                  float64
	decision             Decision
	frozen               bool
}

// New creates an undecided Test for params.
func New(params Params) *Test {
	return &Test{params: params}
}

// Record folds one game outcome (from the candidate's perspective) into
// the running LLR, then re-evaluates the stopping boundaries. Once a
// decision has been reached, further calls are no-ops: the result is
// frozen, per spec.md §4.8 ("once decided, stays decided").
func (t *Test) Record(result GameResult) {
	if t.frozen {
		return
	}
	switch result {
	case Win:
		t.wins++
	case Loss:
		t.losses++
	case DrawResult:
		t.draws++
	}
	t.recompute()
}

// GameResult is one game's outcome from the candidate engine's
// perspective.
type GameResult int

const (
	Win GameResult = iota
	Loss
	DrawResult
)

// recompute derives p(win), p(loss), p(draw) under each hypothesis via
// the BayesElo logistic-with-draws model, then the resulting LLR and
// whether it has crossed either Wald boundary.
func (t *Test) recompute() {
	n := t.wins + t.losses + t.draws
	if n == 0 {
		return
	}

	drawElo := estimateDrawElo(t.wins, t.losses, t.draws)

	// The hypothesis Elo is not fed into the logistic model directly: it is
	// first rescaled by the BayesElo draw-rate factor derived from drawElo.
	x := math.Pow(10, -drawElo/400)
	scale := 4 * x / ((x + 1) * (x + 1))

	p0Win, p0Loss, p0Draw := bayesEloProbs(t.params.Elo0/scale, drawElo)
	p1Win, p1Loss, p1Draw := bayesEloProbs(t.params.Elo1/scale, drawElo)

	// W/D/L are regularized by +0.5 here too, matching estimateDrawElo.
	llr := (float64(t.wins)+0.5)*math.Log(p1Win/p0Win) +
		(float64(t.losses)+0.5)*math.Log(p1Loss/p0Loss) +
		(float64(t.draws)+0.5)*math.Log(p1Draw/p0Draw)
	t.llr = llr

	lowerBound := math.Log(t.params.Beta / (1 - t.params.Alpha))
	upperBound := math.Log((1 - t.params.Beta) / t.params.Alpha)

	switch {
	case llr >= upperBound:
		t.decision = AcceptH1
		t.frozen = true
	case llr <= lowerBound:
		t.decision = AcceptH0
		t.frozen = true
	}
}

// bayesEloProbs derives (pWin, pLoss, pDraw) for a hypothetical Elo
// difference b (already rescaled by the BayesElo draw factor, see
// recompute), given a drawElo scale estimated from the observed draw
// rate, following the two-parameter BayesElo logistic model:
//
//	pWin(b)  = 1 / (1 + 10^((drawElo-b)/400))
//	pLoss(b) = 1 / (1 + 10^((drawElo+b)/400))
//	pDraw(b) = 1 - pWin(b) - pLoss(b)
func bayesEloProbs(b, drawElo float64) (pWin, pLoss, pDraw float64) {
	pWin = 1 / (1 + math.Pow(10, (drawElo-b)/400))
	pLoss = 1 / (1 + math.Pow(10, (drawElo+b)/400))
	pDraw = 1 - pWin - pLoss
	return clampProb(pWin), clampProb(pLoss), clampProb(pDraw)
}

// clampProb keeps a probability estimate strictly within (eps, 1-eps) so
// the LLR's logarithms never diverge on a degenerate all-win/all-loss
// sample.
func clampProb(p float64) float64 {
	const eps = 1e-6
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}

// estimateDrawElo derives the BayesElo draw-rate scale parameter from the
// observed W/D/L counts, each regularized by +0.5 so a degenerate sample
// (no losses yet, say) never divides by zero.
func estimateDrawElo(wins, losses, draws int) float64 {
	w := float64(wins) + 0.5
	l := float64(losses) + 0.5
	d := float64(draws) + 0.5
	count := w + l + d

	pWin := w / count
	pLoss := l / count
	return 200 * math.Log10((1-pLoss)/pLoss*(1-pWin)/pWin)
}

// LLR returns the current log-likelihood ratio.
func (t *Test) LLR() float64 { return t.llr }

// Decision returns the current verdict.
func (t *Test) Decision() Decision { return t.decision }

// Bounds returns the lower/upper LLR stopping boundaries for this Test's
// Params.
func (t *Test) Bounds() (lower, upper float64) {
	return math.Log(t.params.Beta / (1 - t.params.Alpha)), math.Log((1 - t.params.Beta) / t.params.Alpha)
}

// Counts returns the running (wins, losses, draws) tally.
func (t *Test) Counts() (wins, losses, draws int) {
	return t.wins, t.losses, t.draws
}
