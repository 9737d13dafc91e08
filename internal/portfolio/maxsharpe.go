package portfolio

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/optimize"

	"github.com/wonny/fluxrx/internal/contracts"
)

// maxCornerAssets 이 수 이하일 때만 단일 자산 코너 시작점 추가
const maxCornerAssets = 10

// successStatuses gonum 종료 상태 중 수렴으로 인정하는 것
var successStatuses = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.FunctionConvergence: true,
	optimize.GradientThreshold:   true,
	optimize.MethodConverge:      true,
}

// restartOutcome 재시작 하나의 결과
type restartOutcome struct {
	index      int
	weights    []float64
	sharpe     float64
	iterations int
	converged  bool
}

// maxSharpe maximizes (μ·w - rf)/σ with multi-start Nelder-Mead.
// 탐색 변수 x는 제약 없음, 목적함수는 -Sharpe(P(x)) + ||x - P(x)||²
//
// Starts: equal weights, single-asset corners (small universes) and Restarts
// Dirichlet draws from the configured seed. Restarts run in parallel; selection is
// by restart index so the result does not depend on scheduling.
func (o *Optimizer) maxSharpe(ctx context.Context, p *problem) ([]float64, int, int, error) {
	n := len(p.assets)
	if n == 1 {
		return []float64{1}, 0, 0, nil
	}

	starts := o.startingPoints(p)
	outcomes := make([]restartOutcome, len(starts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)
	for i, x0 := range starts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = o.runRestart(p, i, x0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, len(starts), err
	}

	best := selectOutcome(outcomes, o.config.TieTolerance)
	if best == nil {
		return nil, 0, len(starts), contracts.NewError(contracts.KindConvergenceFailure,
			"no max_sharpe restart converged within %d iterations (%d restarts)", o.config.IterationBudget, len(starts))
	}
	return best.weights, best.iterations, len(starts), nil
}

// startingPoints builds the deterministic list of restart seeds
func (o *Optimizer) startingPoints(p *problem) [][]float64 {
	n := len(p.assets)
	starts := [][]float64{equalWeights(p.lo, p.hi)}

	if n <= maxCornerAssets {
		for i := 0; i < n; i++ {
			corner := make([]float64, n)
			corner[i] = 1
			starts = append(starts, projectBudget(corner, p.lo, p.hi))
		}
	}

	rng := rand.New(rand.NewSource(o.config.Seed))
	for r := 0; r < o.config.Restarts; r++ {
		// Dirichlet(1): 지수분포 표본을 합으로 정규화
		draw := make([]float64, n)
		sum := 0.0
		for i := range draw {
			draw[i] = rng.ExpFloat64()
			sum += draw[i]
		}
		for i := range draw {
			draw[i] /= sum
		}
		starts = append(starts, projectBudget(draw, p.lo, p.hi))
	}
	return starts
}

// runRestart runs one Nelder-Mead search from x0
func (o *Optimizer) runRestart(p *problem, index int, x0 []float64) restartOutcome {
	n := len(x0)
	proj := make([]float64, n)

	objective := func(x []float64) float64 {
		project(x, p.lo, p.hi, 1, proj)
		s, ok := p.sharpe(proj)
		if !ok {
			return math.Inf(1)
		}
		penalty := 0.0
		for i := range x {
			d := x[i] - proj[i]
			penalty += d * d
		}
		return -s + penalty
	}

	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		MajorIterations: o.config.IterationBudget,
		Converger: &optimize.FunctionConverge{
			Absolute:   o.config.Tolerance,
			Iterations: 100,
		},
	}

	out := restartOutcome{index: index}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil || result == nil || !successStatuses[result.Status] {
		return out
	}

	w := projectBudget(result.X, p.lo, p.hi)
	s, ok := p.sharpe(w)
	if !ok {
		return out
	}
	out.weights = w
	out.sharpe = s
	out.iterations = result.Stats.MajorIterations
	out.converged = true
	return out
}

// selectOutcome picks the best converged restart.
// 동률(허용오차 내): 동일 비중과의 거리 최소 → 재시작 인덱스 최소
func selectOutcome(outcomes []restartOutcome, tieTol float64) *restartOutcome {
	bestSharpe := math.Inf(-1)
	for i := range outcomes {
		if outcomes[i].converged && outcomes[i].sharpe > bestSharpe {
			bestSharpe = outcomes[i].sharpe
		}
	}
	if math.IsInf(bestSharpe, -1) {
		return nil
	}

	var best *restartOutcome
	bestDispersion := math.Inf(1)
	for i := range outcomes {
		oc := &outcomes[i]
		if !oc.converged || oc.sharpe < bestSharpe-tieTol {
			continue
		}
		d := dispersion(oc.weights)
		if best == nil || d < bestDispersion-tieTol*tieTol {
			best = oc
			bestDispersion = d
		}
	}
	return best
}
