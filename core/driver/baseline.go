package driver

import (
	"math/rand"

	"github.com/hashicorp/go-hclog"

	"smuggr.xyz/horarium/core/evaluate"
	"smuggr.xyz/horarium/core/genotype"
	"smuggr.xyz/horarium/core/problem"
)

// Baseline is the trivial reference strategy (the second Algorithm
// implementation, grounded on the original's example algorithm): every
// iteration samples exactly one random individual, repairs and evaluates
// it, and updates the elite. It exists as a correctness baseline Adaptive
// must beat, and as a cheap fallback for degenerate (e.g. single-locus)
// problem instances.
type Baseline struct {
	log hclog.Logger

	p      *problem.Instance
	schema *genotype.Schema
	eval   *evaluate.Evaluator

	rng   *rand.Rand
	best  genotype.Individual
	state State
}

// NewBaseline constructs a Baseline strategy.
func NewBaseline(log hclog.Logger) *Baseline {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Baseline{log: log.Named("driver.baseline"), state: Uninitialized}
}

func (b *Baseline) State() State              { return b.state }
func (b *Baseline) Stop()                     { b.state = Stopped }
func (b *Baseline) Best() genotype.Individual { return b.best.Clone() }

func (b *Baseline) Init(p *problem.Instance, schema *genotype.Schema, eval *evaluate.Evaluator, seed int64) error {
	if !p.Feasible() {
		return errInfeasible
	}
	b.p, b.schema, b.eval = p, schema, eval
	b.rng = rand.New(rand.NewSource(seed))
	b.best = genotype.Individual{Fitness: -1}

	ind := randomIndividual(b.rng, schema)
	eval.Evaluate(&ind, p, schema)
	updateElite(&b.best, ind)

	b.state = Initialized
	return nil
}

// RunIteration samples exactly one candidate per call, per the original
// example algorithm's RunIteration.
func (b *Baseline) RunIteration(iteration int) genotype.Individual {
	if b.state != Initialized && b.state != Iterating {
		return b.best.Clone()
	}
	b.state = Iterating

	ind := randomIndividual(b.rng, b.schema)
	b.eval.Evaluate(&ind, b.p, b.schema)
	updateElite(&b.best, ind)

	return b.best.Clone()
}
