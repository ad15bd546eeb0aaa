package driver

import (
	"math/rand"

	"github.com/hashicorp/go-hclog"

	"smuggr.xyz/horarium/core/evaluate"
	"smuggr.xyz/horarium/core/genotype"
	"smuggr.xyz/horarium/core/problem"
)

// Adaptive is the full population-based genetic search (§4.5), grounded
// on the original's adaptive genetic algorithm: population init, uniform
// crossover, bit-level mutation, and first-improvement hill climbing, all
// driven by one PRNG seeded at Init.
type Adaptive struct {
	cfg Config
	log hclog.Logger

	p      *problem.Instance
	schema *genotype.Schema
	eval   *evaluate.Evaluator

	rng   *rand.Rand
	pop   []genotype.Individual
	best  genotype.Individual
	state State
}

// NewAdaptive constructs an Adaptive strategy with the given config. A
// zero-value Config field falls back to the §4.5 default.
func NewAdaptive(cfg Config, log hclog.Logger) *Adaptive {
	def := DefaultConfig()
	if cfg.PopSize <= 0 {
		cfg.PopSize = def.PopSize
	}
	if cfg.MaxInitAttempts <= 0 {
		cfg.MaxInitAttempts = def.MaxInitAttempts
	}
	if cfg.InnerLoop <= 0 {
		cfg.InnerLoop = def.InnerLoop
	}
	if cfg.CrossSize <= 0 {
		cfg.CrossSize = def.CrossSize
	}
	if cfg.MutationSize <= 0 {
		cfg.MutationSize = def.MutationSize
	}
	if cfg.MutationProb <= 0 {
		cfg.MutationProb = def.MutationProb
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Adaptive{cfg: cfg, log: log.Named("driver.adaptive"), state: Uninitialized}
}

func (a *Adaptive) State() State { return a.state }
func (a *Adaptive) Stop()        { a.state = Stopped }

// Best returns a deep copy of the current elite.
func (a *Adaptive) Best() genotype.Individual { return a.best.Clone() }

// Init constructs the initial population (§4.5): for each slot, sample
// uniform-random genotypes (repair + evaluate each) until one with
// fitness >= 0 is retained, up to MaxInitAttempts; on exhaustion, log and
// keep whatever the last attempt produced.
func (a *Adaptive) Init(p *problem.Instance, schema *genotype.Schema, eval *evaluate.Evaluator, seed int64) error {
	if !p.Feasible() {
		return errInfeasible
	}
	a.p, a.schema, a.eval = p, schema, eval
	a.rng = rand.New(rand.NewSource(seed))

	if a.cfg.FihcSize <= 0 {
		a.cfg.FihcSize = autoFihcSize(a.cfg.PopSize, maxLocusOf(schema), schema.Len())
	}

	a.pop = make([]genotype.Individual, a.cfg.PopSize)
	a.best = genotype.Individual{Fitness: -1}

	for slot := 0; slot < a.cfg.PopSize; slot++ {
		var ind genotype.Individual
		for attempt := 0; attempt < a.cfg.MaxInitAttempts; attempt++ {
			ind = randomIndividual(a.rng, schema)
			eval.Evaluate(&ind, p, schema)
			if ind.Fitness >= 0 {
				break
			}
		}
		if ind.Fitness < 0 {
			a.log.Warn("exhausted init attempts for slot, keeping last sample", "slot", slot)
		}
		a.pop[slot] = ind
		updateElite(&a.best, ind)
	}

	a.state = Initialized
	return nil
}

// RunIteration performs InnerLoop inner passes (§4.5): crossover precedes
// mutation precedes FIHC, matching within each pass the ordering
// guarantee in §5.
func (a *Adaptive) RunIteration(iteration int) genotype.Individual {
	if a.state != Initialized && a.state != Iterating {
		return a.best.Clone()
	}
	a.state = Iterating

	for pass := 0; pass < a.cfg.InnerLoop; pass++ {
		a.crossoverPass()
		a.mutationPass()
		a.fihcPass()
	}

	return a.best.Clone()
}

// crossoverPass draws CrossSize random (p1, p2, target) triples with
// replacement and replaces target in place with their uniform-crossover
// child.
func (a *Adaptive) crossoverPass() {
	n := len(a.pop)
	if n == 0 {
		return
	}
	for i := 0; i < a.cfg.CrossSize; i++ {
		p1 := a.pop[a.rng.Intn(n)]
		p2 := a.pop[a.rng.Intn(n)]
		target := a.rng.Intn(n)

		child := genotype.Individual{Genes: make([]int, a.schema.Len())}
		for locus := range child.Genes {
			if a.rng.Intn(2) == 0 {
				child.Genes[locus] = p1.Genes[locus]
			} else {
				child.Genes[locus] = p2.Genes[locus]
			}
		}

		a.eval.Evaluate(&child, a.p, a.schema)
		a.pop[target] = child
		updateElite(&a.best, child)
	}
}

// mutationPass applies, with per-individual probability MutationProb, M
// in [1,5] uniform-random locus replacements to MutationSize individuals.
func (a *Adaptive) mutationPass() {
	n := len(a.pop)
	if n == 0 {
		return
	}
	for i := 0; i < a.cfg.MutationSize; i++ {
		idx := a.rng.Intn(n)
		if a.rng.Float64() >= a.cfg.MutationProb {
			continue
		}
		ind := a.pop[idx]
		mutations := 1 + a.rng.Intn(5)
		for m := 0; m < mutations; m++ {
			locus := a.rng.Intn(len(ind.Genes))
			ind.Genes[locus] = a.rng.Intn(a.schema.Max[locus] + 1)
		}
		a.eval.Evaluate(&ind, a.p, a.schema)
		a.pop[idx] = ind
		updateElite(&a.best, ind)
	}
}

// fihcPass runs first-improvement hill climbing over FihcSize random
// individuals: for each, loci are visited in a shuffled order, and every
// candidate value (other than the current one) is tried until one
// strictly improves fitness.
func (a *Adaptive) fihcPass() {
	n := len(a.pop)
	if n == 0 {
		return
	}
	for i := 0; i < a.cfg.FihcSize; i++ {
		idx := a.rng.Intn(n)
		ind := a.pop[idx]

		order := a.rng.Perm(len(ind.Genes))
		for _, locus := range order {
			current := ind.Genes[locus]
			max := a.schema.Max[locus]
			improved := false

			for v := 0; v <= max; v++ {
				if v == current {
					continue
				}
				trial := ind.Clone()
				trial.Genes[locus] = v
				a.eval.Evaluate(&trial, a.p, a.schema)
				if trial.Fitness > ind.Fitness {
					ind = trial
					improved = true
					updateElite(&a.best, ind)
					break
				}
			}
			_ = improved
		}

		a.pop[idx] = ind
		updateElite(&a.best, ind)
	}
}
