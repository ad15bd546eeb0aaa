// Package driver implements the genetic search described in §4.5: a
// pluggable Algorithm abstraction (§9's IGeneticAlgorithm) with two
// concrete strategies, Adaptive (population-based search with uniform
// crossover, mutation, and first-improvement hill climbing) and Baseline
// (a trivial single-random-individual search used as a reference/fallback
// strategy).
package driver

import (
	"fmt"
	"math/rand"

	"smuggr.xyz/horarium/core/evaluate"
	"smuggr.xyz/horarium/core/genotype"
	"smuggr.xyz/horarium/core/problem"
)

// State is the driver lifecycle (§4.5): UNINITIALIZED -> INITIALIZED ->
// ITERATING (-> ITERATING) -> STOPPED.
type State int

const (
	Uninitialized State = iota
	Initialized
	Iterating
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Iterating:
		return "iterating"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Algorithm is the pluggable genetic-search strategy interface (§9): the
// Driver-Evaluator-Repair relationship is trait-like, but the algorithm
// that drives them is a runtime-selectable strategy.
type Algorithm interface {
	// Init seeds the PRNG and constructs the initial population.
	Init(p *problem.Instance, schema *genotype.Schema, eval *evaluate.Evaluator, seed int64) error

	// RunIteration performs one outer iteration and returns a deep copy
	// of the current elite.
	RunIteration(iteration int) genotype.Individual

	// Best returns a deep copy of the current elite without advancing
	// the search.
	Best() genotype.Individual

	State() State
	Stop()
}

// Config holds the tunables named in §4.5, each defaulting to the value
// the spec names.
type Config struct {
	PopSize         int
	MaxInitAttempts int
	InnerLoop       int
	CrossSize       int
	MutationSize    int
	MutationProb    float64
	FihcSize        int // 0 means auto-size per §4.5
}

// DefaultConfig returns the §4.5 defaults.
func DefaultConfig() Config {
	return Config{
		PopSize:         128,
		MaxInitAttempts: 1000,
		InnerLoop:       10,
		CrossSize:       64,
		MutationSize:    32,
		MutationProb:    0.03,
	}
}

func autoFihcSize(popSize, maxLocus, n int) int {
	denom := 1 + maxLocus*n
	if denom <= 0 {
		return popSize
	}
	size := popSize * 1000 / denom
	if size > popSize {
		size = popSize
	}
	if size < 1 {
		size = 1
	}
	return size
}

func maxLocusOf(schema *genotype.Schema) int {
	max := 0
	for _, m := range schema.Max {
		if m > max {
			max = m
		}
	}
	return max
}

// randomIndividual samples a uniform-random genotype bounded by the
// schema (§4.2: every locus uniform over [0, max[i]] inclusive).
func randomIndividual(rng *rand.Rand, schema *genotype.Schema) genotype.Individual {
	genes := make([]int, schema.Len())
	for i, m := range schema.Max {
		genes[i] = rng.Intn(m + 1)
	}
	return genotype.Individual{Genes: genes, Fitness: -1}
}

// updateElite replaces best only on strictly greater fitness (§4.5,
// invariant: elite fitness is monotone non-decreasing). The elite keeps its
// own copy of the genes, so later in-place operators on population members
// cannot alter it.
func updateElite(best *genotype.Individual, candidate genotype.Individual) {
	if candidate.Fitness > best.Fitness {
		*best = candidate.Clone()
	}
}

var errInfeasible = fmt.Errorf("problem instance is infeasible, refusing to initialize driver")
