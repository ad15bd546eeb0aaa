// Package genotype defines the flat integer chromosome (§3 Individual,
// §4.2 GenotypeSchema) and the per-locus domain table every other core
// component samples, mutates, and repairs against.
package genotype

import "smuggr.xyz/horarium/core/problem"

// Individual is a candidate schedule: a genotype plus its last-computed
// fitness. Fitness is -1 for genotypes Repair could not project onto the
// feasible set, and 0 is used for the "shape mismatch" programming-error
// path (§7).
type Individual struct {
	Genes   []int
	Fitness float64
}

// Clone deep-copies an Individual; the only Individual that outlives an
// iteration (the elite) is exposed to external callers via Clone (§3
// Lifecycle).
func (ind Individual) Clone() Individual {
	genes := make([]int, len(ind.Genes))
	copy(genes, ind.Genes)
	return Individual{Genes: genes, Fitness: ind.Fitness}
}

// Schema is the single source of truth for genotype length and domain
// (§4.2). It is built once from a ProblemInstance and shared read-only.
type Schema struct {
	// Max holds the inclusive upper bound for each locus; genes sampled
	// uniformly in [0, Max[i]].
	Max []int

	// EnrollmentLen is the length of the enrollment segment
	// (= ProblemInstance.TotalStudentSubjects).
	EnrollmentLen int

	// GroupsNum is the number of groups, i.e. half the scheduling
	// segment's length.
	GroupsNum int
}

// Len returns the total genotype length N = TotalStudentSubjects + 2*G.
func (s *Schema) Len() int { return len(s.Max) }

// TimeslotLocus and RoomLocus return the scheduling-segment locus indices
// for group g's start-timeslot and room genes.
func (s *Schema) TimeslotLocus(g int) int { return s.EnrollmentLen + g*2 }
func (s *Schema) RoomLocus(g int) int     { return s.EnrollmentLen + g*2 + 1 }

// Build derives a Schema from a ProblemInstance (§4.2).
func Build(p *problem.Instance) *Schema {
	s := &Schema{
		EnrollmentLen: p.TotalStudentSubjects,
		GroupsNum:     p.GroupsNum(),
	}
	s.Max = make([]int, 0, p.TotalStudentSubjects+2*p.GroupsNum())

	for _, subs := range p.Raw.StudentsSubjects {
		for _, subj := range subs {
			s.Max = append(s.Max, p.Raw.GroupsPerSubject[subj]-1)
		}
	}

	for g := 0; g < p.GroupsNum(); g++ {
		s.Max = append(s.Max, p.TotalTimeslots-1) // timeslot locus
		s.Max = append(s.Max, p.RoomsNum()-1)      // room locus
	}

	return s
}
