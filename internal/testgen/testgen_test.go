package testgen_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smuggr.xyz/horarium/core/problem"
	"smuggr.xyz/horarium/internal/testgen"
)

func TestGenerate_ProducesFeasibleInstance(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	job := testgen.Generate(rng, testgen.DefaultConfig(), "synthetic-1")

	require.Equal(t, "synthetic-1", job.RecruitmentID)
	require.NotEmpty(t, job.ProblemData.GroupsPerSubject)

	p := problem.New(job.ProblemData, nil)
	assert.True(t, p.Feasible())
}

func TestGenerate_Deterministic(t *testing.T) {
	job1 := testgen.Generate(rand.New(rand.NewSource(99)), testgen.DefaultConfig(), "x")
	job2 := testgen.Generate(rand.New(rand.NewSource(99)), testgen.DefaultConfig(), "x")

	assert.Equal(t, job1.ProblemData.GroupsPerSubject, job2.ProblemData.GroupsPerSubject)
	assert.Equal(t, job1.ProblemData.StudentsSubjects, job2.ProblemData.StudentsSubjects)
}
