// Package evaluate implements the weighted multi-category fitness
// computation described in §4.4: thirteen soft-preference categories
// (A-M) scored per student and per teacher, folded into a single
// aggregate fitness, with full per-entity detail retained for snapshot
// emission (§6).
package evaluate

import (
	"math"

	"github.com/hashicorp/go-hclog"

	"smuggr.xyz/horarium/common/models/input"
	"smuggr.xyz/horarium/common/models/output"
	"smuggr.xyz/horarium/core/genotype"
	"smuggr.xyz/horarium/core/problem"
	"smuggr.xyz/horarium/core/repair"
)

// Evaluator scores repaired individuals against a ProblemInstance. It
// holds no per-job mutable state besides a logger; the same Evaluator MAY
// be reused across individuals and across jobs.
type Evaluator struct {
	log hclog.Logger
}

// New constructs an Evaluator. A nil logger falls back to a discarding one.
func New(log hclog.Logger) *Evaluator {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Evaluator{log: log.Named("evaluate")}
}

// Evaluate invokes Repair, then computes the aggregate fitness and the
// full per-entity decoded solution (§4.4, §6). ind.Fitness is set as a
// side effect. On repair failure, ind.Fitness is set to -1 and the
// returned SolutionData carries reset (empty) detail vectors.
func (e *Evaluator) Evaluate(ind *genotype.Individual, p *problem.Instance, schema *genotype.Schema) *output.SolutionData {
	if !p.Feasible() {
		ind.Fitness = -1
		return resetSolution(ind, p)
	}
	if len(ind.Genes) != schema.Len() {
		e.log.Error("genotype shape mismatch", "got", len(ind.Genes), "want", schema.Len())
		ind.Fitness = 0
		return resetSolution(ind, p)
	}

	if !repair.Repair(ind, p, schema, e.log) {
		ind.Fitness = -1
		return resetSolution(ind, p)
	}

	groupCounts, studentGroups := decode(ind, p)

	sol := &output.SolutionData{
		Genotype:       append([]int(nil), ind.Genes...),
		ByStudent:      studentGroups,
		ByGroup:        make([]output.GroupPlacement, p.GroupsNum()),
		DaysInCycle:    p.Raw.DaysInCycle,
		TimeslotsDaily: p.Raw.TimeslotsDaily,
	}
	for g := 0; g < p.GroupsNum(); g++ {
		if groupCounts[g] == 0 {
			continue
		}
		subject := p.SubjectOf(g)
		duration := p.Raw.SubjectDuration[subject]
		start := ind.Genes[schema.TimeslotLocus(g)]
		sol.ByGroup[g] = output.GroupPlacement{
			StartTimeslot: start,
			EndTimeslot:   start + duration - 1,
			Room:          ind.Genes[schema.RoomLocus(g)],
		}
	}

	var totalStudentScore, totalTeacherScore float64

	sol.StudentFitnesses = make([]float64, p.StudentsNum())
	sol.StudentDetailedFitnesses = make([][]output.ScoreDetail, p.StudentsNum())
	sol.StudentWeightedFitnesses = make([]float64, p.StudentsNum())

	for s := 0; s < p.StudentsNum(); s++ {
		classes := classesForGroups(p, studentGroups[s], ind, schema, groupCounts)
		cats, detail := studentCategories(p, s, classes, studentGroups[s])
		score := combine(cats)
		w := p.StudentWeight(s)

		sol.StudentFitnesses[s] = score
		sol.StudentDetailedFitnesses[s] = detail
		sol.StudentWeightedFitnesses[s] = score * w
		sol.TotalStudentWeight += w
		totalStudentScore += w * score
	}

	sol.TeacherFitnesses = make([]float64, p.TeachersNum())
	sol.TeacherDetailedFitnesses = make([][]output.ScoreDetail, p.TeachersNum())
	sol.TeacherWeightedFitnesses = make([]float64, p.TeachersNum())

	for t := 0; t < p.TeachersNum(); t++ {
		owned := ownedGroups(p.Raw.TeachersGroups[t], groupCounts)
		classes := classesForGroups(p, owned, ind, schema, groupCounts)
		cats, detail := teacherCategories(p, t, classes)
		score := combine(cats)
		w := p.TeacherWeight(t)

		sol.TeacherFitnesses[t] = score
		sol.TeacherDetailedFitnesses[t] = detail
		sol.TeacherWeightedFitnesses[t] = score * w
		sol.TotalTeacherWeight += w
		totalTeacherScore += w * score
	}

	wTotal := sol.TotalStudentWeight + sol.TotalTeacherWeight
	fitness := 0.0
	if wTotal > 0 {
		fitness = (totalStudentScore + totalTeacherScore) / wTotal
	}

	ind.Fitness = fitness
	sol.Fitness = fitness
	return sol
}

func resetSolution(ind *genotype.Individual, p *problem.Instance) *output.SolutionData {
	return &output.SolutionData{
		Genotype:       append([]int(nil), ind.Genes...),
		Fitness:        ind.Fitness,
		ByStudent:      make([][]int, p.StudentsNum()),
		ByGroup:        make([]output.GroupPlacement, p.GroupsNum()),
		DaysInCycle:    p.Raw.DaysInCycle,
		TimeslotsDaily: p.Raw.TimeslotsDaily,
	}
}

// decode walks the enrollment segment once, returning per-group student
// counts and, per student, the absolute group ids assigned in declared
// subject order.
func decode(ind *genotype.Individual, p *problem.Instance) ([]int, [][]int) {
	groupCounts := make([]int, p.GroupsNum())
	studentGroups := make([][]int, p.StudentsNum())

	locus := 0
	for s, subs := range p.Raw.StudentsSubjects {
		studentGroups[s] = make([]int, len(subs))
		for i := range subs {
			relGroup := ind.Genes[locus]
			absGroup, err := p.AbsoluteGroup(locus, relGroup)
			if err == nil {
				studentGroups[s][i] = absGroup
				groupCounts[absGroup]++
			} else {
				studentGroups[s][i] = -1
			}
			locus++
		}
	}
	return groupCounts, studentGroups
}

func ownedGroups(declared []int, groupCounts []int) []int {
	var owned []int
	for _, g := range declared {
		if g >= 0 && g < len(groupCounts) && groupCounts[g] > 0 {
			owned = append(owned, g)
		}
	}
	return owned
}

// class is one occupied block, expressed both in absolute timeslots and
// in within-day offsets (valid because Phase 3 guarantees a class never
// spans a day boundary).
type class struct {
	Day        int
	startOff   int
	endOff     int
	groupID    int
	durationTS int
}

func classesForGroups(p *problem.Instance, groups []int, ind *genotype.Individual, schema *genotype.Schema, groupCounts []int) []class {
	var out []class
	for _, g := range groups {
		if g < 0 || g >= p.GroupsNum() || groupCounts[g] == 0 {
			continue
		}
		subject := p.SubjectOf(g)
		if subject < 0 {
			continue
		}
		duration := p.Raw.SubjectDuration[subject]
		start := ind.Genes[schema.TimeslotLocus(g)]
		day := p.DayOf(start)
		startOff := start - day*p.Raw.TimeslotsDaily
		out = append(out, class{
			Day:        day,
			startOff:   startOff,
			endOff:     startOff + duration - 1,
			groupID:    g,
			durationTS: duration,
		})
	}
	return out
}

type dayStat struct {
	active bool
	length int
	gaps   []int
	start  int
	end    int
}

// dayStats buckets classes by day and derives, per active day, the day
// length and the list of gap lengths between occupied offsets (§4.4).
func dayStats(classes []class, timeslotsDaily, daysInCycle int) map[int]dayStat {
	byDay := make(map[int][]class)
	for _, c := range classes {
		byDay[c.Day] = append(byDay[c.Day], c)
	}

	stats := make(map[int]dayStat, len(byDay))
	for day, cs := range byDay {
		occupied := make([]bool, timeslotsDaily)
		for _, c := range cs {
			for off := c.startOff; off <= c.endOff && off < timeslotsDaily; off++ {
				if off >= 0 {
					occupied[off] = true
				}
			}
		}
		first, last := -1, -1
		for i, v := range occupied {
			if v {
				if first == -1 {
					first = i
				}
				last = i
			}
		}
		if first == -1 {
			continue
		}

		var gaps []int
		run := 0
		for i := first; i <= last; i++ {
			if occupied[i] {
				if run > 0 {
					gaps = append(gaps, run)
					run = 0
				}
			} else {
				run++
			}
		}
		if run > 0 {
			gaps = append(gaps, run)
		}

		stats[day] = dayStat{active: true, length: last - first + 1, gaps: gaps, start: first, end: last}
	}
	return stats
}

// categoryScore is a single preference category's raw score (clamped to
// [0,1], pre sign-flip) and its configured signed weight.
type categoryScore struct {
	Raw    float64
	Weight float64
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// combine folds a set of categories into one [0,1] score per §4.4's
// sign-flip and weighted-average rule. Shared by the per-entity
// aggregation and by K's internal per-rule aggregation.
func combine(cats []categoryScore) float64 {
	var sumScore, sumWeight float64
	for _, c := range cats {
		if c.Weight == 0 {
			continue
		}
		r, w := c.Raw, c.Weight
		if w < 0 {
			r = 1 - r
			w = -w
		}
		sumScore += r * w
		sumWeight += w
	}
	if sumWeight == 0 {
		return 1.0
	}
	return sumScore / sumWeight
}

// commonPref is the category surface shared by students and teachers
// (A-L); studentCategories adds category M on top of it.
type commonPref struct {
	FreeDays, ShortDays, UniformDays, ConcentratedDays int

	MinGapsLength, MinGapsWeight int
	MaxGapsLength, MaxGapsWeight int

	MinDayLength, MinDayLengthWeight int
	MaxDayLength, MaxDayLengthWeight int

	PreferredStart, PreferredStartWeight int
	PreferredEnd, PreferredEndWeight     int

	TagOrderRules      []input.TagOrderRule
	PreferredTimeslots []int
}

func fromStudentPref(pref input.StudentPreference) commonPref {
	return commonPref{
		FreeDays: pref.FreeDays, ShortDays: pref.ShortDays,
		UniformDays: pref.UniformDays, ConcentratedDays: pref.ConcentratedDays,
		MinGapsLength: pref.MinGapsLength, MinGapsWeight: pref.MinGapsWeight,
		MaxGapsLength: pref.MaxGapsLength, MaxGapsWeight: pref.MaxGapsWeight,
		MinDayLength: pref.MinDayLength, MinDayLengthWeight: pref.MinDayLengthWeight,
		MaxDayLength: pref.MaxDayLength, MaxDayLengthWeight: pref.MaxDayLengthWeight,
		PreferredStart: pref.PreferredStart, PreferredStartWeight: pref.PreferredStartWeight,
		PreferredEnd: pref.PreferredEnd, PreferredEndWeight: pref.PreferredEndWeight,
		TagOrderRules: pref.TagOrderRules, PreferredTimeslots: pref.PreferredTimeslots,
	}
}

func fromTeacherPref(pref input.TeacherPreference) commonPref {
	return commonPref{
		FreeDays: pref.FreeDays, ShortDays: pref.ShortDays,
		UniformDays: pref.UniformDays, ConcentratedDays: pref.ConcentratedDays,
		MinGapsLength: pref.MinGapsLength, MinGapsWeight: pref.MinGapsWeight,
		MaxGapsLength: pref.MaxGapsLength, MaxGapsWeight: pref.MaxGapsWeight,
		MinDayLength: pref.MinDayLength, MinDayLengthWeight: pref.MinDayLengthWeight,
		MaxDayLength: pref.MaxDayLength, MaxDayLengthWeight: pref.MaxDayLengthWeight,
		PreferredStart: pref.PreferredStart, PreferredStartWeight: pref.PreferredStartWeight,
		PreferredEnd: pref.PreferredEnd, PreferredEndWeight: pref.PreferredEndWeight,
		TagOrderRules: pref.TagOrderRules, PreferredTimeslots: pref.PreferredTimeslots,
	}
}

// commonCategories computes categories A-L (§4.4), shared verbatim
// between students and teachers.
func commonCategories(p *problem.Instance, classes []class, pref commonPref) []categoryScore {
	D := float64(p.Raw.DaysInCycle)
	Td := float64(p.Raw.TimeslotsDaily)
	stats := dayStats(classes, p.Raw.TimeslotsDaily, p.Raw.DaysInCycle)

	var activeDays []int
	lengths := make([]float64, 0, len(stats))
	for day, st := range stats {
		if st.active {
			activeDays = append(activeDays, day)
			lengths = append(lengths, float64(st.length))
		}
	}
	activeCount := float64(len(activeDays))

	// A FreeDays
	rawA := (D - activeCount) / D

	// B ShortDays
	rawB := 1.0
	weightB := float64(pref.ShortDays)
	if activeCount > 0 {
		sum := 0.0
		for _, l := range lengths {
			sum += (Td - l) / Td
		}
		rawB = sum / activeCount
	} else {
		weightB = 0
	}

	// C UniformDays
	rawC := 1.0
	weightC := float64(pref.UniformDays)
	if len(lengths) > 1 {
		mean := 0.0
		for _, l := range lengths {
			mean += l
		}
		mean /= float64(len(lengths))
		variance := 0.0
		for _, l := range lengths {
			variance += (l - mean) * (l - mean)
		}
		variance /= float64(len(lengths))
		stddev := math.Sqrt(variance)
		rawC = clamp01(1 - stddev/(Td/2))
	} else {
		weightC = 0
	}

	// D ConcentratedDays (cyclic transitions between busy/free days)
	activeByDay := make([]bool, p.Raw.DaysInCycle)
	for _, d := range activeDays {
		activeByDay[d] = true
	}
	transitions := 0
	for i := 0; i < p.Raw.DaysInCycle; i++ {
		j := (i + 1) % p.Raw.DaysInCycle
		if activeByDay[i] != activeByDay[j] {
			transitions++
		}
	}
	rawD := 1 - float64(transitions)/D

	// E/F gap-length categories
	daysWithGaps := 0
	minOK, maxOK := 0, 0
	for _, day := range activeDays {
		st := stats[day]
		if len(st.gaps) == 0 {
			continue
		}
		daysWithGaps++
		allMin, allMax := true, true
		for _, g := range st.gaps {
			if g < pref.MinGapsLength {
				allMin = false
			}
			if g > pref.MaxGapsLength {
				allMax = false
			}
		}
		if allMin {
			minOK++
		}
		if allMax {
			maxOK++
		}
	}
	rawE, rawF := 1.0, 1.0
	if daysWithGaps > 0 {
		rawE = float64(minOK) / float64(daysWithGaps)
		rawF = float64(maxOK) / float64(daysWithGaps)
	}

	// G/H day-length categories
	rawG, rawH := 1.0, 1.0
	if activeCount > 0 {
		gOK, hOK := 0, 0
		for _, l := range lengths {
			if l >= float64(pref.MinDayLength) {
				gOK++
			}
			if l <= float64(pref.MaxDayLength) {
				hOK++
			}
		}
		rawG = float64(gOK) / activeCount
		rawH = float64(hOK) / activeCount
	}

	// I/J start/end preference
	rawI, rawJ := 1.0, 1.0
	if activeCount > 0 {
		sumI, sumJ := 0.0, 0.0
		for _, day := range activeDays {
			st := stats[day]
			sumI += math.Abs(float64(st.start-pref.PreferredStart)) / Td
			sumJ += math.Abs(float64(st.end-pref.PreferredEnd)) / Td
		}
		rawI = 1 - sumI/activeCount
		rawJ = 1 - sumJ/activeCount
	}

	rawK, weightK := tagOrderCategory(p, classes, pref.TagOrderRules)
	rawL, weightL := preferredTimeslotsCategory(p, classes, pref.PreferredTimeslots)

	return []categoryScore{
		{rawA, float64(pref.FreeDays)},
		{rawB, weightB},
		{rawC, weightC},
		{rawD, float64(pref.ConcentratedDays)},
		{rawE, float64(pref.MinGapsWeight)},
		{rawF, float64(pref.MaxGapsWeight)},
		{rawG, float64(pref.MinDayLengthWeight)},
		{rawH, float64(pref.MaxDayLengthWeight)},
		{rawI, float64(pref.PreferredStartWeight)},
		{rawJ, float64(pref.PreferredEndWeight)},
		{rawK, weightK},
		{rawL, weightL},
	}
}

// tagOrderCategory computes category K: the back-to-back same-day class
// pairs for this entity are the shared universe every rule is scored
// against, then the per-rule scores are folded into one category via the
// same sign-flip/weighted-average rule used at the top level.
func tagOrderCategory(p *problem.Instance, classes []class, rules []input.TagOrderRule) (float64, float64) {
	if len(rules) == 0 {
		return 1.0, 0
	}

	byDay := make(map[int][]class)
	for _, c := range classes {
		byDay[c.Day] = append(byDay[c.Day], c)
	}

	var firstTags, secondTags [][]int // group tags of the two members of each back-to-back pair
	for _, cs := range byDay {
		for i := range cs {
			for j := range cs {
				if i == j {
					continue
				}
				if cs[j].startOff == cs[i].endOff+1 {
					firstTags = append(firstTags, p.GroupTags(cs[i].groupID))
					secondTags = append(secondTags, p.GroupTags(cs[j].groupID))
				}
			}
		}
	}

	rulesCats := make([]categoryScore, 0, len(rules))
	for _, rule := range rules {
		raw := 1.0
		if len(firstTags) > 0 {
			matches := 0
			for i := range firstTags {
				if containsTag(firstTags[i], rule.TagA) && containsTag(secondTags[i], rule.TagB) {
					matches++
				}
			}
			raw = float64(matches) / float64(len(firstTags))
		}
		rulesCats = append(rulesCats, categoryScore{raw, float64(rule.Weight)})
	}
	return combine(rulesCats), sumAbsWeights(rules)
}

func containsTag(tags []int, tag int) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sumAbsWeights(rules []input.TagOrderRule) float64 {
	sum := 0.0
	for _, r := range rules {
		sum += math.Abs(float64(r.Weight))
	}
	return sum
}

// preferredTimeslotsCategory computes category L: obtained is the sum of
// configured weights over each owned group's occupied timeslot range;
// min/max possible are computed by sliding each group's own duration
// window across the full weight array (§4.4).
func preferredTimeslotsCategory(p *problem.Instance, classes []class, weights []int) (float64, float64) {
	if len(weights) == 0 {
		return 1.0, 0
	}

	obtained := 0.0
	minPossible, maxPossible := 0.0, 0.0

	for _, c := range classes {
		start := c.Day*p.Raw.TimeslotsDaily + c.startOff
		for t := 0; t < c.durationTS; t++ {
			ts := start + t
			if ts >= 0 && ts < len(weights) {
				obtained += float64(weights[ts])
			}
		}

		windowMin, windowMax := math.Inf(1), math.Inf(-1)
		found := false
		for w := 0; w+c.durationTS <= len(weights); w++ {
			sum := 0.0
			for t := 0; t < c.durationTS; t++ {
				sum += float64(weights[w+t])
			}
			if sum < windowMin {
				windowMin = sum
			}
			if sum > windowMax {
				windowMax = sum
			}
			found = true
		}
		if found {
			minPossible += windowMin
			maxPossible += windowMax
		}
	}

	weightTotal := 0.0
	for _, w := range weights {
		weightTotal += math.Abs(float64(w))
	}

	if maxPossible-minPossible == 0 {
		return 1.0, 0
	}
	raw := (obtained - minPossible) / (maxPossible - minPossible)
	return clamp01(raw), weightTotal
}

// preferredGroupsCategory computes category M (student only): the
// fraction of explicit, enrolled preference decisions satisfied. A
// positive weight at group g is satisfied when the student's assigned
// group for g's subject is g; a negative weight is satisfied when it
// is not.
func preferredGroupsCategory(p *problem.Instance, studentSubjects []int, assignedGroups []int, weights []int) (float64, float64) {
	if len(weights) == 0 {
		return 1.0, 0
	}

	bySubject := make(map[int]int, len(studentSubjects))
	for i, subj := range studentSubjects {
		if i < len(assignedGroups) {
			bySubject[subj] = assignedGroups[i]
		}
	}

	total, satisfied := 0, 0
	weightSum := 0.0
	for g, w := range weights {
		if w == 0 {
			continue
		}
		subject := p.SubjectOf(g)
		assigned, enrolled := bySubject[subject]
		if !enrolled {
			continue
		}
		total++
		weightSum += math.Abs(float64(w))
		if (w > 0 && assigned == g) || (w < 0 && assigned != g) {
			satisfied++
		}
	}
	if total == 0 {
		return 1.0, 0
	}
	return float64(satisfied) / float64(total), weightSum
}

func studentCategories(p *problem.Instance, s int, classes []class, assignedGroups []int) ([]categoryScore, []output.ScoreDetail) {
	var pref input.StudentPreference
	if s < len(p.Raw.StudentsPreferences) {
		pref = p.Raw.StudentsPreferences[s]
	}

	cats := commonCategories(p, classes, fromStudentPref(pref))
	rawM, weightM := preferredGroupsCategory(p, p.Raw.StudentsSubjects[s], assignedGroups, pref.PreferredGroups)
	cats = append(cats, categoryScore{rawM, weightM})

	detail := make([]output.ScoreDetail, len(cats))
	for i, c := range cats {
		detail[i] = output.ScoreDetail{Score: clamp01(c.Raw), Weight: c.Weight}
	}
	return cats, detail
}

func teacherCategories(p *problem.Instance, t int, classes []class) ([]categoryScore, []output.ScoreDetail) {
	var pref input.TeacherPreference
	if t < len(p.Raw.TeachersPreferences) {
		pref = p.Raw.TeachersPreferences[t]
	}

	cats := commonCategories(p, classes, fromTeacherPref(pref))

	detail := make([]output.ScoreDetail, len(cats))
	for i, c := range cats {
		detail[i] = output.ScoreDetail{Score: clamp01(c.Raw), Weight: c.Weight}
	}
	return cats, detail
}
