// Package problem builds the immutable derived view over a raw scheduling
// job (§3, §4.1). A ProblemInstance is constructed once per job and shared
// read-only by every other core component for the job's lifetime.
package problem

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"smuggr.xyz/horarium/common/models/input"
)

// Instance is the immutable, derived view over a job's raw problem data.
// Every field besides Raw is computed once at construction time.
type Instance struct {
	Raw input.RawProblemData

	TotalTimeslots      int
	TotalStudentSubjects int

	// CumulativeGroups has length len(Raw.GroupsPerSubject)+1; it is the
	// exclusive prefix sum over GroupsPerSubject.
	CumulativeGroups []int

	SubjectTotalCapacity []int
	SubjectStudentCount  []int

	feasible bool
	log      hclog.Logger
}

// SubjectsNum, GroupsNum, StudentsNum, TeachersNum, RoomsNum return the
// logical entity counts implied by the raw data's parallel vectors.
func (p *Instance) SubjectsNum() int { return len(p.Raw.GroupsPerSubject) }
func (p *Instance) GroupsNum() int   { return len(p.Raw.GroupsCapacity) }
func (p *Instance) StudentsNum() int { return len(p.Raw.StudentsSubjects) }
func (p *Instance) TeachersNum() int { return len(p.Raw.TeachersGroups) }
func (p *Instance) RoomsNum() int    { return len(p.Raw.RoomsCapacity) }

// Feasible reports the verdict computed at construction time (§4.1 step 2).
// Repair and Evaluator MUST refuse to operate when this is false.
func (p *Instance) Feasible() bool { return p.feasible }

// New constructs a ProblemInstance from raw job data, running the
// feasibility check described in §3 and §4.1. The logger defaults to a
// discarding logger when nil is passed, matching hclog's own convention for
// optional loggers.
func New(raw input.RawProblemData, log hclog.Logger) *Instance {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	p := &Instance{Raw: raw, log: log.Named("problem")}

	p.TotalTimeslots = raw.TimeslotsDaily * raw.DaysInCycle

	p.CumulativeGroups = make([]int, p.SubjectsNum()+1)
	for i := 1; i <= p.SubjectsNum(); i++ {
		p.CumulativeGroups[i] = p.CumulativeGroups[i-1] + raw.GroupsPerSubject[i-1]
	}

	p.SubjectTotalCapacity = make([]int, p.SubjectsNum())
	groupIdx := 0
	for subj := 0; subj < p.SubjectsNum(); subj++ {
		for g := 0; g < raw.GroupsPerSubject[subj]; g++ {
			if groupIdx < len(raw.GroupsCapacity) {
				p.SubjectTotalCapacity[subj] += raw.GroupsCapacity[groupIdx]
			}
			groupIdx++
		}
	}

	p.TotalStudentSubjects = 0
	for _, subs := range raw.StudentsSubjects {
		p.TotalStudentSubjects += len(subs)
	}

	p.SubjectStudentCount = make([]int, p.SubjectsNum())
	for _, subs := range raw.StudentsSubjects {
		for _, subj := range subs {
			if subj >= 0 && subj < p.SubjectsNum() {
				p.SubjectStudentCount[subj]++
			}
		}
	}

	p.feasible = p.checkFeasibility()
	return p
}

// DayOf returns the day index of a timeslot (§4.1 step 3).
func (p *Instance) DayOf(timeslot int) int {
	if p.Raw.TimeslotsDaily == 0 {
		return -1
	}
	return timeslot / p.Raw.TimeslotsDaily
}

// SubjectOf returns the subject owning an absolute group id, or -1 if out
// of range.
func (p *Instance) SubjectOf(group int) int {
	if group < 0 {
		return -1
	}
	for subj := 0; subj < p.SubjectsNum(); subj++ {
		if group < p.CumulativeGroups[subj+1] {
			return subj
		}
	}
	return -1
}

// AbsoluteGroup resolves an enrollment locus's owning subject and turns a
// relative group value into an absolute group id (§4.1 step 3).
func (p *Instance) AbsoluteGroup(enrollmentLocus, relativeValue int) (int, error) {
	if enrollmentLocus < 0 || enrollmentLocus >= p.TotalStudentSubjects {
		return 0, fmt.Errorf("enrollment locus %d out of range [0,%d)", enrollmentLocus, p.TotalStudentSubjects)
	}
	subject, ok := p.subjectOfEnrollmentLocus(enrollmentLocus)
	if !ok {
		return 0, fmt.Errorf("could not resolve subject for locus %d", enrollmentLocus)
	}
	if relativeValue < 0 || relativeValue >= p.Raw.GroupsPerSubject[subject] {
		return 0, fmt.Errorf("relative group %d out of range [0,%d) for subject %d", relativeValue, p.Raw.GroupsPerSubject[subject], subject)
	}
	return p.CumulativeGroups[subject] + relativeValue, nil
}

// subjectOfEnrollmentLocus walks students in order, then their subjects in
// order, to find which subject owns a given flat enrollment locus -- the
// same scan the original C++ ProblemData::getAbsoluteGroupIndex performs.
func (p *Instance) subjectOfEnrollmentLocus(locus int) (int, bool) {
	cumulative := 0
	for _, subs := range p.Raw.StudentsSubjects {
		if cumulative+len(subs) > locus {
			return subs[locus-cumulative], true
		}
		cumulative += len(subs)
	}
	return 0, false
}

// TeacherOf returns the teacher id teaching group g, or -1 if unassigned.
func (p *Instance) TeacherOf(group int) int {
	for t, groups := range p.Raw.TeachersGroups {
		for _, g := range groups {
			if g == group {
				return t
			}
		}
	}
	return -1
}

// GroupTags returns the tag set declared for group g.
func (p *Instance) GroupTags(group int) []int {
	var tags []int
	for _, gt := range p.Raw.GroupsTags {
		if len(gt) >= 2 && gt[0] == group {
			tags = append(tags, gt[1])
		}
	}
	return tags
}

// RoomTags returns the tag set declared for room r.
func (p *Instance) RoomTags(room int) []int {
	var tags []int
	for _, rt := range p.Raw.RoomsTags {
		if len(rt) >= 2 && rt[0] == room {
			tags = append(tags, rt[1])
		}
	}
	return tags
}

// MinStudents returns the minimum enrollment for group g, defaulting to 0
// when the job omits MinStudentsPerGroup for that group.
func (p *Instance) MinStudents(group int) int {
	if group >= 0 && group < len(p.Raw.MinStudentsPerGroup) {
		return p.Raw.MinStudentsPerGroup[group]
	}
	return 0
}

// StudentWeight and TeacherWeight return declared weights, defaulting to
// 1.0 when the job omits them.
func (p *Instance) StudentWeight(s int) float64 {
	if s >= 0 && s < len(p.Raw.StudentWeights) {
		return p.Raw.StudentWeights[s]
	}
	return 1.0
}

func (p *Instance) TeacherWeight(t int) float64 {
	if t >= 0 && t < len(p.Raw.TeacherWeights) {
		return p.Raw.TeacherWeights[t]
	}
	return 1.0
}

// checkFeasibility enforces every invariant in §3 plus the size-alignment
// of preference vectors. Every violation found is collected into a single
// multierror so the operator sees the whole picture in one log line,
// instead of being told about invariants one failed check at a time.
func (p *Instance) checkFeasibility() bool {
	raw := p.Raw
	var errs *multierror.Error

	subjectsNum := p.SubjectsNum()
	groupsNum := p.GroupsNum()
	studentsNum := p.StudentsNum()
	teachersNum := p.TeachersNum()
	roomsNum := p.RoomsNum()

	if len(raw.SubjectDuration) != subjectsNum {
		errs = multierror.Append(errs, fmt.Errorf("subject_duration size %d does not match subjects count %d", len(raw.SubjectDuration), subjectsNum))
	}
	if len(raw.RoomsUnavailabilityTimeslots) != roomsNum {
		errs = multierror.Append(errs, fmt.Errorf("rooms_unavailability_timeslots size %d does not match rooms count %d", len(raw.RoomsUnavailabilityTimeslots), roomsNum))
	}
	if len(raw.StudentsUnavailabilityTimeslots) != studentsNum {
		errs = multierror.Append(errs, fmt.Errorf("students_unavailability_timeslots size %d does not match students count %d", len(raw.StudentsUnavailabilityTimeslots), studentsNum))
	}
	if len(raw.TeachersUnavailabilityTimeslots) != teachersNum {
		errs = multierror.Append(errs, fmt.Errorf("teachers_unavailability_timeslots size %d does not match teachers count %d", len(raw.TeachersUnavailabilityTimeslots), teachersNum))
	}
	if len(raw.StudentsPreferences) != studentsNum {
		errs = multierror.Append(errs, fmt.Errorf("students_preferences size %d does not match students count %d", len(raw.StudentsPreferences), studentsNum))
	}
	if len(raw.TeachersPreferences) != teachersNum {
		errs = multierror.Append(errs, fmt.Errorf("teachers_preferences size %d does not match teachers count %d", len(raw.TeachersPreferences), teachersNum))
	}

	// invariant 5: subject_duration[p] <= timeslots_daily
	for subj, d := range raw.SubjectDuration {
		if d <= 0 || d > raw.TimeslotsDaily {
			errs = multierror.Append(errs, fmt.Errorf("subject %d has invalid duration %d (timeslots_daily=%d)", subj, d, raw.TimeslotsDaily))
		}
	}

	// invariant 2: sum(groups_per_subject) == groupsNum
	sumGroups := 0
	for _, g := range raw.GroupsPerSubject {
		sumGroups += g
	}
	if sumGroups != groupsNum {
		errs = multierror.Append(errs, fmt.Errorf("sum(groups_per_subject)=%d does not match groups_capacity size %d", sumGroups, groupsNum))
	}

	// invariant 3: subject_total_capacity[p] >= subject_student_count[p]
	for subj := 0; subj < subjectsNum; subj++ {
		if p.SubjectTotalCapacity[subj] < p.SubjectStudentCount[subj] {
			errs = multierror.Append(errs, fmt.Errorf("subject %d has %d students but only %d capacity", subj, p.SubjectStudentCount[subj], p.SubjectTotalCapacity[subj]))
		}
	}

	// invariant 4: G <= total_timeslots * R
	if groupsNum > p.TotalTimeslots*roomsNum {
		errs = multierror.Append(errs, fmt.Errorf("groups count %d exceeds total_timeslots*rooms = %d*%d = %d", groupsNum, p.TotalTimeslots, roomsNum, p.TotalTimeslots*roomsNum))
	}

	// invariant 1: referenced ids are in range
	for s, subs := range raw.StudentsSubjects {
		for _, subj := range subs {
			if subj < 0 || subj >= subjectsNum {
				errs = multierror.Append(errs, fmt.Errorf("student %d references invalid subject %d", s, subj))
			}
		}
	}
	for t, groups := range raw.TeachersGroups {
		for _, g := range groups {
			if g < 0 || g >= groupsNum {
				errs = multierror.Append(errs, fmt.Errorf("teacher %d references invalid group %d", t, g))
			}
		}
	}
	for _, gt := range raw.GroupsTags {
		if len(gt) == 0 {
			continue
		}
		if gt[0] < 0 || gt[0] >= groupsNum {
			errs = multierror.Append(errs, fmt.Errorf("groups_tags references invalid group %d", gt[0]))
		}
	}
	for _, rt := range raw.RoomsTags {
		if len(rt) == 0 {
			continue
		}
		if rt[0] < 0 || rt[0] >= roomsNum {
			errs = multierror.Append(errs, fmt.Errorf("rooms_tags references invalid room %d", rt[0]))
		}
	}
	checkTimeslots := func(label string, lists [][]int) {
		for i, ts := range lists {
			for _, t := range ts {
				if t < 0 || t >= p.TotalTimeslots {
					errs = multierror.Append(errs, fmt.Errorf("%s[%d] references invalid timeslot %d (total_timeslots=%d)", label, i, t, p.TotalTimeslots))
				}
			}
		}
	}
	checkTimeslots("rooms_unavailability_timeslots", raw.RoomsUnavailabilityTimeslots)
	checkTimeslots("students_unavailability_timeslots", raw.StudentsUnavailabilityTimeslots)
	checkTimeslots("teachers_unavailability_timeslots", raw.TeachersUnavailabilityTimeslots)

	if errs.ErrorOrNil() != nil {
		p.log.Warn("problem instance is infeasible", "errors", errs.Error())
		return false
	}
	return true
}
