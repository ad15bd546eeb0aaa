// Package repair implements the deterministic feasibility projection
// described in §4.3: a four-phase, in-place pass over a genotype that
// fixes group capacity overflow, minimum-enrollment underflow, scheduling
// conflicts, and finally detects (without attempting to fix) student
// conflicts.
package repair

import (
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-set/v3"

	"smuggr.xyz/horarium/core/genotype"
	"smuggr.xyz/horarium/core/problem"
)

// slot is a (resource id, timeslot) occupancy key, shared by the room and
// teacher occupancy trackers in Phase 3.
type slot struct {
	ID int
	TS int
}

// studentRef pairs a student id with the enrollment locus that encodes
// their group choice, so a repair phase can both identify who to move and
// where in the genotype to write the new value.
type studentRef struct {
	studentID int
	locus     int
}

// Repair projects ind onto the feasible set in place, per §4.3. It returns
// false when no feasible neighbor could be constructed, in which case the
// caller must treat ind as infeasible (fitness -1) per §4.4 and §7.
// Repair is deterministic: it never consults randomness.
func Repair(ind *genotype.Individual, p *problem.Instance, schema *genotype.Schema, log hclog.Logger) bool {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("repair")

	if !p.Feasible() {
		log.Warn("problem instance is infeasible, repair refused")
		return false
	}
	if len(ind.Genes) != schema.Len() {
		log.Error("genotype shape mismatch", "got", len(ind.Genes), "want", schema.Len())
		return false
	}

	groupCounts, groupStudents := decodeEnrollment(ind, p, schema)

	if !fixCapacityOverflow(ind, p, schema, groupCounts, groupStudents) {
		return false
	}
	if !fixMinEnrollment(ind, p, schema, groupCounts, groupStudents) {
		return false
	}
	if !fixSchedule(ind, p, schema, groupCounts, log) {
		return false
	}
	if !checkStudentConflicts(ind, p, schema) {
		return false
	}
	return true
}

// decodeEnrollment walks the enrollment segment in student-then-subject
// order (the same order the schema was built in) and returns, for every
// absolute group, its current student count and the ordered list of
// student references currently assigned to it.
func decodeEnrollment(ind *genotype.Individual, p *problem.Instance, schema *genotype.Schema) ([]int, [][]studentRef) {
	groupsNum := p.GroupsNum()
	groupCounts := make([]int, groupsNum)
	groupStudents := make([][]studentRef, groupsNum)

	locus := 0
	for s, subs := range p.Raw.StudentsSubjects {
		for range subs {
			relGroup := ind.Genes[locus]
			absGroup, err := p.AbsoluteGroup(locus, relGroup)
			if err == nil && absGroup >= 0 && absGroup < groupsNum {
				groupCounts[absGroup]++
				groupStudents[absGroup] = append(groupStudents[absGroup], studentRef{studentID: s, locus: locus})
			}
			locus++
		}
	}
	return groupCounts, groupStudents
}

// fixCapacityOverflow is Phase 1 (§4.3).
func fixCapacityOverflow(ind *genotype.Individual, p *problem.Instance, schema *genotype.Schema, groupCounts []int, groupStudents [][]studentRef) bool {
	capacity := p.Raw.GroupsCapacity

	for g := 0; g < p.GroupsNum(); g++ {
		for groupCounts[g] > capacity[g] {
			subject := p.SubjectOf(g)
			startG, endG := p.CumulativeGroups[subject], p.CumulativeGroups[subject+1]

			students := groupStudents[g]
			student := students[len(students)-1]
			groupStudents[g] = students[:len(students)-1]
			groupCounts[g]--

			moved := false
			for target := startG; target < endG; target++ {
				if target == g || groupCounts[target] >= capacity[target] {
					continue
				}
				ind.Genes[student.locus] = target - startG
				groupCounts[target]++
				groupStudents[target] = append(groupStudents[target], student)
				moved = true
				break
			}
			if !moved {
				return false
			}
		}
	}
	return true
}

// fixMinEnrollment is Phase 2 (§4.3).
func fixMinEnrollment(ind *genotype.Individual, p *problem.Instance, schema *genotype.Schema, groupCounts []int, groupStudents [][]studentRef) bool {
	capacity := p.Raw.GroupsCapacity

	for subject := 0; subject < p.SubjectsNum(); subject++ {
		startG, endG := p.CumulativeGroups[subject], p.CumulativeGroups[subject+1]

		for g := startG; g < endG; g++ {
			minStudents := p.MinStudents(g)
			for groupCounts[g] > 0 && groupCounts[g] < minStudents {
				students := groupStudents[g]
				student := students[len(students)-1]
				groupStudents[g] = students[:len(students)-1]
				groupCounts[g]--

				bestTarget := -1
				for target := startG; target < endG; target++ {
					if target == g || groupCounts[target] >= capacity[target] {
						continue
					}
					if bestTarget == -1 {
						bestTarget = target
						continue
					}
					currentSafe := groupCounts[bestTarget] >= p.MinStudents(bestTarget)
					newSafe := groupCounts[target] >= p.MinStudents(target)
					if !currentSafe && newSafe {
						bestTarget = target
					} else if !currentSafe && !newSafe && groupCounts[target] > groupCounts[bestTarget] {
						bestTarget = target
					}
				}

				if bestTarget == -1 {
					return false
				}
				ind.Genes[student.locus] = bestTarget - startG
				groupCounts[bestTarget]++
				groupStudents[bestTarget] = append(groupStudents[bestTarget], student)
			}
		}
	}
	return true
}

// fixSchedule is Phase 3 (§4.3): validate or relocate each non-empty
// group's (start, room) pair so it satisfies day-fit, room capacity, tag
// compatibility, room/teacher unavailability, and non-conflict with every
// already-placed group sharing its room or teacher.
func fixSchedule(ind *genotype.Individual, p *problem.Instance, schema *genotype.Schema, groupCounts []int, log hclog.Logger) bool {
	timeslotsDaily := p.Raw.TimeslotsDaily
	daysNum := p.Raw.DaysInCycle
	roomsNum := p.RoomsNum()

	occupiedRoom := set.New[slot](64)
	occupiedTeacher := set.New[slot](64)

	for r, unavail := range p.Raw.RoomsUnavailabilityTimeslots {
		for _, ts := range unavail {
			occupiedRoom.Insert(slot{ID: r, TS: ts})
		}
	}
	for t, unavail := range p.Raw.TeachersUnavailabilityTimeslots {
		for _, ts := range unavail {
			occupiedTeacher.Insert(slot{ID: t, TS: ts})
		}
	}

	for g := 0; g < p.GroupsNum(); g++ {
		if groupCounts[g] == 0 {
			continue
		}

		subject := p.SubjectOf(g)
		if subject < 0 || subject >= len(p.Raw.SubjectDuration) {
			log.Error("invalid subject for group", "group", g, "subject", subject)
			return false
		}
		duration := p.Raw.SubjectDuration[subject]
		teacher := p.TeacherOf(g)

		tsLocus, roomLocus := schema.TimeslotLocus(g), schema.RoomLocus(g)
		currentTS, currentRoom := ind.Genes[tsLocus], ind.Genes[roomLocus]

		gTags := p.GroupTags(g)

		valid := scheduleValid(p, currentTS, currentRoom, duration, timeslotsDaily, groupCounts[g], gTags, occupiedRoom, occupiedTeacher, teacher)

		if !valid {
			found := false
		search:
			for d := 0; d < daysNum; d++ {
				for off := 0; off <= timeslotsDaily-duration; off++ {
					startTS := d*timeslotsDaily + off

					if teacher != -1 && teacherBusy(occupiedTeacher, teacher, startTS, duration) {
						continue
					}

					for r := 0; r < roomsNum; r++ {
						if p.Raw.RoomsCapacity[r] < groupCounts[g] {
							continue
						}
						if !tagsSubset(gTags, p.RoomTags(r)) {
							continue
						}
						if roomBusy(occupiedRoom, r, startTS, duration) {
							continue
						}
						ind.Genes[tsLocus] = startTS
						ind.Genes[roomLocus] = r
						currentTS, currentRoom = startTS, r
						found = true
						break search
					}
				}
			}
			if !found {
				return false
			}
		}

		for t := 0; t < duration; t++ {
			occupiedRoom.Insert(slot{ID: currentRoom, TS: currentTS + t})
			if teacher != -1 {
				occupiedTeacher.Insert(slot{ID: teacher, TS: currentTS + t})
			}
		}
	}
	return true
}

func scheduleValid(p *problem.Instance, ts, room, duration, timeslotsDaily, count int, groupTags []int, occupiedRoom, occupiedTeacher *set.Set[slot], teacher int) bool {
	if room < 0 || room >= p.RoomsNum() {
		return false
	}
	day := p.DayOf(ts)
	if ts+duration > (day+1)*timeslotsDaily {
		return false
	}
	if p.Raw.RoomsCapacity[room] < count {
		return false
	}
	if !tagsSubset(groupTags, p.RoomTags(room)) {
		return false
	}
	if roomBusy(occupiedRoom, room, ts, duration) {
		return false
	}
	if teacher != -1 && teacherBusy(occupiedTeacher, teacher, ts, duration) {
		return false
	}
	return true
}

func roomBusy(occupied *set.Set[slot], room, ts, duration int) bool {
	for t := 0; t < duration; t++ {
		if occupied.Contains(slot{ID: room, TS: ts + t}) {
			return true
		}
	}
	return false
}

func teacherBusy(occupied *set.Set[slot], teacher, ts, duration int) bool {
	for t := 0; t < duration; t++ {
		if occupied.Contains(slot{ID: teacher, TS: ts + t}) {
			return true
		}
	}
	return false
}

// tagsSubset reports whether every tag in group is present in room.
func tagsSubset(group, room []int) bool {
	for _, tag := range group {
		found := false
		for _, rt := range room {
			if rt == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// checkStudentConflicts is Phase 4 (§4.3): no attempt is made to repair a
// student conflict, since doing so would require rearranging groups
// already committed in Phase 3.
func checkStudentConflicts(ind *genotype.Individual, p *problem.Instance, schema *genotype.Schema) bool {
	locus := 0
	for s, subs := range p.Raw.StudentsSubjects {
		occupied := set.New[int](8)
		if s < len(p.Raw.StudentsUnavailabilityTimeslots) {
			for _, ts := range p.Raw.StudentsUnavailabilityTimeslots[s] {
				occupied.Insert(ts)
			}
		}

		for range subs {
			relGroup := ind.Genes[locus]
			absGroup, err := p.AbsoluteGroup(locus, relGroup)
			locus++
			if err != nil {
				return false
			}

			subject := p.SubjectOf(absGroup)
			duration := p.Raw.SubjectDuration[subject]
			startTS := ind.Genes[schema.TimeslotLocus(absGroup)]

			for t := 0; t < duration; t++ {
				ts := startTS + t
				if occupied.Contains(ts) {
					return false
				}
				occupied.Insert(ts)
			}
		}
	}
	return true
}
