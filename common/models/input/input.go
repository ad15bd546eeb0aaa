// Package input carries the wire-facing, unvalidated representation of a
// scheduling job: the raw problem data a caller submits plus the job
// envelope around it. Nothing in this package derives or validates
// anything -- that's core/problem's job.
package input

// StudentPreference holds one student's signed weight for each soft
// preference category (§4.4 categories A-M). A zero weight means the
// category is switched off for that student.
type StudentPreference struct {
	FreeDays           int `json:"free_days,omitempty"`
	ShortDays          int `json:"short_days,omitempty"`
	UniformDays        int `json:"uniform_days,omitempty"`
	ConcentratedDays   int `json:"concentrated_days,omitempty"`
	MinGapsLength      int `json:"min_gaps_length,omitempty"`
	MinGapsWeight      int `json:"min_gaps_weight,omitempty"`
	MaxGapsLength      int `json:"max_gaps_length,omitempty"`
	MaxGapsWeight      int `json:"max_gaps_weight,omitempty"`
	MinDayLength       int `json:"min_day_length,omitempty"`
	MinDayLengthWeight int `json:"min_day_length_weight,omitempty"`
	MaxDayLength       int `json:"max_day_length,omitempty"`
	MaxDayLengthWeight int `json:"max_day_length_weight,omitempty"`
	PreferredStart     int `json:"preferred_start,omitempty"`
	PreferredStartWeight int `json:"preferred_start_weight,omitempty"`
	PreferredEnd       int `json:"preferred_end,omitempty"`
	PreferredEndWeight int `json:"preferred_end_weight,omitempty"`

	// TagOrderRules: each rule is (tagA, tagB, weight); scored as the
	// fraction of adjacent same-day back-to-back group pairs whose first
	// group carries tagA and second carries tagB.
	TagOrderRules []TagOrderRule `json:"tag_order_rules,omitempty"`

	// PreferredTimeslots: one signed weight per timeslot in the cycle.
	PreferredTimeslots []int `json:"preferred_timeslots,omitempty"`

	// PreferredGroups: one signed weight per group id the student is
	// eligible for (category M, student-only).
	PreferredGroups []int `json:"preferred_groups,omitempty"`
}

// TeacherPreference mirrors StudentPreference minus category M
// (PreferredGroups), since teachers don't enroll in groups.
type TeacherPreference struct {
	FreeDays             int `json:"free_days,omitempty"`
	ShortDays            int `json:"short_days,omitempty"`
	UniformDays          int `json:"uniform_days,omitempty"`
	ConcentratedDays     int `json:"concentrated_days,omitempty"`
	MinGapsLength        int `json:"min_gaps_length,omitempty"`
	MinGapsWeight        int `json:"min_gaps_weight,omitempty"`
	MaxGapsLength        int `json:"max_gaps_length,omitempty"`
	MaxGapsWeight        int `json:"max_gaps_weight,omitempty"`
	MinDayLength         int `json:"min_day_length,omitempty"`
	MinDayLengthWeight   int `json:"min_day_length_weight,omitempty"`
	MaxDayLength         int `json:"max_day_length,omitempty"`
	MaxDayLengthWeight   int `json:"max_day_length_weight,omitempty"`
	PreferredStart       int `json:"preferred_start,omitempty"`
	PreferredStartWeight int `json:"preferred_start_weight,omitempty"`
	PreferredEnd         int `json:"preferred_end,omitempty"`
	PreferredEndWeight   int `json:"preferred_end_weight,omitempty"`

	TagOrderRules      []TagOrderRule `json:"tag_order_rules,omitempty"`
	PreferredTimeslots []int          `json:"preferred_timeslots,omitempty"`
}

// TagOrderRule is one (tagA, tagB, weight) entry of category K.
type TagOrderRule struct {
	TagA   int `json:"tag_a"`
	TagB   int `json:"tag_b"`
	Weight int `json:"weight"`
}

// RawProblemData is the caller-submitted description of a recruitment
// cycle, exactly the fields §3 of the spec names. Nothing here is derived
// or validated; core/problem.New does that.
type RawProblemData struct {
	TimeslotsDaily    int `json:"timeslots_daily"`
	DaysInCycle       int `json:"days_in_cycle"`
	MinStudentsPerGroup []int `json:"min_students_per_group"`

	GroupsPerSubject []int `json:"groups_per_subject"`
	SubjectDuration  []int `json:"subject_duration"`

	GroupsCapacity []int     `json:"groups_capacity"`
	GroupsTags     [][]int   `json:"groups_tags"`

	RoomsCapacity               []int   `json:"rooms_capacity"`
	RoomsTags                   [][]int `json:"rooms_tags"`
	RoomsUnavailabilityTimeslots [][]int `json:"rooms_unavailability_timeslots"`

	StudentsSubjects              [][]int `json:"students_subjects"`
	StudentsUnavailabilityTimeslots [][]int `json:"students_unavailability_timeslots"`
	StudentWeights                 []float64 `json:"student_weights"`
	StudentsPreferences             []StudentPreference `json:"students_preferences"`

	TeachersGroups                  [][]int `json:"teachers_groups"`
	TeachersUnavailabilityTimeslots [][]int `json:"teachers_unavailability_timeslots"`
	TeacherWeights                   []float64 `json:"teacher_weights"`
	TeachersPreferences              []TeacherPreference `json:"teachers_preferences"`
}

// RawJobData is the job envelope a caller submits through the intake
// collaborator (§6).
type RawJobData struct {
	RecruitmentID     string          `json:"recruitment_id"`
	ProblemData       RawProblemData  `json:"problem_data"`
	MaxExecutionTime  int             `json:"max_execution_time"`
}

// DefaultMaxExecutionTime is applied when a job omits max_execution_time.
const DefaultMaxExecutionTime = 300
