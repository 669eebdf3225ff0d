package dto

// AdminDashboardResponse captures the aggregated admin dashboard payload.
type AdminDashboardResponse struct {
	Children      ChildrenSection      `json:"children"`
	Attendance    AttendanceSection    `json:"attendance"`
	Assignments   AssignmentsSection   `json:"assignments"`
	Announcements AnnouncementsSection `json:"announcements"`
}

// ChildrenSection summarises enrollment counts.
type ChildrenSection struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	PerGroup int `json:"groups"`
}

// AttendanceSection summarises today's attendance.
type AttendanceSection struct {
	Date        string  `json:"date"`
	Present     int     `json:"present"`
	Absent      int     `json:"absent"`
	OverallRate float64 `json:"overallRate"`
}

// AssignmentsSection summarises grading workload.
type AssignmentsSection struct {
	Open          int `json:"open"`
	Ungraded      int `json:"ungraded"`
	GradedToday   int `json:"gradedToday"`
	NeedsRevision int `json:"needsRevision"`
}

// AnnouncementsSection counts live announcements.
type AnnouncementsSection struct {
	Active int `json:"active"`
	Pinned int `json:"pinned"`
}

// TeacherDashboardResponse captures a teacher's grading queue and schedule.
type TeacherDashboardResponse struct {
	TeacherID   string              `json:"teacherId"`
	Ungraded    []UngradedItem      `json:"ungraded"`
	TodaySlots  []ScheduleSlotBrief `json:"todaySlots"`
	GroupCounts []GroupCount        `json:"groupCounts"`
}

// UngradedItem is one pending grading task.
type UngradedItem struct {
	SubmissionID string `json:"submissionId"`
	AssignmentID string `json:"assignmentId"`
	StudentID    string `json:"studentId"`
	SubmittedAt  string `json:"submittedAt"`
}

// ScheduleSlotBrief is a simplified schedule entry for dashboards.
type ScheduleSlotBrief struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Activity  string `json:"activity"`
}

// GroupCount pairs a group with its enrolled-children count.
type GroupCount struct {
	GroupID string `json:"groupId"`
	Count   int    `json:"count"`
}

// ParentDashboardResponse captures per-child progress for a parent.
type ParentDashboardResponse struct {
	ParentID string          `json:"parentId"`
	Children []ChildProgress `json:"children"`
}

// ChildProgress summarises one child's recent activity.
type ChildProgress struct {
	ChildID        string               `json:"childId"`
	AttendanceRate float64              `json:"attendanceRate"`
	RecentGrades   []SubmissionResponse `json:"recentGrades"`
	DueSoon        []DueAssignment      `json:"dueSoon"`
}

// DueAssignment is an upcoming assignment for the child's group.
type DueAssignment struct {
	AssignmentID string `json:"assignmentId"`
	Title        string `json:"title"`
	DueDate      string `json:"dueDate"`
}
