package services

import (
	"fmt"
	"sort"

	"studybuddy-backend/internal/models"
)

const (
	studyPlanCourses      = 3
	studyPlanTotalMinutes = 180
	studyPlanFirstHour    = 9
	studyPlanHourStep     = 2
)

// BuildStudyPlan picks the least progressed courses and splits the daily
// study budget evenly between them. The remainder goes to the last course.
func BuildStudyPlan(courses []*models.Course) []models.StudyPlanItem {
	if len(courses) == 0 {
		return []models.StudyPlanItem{}
	}

	sorted := make([]*models.Course, len(courses))
	copy(sorted, courses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Progress < sorted[j].Progress
	})
	if len(sorted) > studyPlanCourses {
		sorted = sorted[:studyPlanCourses]
	}

	n := len(sorted)
	per := studyPlanTotalMinutes / n
	remainder := studyPlanTotalMinutes - per*n

	plan := make([]models.StudyPlanItem, 0, n)
	for i, c := range sorted {
		minutes := per
		if i == n-1 {
			minutes += remainder
		}
		start := studyPlanFirstHour + studyPlanHourStep*i
		end := start + minutes/60
		plan = append(plan, models.StudyPlanItem{
			CourseID:        c.ID,
			Title:           c.CourseName,
			TimeSlot:        fmt.Sprintf("%d:00 - %d:00", start, end),
			DurationMinutes: minutes,
			Progress:        c.Progress,
		})
	}
	return plan
}
