package service

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-exam-results/internal/models"
)

// GradeNotAvailable is returned by ResolveGrade when the tenant has no grade scale.
const GradeNotAvailable = "N/A"

// ResolveGrade maps a percentage onto the tenant scale. The percentage is truncated to two
// decimals, the precision band limits are configured with, so 89.995 sits inside a band ending at
// 89.99. Bands are scanned from the highest min_percentage down and the first band containing the
// value wins. When no band matches the lowest configured band is used.
func ResolveGrade(percentage float64, scale models.GradeScale) (string, float64) {
	if len(scale) == 0 {
		return GradeNotAvailable, 0
	}
	percentage = truncate2(percentage)
	ordered := scale.Descending()
	for _, entry := range ordered {
		if entry.Contains(percentage) {
			return entry.GradeName, entry.GradePoint
		}
	}
	lowest := ordered[len(ordered)-1]
	return lowest.GradeName, lowest.GradePoint
}

// AssignRanks orders results by percentage descending and numbers them 1..N.
// Equal percentages keep their incoming order and still receive distinct ranks.
func AssignRanks(results []models.Result) []models.Result {
	ranked := make([]models.Result, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Percentage > ranked[j].Percentage
	})
	for i := range ranked {
		rank := i + 1
		ranked[i].Rank = &rank
		inClass := rank
		ranked[i].RankInClass = &inClass
	}
	return ranked
}

// round2 rounds the stored percentage to two decimals on the exact binary value.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return math.Round(v*100) / 100
	}
	return r
}

// truncate2 cuts the shortest decimal form of v after two fraction digits. Working on the decimal
// string keeps 89.99 at 89.99 where math.Floor(v*100) would drift to 89.98.
func truncate2(v float64) float64 {
	text := strconv.FormatFloat(v, 'f', -1, 64)
	if dot := strings.IndexByte(text, '.'); dot >= 0 && len(text) > dot+3 {
		text = text[:dot+3]
	}
	r, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return v
	}
	return r
}

func percentageOf(obtained, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return obtained / total * 100
}

func clampPercentage(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}

// studentComputation is everything processing writes for one student.
type studentComputation struct {
	Result       models.Result
	GradeUpdates []models.MarkGradeUpdate
}

// computeStudentResult aggregates one student's marks across the class subjects. It reports
// false when the student has no mark entry for any of those subjects.
func computeStudentResult(
	exam models.Examination,
	student models.Student,
	subjects []models.ExamSubject,
	marks []models.MarkEntry,
	scale models.GradeScale,
	passFallback float64,
) (studentComputation, bool) {
	bySubject := make(map[string]models.MarkEntry, len(marks))
	for _, m := range marks {
		bySubject[m.ExamSubjectID] = m
	}

	var (
		totalMarks, obtained float64
		entries              int
		appeared, passed     int
		updates              []models.MarkGradeUpdate
	)
	for _, subject := range subjects {
		entry, ok := bySubject[subject.ID]
		if !ok {
			continue
		}
		entries++
		if entry.IsAbsent {
			continue
		}
		appeared++
		totalMarks += subject.TotalMarks
		obtained += entry.TotalObtained

		grade, point := ResolveGrade(clampPercentage(percentageOf(entry.TotalObtained, subject.TotalMarks)), scale)
		subjectPassed := entry.TotalObtained >= subject.PassingMarks
		if subjectPassed {
			passed++
		}
		updates = append(updates, models.MarkGradeUpdate{
			MarkEntryID: entry.ID,
			Grade:       grade,
			GradePoint:  point,
			IsPassed:    subjectPassed,
		})
	}
	if entries == 0 {
		return studentComputation{}, false
	}

	raw := percentageOf(obtained, totalMarks)
	percentage := round2(raw)
	grade, point := ResolveGrade(clampPercentage(raw), scale)
	isPassed := percentage >= exam.PassPercentage(passFallback) && passed == appeared && appeared > 0

	return studentComputation{
		Result: models.Result{
			ExaminationID:    exam.ID,
			StudentID:        student.ID,
			ClassID:          student.ClassID,
			TotalMarks:       totalMarks,
			MarksObtained:    obtained,
			Percentage:       percentage,
			Grade:            grade,
			GradePoint:       point,
			IsPassed:         isPassed,
			TotalSubjects:    len(subjects),
			SubjectsAppeared: appeared,
			SubjectsPassed:   passed,
			SubjectsFailed:   appeared - passed,
		},
		GradeUpdates: updates,
	}, true
}
