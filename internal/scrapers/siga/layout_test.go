package siga

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestGradeBlockSegmentation(t *testing.T) {
	lines := []string{
		"A\tMath",
		"8,5",
		"90",
		"95",
		"",
		"",
		"",
		"g1\t2024-01-01\t7,0",
		"",
		"B\tPhysics\nProf. Ana",
		"7",
		"80",
		"abc",
		"Avaliações",
		"",
		"Código\tData\tNota",
		"g2\t\t",
	}

	subjects := parseGrades(DefaultGradeLayout, lines)
	require.Len(t, subjects, 2)

	require.Equal(t, GradeSubject{
		ID:           "A",
		Subject:      "Math",
		AverageGrade: 8.5,
		Attendance:   90,
		Frequency:    95,
		Grades: []GradeEntry{
			{ID: "g1", Date: strPtr("2024-01-01"), Grade: 7.0},
		},
	}, subjects[0])

	require.Equal(t, GradeSubject{
		ID:           "B",
		Subject:      "Physics",
		AverageGrade: 7,
		Attendance:   80,
		Frequency:    0,
		Grades: []GradeEntry{
			{ID: "g2", Date: nil, Grade: 0},
		},
	}, subjects[1])
}

func TestSegmentBlocksBlankRows(t *testing.T) {
	table := []struct {
		name     string
		lines    []string
		expected [][]string
	}{
		{
			name:     "empty table",
			lines:    nil,
			expected: [][]string{},
		},
		{
			name:     "leading and repeated blanks make no blocks",
			lines:    []string{"", "A\tMath", "", "", "B\tPhysics"},
			expected: [][]string{{"A\tMath"}, {"B\tPhysics"}},
		},
		{
			name:     "trailing blank stays in the last block",
			lines:    []string{"A\tMath", "1", "2", "3", "m", "m", "m", "g1\t\t1", ""},
			expected: [][]string{{"A\tMath", "1", "2", "3", "m", "m", "m", "g1\t\t1", ""}},
		},
		{
			name:     "blank metadata lines are kept",
			lines:    []string{"A\tMath", "1", "2", "3", "", "", "", "", "B\tPhysics"},
			expected: [][]string{{"A\tMath", "1", "2", "3", "", "", ""}, {"B\tPhysics"}},
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, DefaultGradeLayout.segmentBlocks(test.lines))
		})
	}
}

func TestParseBlockDefaults(t *testing.T) {
	subject := DefaultGradeLayout.parseBlock([]string{"X01"})
	require.Equal(t, GradeSubject{
		ID:     "X01",
		Grades: []GradeEntry{},
	}, subject)

	subject = DefaultGradeLayout.parseBlock([]string{
		"X01\tQuímica",
		"Média Final\t6,75",
		"\t",
		"n/a",
	})
	require.Equal(t, "Química", subject.Subject)
	require.Equal(t, 6.75, subject.AverageGrade)
	require.Equal(t, 0.0, subject.Attendance)
	require.Equal(t, 0.0, subject.Frequency)
}

func TestParseEntry(t *testing.T) {
	table := []struct {
		line     string
		expected GradeEntry
	}{
		{line: "g2\t\t", expected: GradeEntry{ID: "g2"}},
		{line: "g1\t2024-01-01\t7,0", expected: GradeEntry{ID: "g1", Date: strPtr("2024-01-01"), Grade: 7}},
		{line: "P3\t2024-06-01\t7,25", expected: GradeEntry{ID: "P3", Date: strPtr("2024-06-01"), Grade: 7.25}},
		{line: "P4\t2024-06-01", expected: GradeEntry{ID: "P4", Date: strPtr("2024-06-01")}},
		{line: "P5", expected: GradeEntry{ID: "P5"}},
		{line: "", expected: GradeEntry{}},
	}

	for _, row := range table {
		require.Equal(t, row.expected, DefaultGradeLayout.parseEntry(row.line), row.line)
	}
}

func TestParseDecimal(t *testing.T) {
	table := []struct {
		input    string
		expected float64
	}{
		{input: "7,25", expected: 7.25},
		{input: "8.5", expected: 8.5},
		{input: " 10 ", expected: 10},
		{input: "abc", expected: 0},
		{input: "", expected: 0},
		{input: "NaN", expected: 0},
		{input: "Inf", expected: 0},
		{input: "-", expected: 0},
	}

	for _, row := range table {
		require.Equal(t, row.expected, ParseDecimal(row.input), row.input)
	}
}

func TestCustomLayout(t *testing.T) {
	layout := DefaultGradeLayout
	layout.MetadataFrom = 4
	layout.EntriesFrom = 4

	subjects := parseGrades(layout, []string{
		"A\tMath",
		"5",
		"50",
		"60",
		"g1\t2024-01-01\t9,5",
		"",
		"B\tPhysics",
	})
	require.Len(t, subjects, 2)
	require.Equal(t, []GradeEntry{
		{ID: "g1", Date: strPtr("2024-01-01"), Grade: 9.5},
	}, subjects[0].Grades)
	require.Equal(t, "Physics", subjects[1].Subject)
}
