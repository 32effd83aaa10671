package commands

import (
	"fmt"
	"io"
	"strconv"

	"siga-backend/internal/scrapers/siga"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.SetTitle(title)
	return t
}

func renderReport(w io.Writer, report siga.Report) {
	renderUser(w, report.User)
	renderAttendance(w, report.Attendance)
	renderGrades(w, report.Grades)
}

func renderUser(w io.Writer, user siga.User) {
	t := newTable(w, "Aluno")
	t.AppendRows([]table.Row{
		{"RA", user.RA},
		{"Nome", user.Name},
		{"Semestre", user.Semester.String()},
		{"E-mail", user.Email},
		{"Foto", user.Image},
	})
	t.Render()
}

func renderAttendance(w io.Writer, records []siga.AttendanceRecord) {
	t := newTable(w, "Faltas")
	t.AppendHeader(table.Row{"Sigla", "Disciplina", "Presenças", "Ausências", "Aulas"})
	for _, r := range records {
		t.AppendRow(table.Row{r.ID, r.Subject, r.Attendance, r.Absences, len(r.Info)})
	}
	t.Render()
}

func renderGrades(w io.Writer, subjects []siga.GradeSubject) {
	t := newTable(w, "Notas")
	t.AppendHeader(table.Row{"Sigla", "Disciplina", "Média", "Presença", "Frequência", "Avaliações"})
	for _, s := range subjects {
		t.AppendRow(table.Row{
			s.ID,
			s.Subject,
			formatDecimal(s.AverageGrade),
			formatDecimal(s.Attendance),
			formatDecimal(s.Frequency),
			formatEntries(s.Grades),
		})
	}
	t.Render()
}

func formatDecimal(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatEntries(entries []siga.GradeEntry) string {
	out := ""
	for i, e := range entries {
		if i > 0 {
			out += "\n"
		}
		date := "-"
		if e.Date != nil {
			date = *e.Date
		}
		out += fmt.Sprintf("%s %s %s", e.ID, date, formatDecimal(e.Grade))
	}
	return out
}
