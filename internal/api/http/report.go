package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"github.com/operating-strengths/assessment-api/internal/assessment"
	"github.com/operating-strengths/assessment-api/internal/team"
)

// GET /api/report/{token}
//
// Report pages carry scores for the whole team, so responses are marked
// uncacheable end to end.
func ReportHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.ReportByToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		writeData(w, http.StatusOK, view)
	}
}

// GET /api/dashboard/{token}/report/export
//
// Streams the latest report snapshot as an xlsx workbook: one sheet of
// team averages, one of individual scores.
func ExportReportHandler(svc *team.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, t, err := svc.ReportForAdmin(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeError(w, err)
			return
		}

		f, err := buildReportWorkbook(report, t)
		if err != nil {
			writeError(w, err)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "operating-strengths-report.xlsx"))
		w.Header().Set("Cache-Control", "no-store")
		if err := f.Write(w); err != nil {
			// Headers are already out; nothing useful left to send.
			return
		}
	}
}

func buildReportWorkbook(report team.Report, t team.Team) (*excelize.File, error) {
	f := excelize.NewFile()

	const teamSheet = "Team Averages"
	if err := f.SetSheetName("Sheet1", teamSheet); err != nil {
		return nil, err
	}

	rows := [][]any{
		{"Firm", t.FirmName},
		{"Generated", report.Scores.GeneratedAt},
		{"Completed", fmt.Sprintf("%d of %d", report.CompletionCount, report.TotalCount)},
		{},
		{"Dimension", "Team Average (1-10)", "Personal Discipline", "Collective Systems", "Observable Behaviors"},
	}
	for _, d := range assessment.Dimensions() {
		sub := report.Scores.SubscaleAverages[d]
		rows = append(rows, []any{
			string(d),
			report.Scores.TeamAverages[d],
			sub[assessment.SubPersonalDiscipline],
			sub[assessment.SubCollectiveSystems],
			sub[assessment.SubObservableBehaviors],
		})
	}
	if err := writeRows(f, teamSheet, rows); err != nil {
		return nil, err
	}

	const memberSheet = "Individual Scores"
	if _, err := f.NewSheet(memberSheet); err != nil {
		return nil, err
	}
	memberRows := [][]any{
		{"Name", "Email", "Alignment", "Execution", "Accountability"},
	}
	for _, s := range report.Scores.IndividualScores {
		memberRows = append(memberRows, []any{s.Name, s.Email, s.Alignment, s.Execution, s.Accountability})
	}
	if err := writeRows(f, memberSheet, memberRows); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(teamSheet, "A", "E", 22)
	_ = f.SetColWidth(memberSheet, "A", "B", 28)
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
