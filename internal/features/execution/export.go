package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-automation/pkg/state"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Executions"

var exportColumns = []string{"Recipient", "Campaign", "Status", "Current Step", "Tags", "Resume At", "Last Email At", "Started At", "Updated At", "Version"}

func (s *ExecutionServiceImpl) Export(ctx context.Context, filter Filter) ([]byte, string, error) {
	states, err := s.States.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	data, err := WriteXLSX(states)
	if err != nil {
		return nil, "", err
	}

	name := "executions"
	if filter.CampaignID != "" {
		name += "_" + filter.CampaignID
	}
	return data, fmt.Sprintf("%s_%d.xlsx", name, time.Now().Unix()), nil
}

// WriteXLSX renders one row per state under a bold header row.
func WriteXLSX(states []state.State) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, col)
		f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	for rowIdx, st := range states {
		row := []interface{}{
			st.RecipientID,
			st.CampaignID,
			string(st.Status),
			st.Step(),
			strings.Join(st.Tags, ", "),
			formatTime(st.ResumeAt),
			formatTime(st.LastEmailAt),
			st.StartedAt.Format("2006-01-02 15:04:05"),
			st.UpdatedAt.Format("2006-01-02 15:04:05"),
			st.Version,
		}
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(exportSheet, cell, val)
		}
	}

	for i := range exportColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(exportSheet, col, col, 18)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
