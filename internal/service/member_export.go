package service

import (
	"bytes"
	"fmt"
	"strings"

	"memberhub/internal/domain"

	"github.com/xuri/excelize/v2"
)

const memberSheet = "Members"

// memberColumns are the export header labels and their widths.
var memberColumns = []struct {
	Header string
	Width  float64
}{
	{"Full Name", 24},
	{"Email", 32},
	{"Tier", 12},
	{"Role", 12},
	{"Status", 12},
	{"Headline", 30},
	{"Company", 20},
	{"Location", 20},
	{"Interests", 30},
	{"Joined", 20},
}

// MemberExportHeader lists the export column titles in order.
func MemberExportHeader() []string {
	out := make([]string, 0, len(memberColumns))
	for _, c := range memberColumns {
		out = append(out, c.Header)
	}
	return out
}

func memberRow(p *domain.Profile) []any {
	return []any{
		p.FullName,
		p.Email,
		string(p.Tier),
		string(p.Role),
		string(p.Status),
		p.Headline,
		p.Company,
		p.Location,
		strings.Join(p.Interests, ", "),
		p.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

// GenerateMemberExport renders profiles into an .xlsx workbook with a frozen, styled header.
func GenerateMemberExport(profiles []*domain.Profile) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open; every return path closes it explicitly.

	index, err := f.NewSheet(memberSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, c := range memberColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(memberSheet, cell, c.Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(memberSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(memberSheet, col, col, c.Width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, p := range profiles {
		// row 1 is the header
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := memberRow(p)
		if err := f.SetSheetRow(memberSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(memberSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}
