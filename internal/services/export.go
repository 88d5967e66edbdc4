package services

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/nssnepal/membership/internal/membership"
	"github.com/nssnepal/membership/internal/models"
)

var templateExample = []any{
	"Ram Bahadur Thapa", "9812345678", "ram.thapa@example.com", "1985-04-12", "MALE",
	"Kathmandu-10, Baneshwor", "Hari Bahadur Thapa", "Krishna Bahadur Thapa", "Sita Thapa",
	"12-34-56-78901", "2005-06-20", "Kathmandu", "REGULAR", "2024-01-01",
}

var templateInstructions = []string{
	"How to fill in the Members sheet",
	"",
	"1. Keep the header row exactly as provided. Column order does not matter.",
	"2. name is required. Rows without a name are skipped.",
	"3. Dates use YYYY-MM-DD (for example 2024-01-15).",
	"4. gender: MALE, FEMALE or OTHER.",
	"5. membership_type: REGULAR, LIFETIME or HONORARY. Blank or unknown values become REGULAR.",
	"6. phone: a 10 digit mobile number is stored as +977XXXXXXXXXX.",
	"7. Missing phone, email or citizenship number get placeholder values (TEMP..., member.NNNNN@placeholder.com, TEMP-CIT-...). Correct them later from the member page.",
	"8. Missing join_date is set to the import day.",
	"9. Membership numbers are assigned automatically.",
	"10. Delete the example row before uploading.",
}

// WriteImportTemplate streams the bulk-import workbook: a Members sheet with
// headers and one example row, plus an Instructions sheet.
func WriteImportTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Members"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	header := make([]any, len(ImportColumns))
	for i, c := range ImportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A2", &templateExample); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(ImportColumns))
	if err := f.SetCellStyle(sheet, "A1", last+"1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", last, 22); err != nil {
		return err
	}

	const help = "Instructions"
	if _, err := f.NewSheet(help); err != nil {
		return err
	}
	for i, line := range templateInstructions {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetCellValue(help, cell, line); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(help, "A", "A", 110); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	return errors.Wrap(f.Write(w), "write template")
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// WriteMembersCSV writes the member list with each member's status as of today.
func WriteMembersCSV(w io.Writer, members []models.Member, today time.Time) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"membership_number", "name", "phone", "email", "gender", "date_of_birth", "address",
		"father_name", "grandfather_name", "spouse_name",
		"citizenship_number", "citizenship_issue_date", "citizenship_issue_district",
		"membership_type", "payment_frequency", "join_date", "is_active",
		"last_payment_date", "membership_valid_until", "status",
	})
	for _, m := range members {
		st := membership.Status(membership.FromMember(m), today)
		join := m.JoinDate
		_ = cw.Write([]string{
			m.MembershipNumber, m.Name, m.Phone, m.Email, m.Gender, fmtDate(m.DateOfBirth), m.Address,
			m.FatherName, m.GrandfatherName, m.SpouseName,
			m.CitizenshipNumber, fmtDate(m.CitizenshipIssueDate), m.CitizenshipIssueDistrict,
			m.MembershipType, m.PaymentFrequency, fmtDate(&join), strconv.FormatBool(m.IsActive),
			fmtDate(m.LastPaymentDate), fmtDate(m.MembershipValidUntil), st.Code,
		})
	}
	cw.Flush()
	return cw.Error()
}
