package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/nssnepal/membership/internal/membership"
	"github.com/nssnepal/membership/internal/models"
)

// ImportColumns is the documented header set for bulk member files.
var ImportColumns = []string{
	"name", "phone", "email", "date_of_birth", "gender", "address",
	"father_name", "grandfather_name", "spouse_name",
	"citizenship_number", "citizenship_issue_date", "citizenship_issue_district",
	"membership_type", "join_date",
}

var ErrUnsupportedFile = errors.New("unsupported file type; upload .xlsx, .xls or .csv")

type ImportResult struct {
	SuccessCount int
	SkippedCount int
	ErrorCount   int
	Errors       []string
	Warnings     []string
}

func (r *ImportResult) warn(line int, format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("Row %d: ", line)+fmt.Sprintf(format, args...))
}

func (r *ImportResult) fail(line int, msg string) {
	r.ErrorCount++
	r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %s", line, msg))
}

// ImportMembers reads a member sheet and inserts one member per row. Rows are
// independent: a bad row is reported and the rest still go in.
func ImportMembers(gdb *gorm.DB, filename string, r io.Reader) (ImportResult, error) {
	start := time.Now()
	defer func() { importDuration.Observe(time.Since(start).Seconds()) }()

	rows, err := ReadSheet(filename, r)
	if err != nil {
		return ImportResult{}, err
	}
	if len(rows) == 0 {
		return ImportResult{}, errors.New("the file is empty")
	}
	header := headerIndex(rows[0])
	if _, ok := header["name"]; !ok {
		return ImportResult{}, errors.New(`the header row has no "name" column`)
	}

	var res ImportResult
	today := IssueDay()
	for i, raw := range rows[1:] {
		line := i + 2
		rec := record(header, raw)
		if blank(rec) {
			continue
		}
		importRow(gdb, rec, line, today, &res)
	}
	importRows.WithLabelValues("success").Add(float64(res.SuccessCount))
	importRows.WithLabelValues("skipped").Add(float64(res.SkippedCount))
	importRows.WithLabelValues("error").Add(float64(res.ErrorCount))
	membersCreated.WithLabelValues("import").Add(float64(res.SuccessCount))
	return res, nil
}

// importRow never lets a row take the batch down, panics included.
func importRow(gdb *gorm.DB, rec map[string]string, line int, today time.Time, res *ImportResult) {
	defer func() {
		if p := recover(); p != nil {
			res.fail(line, fmt.Sprintf("unexpected error: %v", p))
		}
	}()

	name := rec["name"]
	if name == "" {
		res.SkippedCount++
		res.warn(line, "skipped, name is missing")
		return
	}

	m := models.Member{
		Name:                     name,
		Gender:                   NormGender(rec["gender"]),
		Address:                  rec["address"],
		FatherName:               rec["father_name"],
		GrandfatherName:          rec["grandfather_name"],
		SpouseName:               rec["spouse_name"],
		CitizenshipIssueDistrict: rec["citizenship_issue_district"],
		IsActive:                 true,
	}

	typ := strings.ToUpper(rec["membership_type"])
	switch {
	case typ == "":
		typ = models.TypeRegular
		res.warn(line, "membership type missing, set to Regular")
	case !models.Valid(models.MembershipTypes, typ):
		res.warn(line, "unknown membership type %q, set to Regular", rec["membership_type"])
		typ = models.TypeRegular
	}
	m.MembershipType = typ
	m.PaymentFrequency = defaultFrequency(typ)

	m.DateOfBirth = optionalDate(rec, "date_of_birth", line, res)
	m.CitizenshipIssueDate = optionalDate(rec, "citizenship_issue_date", line, res)
	if d, ok := cellDate(rec["join_date"]); ok {
		m.JoinDate = d
	} else {
		if rec["join_date"] != "" {
			res.warn(line, "join date %q not understood, set to today", rec["join_date"])
		} else {
			res.warn(line, "join date missing, set to today")
		}
		m.JoinDate = today
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		number, err := NextMembershipNumber(tx)
		if err != nil {
			return err
		}
		suffix, _ := ParseSuffix(number)
		tag := fmt.Sprintf("%05d", suffix)

		if m.Phone = NormPhone(rec["phone"]); m.Phone == "" {
			m.Phone = "TEMP" + tag
			res.warn(line, "phone missing or invalid, placeholder %s used", m.Phone)
		}
		if email, ok := NormEmail(rec["email"]); ok && email != "" {
			m.Email = email
		} else {
			m.Email = "member." + tag + "@placeholder.com"
			res.warn(line, "email missing or invalid, placeholder %s used", m.Email)
		}
		if m.CitizenshipNumber = rec["citizenship_number"]; m.CitizenshipNumber == "" {
			m.CitizenshipNumber = "TEMP-CIT-" + tag
			res.warn(line, "citizenship number missing, placeholder %s used", m.CitizenshipNumber)
		}
		m.MembershipNumber = number
		return tx.Create(&m).Error
	})
	if err != nil {
		if ve, ok := AsValidation(uniqueFieldError(err)); ok && len(ve.Fields) > 0 {
			res.fail(line, fmt.Sprintf("%s (%s)", ve.Fields[0].Error, m.CitizenshipNumber))
			return
		}
		res.fail(line, err.Error())
		return
	}
	res.SuccessCount++
}

func defaultFrequency(typ string) string {
	switch typ {
	case models.TypeLifetime:
		return models.FreqOneTime
	case models.TypeHonorary:
		return models.FreqHonorary
	}
	return models.FreqAnnual
}

func optionalDate(rec map[string]string, col string, line int, res *ImportResult) *time.Time {
	v := rec[col]
	if v == "" {
		return nil
	}
	d, ok := cellDate(v)
	if !ok {
		res.warn(line, "%s %q not understood, left blank", strings.ReplaceAll(col, "_", " "), v)
		return nil
	}
	return &d
}

// cellDate parses a date cell: text in any accepted layout, or an Excel serial number.
func cellDate(v string) (time.Time, bool) {
	if d, ok := ParseDate(v); ok {
		return d, true
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
		if t, err := excelize.ExcelDateToTime(f, false); err == nil {
			return membership.Day(t), true
		}
	}
	return time.Time{}, false
}

func headerIndex(row []string) map[string]int {
	idx := make(map[string]int, len(row))
	for i, h := range row {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func record(header map[string]int, row []string) map[string]string {
	rec := make(map[string]string, len(ImportColumns))
	for _, col := range ImportColumns {
		if i, ok := header[col]; ok && i < len(row) {
			rec[col] = strings.TrimSpace(row[i])
		}
	}
	return rec
}

func blank(rec map[string]string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadSheet returns the first sheet of an .xlsx, .xls or .csv file as rows of cells.
func ReadSheet(filename string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return readXLSX(r)
	case ".xls":
		return readXLS(r)
	case ".csv":
		return readCSV(r)
	}
	return nil, ErrUnsupportedFile
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	return rows, errors.Wrap(err, "read xlsx rows")
}

func readXLS(r io.Reader) ([][]string, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read xls")
	}
	wb, err := xls.OpenReader(bytes.NewReader(buf), "utf-8")
	if err != nil {
		return nil, errors.Wrap(err, "open xls")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}
	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol()+1)
		for j := row.FirstCol(); j <= row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	// Strip a UTF-8 BOM left by spreadsheet exports.
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}
