// Package ingest implements the Input Ingestor component (§4.B): it parses
// and validates bulk-assignment files in the tabular (CSV) and structured
// (JSON) dialects, dispatching on file extension per §6, and rejects a
// batch containing any structural error before resolution ever runs.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/identitycore/idcenter/internal/errs"
	"github.com/identitycore/idcenter/pkg/models"
)

var requiredColumns = []string{"principal_name", "permission_set_name", "account_name"}

// StructuralError is one line-numbered defect found while ingesting a
// file. A batch with any StructuralError is rejected before resolution.
type StructuralError struct {
	LineNumber int
	Message    string
}

// Result is the outcome of ingesting one file: either a clean set of
// records ready for the Resolver, or a non-empty list of structural
// errors and no records.
type Result struct {
	Records []models.BulkRecord
	Errors  []StructuralError
}

// OK reports whether the file ingested cleanly.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// IngestFile dispatches on the file's extension (.csv or .json) and parses
// it with the matching dialect.
func IngestFile(name string, r io.Reader) (Result, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ingestCSV(r)
	case ".json":
		return ingestJSON(r)
	default:
		return Result{}, errs.New(errs.KindParsing, "unsupported_format",
			fmt.Sprintf("unsupported file extension %q; expected .csv or .json", filepath.Ext(name)), nil)
	}
}

func ingestCSV(r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return Result{}, errs.New(errs.KindParsing, "empty_file", "CSV file has no header row", nil)
	}
	if err != nil {
		return Result{}, errs.New(errs.KindParsing, "malformed_csv", "failed to read CSV header", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.TrimSpace(col)] = i
	}

	var structural []StructuralError
	for _, required := range requiredColumns {
		if _, ok := colIndex[required]; !ok {
			structural = append(structural, StructuralError{LineNumber: 1, Message: fmt.Sprintf("missing required column %q", required)})
		}
	}
	if len(structural) > 0 {
		return Result{Errors: structural}, nil
	}

	typeIdx, hasType := colIndex["principal_type"]

	var records []models.BulkRecord
	lineNo := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			structural = append(structural, StructuralError{LineNumber: lineNo, Message: "malformed row: " + err.Error()})
			continue
		}

		rec, rowErrors := parseRow(lineNo, row, colIndex, typeIdx, hasType)
		structural = append(structural, rowErrors...)
		if len(rowErrors) == 0 {
			records = append(records, rec)
		}
	}

	if len(structural) > 0 {
		return Result{Errors: structural}, nil
	}
	return Result{Records: records}, nil
}

func parseRow(lineNo int, row []string, colIndex map[string]int, typeIdx int, hasType bool) (models.BulkRecord, []StructuralError) {
	var errsOut []StructuralError
	get := func(col string) string {
		idx, ok := colIndex[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	principal := get("principal_name")
	permSet := get("permission_set_name")
	account := get("account_name")

	if principal == "" {
		errsOut = append(errsOut, StructuralError{LineNumber: lineNo, Message: "principal_name is empty"})
	}
	if permSet == "" {
		errsOut = append(errsOut, StructuralError{LineNumber: lineNo, Message: "permission_set_name is empty"})
	}
	if account == "" {
		errsOut = append(errsOut, StructuralError{LineNumber: lineNo, Message: "account_name is empty"})
	}

	principalType := models.PrincipalUser
	if hasType && typeIdx < len(row) {
		raw := strings.ToUpper(strings.TrimSpace(row[typeIdx]))
		if raw != "" {
			switch models.PrincipalType(raw) {
			case models.PrincipalUser, models.PrincipalGroup:
				principalType = models.PrincipalType(raw)
			default:
				errsOut = append(errsOut, StructuralError{LineNumber: lineNo, Message: fmt.Sprintf("invalid principal_type %q; must be USER or GROUP", raw)})
			}
		}
	}

	return models.BulkRecord{
		LineNumber:    lineNo,
		PrincipalName: principal,
		PermissionSet: permSet,
		AccountName:   account,
		PrincipalType: principalType,
	}, errsOut
}

// jsonRow mirrors the CSV header's field names for the structured dialect.
type jsonRow struct {
	PrincipalName string `json:"principal_name"`
	PermissionSet string `json:"permission_set_name"`
	AccountName   string `json:"account_name"`
	PrincipalType string `json:"principal_type"`
}

func ingestJSON(r io.Reader) (Result, error) {
	var rows []jsonRow
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rows); err != nil {
		if err == io.EOF {
			return Result{}, errs.New(errs.KindParsing, "empty_file", "JSON file is empty", nil)
		}
		return Result{}, errs.New(errs.KindParsing, "malformed_json", "failed to parse JSON array", err)
	}

	var structural []StructuralError
	var records []models.BulkRecord

	for i, row := range rows {
		lineNo := i + 1
		if row.PrincipalName == "" {
			structural = append(structural, StructuralError{LineNumber: lineNo, Message: "principal_name is empty"})
		}
		if row.PermissionSet == "" {
			structural = append(structural, StructuralError{LineNumber: lineNo, Message: "permission_set_name is empty"})
		}
		if row.AccountName == "" {
			structural = append(structural, StructuralError{LineNumber: lineNo, Message: "account_name is empty"})
		}

		principalType := models.PrincipalUser
		if row.PrincipalType != "" {
			pt := models.PrincipalType(strings.ToUpper(row.PrincipalType))
			switch pt {
			case models.PrincipalUser, models.PrincipalGroup:
				principalType = pt
			default:
				structural = append(structural, StructuralError{LineNumber: lineNo, Message: fmt.Sprintf("invalid principal_type %q; must be USER or GROUP", row.PrincipalType)})
				continue
			}
		}

		if row.PrincipalName == "" || row.PermissionSet == "" || row.AccountName == "" {
			continue
		}

		records = append(records, models.BulkRecord{
			LineNumber:    lineNo,
			PrincipalName: row.PrincipalName,
			PermissionSet: row.PermissionSet,
			AccountName:   row.AccountName,
			PrincipalType: principalType,
		})
	}

	if len(structural) > 0 {
		return Result{Errors: structural}, nil
	}
	return Result{Records: records}, nil
}
