package ingest

import (
	"strings"
	"testing"

	"github.com/identitycore/idcenter/pkg/models"
)

func TestIngestFile_CSVDryRunScenario(t *testing.T) {
	// Mirrors SPEC_FULL.md scenario S1.
	csvData := "principal_name,permission_set_name,account_name,principal_type\n" +
		"alice,ReadOnlyAccess,Prod,USER\n" +
		"devs,PowerUserAccess,Dev,GROUP\n"

	res, err := IngestFile("assign.csv", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected clean ingest, got errors: %v", res.Errors)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	if res.Records[1].PrincipalType != models.PrincipalGroup {
		t.Fatalf("expected second record to be GROUP, got %s", res.Records[1].PrincipalType)
	}
}

func TestIngestFile_MissingColumnRejectsBatch(t *testing.T) {
	csvData := "principal_name,account_name\nalice,Prod\n"
	res, err := IngestFile("assign.csv", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK() {
		t.Fatalf("expected structural error for missing permission_set_name column")
	}
	if len(res.Records) != 0 {
		t.Fatalf("expected no records when the batch is rejected")
	}
}

func TestIngestFile_EmptyCellRejectsRow(t *testing.T) {
	csvData := "principal_name,permission_set_name,account_name\n,ReadOnlyAccess,Prod\n"
	res, err := IngestFile("assign.csv", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK() {
		t.Fatalf("expected structural error for empty principal_name cell")
	}
	if res.Errors[0].LineNumber != 2 {
		t.Fatalf("expected error on line 2, got line %d", res.Errors[0].LineNumber)
	}
}

func TestIngestFile_InvalidPrincipalType(t *testing.T) {
	csvData := "principal_name,permission_set_name,account_name,principal_type\nalice,ReadOnlyAccess,Prod,ROBOT\n"
	res, err := IngestFile("assign.csv", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK() {
		t.Fatalf("expected structural error for invalid principal_type")
	}
}

func TestIngestFile_JSONDialect(t *testing.T) {
	jsonData := `[{"principal_name":"alice","permission_set_name":"ReadOnlyAccess","account_name":"Prod"}]`
	res, err := IngestFile("assign.json", strings.NewReader(jsonData))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected clean ingest, got errors: %v", res.Errors)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	if res.Records[0].PrincipalType != models.PrincipalUser {
		t.Fatalf("expected default principal_type USER, got %s", res.Records[0].PrincipalType)
	}
}

func TestIngestFile_UnsupportedExtension(t *testing.T) {
	_, err := IngestFile("assign.txt", strings.NewReader(""))
	if err == nil {
		t.Fatalf("expected an error for unsupported extension")
	}
}
