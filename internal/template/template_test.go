package template

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/identitycore/idcenter/internal/directory"
	"github.com/identitycore/idcenter/internal/executor"
	"github.com/identitycore/idcenter/pkg/models"
)

func exampleTemplate() models.Template {
	// Mirrors SPEC_FULL.md scenario S3.
	return models.Template{
		Metadata: models.TemplateMetadata{Name: "developer-template"},
		Assignments: []models.TemplateAssignment{
			{
				Entities:       []string{"user:alice", "group:devs"},
				PermissionSets: []string{"DevAccess", "ReadOnlyAccess"},
				Targets: models.TemplateTarget{
					AccountIDs: []string{"123456789012", "234567890123"},
				},
			},
		},
	}
}

func TestValidateStructure_RejectsEmptyAssignments(t *testing.T) {
	tpl := models.Template{Metadata: models.TemplateMetadata{Name: "empty"}}
	errs := ValidateStructure(tpl)
	if len(errs) == 0 {
		t.Fatalf("expected a structural error for a template with no assignments")
	}
}

func TestValidateStructure_RejectsConflictingTargets(t *testing.T) {
	tpl := models.Template{
		Metadata: models.TemplateMetadata{Name: "conflict"},
		Assignments: []models.TemplateAssignment{
			{
				Entities:       []string{"user:alice"},
				PermissionSets: []string{"DevAccess"},
				Targets: models.TemplateTarget{
					AccountIDs:  []string{"123456789012"},
					AccountTags: map[string]string{"Environment": "prod"},
				},
			},
		},
	}
	errs := ValidateStructure(tpl)
	if len(errs) == 0 {
		t.Fatalf("expected an error for specifying both account_ids and account_tags")
	}
}

func TestExecutorExpand_CrossProductMatchesScenarioS3(t *testing.T) {
	client := directory.NewSimulatedClient()
	validator := NewValidator(client)
	batch := executor.New(client)
	exec := NewExecutor(validator, batch)

	records, result, err := exec.Expand(context.Background(), exampleTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected template to validate, got errors: %v", result.Errors)
	}
	// 2 entities x 2 permission sets x 2 accounts = 8.
	if len(records) != 8 {
		t.Fatalf("expected 8 concrete assignment triples, got %d", len(records))
	}
}

func TestValidator_ExpandAccounts_TagBased(t *testing.T) {
	client := directory.NewSimulatedClient()
	validator := NewValidator(client)

	accounts, err := validator.ExpandAccounts(context.Background(), models.TemplateTarget{
		AccountTags: map[string]string{"Environment": "production"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Strings(accounts)
	if len(accounts) != 1 || accounts[0] != "123456789012" {
		t.Fatalf("expected only the Prod account to match, got %v", accounts)
	}
}

func TestValidator_ExpandAccounts_ExcludesSubtracted(t *testing.T) {
	client := directory.NewSimulatedClient()
	validator := NewValidator(client)

	accounts, err := validator.ExpandAccounts(context.Background(), models.TemplateTarget{
		AccountIDs:      []string{"123456789012", "234567890123"},
		ExcludeAccounts: []string{"234567890123"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != "123456789012" {
		t.Fatalf("expected excluded account to be subtracted, got %v", accounts)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(os.TempDir(), "idcenter-template-store-test")
	defer os.RemoveAll(dir)

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tpl := exampleTemplate()
	if err := store.Save(tpl); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	loaded, err := store.Load(tpl.Metadata.Name)
	if err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}
	if loaded.Metadata.Name != tpl.Metadata.Name {
		t.Fatalf("expected name %q, got %q", tpl.Metadata.Name, loaded.Metadata.Name)
	}
	if len(loaded.Assignments) != len(tpl.Assignments) {
		t.Fatalf("expected %d assignments, got %d", len(tpl.Assignments), len(loaded.Assignments))
	}
}
