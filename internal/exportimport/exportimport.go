// Package exportimport implements the Export/Import Engine (§4.K): backup
// data portability across three interchange dialects (JSON, YAML, CSV), with
// optional gzip compression, magic-header-based compression detection on
// import, and re-validation before a converted backup is accepted.
//
// Grounded on original_source/backup_restore/export_import.py's
// FormatConverter/ExportImportManager: the same three dialects, the same
// one-CSV-file-per-resource-kind-plus-metadata layout, the same
// read-then-validate-then-mint-a-new-backup-id import flow.
package exportimport

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/identitycore/idcenter/internal/backup"
	"github.com/identitycore/idcenter/pkg/models"
)

// Format selects the interchange dialect.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// gzipMagic is the two-byte gzip header; sniffed rather than trusted from a
// filename extension, since callers may hand the manager a renamed file.
var gzipMagic = []byte{0x1f, 0x8b}

// Store is the narrow slice of the Storage Engine the manager needs: read a
// backup to export it, write a freshly-minted one after import.
type Store interface {
	Retrieve(ctx context.Context, backupID string) (models.BackupData, error)
	Store(ctx context.Context, data models.BackupData) (string, error)
}

// Manager exports stored backups to, and imports them from, any of the
// three dialects.
type Manager struct {
	store Store
}

// New constructs a Manager bound to a Store.
func New(store Store) *Manager {
	return &Manager{store: store}
}

// ValidationResult reports whether imported data is structurally sound
// enough to store, mirroring _validate_backup_data's accumulated-errors
// shape.
type ValidationResult struct {
	IsValid  bool
	Errors   []string
	Warnings []string
	Details  map[string]int
}

// Export retrieves backupID and renders it in the requested dialect. JSON
// and YAML produce a single named file; CSV produces one file per resource
// kind plus a metadata key/value file. compress gzips every returned file's
// content independently, appending ".gz" to its name.
func (m *Manager) Export(ctx context.Context, backupID string, format Format, compress bool) (map[string][]byte, error) {
	data, err := m.store.Retrieve(ctx, backupID)
	if err != nil {
		return nil, fmt.Errorf("exportimport: failed to retrieve backup %q: %w", backupID, err)
	}
	if err := backup.VerifyIntegrity(data); err != nil {
		return nil, fmt.Errorf("exportimport: refusing to export corrupt backup: %w", err)
	}

	var files map[string][]byte
	switch format {
	case FormatJSON:
		content, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("exportimport: failed to marshal JSON: %w", err)
		}
		files = map[string][]byte{"backup.json": content}
	case FormatYAML:
		content, err := yaml.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("exportimport: failed to marshal YAML: %w", err)
		}
		files = map[string][]byte{"backup.yaml": content}
	case FormatCSV:
		var err error
		files, err = toCSVFiles(data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("exportimport: unsupported export format %q", format)
	}

	if !compress {
		return files, nil
	}
	out := make(map[string][]byte, len(files))
	for name, content := range files {
		compressed, err := gzipCompress(content)
		if err != nil {
			return nil, err
		}
		out[name+".gz"] = compressed
	}
	return out, nil
}

// Import parses files (as produced by Export, or hand-assembled by a
// caller) in the given dialect, re-validates the result, mints a fresh
// backup id, stores it, and returns that id. Each file's content is
// gzip-sniffed independently so compressed and uncompressed files may be
// mixed.
func (m *Manager) Import(ctx context.Context, files map[string][]byte, format Format) (string, error) {
	decoded := make(map[string][]byte, len(files))
	for name, content := range files {
		plain, err := maybeGunzip(content)
		if err != nil {
			return "", fmt.Errorf("exportimport: failed to decompress %q: %w", name, err)
		}
		decoded[strings.TrimSuffix(name, ".gz")] = plain
	}

	var data models.BackupData
	var err error
	switch format {
	case FormatJSON:
		data, err = fromJSON(decoded)
	case FormatYAML:
		data, err = fromYAML(decoded)
	case FormatCSV:
		data, err = fromCSVFiles(decoded)
	default:
		return "", fmt.Errorf("exportimport: unsupported import format %q", format)
	}
	if err != nil {
		return "", err
	}

	result := Validate(data)
	if !result.IsValid {
		return "", fmt.Errorf("exportimport: invalid backup data: %s", strings.Join(result.Errors, "; "))
	}

	data.Metadata.BackupID = "imported-" + uuid.NewString()
	return m.store.Store(ctx, data)
}

// Validate checks required fields and per-record minimum presence, the
// same checks _validate_backup_data runs before accepting imported data.
// An empty backup or a failed integrity check warns rather than rejects;
// missing identity fields on any record rejects.
func Validate(data models.BackupData) ValidationResult {
	result := ValidationResult{IsValid: true, Details: map[string]int{
		"users":           len(data.Users),
		"groups":          len(data.Groups),
		"permission_sets": len(data.PermissionSets),
		"assignments":     len(data.Assignments),
	}}

	if data.Metadata.BackupID == "" && data.Metadata.SourceInstanceArn == "" {
		result.Errors = append(result.Errors, "missing backup metadata")
	}
	if err := backup.VerifyIntegrity(data); err != nil {
		result.Warnings = append(result.Warnings, "backup data failed integrity check: "+err.Error())
	}
	if len(data.Users)+len(data.Groups)+len(data.PermissionSets)+len(data.Assignments) == 0 {
		result.Warnings = append(result.Warnings, "backup contains no resources")
	}

	for i, u := range data.Users {
		if u.ID == "" || u.Name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid user data at index %d: missing required fields", i))
		}
	}
	for i, g := range data.Groups {
		if g.ID == "" || g.Name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid group data at index %d: missing required fields", i))
		}
	}
	for i, p := range data.PermissionSets {
		if p.Arn == "" || p.Name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid permission set data at index %d: missing required fields", i))
		}
	}
	for i, a := range data.Assignments {
		if a.AccountID == "" || a.PermissionSetArn == "" || a.PrincipalType == "" || a.PrincipalID == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid assignment data at index %d: missing required fields", i))
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		return nil, fmt.Errorf("exportimport: failed to gzip content: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("exportimport: failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// maybeGunzip sniffs the gzip magic header rather than trusting a filename
// extension, so a renamed or re-wrapped file still decompresses correctly.
func maybeGunzip(content []byte) ([]byte, error) {
	if len(content) < 2 || content[0] != gzipMagic[0] || content[1] != gzipMagic[1] {
		return content, nil
	}
	gr, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}

func fromJSON(files map[string][]byte) (models.BackupData, error) {
	content, ok := files["backup.json"]
	if !ok {
		return models.BackupData{}, fmt.Errorf("exportimport: missing backup.json")
	}
	var data models.BackupData
	if err := json.Unmarshal(content, &data); err != nil {
		return models.BackupData{}, fmt.Errorf("exportimport: invalid JSON: %w", err)
	}
	return data, nil
}

func fromYAML(files map[string][]byte) (models.BackupData, error) {
	content, ok := files["backup.yaml"]
	if !ok {
		return models.BackupData{}, fmt.Errorf("exportimport: missing backup.yaml")
	}
	var data models.BackupData
	if err := yaml.Unmarshal(content, &data); err != nil {
		return models.BackupData{}, fmt.Errorf("exportimport: invalid YAML: %w", err)
	}
	return data, nil
}

func toCSVFiles(data models.BackupData) (map[string][]byte, error) {
	files := make(map[string][]byte)

	users, err := csvEncode([]string{"id", "name", "display_name", "email", "given_name", "family_name", "active"}, len(data.Users), func(i int, w *csv.Writer) error {
		u := data.Users[i]
		return w.Write([]string{u.ID, u.Name, u.DisplayName, u.Email, u.GivenName, u.FamilyName, strconv.FormatBool(u.Active)})
	})
	if err != nil {
		return nil, err
	}
	files["users.csv"] = users

	groups, err := csvEncode([]string{"id", "name", "description", "members"}, len(data.Groups), func(i int, w *csv.Writer) error {
		g := data.Groups[i]
		members, err := json.Marshal(g.Members)
		if err != nil {
			return err
		}
		return w.Write([]string{g.ID, g.Name, g.Description, string(members)})
	})
	if err != nil {
		return nil, err
	}
	files["groups.csv"] = groups

	sets, err := csvEncode([]string{"arn", "name", "description", "session_duration", "managed_policies"}, len(data.PermissionSets), func(i int, w *csv.Writer) error {
		p := data.PermissionSets[i]
		policies, err := json.Marshal(p.ManagedPolicies)
		if err != nil {
			return err
		}
		return w.Write([]string{p.Arn, p.Name, p.Description, p.SessionDuration, string(policies)})
	})
	if err != nil {
		return nil, err
	}
	files["permission_sets.csv"] = sets

	assigns, err := csvEncode([]string{"account_id", "permission_set_arn", "principal_type", "principal_id"}, len(data.Assignments), func(i int, w *csv.Writer) error {
		a := data.Assignments[i]
		return w.Write([]string{a.AccountID, a.PermissionSetArn, string(a.PrincipalType), a.PrincipalID})
	})
	if err != nil {
		return nil, err
	}
	files["assignments.csv"] = assigns

	meta, err := metadataToCSV(data.Metadata)
	if err != nil {
		return nil, err
	}
	files["metadata.csv"] = meta

	return files, nil
}

func csvEncode(header []string, n int, writeRow func(i int, w *csv.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("exportimport: failed to write CSV header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := writeRow(i, w); err != nil {
			return nil, fmt.Errorf("exportimport: failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func metadataToCSV(meta models.BackupMetadata) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"key", "value"}); err != nil {
		return nil, err
	}
	rows := [][2]string{
		{"backup_id", meta.BackupID},
		{"timestamp", meta.Timestamp.Format("2006-01-02T15:04:05Z07:00")},
		{"source_instance_arn", meta.SourceInstanceArn},
		{"source_account", meta.SourceAccount},
		{"source_region", meta.SourceRegion},
		{"type", string(meta.Type)},
		{"version", meta.Version},
		{"checksum", meta.Checksum},
	}
	for _, r := range rows {
		if err := w.Write(r[:]); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func fromCSVFiles(files map[string][]byte) (models.BackupData, error) {
	metaContent, ok := files["metadata.csv"]
	if !ok {
		return models.BackupData{}, fmt.Errorf("exportimport: metadata.csv is required for CSV import")
	}
	meta, err := metadataFromCSV(metaContent)
	if err != nil {
		return models.BackupData{}, err
	}

	data := models.BackupData{Metadata: meta}

	if content, ok := files["users.csv"]; ok {
		data.Users, err = usersFromCSV(content)
		if err != nil {
			return models.BackupData{}, err
		}
	}
	if content, ok := files["groups.csv"]; ok {
		data.Groups, err = groupsFromCSV(content)
		if err != nil {
			return models.BackupData{}, err
		}
	}
	if content, ok := files["permission_sets.csv"]; ok {
		data.PermissionSets, err = permissionSetsFromCSV(content)
		if err != nil {
			return models.BackupData{}, err
		}
	}
	if content, ok := files["assignments.csv"]; ok {
		data.Assignments, err = assignmentsFromCSV(content)
		if err != nil {
			return models.BackupData{}, err
		}
	}
	return data, nil
}

func readCSVRecords(content []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("exportimport: malformed CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func usersFromCSV(content []byte) ([]models.User, error) {
	rows, err := readCSVRecords(content)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(rows))
	for _, rec := range rows {
		out = append(out, models.User{
			ID:          rec["id"],
			Name:        rec["name"],
			DisplayName: rec["display_name"],
			Email:       rec["email"],
			GivenName:   rec["given_name"],
			FamilyName:  rec["family_name"],
			Active:      rec["active"] == "true" || rec["active"] == "True",
		})
	}
	return out, nil
}

func groupsFromCSV(content []byte) ([]models.Group, error) {
	rows, err := readCSVRecords(content)
	if err != nil {
		return nil, err
	}
	out := make([]models.Group, 0, len(rows))
	for _, rec := range rows {
		var members []string
		if rec["members"] != "" {
			_ = json.Unmarshal([]byte(rec["members"]), &members)
		}
		out = append(out, models.Group{
			ID:          rec["id"],
			Name:        rec["name"],
			Description: rec["description"],
			Members:     members,
		})
	}
	return out, nil
}

func permissionSetsFromCSV(content []byte) ([]models.PermissionSet, error) {
	rows, err := readCSVRecords(content)
	if err != nil {
		return nil, err
	}
	out := make([]models.PermissionSet, 0, len(rows))
	for _, rec := range rows {
		var policies []string
		if rec["managed_policies"] != "" {
			_ = json.Unmarshal([]byte(rec["managed_policies"]), &policies)
		}
		out = append(out, models.PermissionSet{
			Arn:             rec["arn"],
			Name:            rec["name"],
			Description:     rec["description"],
			SessionDuration: rec["session_duration"],
			ManagedPolicies: policies,
		})
	}
	return out, nil
}

func assignmentsFromCSV(content []byte) ([]models.Assignment, error) {
	rows, err := readCSVRecords(content)
	if err != nil {
		return nil, err
	}
	out := make([]models.Assignment, 0, len(rows))
	for _, rec := range rows {
		out = append(out, models.Assignment{
			AccountID:        rec["account_id"],
			PermissionSetArn: rec["permission_set_arn"],
			PrincipalType:    models.PrincipalType(rec["principal_type"]),
			PrincipalID:      rec["principal_id"],
		})
	}
	return out, nil
}

func metadataFromCSV(content []byte) (models.BackupMetadata, error) {
	rows, err := readCSVRecords(content)
	if err != nil {
		return models.BackupMetadata{}, err
	}
	kv := make(map[string]string, len(rows))
	for _, rec := range rows {
		kv[rec["key"]] = rec["value"]
	}
	var meta models.BackupMetadata
	meta.BackupID = kv["backup_id"]
	meta.SourceInstanceArn = kv["source_instance_arn"]
	meta.SourceAccount = kv["source_account"]
	meta.SourceRegion = kv["source_region"]
	meta.Type = models.BackupType(kv["type"])
	meta.Version = kv["version"]
	meta.Checksum = kv["checksum"]
	return meta, nil
}
