package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/identitycore/idcenter/pkg/models"
)

// CurrentVersion is the BackupData format version stamped into new backups.
const CurrentVersion = "1"

// Canonicalize returns a deterministically ordered copy of b suitable for
// hashing: principals sorted by id, permission sets by arn, assignments by
// their 4-tuple key, timestamps truncated to whole seconds, and the two
// fields derived from the serialized form (checksum, size) zeroed so the
// hash never depends on its own prior output.
func Canonicalize(b models.BackupData) models.BackupData {
	out := b

	out.Users = append([]models.User(nil), b.Users...)
	sort.Slice(out.Users, func(i, j int) bool { return out.Users[i].ID < out.Users[j].ID })
	for i := range out.Users {
		out.Users[i].LastModified = out.Users[i].LastModified.UTC().Truncate(time.Second)
	}

	out.Groups = append([]models.Group(nil), b.Groups...)
	sort.Slice(out.Groups, func(i, j int) bool { return out.Groups[i].ID < out.Groups[j].ID })
	for i := range out.Groups {
		out.Groups[i].LastModified = out.Groups[i].LastModified.UTC().Truncate(time.Second)
	}

	out.PermissionSets = append([]models.PermissionSet(nil), b.PermissionSets...)
	sort.Slice(out.PermissionSets, func(i, j int) bool { return out.PermissionSets[i].Arn < out.PermissionSets[j].Arn })
	for i := range out.PermissionSets {
		out.PermissionSets[i].LastModified = out.PermissionSets[i].LastModified.UTC().Truncate(time.Second)
	}

	out.Assignments = append([]models.Assignment(nil), b.Assignments...)
	sort.Slice(out.Assignments, func(i, j int) bool { return out.Assignments[i].Key() < out.Assignments[j].Key() })

	out.Metadata.Timestamp = out.Metadata.Timestamp.UTC().Truncate(time.Second)
	out.Metadata.Checksum = ""
	out.Metadata.SizeBytes = 0
	return out
}

// Checksum computes the SHA-256 checksum over the canonical JSON encoding of
// b's record graph. Map keys (resource_counts, relationship edges) are
// sorted by encoding/json's native map-marshaling behavior; slices are
// sorted explicitly by Canonicalize. Re-serializing the same logical graph
// in a different field order always reproduces the same checksum.
func Checksum(b models.BackupData) (string, error) {
	canon := Canonicalize(b)
	data, err := json.Marshal(canon)
	if err != nil {
		return "", fmt.Errorf("backup: failed to canonicalize for checksum: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Serialize stamps b's checksum and size into its metadata and renders it to
// the JSON wire format the storage backend persists and the Restore Engine
// and Export/Import components consume.
func Serialize(b models.BackupData) ([]byte, error) {
	checksum, err := Checksum(b)
	if err != nil {
		return nil, err
	}
	b.Metadata.Checksum = checksum

	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to serialize backup data: %w", err)
	}
	b.Metadata.SizeBytes = int64(len(data))

	final, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to serialize backup data: %w", err)
	}
	return final, nil
}

// Deserialize parses a stored backup blob back into a BackupData.
func Deserialize(data []byte) (models.BackupData, error) {
	var b models.BackupData
	if err := json.Unmarshal(data, &b); err != nil {
		return models.BackupData{}, fmt.Errorf("backup: failed to parse backup data: %w", err)
	}
	return b, nil
}

// VerifyIntegrity recomputes b's checksum and compares it against the value
// stamped in its own metadata, detecting corruption introduced between
// serialization and this read. Checksum and size are excluded from the hash
// input (see Canonicalize), so this is stable across Serialize/Deserialize
// round trips regardless of how size was measured.
func VerifyIntegrity(b models.BackupData) error {
	want := b.Metadata.Checksum
	if want == "" {
		return fmt.Errorf("backup: backup %q has no checksum to verify against", b.Metadata.BackupID)
	}
	got, err := Checksum(b)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("backup: integrity check failed for %q: expected %s, got %s", b.Metadata.BackupID, want, got)
	}
	return nil
}

// ResourceCounts tallies b's four resource collections, the metadata field
// preview and status endpoints read without loading the full graph.
func ResourceCounts(b models.BackupData) map[string]int {
	return map[string]int{
		string(models.KindUsers):          len(b.Users),
		string(models.KindGroups):         len(b.Groups),
		string(models.KindPermissionSets): len(b.PermissionSets),
		string(models.KindAssignments):    len(b.Assignments),
	}
}
