// Package retention implements the Retention Engine (§4.J): categorizing
// stored backups by age, enforcing keep-N-per-bucket policies, versioning
// and comparison, and storage-limit monitoring with alerting.
//
// This is grounded line-for-line on original_source/backup_restore/
// retention.py's RetentionManager: the same four-bucket age
// categorization, the same keep-newest-N selection per bucket, the same
// resource-change/similarity-score comparison, and the same two-tier
// warning/critical storage-limit alerting.
package retention

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/identitycore/idcenter/internal/metrics"
	"github.com/identitycore/idcenter/pkg/models"
)

// Store is the narrow slice of the Storage Engine the Retention Engine
// depends on: list/delete/get-metadata. *backup.Service satisfies it.
type Store interface {
	List(ctx context.Context) ([]models.BackupMetadata, error)
	Delete(ctx context.Context, backupID string) error
	GetBackupMetadata(ctx context.Context, backupID string) (models.BackupMetadata, error)
}

// StorageLimit configures the thresholds CheckStorageLimits alerts against.
type StorageLimit struct {
	MaxSizeBytes             int64 // 0 means unlimited
	MaxBackupCount           int   // 0 means unlimited
	WarningThresholdPercent  float64
	CriticalThresholdPercent float64
}

// DefaultStorageLimit mirrors the donor's StorageLimit defaults: no hard
// caps, 80%/95% warning/critical thresholds.
func DefaultStorageLimit() StorageLimit {
	return StorageLimit{WarningThresholdPercent: 80.0, CriticalThresholdPercent: 95.0}
}

// StorageUsage summarizes current occupancy, overall and per age bucket.
type StorageUsage struct {
	TotalSizeBytes   int64
	TotalBackupCount int
	SizeByPeriod     map[models.RetentionPeriod]int64
	CountByPeriod    map[models.RetentionPeriod]int
	OldestBackup     *time.Time
	NewestBackup     *time.Time
}

func newStorageUsage() StorageUsage {
	return StorageUsage{
		SizeByPeriod:  make(map[models.RetentionPeriod]int64),
		CountByPeriod: make(map[models.RetentionPeriod]int),
	}
}

// BackupVersion is a comparable summary of one stored backup.
type BackupVersion struct {
	BackupID       string
	Timestamp      time.Time
	Version        string
	SizeBytes      int64
	ResourceCounts map[string]int
	Checksum       string
}

// ResourceChange is one resource kind's count delta between two backups.
type ResourceChange struct {
	SourceCount   int
	TargetCount   int
	Difference    int
	PercentChange float64
}

// BackupComparison is the outcome of comparing two backup versions.
type BackupComparison struct {
	SourceVersion    BackupVersion
	TargetVersion    BackupVersion
	ResourceChanges  map[string]ResourceChange
	SizeDifference   int64
	TimeDifference   time.Duration
	SimilarityScore  float64
}

// CleanupResult is the outcome of one EnforceRetentionPolicy call.
type CleanupResult struct {
	Success        bool
	DeletedBackups []string
	FreedBytes     int64
	Errors         []string
	Warnings       []string
}

// StorageAlert flags a storage-limit breach.
type StorageAlert struct {
	AlertType         models.AlertSeverity
	Message           string
	CurrentUsage      StorageUsage
	ThresholdExceeded float64
	RecommendedAction string
}

// Recommendation is one actionable suggestion from GetRetentionRecommendations.
type Recommendation struct {
	Type    string
	Message string
	Impact  string
}

// Recommendations bundles the usage snapshot, alerts, and suggestions
// GetRetentionRecommendations returns.
type Recommendations struct {
	CurrentUsage    StorageUsage
	CurrentPolicy   models.RetentionPolicy
	Alerts          []StorageAlert
	Recommendations []Recommendation
}

// Manager enforces retention policies, computes storage usage/alerts, and
// compares backup versions.
type Manager struct {
	store  Store
	limits StorageLimit
}

// NewManager constructs a Manager bound to a Storage Engine collaborator.
func NewManager(store Store, limits StorageLimit) *Manager {
	return &Manager{store: store, limits: limits}
}

func ageBucket(age time.Duration) models.RetentionPeriod {
	switch {
	case age <= 24*time.Hour:
		return models.PeriodDaily
	case age <= 7*24*time.Hour:
		return models.PeriodWeekly
	case age <= 30*24*time.Hour:
		return models.PeriodMonthly
	default:
		return models.PeriodYearly
	}
}

func (m *Manager) categorizeByPeriod(backups []models.BackupMetadata, now time.Time) map[models.RetentionPeriod][]models.BackupMetadata {
	categorized := map[models.RetentionPeriod][]models.BackupMetadata{
		models.PeriodDaily:   nil,
		models.PeriodWeekly:  nil,
		models.PeriodMonthly: nil,
		models.PeriodYearly:  nil,
	}
	for _, b := range backups {
		bucket := ageBucket(now.Sub(b.Timestamp))
		categorized[bucket] = append(categorized[bucket], b)
	}
	for period, bucket := range categorized {
		sorted := append([]models.BackupMetadata(nil), bucket...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })
		categorized[period] = sorted
	}
	return categorized
}

func (m *Manager) identifyForDeletion(categorized map[models.RetentionPeriod][]models.BackupMetadata, policy models.RetentionPolicy) []models.BackupMetadata {
	limits := map[models.RetentionPeriod]int{
		models.PeriodDaily:   policy.KeepDaily,
		models.PeriodWeekly:  policy.KeepWeekly,
		models.PeriodMonthly: policy.KeepMonthly,
		models.PeriodYearly:  policy.KeepYearly,
	}

	var toDelete []models.BackupMetadata
	for period, limit := range limits {
		bucket := categorized[period]
		if len(bucket) > limit {
			toDelete = append(toDelete, bucket[limit:]...)
		}
	}
	return toDelete
}

// EnforceRetentionPolicy categorizes every stored backup by age, identifies
// those exceeding their bucket's keep-N limit, and deletes them (or
// simulates deletion when dryRun is true).
func (m *Manager) EnforceRetentionPolicy(ctx context.Context, policy models.RetentionPolicy, dryRun bool) (CleanupResult, error) {
	backups, err := m.store.List(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("retention: failed to list backups: %w", err)
	}

	categorized := m.categorizeByPeriod(backups, time.Now().UTC())
	toDelete := m.identifyForDeletion(categorized, policy)

	return m.performCleanup(ctx, toDelete, dryRun), nil
}

func (m *Manager) performCleanup(ctx context.Context, toDelete []models.BackupMetadata, dryRun bool) CleanupResult {
	result := CleanupResult{Success: true}

	for _, b := range toDelete {
		if dryRun {
			log.Printf("retention: would delete backup %s", b.BackupID)
			result.DeletedBackups = append(result.DeletedBackups, b.BackupID)
			result.FreedBytes += b.SizeBytes
			continue
		}

		if err := m.store.Delete(ctx, b.BackupID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to delete backup %s: %v", b.BackupID, err))
			result.Success = false
			continue
		}
		result.DeletedBackups = append(result.DeletedBackups, b.BackupID)
		result.FreedBytes += b.SizeBytes
		log.Printf("retention: deleted backup %s", b.BackupID)
	}

	if !dryRun {
		metrics.BackupsDeleted.Add(float64(len(result.DeletedBackups)))
		metrics.BytesFreed.Add(float64(result.FreedBytes))
	}
	return result
}

// GetBackupVersions returns a versioned, newest-first list of every stored
// backup for comparison.
func (m *Manager) GetBackupVersions(ctx context.Context) ([]BackupVersion, error) {
	backups, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("retention: failed to list backups: %w", err)
	}

	versions := make([]BackupVersion, 0, len(backups))
	for _, b := range backups {
		versions = append(versions, BackupVersion{
			BackupID:       b.BackupID,
			Timestamp:      b.Timestamp,
			Version:        b.Version,
			SizeBytes:      b.SizeBytes,
			ResourceCounts: b.ResourceCounts,
			Checksum:       b.Checksum,
		})
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Timestamp.After(versions[j].Timestamp) })
	return versions, nil
}

// CompareBackups analyzes the resource-count differences and similarity
// between two stored backups.
func (m *Manager) CompareBackups(ctx context.Context, sourceID, targetID string) (BackupComparison, error) {
	source, err := m.store.GetBackupMetadata(ctx, sourceID)
	if err != nil {
		return BackupComparison{}, fmt.Errorf("retention: failed to read source backup %q: %w", sourceID, err)
	}
	target, err := m.store.GetBackupMetadata(ctx, targetID)
	if err != nil {
		return BackupComparison{}, fmt.Errorf("retention: failed to read target backup %q: %w", targetID, err)
	}

	timeDiff := target.Timestamp.Sub(source.Timestamp)
	if timeDiff < 0 {
		timeDiff = -timeDiff
	}

	return BackupComparison{
		SourceVersion: BackupVersion{BackupID: source.BackupID, Timestamp: source.Timestamp, Version: source.Version, SizeBytes: source.SizeBytes, ResourceCounts: source.ResourceCounts, Checksum: source.Checksum},
		TargetVersion: BackupVersion{BackupID: target.BackupID, Timestamp: target.Timestamp, Version: target.Version, SizeBytes: target.SizeBytes, ResourceCounts: target.ResourceCounts, Checksum: target.Checksum},
		ResourceChanges: calculateResourceChanges(source.ResourceCounts, target.ResourceCounts),
		SizeDifference:  target.SizeBytes - source.SizeBytes,
		TimeDifference:  timeDiff,
		SimilarityScore: calculateSimilarityScore(source.ResourceCounts, target.ResourceCounts),
	}, nil
}

func calculateResourceChanges(source, target map[string]int) map[string]ResourceChange {
	changes := make(map[string]ResourceChange)
	seen := make(map[string]struct{}, len(source)+len(target))
	for k := range source {
		seen[k] = struct{}{}
	}
	for k := range target {
		seen[k] = struct{}{}
	}

	for resource := range seen {
		s, t := source[resource], target[resource]
		diff := t - s
		var percent float64
		if s > 0 {
			percent = float64(diff) / float64(s) * 100
		}
		changes[resource] = ResourceChange{SourceCount: s, TargetCount: t, Difference: diff, PercentChange: percent}
	}
	return changes
}

func calculateSimilarityScore(source, target map[string]int) float64 {
	seen := make(map[string]struct{}, len(source)+len(target))
	for k := range source {
		seen[k] = struct{}{}
	}
	for k := range target {
		seen[k] = struct{}{}
	}
	if len(seen) == 0 {
		return 1.0
	}

	var total float64
	for resource := range seen {
		s, t := source[resource], target[resource]
		var similarity float64
		switch {
		case s == 0 && t == 0:
			similarity = 1.0
		case s == 0 || t == 0:
			similarity = 0.0
		default:
			similarity = float64(min(s, t)) / float64(max(s, t))
		}
		total += similarity
	}
	return total / float64(len(seen))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// GetStorageUsage computes total occupancy and the per-age-bucket breakdown.
func (m *Manager) GetStorageUsage(ctx context.Context) (StorageUsage, error) {
	backups, err := m.store.List(ctx)
	if err != nil {
		return StorageUsage{}, fmt.Errorf("retention: failed to list backups: %w", err)
	}

	usage := newStorageUsage()
	usage.TotalBackupCount = len(backups)
	if len(backups) == 0 {
		return usage, nil
	}

	now := time.Now().UTC()
	for _, b := range backups {
		usage.TotalSizeBytes += b.SizeBytes
		if usage.OldestBackup == nil || b.Timestamp.Before(*usage.OldestBackup) {
			ts := b.Timestamp
			usage.OldestBackup = &ts
		}
		if usage.NewestBackup == nil || b.Timestamp.After(*usage.NewestBackup) {
			ts := b.Timestamp
			usage.NewestBackup = &ts
		}

		period := ageBucket(now.Sub(b.Timestamp))
		usage.SizeByPeriod[period] += b.SizeBytes
		usage.CountByPeriod[period]++
	}
	return usage, nil
}

// CheckStorageLimits compares current usage against the configured limits
// and returns warning/critical alerts for any breach.
func (m *Manager) CheckStorageLimits(ctx context.Context) ([]StorageAlert, error) {
	usage, err := m.GetStorageUsage(ctx)
	if err != nil {
		return nil, err
	}

	var alerts []StorageAlert

	if m.limits.MaxSizeBytes > 0 {
		percent := float64(usage.TotalSizeBytes) / float64(m.limits.MaxSizeBytes) * 100
		switch {
		case percent >= m.limits.CriticalThresholdPercent:
			alerts = append(alerts, StorageAlert{
				AlertType:         models.SeverityCritical,
				Message:           fmt.Sprintf("storage usage critical: %.1f%% of limit", percent),
				CurrentUsage:      usage,
				ThresholdExceeded: percent,
				RecommendedAction: "immediate cleanup required, consider reducing retention periods",
			})
		case percent >= m.limits.WarningThresholdPercent:
			alerts = append(alerts, StorageAlert{
				AlertType:         models.SeverityWarning,
				Message:           fmt.Sprintf("storage usage warning: %.1f%% of limit", percent),
				CurrentUsage:      usage,
				ThresholdExceeded: percent,
				RecommendedAction: "consider running cleanup or adjusting retention policy",
			})
		}
	}

	if m.limits.MaxBackupCount > 0 {
		switch {
		case usage.TotalBackupCount >= m.limits.MaxBackupCount:
			alerts = append(alerts, StorageAlert{
				AlertType:         models.SeverityCritical,
				Message:           fmt.Sprintf("backup count limit reached: %d", usage.TotalBackupCount),
				CurrentUsage:      usage,
				RecommendedAction: "delete old backups or increase the backup count limit",
			})
		case float64(usage.TotalBackupCount) >= float64(m.limits.MaxBackupCount)*0.9:
			alerts = append(alerts, StorageAlert{
				AlertType:         models.SeverityWarning,
				Message:           fmt.Sprintf("approaching backup count limit: %d", usage.TotalBackupCount),
				CurrentUsage:      usage,
				RecommendedAction: "monitor backup count and consider cleanup",
			})
		}
	}

	return alerts, nil
}

// GetRetentionRecommendations analyzes current usage against the active
// policy and suggests adjustments.
func (m *Manager) GetRetentionRecommendations(ctx context.Context, policy models.RetentionPolicy) (Recommendations, error) {
	usage, err := m.GetStorageUsage(ctx)
	if err != nil {
		return Recommendations{}, err
	}
	alerts, err := m.CheckStorageLimits(ctx)
	if err != nil {
		return Recommendations{}, err
	}

	recs := Recommendations{CurrentUsage: usage, CurrentPolicy: policy, Alerts: alerts}

	if usage.TotalBackupCount == 0 {
		return recs, nil
	}

	avgBackupSize := float64(usage.TotalSizeBytes) / float64(usage.TotalBackupCount)

	dailyCount := usage.CountByPeriod[models.PeriodDaily]
	if float64(dailyCount) > float64(policy.KeepDaily)*1.5 {
		target := dailyCount / 2
		if target < 1 {
			target = 1
		}
		freedMB := float64(dailyCount-target) * avgBackupSize / 1024 / 1024
		recs.Recommendations = append(recs.Recommendations, Recommendation{
			Type:    "reduce_daily",
			Message: fmt.Sprintf("consider reducing daily retention from %d to %d", policy.KeepDaily, target),
			Impact:  fmt.Sprintf("would free approximately %.1f MB", freedMB),
		})
	}

	for _, a := range alerts {
		if a.AlertType == models.SeverityCritical {
			recs.Recommendations = append(recs.Recommendations, Recommendation{
				Type:    "immediate_cleanup",
				Message: "immediate cleanup required due to critical storage alerts",
				Impact:  "essential to prevent storage issues",
			})
			break
		}
	}

	if float64(usage.CountByPeriod[models.PeriodYearly]) > float64(policy.KeepYearly)*2 {
		recs.Recommendations = append(recs.Recommendations, Recommendation{
			Type:    "optimize_yearly",
			Message: "consider archiving very old backups to cheaper storage",
			Impact:  "reduces primary storage costs",
		})
	}

	return recs, nil
}
