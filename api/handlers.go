// Package api implements the HTTP API handlers for idcenter: bulk
// assignment execution, declarative templates, backup/restore, retention
// enforcement, and export/import.
//
// All endpoints are versioned under /api/v1 and follow RESTful
// conventions. Handlers delegate to the appropriate component and return
// JSON responses with appropriate HTTP status codes.
package api

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/identitycore/idcenter/internal/backup"
	"github.com/identitycore/idcenter/internal/collector"
	"github.com/identitycore/idcenter/internal/directory"
	"github.com/identitycore/idcenter/internal/executor"
	"github.com/identitycore/idcenter/internal/exportimport"
	"github.com/identitycore/idcenter/internal/ingest"
	"github.com/identitycore/idcenter/internal/preview"
	"github.com/identitycore/idcenter/internal/resolver"
	"github.com/identitycore/idcenter/internal/restore"
	"github.com/identitycore/idcenter/internal/retention"
	"github.com/identitycore/idcenter/internal/template"
	"github.com/identitycore/idcenter/pkg/models"
)

// Handler holds references to every component and provides HTTP handler
// methods.
type Handler struct {
	directoryClient   directory.Client
	executor          *executor.Executor
	newResolver       func() *resolver.Resolver
	collector         *collector.Collector
	backupService     *backup.Service
	restoreEngine     *restore.Engine
	retentionManager  *retention.Manager
	exportImport      *exportimport.Manager
	templateStore     *template.Store
	templateValidator *template.Validator
	templateExecutor  *template.Executor
	instanceArn       string
	defaultPolicy     models.RetentionPolicy

	pool      *pgxpool.Pool
	startTime time.Time
}

// NewHandler creates a new Handler with all required component
// dependencies.
func NewHandler(
	directoryClient directory.Client,
	batchExecutor *executor.Executor,
	newResolver func() *resolver.Resolver,
	coll *collector.Collector,
	backupService *backup.Service,
	restoreEngine *restore.Engine,
	retentionManager *retention.Manager,
	exportImport *exportimport.Manager,
	templateStore *template.Store,
	templateValidator *template.Validator,
	templateExecutor *template.Executor,
	instanceArn string,
	defaultPolicy models.RetentionPolicy,
	opts ...HandlerOption,
) *Handler {
	h := &Handler{
		directoryClient:   directoryClient,
		executor:          batchExecutor,
		newResolver:       newResolver,
		collector:         coll,
		backupService:     backupService,
		restoreEngine:     restoreEngine,
		retentionManager:  retentionManager,
		exportImport:      exportImport,
		templateStore:     templateStore,
		templateValidator: templateValidator,
		templateExecutor:  templateExecutor,
		instanceArn:       instanceArn,
		defaultPolicy:     defaultPolicy,
		startTime:         time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandlerOption configures optional Handler dependencies.
type HandlerOption func(*Handler)

// WithPool sets the database pool for DB-backed API key validation.
func WithPool(pool *pgxpool.Pool) HandlerOption {
	return func(h *Handler) { h.pool = pool }
}

// hashAPIKey returns the hex-encoded SHA-256 hash of the given API key.
func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// APIKeyAuth returns a Gin middleware that validates the X-API-Key header.
// When a database pool is provided, it verifies the key against the
// api_keys table using key_prefix lookup and SHA-256 hash comparison.
func APIKeyAuth(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Missing API key. Provide X-API-Key header.",
			})
			c.Abort()
			return
		}
		if len(apiKey) < 16 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid API key format.",
			})
			c.Abort()
			return
		}

		if pool != nil {
			keyHash := hashAPIKey(apiKey)
			var entityID, storedHash string
			err := pool.QueryRow(
				c.Request.Context(),
				`SELECT entity_id, key_hash FROM api_keys
				 WHERE key_prefix = $1 AND revoked = false
				 LIMIT 1`,
				apiKey[:8],
			).Scan(&entityID, &storedHash)

			if err != nil || storedHash != keyHash {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":   "unauthorized",
					"message": "Invalid API key.",
				})
				c.Abort()
				return
			}
			c.Set("entity_id", entityID)
		}

		c.Set("api_key", apiKey)
		c.Next()
	}
}

// RegisterRoutes sets up all API routes on the given Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.ServiceHealth)

	v1 := r.Group("/api/v1")
	v1.Use(APIKeyAuth(h.pool))
	{
		bulk := v1.Group("/bulk")
		{
			bulk.POST("/upload", h.UploadBulk)
			bulk.POST("/execute", h.ExecuteBulk)
		}

		templates := v1.Group("/templates")
		{
			templates.GET("", h.ListTemplates)
			templates.POST("", h.CreateTemplate)
			templates.GET("/:name", h.GetTemplate)
			templates.DELETE("/:name", h.DeleteTemplate)
			templates.POST("/:name/preview", h.PreviewTemplate)
			templates.POST("/:name/apply", h.ApplyTemplate)
		}

		backups := v1.Group("/backups")
		{
			backups.POST("", h.CreateBackup)
			backups.GET("", h.ListBackups)
			backups.GET("/:id", h.GetBackup)
			backups.DELETE("/:id", h.DeleteBackup)
			backups.GET("/:id/verify", h.VerifyBackup)
			backups.POST("/:id/export", h.ExportBackup)
		}

		restoreGroup := v1.Group("/restore")
		{
			restoreGroup.POST("/:id/preview", h.PreviewRestore)
			restoreGroup.POST("/:id", h.ApplyRestore)
			restoreGroup.POST("/:id/validate", h.ValidateRestore)
		}

		retentionGroup := v1.Group("/retention")
		{
			retentionGroup.POST("/enforce", h.EnforceRetention)
			retentionGroup.GET("/usage", h.GetStorageUsage)
			retentionGroup.GET("/alerts", h.GetStorageAlerts)
			retentionGroup.GET("/versions", h.GetBackupVersions)
			retentionGroup.GET("/compare", h.CompareBackups)
			retentionGroup.GET("/recommendations", h.GetRetentionRecommendations)
		}

		v1.POST("/import", h.ImportBackup)
	}
}

// ServiceHealth returns the overall health of the idcenter service.
// ServiceHealth reports service uptime plus a live probe of the two
// dependencies requests actually touch: the directory client and the
// backup storage backend. Either one degrading the response to
// "degraded" rather than failing the request outright, since a directory
// or storage outage doesn't mean the process itself is unhealthy.
func (h *Handler) ServiceHealth(c *gin.Context) {
	ctx := c.Request.Context()
	status := "healthy"

	probe, probeErr := h.directoryClient.Probe(ctx)
	directoryHealth := gin.H{"ok": probeErr == nil && probe.OK}
	if probeErr != nil {
		directoryHealth["error"] = probeErr.Error()
		status = "degraded"
	} else if !probe.OK {
		directoryHealth["missing_capabilities"] = probe.MissingCapabilities
		status = "degraded"
	}

	storageHealth := gin.H{"ok": true}
	if info, err := h.backupService.GetStorageInfo(ctx); err != nil {
		storageHealth["ok"] = false
		storageHealth["error"] = err.Error()
		status = "degraded"
	} else {
		storageHealth["backup_count"] = info.BackupCount
		storageHealth["total_bytes"] = info.TotalBytes
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      status,
		"service":     "idcenter",
		"version":     "1.0.0",
		"uptime_secs": time.Since(h.startTime).Seconds(),
		"directory":   directoryHealth,
		"storage":     storageHealth,
	})
}

// bulkRequest is ExecuteBulk's JSON body: a batch of already-parsed
// records plus the operation and execution flags.
type bulkRequest struct {
	Records   []models.BulkRecord `json:"records" binding:"required"`
	Operation string              `json:"operation" binding:"required"` // "assign" or "revoke"
	DryRun    bool                `json:"dry_run"`
}

// UploadBulk ingests an uploaded CSV/JSON bulk-assignment file, resolves
// every record against the directory, and either returns a dry-run
// preview or executes the batch, per the Input Ingestor (§4.B) -> Resolver
// (§4.A) -> Preview (§4.C) -> Batch Executor (§4.D) pipeline.
func (h *Handler) UploadBulk(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file", "message": "expected a multipart 'file' field"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_file", "message": err.Error()})
		return
	}
	defer f.Close()

	result, err := ingest.IngestFile(fileHeader.Filename, f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ingest_failed", "message": err.Error()})
		return
	}
	if !result.OK() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "structural_errors", "details": result.Errors})
		return
	}

	op := models.BulkOperation(c.DefaultQuery("operation", string(models.OpAssign)))
	dryRun := c.Query("dry_run") == "true"

	h.runBulk(c, result.Records, op, dryRun)
}

// ExecuteBulk runs the same resolve -> preview -> execute pipeline as
// UploadBulk but over a JSON-encoded record batch instead of an uploaded
// file, for callers that have already parsed their own input.
func (h *Handler) ExecuteBulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	h.runBulk(c, req.Records, models.BulkOperation(req.Operation), req.DryRun)
}

// runBulk resolves records, gates them through preview, and executes them
// unless the run is a dry run or unresolvable records abort it. An API
// caller has no terminal to confirm against, so every non-dry-run request
// auto-confirms rather than blocking on a prompt that could never be
// answered.
func (h *Handler) runBulk(c *gin.Context, records []models.BulkRecord, op models.BulkOperation, dryRun bool) {
	ctx := c.Request.Context()
	res := h.newResolver()

	if err := res.WarmCacheFor(ctx, records); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "resolution_failed", "message": err.Error()})
		return
	}

	resolved := make([]models.BulkRecord, len(records))
	for i, rec := range records {
		r, err := res.ResolveAssignment(ctx, rec)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "resolution_failed", "message": err.Error()})
			return
		}
		resolved[i] = r
	}

	decision := preview.Gate(ctx, resolved, preview.Options{DryRun: dryRun, Force: true}, preview.AutoConfirm)
	if decision.Aborted {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "unresolvable_records",
			"summary": decision.Summary,
		})
		return
	}
	if dryRun {
		c.JSON(http.StatusOK, gin.H{"dry_run": true, "summary": decision.Summary})
		return
	}

	execOpts := executor.DefaultOptions()
	execOpts.InstanceArn = h.instanceArn
	execOpts.ContinueOnError = true
	results := h.executor.Process(ctx, resolved, op, execOpts)
	c.JSON(http.StatusOK, results)
}

// ListTemplates returns every stored template's name.
func (h *Handler) ListTemplates(c *gin.Context) {
	names, err := h.templateStore.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": names})
}

// CreateTemplate validates and persists a new template.
func (h *Handler) CreateTemplate(c *gin.Context) {
	var t models.Template
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if errs := template.ValidateStructure(t); len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_template", "details": errs})
		return
	}
	if err := h.templateStore.Save(t); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GetTemplate returns one stored template by name.
func (h *Handler) GetTemplate(c *gin.Context) {
	t, err := h.templateStore.Load(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTemplate removes a stored template.
func (h *Handler) DeleteTemplate(c *gin.Context) {
	if err := h.templateStore.Delete(c.Param("name")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// PreviewTemplate expands a stored template without applying any writes.
func (h *Handler) PreviewTemplate(c *gin.Context) {
	t, err := h.templateStore.Load(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
		return
	}
	result, err := h.templateExecutor.Preview(c.Request.Context(), t)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preview_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ApplyTemplate expands a stored template and drives it through the Batch
// Executor.
func (h *Handler) ApplyTemplate(c *gin.Context) {
	t, err := h.templateStore.Load(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
		return
	}

	execOpts := executor.DefaultOptions()
	execOpts.InstanceArn = h.instanceArn
	execOpts.ContinueOnError = true
	execOpts.DryRun = c.Query("dry_run") == "true"

	res := h.newResolver()
	result, validation, err := h.templateExecutor.Apply(c.Request.Context(), t, res, execOpts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "apply_failed", "message": err.Error()})
		return
	}
	if !validation.Valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_template", "validation": validation})
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateBackup takes a fresh snapshot of the directory and stores it.
func (h *Handler) CreateBackup(c *gin.Context) {
	ctx := c.Request.Context()
	data, err := h.collector.Snapshot(ctx, h.instanceArn)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "snapshot_failed", "message": err.Error()})
		return
	}
	id, err := h.backupService.Store(ctx, data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"backup_id": id, "metadata": data.Metadata})
}

// ListBackups returns every stored backup's metadata.
func (h *Handler) ListBackups(c *gin.Context) {
	entries, err := h.backupService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"backups": entries})
}

// GetBackup returns one backup's metadata.
func (h *Handler) GetBackup(c *gin.Context) {
	meta, err := h.backupService.GetBackupMetadata(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, meta)
}

// DeleteBackup removes a stored backup.
func (h *Handler) DeleteBackup(c *gin.Context) {
	if err := h.backupService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// VerifyBackup recomputes a stored backup's checksum and reports whether it
// still matches.
func (h *Handler) VerifyBackup(c *gin.Context) {
	err := h.backupService.VerifyIntegrity(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// exportResponse base64-encodes every file exportimport.Manager.Export
// produces, since a JSON response body can't carry raw binary safely.
type exportResponse struct {
	Files map[string]string `json:"files"`
}

// ExportBackup renders a stored backup into the requested interchange
// dialect.
func (h *Handler) ExportBackup(c *gin.Context) {
	format := exportimport.Format(c.DefaultQuery("format", string(exportimport.FormatJSON)))
	compress := c.Query("compress") == "true"

	files, err := h.exportImport.Export(c.Request.Context(), c.Param("id"), format, compress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export_failed", "message": err.Error()})
		return
	}

	encoded := make(map[string]string, len(files))
	for name, content := range files {
		encoded[name] = base64.StdEncoding.EncodeToString(content)
	}
	c.JSON(http.StatusOK, exportResponse{Files: encoded})
}

// importRequest is ImportBackup's JSON body: the same base64-encoded file
// map ExportBackup returns, plus the dialect to parse it as.
type importRequest struct {
	Files  map[string]string `json:"files" binding:"required"`
	Format string            `json:"format" binding:"required"`
}

// ImportBackup parses an uploaded interchange bundle and stores it as a
// new backup.
func (h *Handler) ImportBackup(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	files := make(map[string][]byte, len(req.Files))
	for name, encoded := range req.Files {
		content, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_encoding", "message": "file " + name + " is not valid base64"})
			return
		}
		files[name] = content
	}

	newID, err := h.exportImport.Import(c.Request.Context(), files, exportimport.Format(req.Format))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "import_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"backup_id": newID})
}

// restoreRequest is ApplyRestore/PreviewRestore's JSON body.
type restoreRequest struct {
	TargetResources   []models.ResourceKind    `json:"target_resources"`
	ConflictStrategy  models.ConflictStrategy  `json:"conflict_strategy"`
	DryRun            bool                     `json:"dry_run"`
	TargetInstanceArn string                   `json:"target_instance_arn"`
	SkipValidation    bool                     `json:"skip_validation"`
}

func (req restoreRequest) toOptions(defaultInstanceArn string) restore.Options {
	targetArn := req.TargetInstanceArn
	if targetArn == "" {
		targetArn = defaultInstanceArn
	}
	strategy := req.ConflictStrategy
	if strategy == "" {
		strategy = models.ConflictSkip
	}
	return restore.Options{
		TargetResources:   req.TargetResources,
		ConflictStrategy:  strategy,
		DryRun:            req.DryRun,
		TargetInstanceArn: targetArn,
		SkipValidation:    req.SkipValidation,
	}
}

// PreviewRestore reports what a restore would do without applying it.
func (h *Handler) PreviewRestore(c *gin.Context) {
	var req restoreRequest
	_ = c.ShouldBindJSON(&req) // an empty body previews with restore.Options' defaults

	restorePreview, err := h.restoreEngine.Preview(c.Request.Context(), c.Param("id"), req.toOptions(h.instanceArn))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preview_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, restorePreview)
}

// ApplyRestore replays a backup's resource graph into the target
// directory.
func (h *Handler) ApplyRestore(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.restoreEngine.Restore(c.Request.Context(), c.Param("id"), req.toOptions(h.instanceArn))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "restore_failed", "message": err.Error()})
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

// ValidateRestore checks a backup's compatibility with a target instance
// without applying anything.
func (h *Handler) ValidateRestore(c *gin.Context) {
	ctx := c.Request.Context()
	data, err := h.backupService.Retrieve(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
		return
	}

	targetArn := c.DefaultQuery("target_instance_arn", h.instanceArn)
	result, err := h.restoreEngine.ValidateCompatibility(ctx, data, targetArn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// EnforceRetention applies the default retention policy against the
// backup catalogue.
func (h *Handler) EnforceRetention(c *gin.Context) {
	dryRun := c.Query("dry_run") == "true"
	result, err := h.retentionManager.EnforceRetentionPolicy(c.Request.Context(), h.defaultPolicy, dryRun)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enforcement_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStorageUsage reports current backup storage occupancy.
func (h *Handler) GetStorageUsage(c *gin.Context) {
	usage, err := h.retentionManager.GetStorageUsage(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, usage)
}

// GetStorageAlerts reports any storage-limit breaches.
func (h *Handler) GetStorageAlerts(c *gin.Context) {
	alerts, err := h.retentionManager.CheckStorageLimits(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "alerts_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// GetBackupVersions lists comparable summaries of every stored backup.
func (h *Handler) GetBackupVersions(c *gin.Context) {
	versions, err := h.retentionManager.GetBackupVersions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "versions_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// CompareBackups diffs two stored backups by id, given as the source and
// target query parameters.
func (h *Handler) CompareBackups(c *gin.Context) {
	source := c.Query("source")
	target := c.Query("target")
	if source == "" || target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "source and target query parameters are required"})
		return
	}
	comparison, err := h.retentionManager.CompareBackups(c.Request.Context(), source, target)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "compare_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, comparison)
}

// GetRetentionRecommendations returns actionable suggestions given current
// usage and the default retention policy.
func (h *Handler) GetRetentionRecommendations(c *gin.Context) {
	recs, err := h.retentionManager.GetRetentionRecommendations(c.Request.Context(), h.defaultPolicy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recommendations_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, recs)
}
