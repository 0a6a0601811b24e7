// Package analyzer runs the sales-file pipeline: read, normalize, detect the
// marketplace, identify column roles, coerce, compute metrics, specialize
// and sanitize. One request yields one document or one hard error.
package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/coerce"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/marketplace"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/metrics"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/observability"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/platform"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/reader"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/sanitize"
)

// SuccessMessage accompanies every successful response.
const SuccessMessage = "File analyzed successfully"

// Config holds pipeline settings.
type Config struct {
	CoercionThreshold float64
	SampleRows        int
	AdvisorTimeout    time.Duration
	TempDir           string
}

// Upload is one uploaded file.
type Upload struct {
	Data     []byte
	Filename string
}

// Request is one analysis request. Returns switches on paired-file mode.
type Request struct {
	Upload
	Platform  string
	Overrides map[string]string
	Returns   *Upload
}

// Response is the success envelope. Analysis, column_mapping and
// available_columns are always present, even when empty.
type Response struct {
	Success             bool              `json:"success"`
	Message             string            `json:"message,omitempty"`
	Analysis            map[string]any    `json:"analysis"`
	ColumnMapping       map[string]string `json:"column_mapping"`
	ColumnMappingIssues []string          `json:"column_mapping_issues,omitempty"`
	AvailableColumns    []string          `json:"available_columns"`
	Platform            string            `json:"platform,omitempty"`
	Detection           string            `json:"detection_source,omitempty"`
	Layout              *reader.Layout    `json:"layout,omitempty"`
	Fingerprint         string            `json:"fingerprint,omitempty"`
}

// FailureResponse is the envelope for a request that produced no analysis.
type FailureResponse struct {
	Success             bool     `json:"success"`
	Error               string   `json:"error"`
	ColumnMappingIssues []string `json:"column_mapping_issues,omitempty"`
}

// Failure renders a hard error as a failed envelope.
func Failure(err error) *FailureResponse {
	if e, ok := AsError(err); ok {
		return &FailureResponse{Error: e.Message}
	}
	return &FailureResponse{Error: err.Error()}
}

// Analyzer runs the pipeline. It holds no per-request state and is safe for
// concurrent use.
type Analyzer struct {
	cfg        Config
	reader     *reader.Reader
	identifier *roles.Identifier
	logger     *observability.Logger
}

// New creates an Analyzer. advisor may be nil.
func New(cfg Config, logger *observability.Logger, advisor roles.Advisor) *Analyzer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg.CoercionThreshold <= 0 || cfg.CoercionThreshold > 1 {
		cfg.CoercionThreshold = coerce.DefaultThreshold
	}

	opts := []roles.Option{roles.WithLogger(logger), roles.WithSampleRows(cfg.SampleRows)}
	if advisor != nil {
		opts = append(opts, roles.WithAdvisor(advisor, cfg.AdvisorTimeout))
	}

	return &Analyzer{
		cfg:        cfg,
		reader:     reader.New(logger),
		identifier: roles.NewIdentifier(opts...),
		logger:     logger,
	}
}

// Analyze runs the pipeline for req. Hard failures come back as *Error.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	logger := a.logger.WithContext(ctx).WithUpload(req.Filename)

	if err := validate(req); err != nil {
		return nil, err
	}

	in, err := a.prepare(ctx, req, logger)
	if err != nil {
		return nil, err
	}
	src, detection, roleMap, recordType := in.src, in.detection, in.roles, in.recordType

	coerced := coerce.Apply(src, roleMap.Targets(), a.cfg.CoercionThreshold)
	for _, w := range coerced.Warnings {
		logger.Warn().Str("warning", w).Msg("column coercion degraded")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	issues := append(append([]string(nil), roleMap.Warnings...), coerced.Warnings...)
	doc := metrics.Compute(metrics.Input{
		Frame:           coerced.Frame,
		Roles:           roleMap,
		Warnings:        issues,
		RecordTypeLabel: recordType,
	})

	if block := platform.Specialize(detection.Platform, platform.Input{
		Frame:           coerced.Frame,
		Roles:           roleMap,
		RecordTypeLabel: recordType,
	}); block != nil {
		doc[metrics.KeyPlatformSpecific] = block
		if msg, ok := block["error"]; ok {
			logger.Warn().Str("platform", string(detection.Platform)).Str("error", fmt.Sprint(msg)).Msg("platform specializer failed")
		}
	}

	analysis := sanitize.Document(doc)
	canonical, err := sanitize.Canonical(analysis)
	if err != nil {
		// The document is already JSON-safe, so this only loses the fingerprint.
		logger.Warn().Err(err).Msg("could not canonicalize analysis")
	}

	resp := &Response{
		Success:             true,
		Message:             SuccessMessage,
		Analysis:            analysis,
		ColumnMapping:       roleMap.Labels(),
		ColumnMappingIssues: issues,
		AvailableColumns:    src.Labels(),
		Platform:            string(detection.Platform),
		Detection:           string(detection.Source),
		Layout:              in.layout,
	}
	if canonical != nil {
		resp.Fingerprint = sanitize.Fingerprint(canonical)
	}

	logger.Info().
		Int("rows", src.Len()).
		Int("columns", src.Width()).
		Str("platform", resp.Platform).
		Int("warnings", len(issues)).
		Bool("paired", req.Returns != nil).
		Dur("duration", time.Since(start)).
		Msg("analysis complete")
	return resp, nil
}

// Inspection is the outcome of reading, detection and role identification
// without computing metrics.
type Inspection struct {
	Platform            string             `json:"platform"`
	Detection           string             `json:"detection_source"`
	Scores              map[string]int     `json:"scores,omitempty"`
	Layout              *reader.Layout     `json:"layout,omitempty"`
	Rows                int                `json:"rows"`
	AvailableColumns    []string           `json:"available_columns"`
	ColumnMapping       map[string]string  `json:"column_mapping"`
	Confidence          map[string]float64 `json:"confidence,omitempty"`
	ColumnMappingIssues []string           `json:"column_mapping_issues,omitempty"`
}

// Inspect reads req and reports the detected marketplace and role map.
func (a *Analyzer) Inspect(ctx context.Context, req Request) (*Inspection, error) {
	logger := a.logger.WithContext(ctx).WithUpload(req.Filename)
	if err := validate(req); err != nil {
		return nil, err
	}

	in, err := a.prepare(ctx, req, logger)
	if err != nil {
		return nil, err
	}

	out := &Inspection{
		Platform:            string(in.detection.Platform),
		Detection:           string(in.detection.Source),
		Layout:              in.layout,
		Rows:                in.src.Len(),
		AvailableColumns:    in.src.Labels(),
		ColumnMapping:       in.roles.Labels(),
		Confidence:          make(map[string]float64, len(in.roles.Confidence)),
		ColumnMappingIssues: in.roles.Warnings,
	}
	if len(in.detection.Scores) > 0 {
		out.Scores = make(map[string]int, len(in.detection.Scores))
		for p, n := range in.detection.Scores {
			out.Scores[string(p)] = n
		}
	}
	for r, c := range in.roles.Confidence {
		out.Confidence[string(r)] = c
	}
	return out, nil
}

type prepared struct {
	src        *frame.Frame
	layout     *reader.Layout
	recordType string
	detection  marketplace.Detection
	roles      *roles.Map
}

func validate(req Request) error {
	if len(req.Data) == 0 {
		return invalidRequest("no file uploaded")
	}
	if req.Returns != nil && len(req.Returns.Data) == 0 {
		return invalidRequest("returns file is empty")
	}
	return nil
}

// prepare runs the stages up to role identification.
func (a *Analyzer) prepare(ctx context.Context, req Request, logger *observability.Logger) (*prepared, error) {
	src, layout, err := a.load(ctx, req.Upload)
	if err != nil {
		return nil, err
	}

	overrides := make(map[string]string, len(req.Overrides)+1)
	recordType := ""
	if req.Returns != nil {
		returns, _, err := a.load(ctx, *req.Returns)
		if err != nil {
			return nil, err
		}
		merged, extra, err := merge(src, returns)
		if err != nil {
			logger.Warn().
				Strs("sales_columns", src.Labels()).
				Strs("returns_columns", returns.Labels()).
				Msg("paired files do not line up")
			return nil, err
		}
		src, recordType = merged, RecordTypeLabel
		overrides[string(roles.CancelReturnDate)] = extra
	}
	for k, v := range req.Overrides {
		overrides[k] = v
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detection := marketplace.Resolve(src, req.Platform)
	logger.Debug().
		Str("platform", string(detection.Platform)).
		Str("source", string(detection.Source)).
		Msg("marketplace resolved")

	roleMap := a.identifier.Identify(ctx, src, detection.Platform, overrides)
	if recordType != "" && roleMap.Columns[roles.TransactionType] == recordType {
		roleMap.Unset(roles.TransactionType)
	}

	return &prepared{
		src:        src,
		layout:     layout,
		recordType: recordType,
		detection:  detection,
		roles:      roleMap,
	}, nil
}

// load materializes an upload to a temp file, reads it and normalizes its
// labels. The temp file is removed on every path out.
func (a *Analyzer) load(ctx context.Context, up Upload) (*frame.Frame, *reader.Layout, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	path, cleanup, err := a.materialize(up)
	if err != nil {
		return nil, nil, newError(KindUnreadableFile, "could not stage upload", err)
	}
	defer cleanup()

	f, layout, err := a.reader.ReadFile(path, up.Filename)
	if err != nil {
		return nil, nil, unreadable(displayName(up.Filename), err)
	}
	return frame.Normalize(f), layout, nil
}

func (a *Analyzer) materialize(up Upload) (string, func(), error) {
	tmp, err := os.CreateTemp(a.cfg.TempDir, "upload-*"+strings.ToLower(filepath.Ext(up.Filename)))
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			a.logger.Warn().Str("path", tmp.Name()).Err(err).Msg("failed to remove temp file")
		}
	}

	if _, err := tmp.Write(up.Data); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}

func displayName(name string) string {
	if name == "" {
		return "upload"
	}
	return filepath.Base(name)
}
