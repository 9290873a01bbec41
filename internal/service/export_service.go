package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/olivere/elastic/v7"

	"github.com/locvowork/sheetwriter/internal/logger"
	"github.com/locvowork/sheetwriter/internal/metrics"
	"github.com/locvowork/sheetwriter/pkg/googlecloud"
	"github.com/locvowork/sheetwriter/pkg/modelsource"
	"github.com/locvowork/sheetwriter/pkg/sheetwriter"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	SourceSQL       = "sql"
	SourceElastic   = "elastic"
	SourceDatastore = "datastore"
)

var (
	ErrProfileNotFound    = errors.New("export profile not found")
	ErrUnsupportedFormat  = errors.New("unsupported export format")
	ErrSourceUnavailable  = errors.New("data source not configured")
	ErrUnknownSourceKind  = errors.New("unknown source kind")
	profileNamePattern    = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	profileFileExtensions = []string{".yaml", ".yml"}
)

// Sources holds the backends profiles can read from. Any of them may be nil.
type Sources struct {
	DB        *sql.DB
	Elastic   *elastic.Client
	Datastore *googlecloud.Client
}

type ExportService interface {
	Prepare(ctx context.Context, profile, format string) (*Export, error)
}

type exportService struct {
	profileDir string
	sources    Sources
	metrics    *metrics.Metrics
}

func NewExportService(profileDir string, sources Sources, m *metrics.Metrics) ExportService {
	return &exportService{profileDir: profileDir, sources: sources, metrics: m}
}

// Export is a resolved export, ready to be streamed.
type Export struct {
	Profile *sheetwriter.Profile
	Format  string

	model   sheetwriter.CursorModel
	metrics *metrics.Metrics
}

// Prepare loads the profile and resolves its source. Nothing is read from
// the source yet.
func (s *exportService) Prepare(ctx context.Context, name, format string) (*Export, error) {
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatCSV {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	profile, err := s.loadProfile(name)
	if err != nil {
		return nil, err
	}
	model, err := s.model(profile.Source)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}
	logger.DebugLog(ctx, "prepared %s export of profile %s from %s source", format, profile.Name, sourceKind(profile.Source))
	return &Export{Profile: profile, Format: format, model: model, metrics: s.metrics}, nil
}

func (s *exportService) loadProfile(name string) (*sheetwriter.Profile, error) {
	if !profileNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	for _, ext := range profileFileExtensions {
		path := filepath.Join(s.profileDir, name+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		profile, err := sheetwriter.LoadProfile(path)
		if err != nil {
			return nil, err
		}
		if profile.Name == "" {
			profile.Name = name
		}
		return profile, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
}

func (s *exportService) model(src sheetwriter.SourceConfig) (sheetwriter.CursorModel, error) {
	switch src.Kind {
	case SourceSQL, "":
		if s.sources.DB == nil {
			return nil, fmt.Errorf("%w: sql", ErrSourceUnavailable)
		}
		if src.Query == "" {
			return nil, fmt.Errorf("sql source needs a query")
		}
		return modelsource.NewSQLModel(s.sources.DB, src.Query), nil
	case SourceElastic:
		if s.sources.Elastic == nil {
			return nil, fmt.Errorf("%w: elastic", ErrSourceUnavailable)
		}
		m := modelsource.NewElasticModel(s.sources.Elastic, src.Index)
		if src.Query != "" {
			m.Query = elastic.NewQueryStringQuery(src.Query)
		}
		m.SortField = src.Sort
		m.PageSize = src.PageSize
		return m, nil
	case SourceDatastore:
		if s.sources.Datastore == nil {
			return nil, fmt.Errorf("%w: datastore", ErrSourceUnavailable)
		}
		return s.sources.Datastore.KindModel(src.Entity, src.Sort, src.Limit), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSourceKind, src.Kind)
	}
}

func sourceKind(src sheetwriter.SourceConfig) string {
	if src.Kind == "" {
		return SourceSQL
	}
	return src.Kind
}

// ContentType returns the MIME type of the export.
func (e *Export) ContentType() string {
	if e.Format == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName returns the download name of the export.
func (e *Export) FileName() string {
	return e.Profile.Name + "." + e.Format
}

// Stream writes the export to w and returns the number of rows written,
// header included.
func (e *Export) Stream(ctx context.Context, w io.Writer) (rows int, err error) {
	start := time.Now()
	ctx = logger.WithFields(ctx, map[string]interface{}{"profile": e.Profile.Name, "format": e.Format})
	defer func() {
		e.metrics.RecordExport(e.Profile.Name, e.Format, rows, time.Since(start), err)
		if err != nil {
			logger.ErrorLog(ctx, "export failed after %d rows: %v", rows, err)
			return
		}
		logger.InfoLog(ctx, "exported %d rows in %s", rows, time.Since(start))
	}()

	switch e.Format {
	case FormatCSV:
		return e.writeCSV(ctx, w)
	default:
		return e.writeXLSX(ctx, w)
	}
}

func (e *Export) writeXLSX(ctx context.Context, w io.Writer) (int, error) {
	wb := sheetwriter.NewWorkbook(w)
	sheet, err := wb.AddSheet(e.Profile.Sheet)
	if err != nil {
		if derr := wb.Discard(); derr != nil {
			logger.WarnLog(ctx, "discard workbook: %v", derr)
		}
		return 0, err
	}
	sw := e.Profile.NewWriter(sheet)
	exportErr := sw.ExportModel(ctx, e.model, e.Profile.RowStyle, e.Profile.ColumnStyleList())
	// the workbook is written even when the export stopped early
	if err := wb.Close(); err != nil && exportErr == nil {
		exportErr = fmt.Errorf("write workbook: %w", err)
	}
	return sw.Rows(), exportErr
}

func (e *Export) writeCSV(ctx context.Context, w io.Writer) (int, error) {
	sink := sheetwriter.NewCSVSink(w)
	sw := e.Profile.NewWriter(sink)
	exportErr := sw.ExportModel(ctx, e.model, e.Profile.RowStyle, e.Profile.ColumnStyleList())
	if err := sink.Flush(); err != nil && exportErr == nil {
		exportErr = fmt.Errorf("flush csv: %w", err)
	}
	return sw.Rows(), exportErr
}
