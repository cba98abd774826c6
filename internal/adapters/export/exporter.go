// Package export writes session reports to JSON, Markdown, CSV and Prometheus textfiles.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

// Writer implements ports.ReportWriter.
type Writer struct{}

// New creates a report writer.
func New() *Writer {
	return &Writer{}
}

// Write produces one file per export. A failing export does not prevent the others.
func (w *Writer) Write(session *domain.Session, exports []domain.Export) error {
	var errs []error
	for _, e := range exports {
		if err := w.write(session, e); err != nil {
			errs = append(errs, zerr.With(zerr.With(err, "format", string(e.Format)), "path", e.Path))
		}
	}
	return errors.Join(errs...)
}

func (w *Writer) write(session *domain.Session, e domain.Export) error {
	if err := os.MkdirAll(filepath.Dir(e.Path), domain.DirPerm); err != nil {
		return zerr.Wrap(domain.ErrExportFailed, err.Error())
	}

	var buf bytes.Buffer
	switch e.Format {
	case domain.ExportJSON:
		if err := renderJSON(&buf, session); err != nil {
			return err
		}
	case domain.ExportMarkdown:
		renderMarkdown(&buf, session)
	case domain.ExportCSV:
		if err := renderCSV(&buf, session); err != nil {
			return err
		}
	case domain.ExportPrometheus:
		// WriteToTextfile renames a temporary file into place on its own.
		if err := prometheus.WriteToTextfile(e.Path, registry(session)); err != nil {
			return zerr.Wrap(domain.ErrExportFailed, err.Error())
		}
		return nil
	default:
		return zerr.Wrap(domain.ErrUnknownExportFormat, "no renderer for "+string(e.Format))
	}

	return writeAtomic(e.Path, buf.Bytes())
}

func renderJSON(buf *bytes.Buffer, session *domain.Session) error {
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(session); err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}
	return nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return zerr.Wrap(domain.ErrExportFailed, err.Error())
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(domain.ErrExportFailed, err.Error())
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(domain.ErrExportFailed, err.Error())
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return zerr.Wrap(domain.ErrExportFailed, err.Error())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return zerr.Wrap(domain.ErrExportFailed, err.Error())
	}
	return nil
}
