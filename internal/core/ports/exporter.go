package ports

import "go.trai.ch/oxidizer/internal/core/domain"

// ReportWriter writes the requested report files for a session.
//
//go:generate mockgen -source=exporter.go -destination=mocks/mock_exporter.go -package=mocks
type ReportWriter interface {
	// Write produces exactly one file per export. Each file is written atomically.
	Write(session *domain.Session, exports []domain.Export) error
}
