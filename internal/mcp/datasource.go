package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QuerySessions(ctx context.Context, start, end time.Time) ([]models.SessionRow, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error)
	GetTrainingVolume(ctx context.Context, start, end time.Time, bucket string) ([]models.TrainingVolumeRow, error)
	GetSessionStats(ctx context.Context) (*storage.SessionStats, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
