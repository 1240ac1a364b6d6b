package interactionlog

import (
	"context"

	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/common/metrics"
	"doc-investigator/internal/models"
)

// Mirrored writes to a primary log and copies each record to mirrors. Only
// the primary decides success; mirror failures are logged and counted.
type Mirrored struct {
	primary Log
	mirrors []Sink
	logger  logger.Logger
}

func NewMirrored(primary Log, log logger.Logger, mirrors ...Sink) *Mirrored {
	return &Mirrored{
		primary: primary,
		mirrors: mirrors,
		logger:  logger.Component(log, "interaction_log"),
	}
}

func (m *Mirrored) Append(ctx context.Context, e models.Interaction) error {
	if err := m.primary.Append(ctx, e); err != nil {
		return err
	}
	for _, mirror := range m.mirrors {
		if err := mirror.Append(ctx, e); err != nil {
			metrics.StorageFailures.WithLabelValues("interaction_mirror", "append").Inc()
			m.logger.Warn("mirror append failed", map[string]interface{}{
				"error": err,
			})
		}
	}
	return nil
}

func (m *Mirrored) List(ctx context.Context) ([]models.Interaction, error) {
	return m.primary.List(ctx)
}
