// Package collab holds adapters for external collaborators the engine
// invokes through narrow interfaces. Their internals are other services'
// business; these adapters log the call and succeed, keeping failure
// isolation at the interface boundary.
package collab

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, learnerID uuid.UUID, template string, payload map[string]any) error {
	n.logger.InfoContext(ctx, "notification dispatched",
		"learner_id", learnerID.String(),
		"template", template,
		"payload", payload,
	)
	return nil
}

type LogCertificateIssuer struct {
	logger *slog.Logger
}

func NewLogCertificateIssuer(logger *slog.Logger) *LogCertificateIssuer {
	return &LogCertificateIssuer{logger: logger}
}

func (c *LogCertificateIssuer) Issue(ctx context.Context, learnerID, cohortID uuid.UUID) error {
	c.logger.InfoContext(ctx, "certificate issuance requested",
		"learner_id", learnerID.String(),
		"cohort_id", cohortID.String(),
	)
	return nil
}
