package notifier

import (
	"log/slog"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new matches to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each record via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each record with company, title, location, URL, and posted_at.
// Scored records also carry their score. Returns nil (stdout logging does
// not fail).
func (n *LogNotifier) Notify(records []model.JobRecord) error {
	for _, rec := range records {
		args := []any{"company", rec.Company, "title", rec.Title, "location", rec.Location, "url", rec.URL}
		if rec.PostedAt != nil {
			args = append(args, "posted_at", *rec.PostedAt)
		}
		if rec.Scored() {
			args = append(args, "score", *rec.Score)
		}
		n.logger.Info("new posting", args...)
	}
	return nil
}
