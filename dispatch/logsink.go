package dispatch

import (
	"context"
	"log/slog"

	"github.com/Alia5/xrinput/action"
)

// LogSink logs every action event at info level. Action names are resolved
// through names when it is non-nil.
type LogSink struct {
	Logger *slog.Logger
	Names  func(h Handle, actionIndex uint32) string
}

func (s LogSink) FireEvents(_ context.Context, h Handle, events []action.ActionEvent) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, ev := range events {
		attrs := []any{
			"handle", h,
			"action", ev.ActionIndex,
			"input", ev.Input.ClientIndex,
			"value", ev.Input.Value.String(),
			"ts", ev.Input.Timestamp,
		}
		if s.Names != nil {
			attrs = append(attrs, "name", s.Names(h, ev.ActionIndex))
		}
		logger.Info("action", attrs...)
	}
	return nil
}
