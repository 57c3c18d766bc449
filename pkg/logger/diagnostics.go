package logger

import (
	"context"
	"log/slog"

	"github.com/trillium/shinobi/pkg/bincode"
)

// NewDiagnosticSink returns a sink that writes every decode diagnostic to log.
// Extra attrs, such as the blob kind, are appended to each record.
func NewDiagnosticSink(log *slog.Logger, attrs ...slog.Attr) bincode.Sink {
	return bincode.SinkFunc(func(d bincode.Diagnostic) {
		all := make([]slog.Attr, 0, len(attrs)+5)
		all = append(all,
			slog.String("kind", string(d.Kind)),
			slog.Int("offset", d.Offset),
			slog.String("field", d.Field),
		)
		if d.Validator != "" {
			all = append(all, slog.String("validator", d.Validator))
		}
		if d.Err != nil {
			all = append(all, slog.String("error", d.Err.Error()))
		}
		all = append(all, attrs...)

		log.LogAttrs(context.Background(), DiagnosticLevel(d.Severity), d.Message, all...)
	})
}

// DiagnosticLevel maps a diagnostic severity to a log level
func DiagnosticLevel(s bincode.Severity) slog.Level {
	switch s {
	case bincode.SeverityError:
		return slog.LevelError
	case bincode.SeverityWarn:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
