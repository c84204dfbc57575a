package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

// contextKey is used to store the logger in context
type contextKey string

const loggerKey contextKey = "logger"

// ToContext stores a log entry in the context
func ToContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, entry)
}

// FromContext retrieves the entry from context.
// If none is found, an entry on the standard logrus logger is returned,
// so callers never get nil.
func FromContext(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// With extracts the entry from context, adds fields, and returns both the
// new entry and the updated context.
//
//	log, ctx := logger.With(ctx, logrus.Fields{"tenant_id": tenantID})
func With(ctx context.Context, fields logrus.Fields) (*logrus.Entry, context.Context) {
	entry := FromContext(ctx).WithFields(fields)
	return entry, ToContext(ctx, entry)
}
