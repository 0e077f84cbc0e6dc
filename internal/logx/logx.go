package logx

import (
	"context"

	"pkt.systems/pslog"
)

type contextKey int

const (
	viewerKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithViewer annotates the logger with the viewer id if present.
func WithViewer(ctx context.Context, viewerID string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if viewerID != "" {
		if current, ok := ctx.Value(viewerKey).(string); ok && current == viewerID {
			return log
		}
		log = log.With("viewer", viewerID)
	}
	return log
}

// WithSegment annotates the logger with a segment position and its file.
func WithSegment(log pslog.Logger, pos int, path string) pslog.Logger {
	if pos >= 0 {
		log = log.With("segment", pos)
	}
	if path != "" {
		log = log.With("file", path)
	}
	return log
}

// ContextWithViewer stores the viewer marker on the context for log de-duplication.
func ContextWithViewer(ctx context.Context, viewerID string) context.Context {
	if ctx == nil || viewerID == "" {
		return ctx
	}
	return context.WithValue(ctx, viewerKey, viewerID)
}

// ContextWithViewerLogger attaches the logger and viewer marker to the context.
func ContextWithViewerLogger(ctx context.Context, log pslog.Logger, viewerID string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithViewer(ctx, viewerID)
}

// CopyContextFields copies the viewer marker from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if viewer, ok := src.Value(viewerKey).(string); ok && viewer != "" {
		dst = ContextWithViewer(dst, viewer)
	}
	return dst
}
