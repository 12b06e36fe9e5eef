package sim

import (
	"context"
	"fmt"
	"log/slog"
)

// A LogHook writes every hook invocation to a structured logger.
type LogHook struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogHook creates a LogHook that logs at the given level.
func NewLogHook(logger *slog.Logger, level slog.Level) *LogHook {
	return &LogHook{logger: logger, level: level}
}

// Func logs the hook position and the item.
func (h *LogHook) Func(ctx HookCtx) {
	if !h.logger.Enabled(context.Background(), h.level) {
		return
	}

	attrs := []any{"pos", ctx.Pos.Name}
	if ctx.Item != nil {
		attrs = append(attrs, "item", fmt.Sprintf("%+v", ctx.Item))
	}

	if ctx.Detail != nil {
		attrs = append(attrs, "detail", fmt.Sprintf("%+v", ctx.Detail))
	}

	h.logger.Log(context.Background(), h.level, "hook", attrs...)
}
