package llm

import (
	"context"
	"log/slog"
	"time"
)

// Generate runs one completion bounded by timeout and returns its text.
// On any provider error or timeout it logs and returns fallback, so
// callers can treat the provider as a pure function with a default.
func Generate(ctx context.Context, client Client, req Request, timeout time.Duration, fallback string, logger *slog.Logger) string {
	if client == nil {
		return fallback
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := client.Complete(ctx, req)
	if err != nil {
		logger.Warn("completion failed, using fallback", "model", req.Model, "error", err)
		return fallback
	}
	return resp.Text
}
