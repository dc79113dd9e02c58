// Package codesender delivers confirmation and recovery codes for the reference host.
// Real transports (mail, SMS) belong to the embedding application; this package only
// logs deliveries and fans them out to registered senders.
package codesender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	"github.com/target/mmk-auth/internal/ports"
)

// Func adapts a function to ports.CodeSender (useful for tests).
type Func func(ctx context.Context, d ports.CodeDelivery) error

// Send implements ports.CodeSender.
func (f Func) Send(ctx context.Context, d ports.CodeDelivery) error {
	if f == nil {
		return nil
	}
	return f(ctx, d)
}

// LogSender records a redacted delivery line. The code itself is never logged.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "code_sender")}
}

// Send implements ports.CodeSender.
func (s *LogSender) Send(ctx context.Context, d ports.CodeDelivery) error {
	if d.To == "" {
		return errors.New("recipient is required")
	}
	s.logger.InfoContext(ctx, "code delivery",
		"kind", string(d.Kind),
		"type", string(d.Type),
		"to", Redact(d.Type, d.To),
		"code_length", len(d.Code),
	)
	return nil
}

// Registration pairs a sender with a name for logging.
type Registration struct {
	Name   string
	Sender ports.CodeSender
}

// Fanout delivers each code through every registered sender concurrently.
type Fanout struct {
	logger  *slog.Logger
	senders []Registration
}

// NewFanout constructs a Fanout, skipping nil senders.
func NewFanout(logger *slog.Logger, regs ...Registration) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	var senders []Registration
	for _, r := range regs {
		if r.Sender == nil {
			continue
		}
		if r.Name == "" {
			r.Name = "sender"
		}
		senders = append(senders, r)
	}
	return &Fanout{logger: logger.With("component", "code_fanout"), senders: senders}
}

// Enabled reports whether any sender is registered.
func (f *Fanout) Enabled() bool {
	return len(f.senders) > 0
}

// Send implements ports.CodeSender. It fails when any sender fails.
func (f *Fanout) Send(ctx context.Context, d ports.CodeDelivery) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, entry := range f.senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sender.Send(ctx, d); err != nil {
				f.logger.ErrorContext(ctx, "code delivery error",
					"sender", entry.Name,
					"kind", string(d.Kind),
					"type", string(d.Type),
					"error", err,
				)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", entry.Name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Redact masks a recipient for logs: the first character of an email local part and the
// last four digits of a phone survive.
func Redact(typ domainauth.RecipientType, to string) string {
	switch typ {
	case domainauth.RecipientEmail:
		local, domain, ok := strings.Cut(to, "@")
		if !ok || local == "" {
			return "***"
		}
		return local[:1] + "***@" + domain
	case domainauth.RecipientPhone:
		if len(to) <= 4 {
			return "***"
		}
		return "***" + to[len(to)-4:]
	default:
		return "***"
	}
}
