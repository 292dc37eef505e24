// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
)

// Options configures New.
type Options struct {
	// Verbose sends debug output to Console.
	Verbose bool
	Console io.Writer
	// File is appended to at debug level when set.
	File string
}

// New builds the CLI logger. The returned close function releases the log
// file and is safe to call when no file was opened.
func New(opts Options) (*slog.Logger, func() error, error) {
	var handlers []slog.Handler
	closeFn := func() error { return nil }

	if opts.Verbose {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		handlers = append(handlers, masked{pterm.NewSlogHandler(
			pterm.DefaultLogger.WithLevel(pterm.LogLevelDebug).WithWriter(console),
		)})
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = f.Close
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: maskAttr,
		}))
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.DiscardHandler), closeFn, nil
	case 1:
		return slog.New(handlers[0]), closeFn, nil
	}
	return slog.New(fanout(handlers)), closeFn, nil
}

func maskAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Mask(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, Mask(err.Error()))
		}
	}
	return a
}

// masked applies maskAttr to a handler that has no ReplaceAttr hook.
type masked struct {
	slog.Handler
}

func (m masked) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, Mask(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(maskAttrDeep(a))
		return true
	})
	return m.Handler.Handle(ctx, out)
}

func (m masked) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = maskAttrDeep(a)
	}
	return masked{m.Handler.WithAttrs(clean)}
}

func (m masked) WithGroup(name string) slog.Handler {
	return masked{m.Handler.WithGroup(name)}
}

func maskAttrDeep(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() != slog.KindGroup {
		return maskAttr(nil, a)
	}
	group := a.Value.Group()
	clean := make([]slog.Attr, len(group))
	for i, g := range group {
		clean[i] = maskAttrDeep(g)
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
