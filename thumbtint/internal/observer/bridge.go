package observer

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// BindingName is the page-global function the injected script calls once
// per mutation batch.
const BindingName = "__thumbtint_binding"

//go:embed observer.js
var observerJS string

// Attach wires the page's MutationObserver to notify. The binding and the
// script survive navigations; the event listener ends with ctx.
func Attach(ctx context.Context, page *rod.Page, notify func(), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := (proto.RuntimeAddBinding{Name: BindingName}).Call(page); err != nil {
		logger.Warn("observer: addBinding failed (may already exist)", "error", err)
	}

	wait := page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name == BindingName {
			notify()
		}
	})
	go wait()

	if _, err := page.EvalOnNewDocument("(" + observerJS + ")();"); err != nil {
		return fmt.Errorf("observer: register script: %w", err)
	}
	if _, err := page.Context(ctx).Eval(observerJS); err != nil {
		return fmt.Errorf("observer: inject script: %w", err)
	}
	logger.Debug("observer: attached")
	return nil
}
