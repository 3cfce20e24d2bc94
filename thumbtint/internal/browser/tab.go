package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// NavigateTimeout bounds the initial navigation of a tab.
const NavigateTimeout = 30 * time.Second

// Tab is one observed feed page.
type Tab struct {
	Page    *rod.Page
	PageURL string
	PageID  string
	router  *rod.HijackRouter
}

// OpenTab creates a stealth tab on the current browser and navigates it.
// It does not wait for the document to finish parsing; callers do.
func OpenTab(ctx context.Context, mgr *Manager, pageID, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, errors.New("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	tab := &Tab{Page: page, PageURL: pageURL, PageID: pageID}
	if blocked := blockSet(mgr.cfg.Block); len(blocked) > 0 {
		tab.router = applyResourceBlocking(page, blocked)
	}

	navCtx, cancel := context.WithTimeout(ctx, NavigateTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	return tab, nil
}

// HTML serialises the current document.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Close stops request interception and closes the tab.
func (t *Tab) Close() error {
	if t.router != nil {
		t.router.Stop()
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
