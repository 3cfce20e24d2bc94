package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to CDP resource types. "images" is
// deliberately absent.
var resourceTypes = map[string]proto.NetworkResourceType{
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
	"scripts":     proto.NetworkResourceTypeScript,
}

// blockSet resolves config names, dropping unknown ones and images.
func blockSet(names []string) map[proto.NetworkResourceType]bool {
	set := make(map[proto.NetworkResourceType]bool, len(names))
	for _, n := range names {
		if t, ok := resourceTypes[strings.ToLower(strings.TrimSpace(n))]; ok {
			set[t] = true
		}
	}
	return set
}

func applyResourceBlocking(page *rod.Page, blocked map[proto.NetworkResourceType]bool) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
