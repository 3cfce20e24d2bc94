package thumbtint

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// renderPolicy keeps the feed markup, the generated blocks and the injected
// stylesheet, and drops scripts, event handlers and unsafe URLs. It applies
// to HTML returned over MCP, where no Content-Security-Policy travels with it.
var renderPolicy = newRenderPolicy()

func newRenderPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("html", "head", "body", "title", "style")
	p.AllowElementsMatching(regexp.MustCompile(`^(ytd|yt|tp-yt)-[a-z0-9-]+$`))
	p.AllowAttrs("class", "style", "hidden").Globally()
	p.AllowDataAttributes()
	// <style> is dropped otherwise. <script> stays disallowed.
	p.AllowUnsafe(true)
	return p
}

func sanitizeRendered(html string) string {
	return renderPolicy.Sanitize(html)
}
