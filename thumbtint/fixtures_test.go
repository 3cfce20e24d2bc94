package thumbtint

import (
	"context"
	"fmt"
	"strings"
)

func cardHTML(i int, avatar string) string {
	return fmt.Sprintf(`<ytd-rich-grid-media>
  <div><img class="yt-core-image" width="320" height="180"></div>
  <img class="yt-spec-avatar-shape__image yt-core-image--loaded" src="%s">
  <a id="video-title">Video %d</a>
  <ytd-channel-name><div id="text"><a>Channel %d</a></div></ytd-channel-name>
  <div id="metadata-line"><span>%d views</span><span>%d days ago</span></div>
</ytd-rich-grid-media>`, avatar, i, i, i*100, i)
}

func feedHTML(cards ...string) string {
	return "<html><head><title>feed</title></head><body>" + strings.Join(cards, "\n") + "</body></html>"
}

// colors answers known URLs and reports everything else as unavailable.
func colors(known map[string]RGB) Sampler {
	return SamplerFunc(func(_ context.Context, u string) (RGB, bool) {
		c, ok := known[u]
		return c, ok
	})
}
