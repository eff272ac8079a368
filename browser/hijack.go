package browser

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/2501Pr0ject/Scrapinium-sub000/config"
)

// configToProto maps human-readable config strings to Rod protocol
// resource types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// builtinDenyDomains is the default tracker/advertising deny-list used
// when no override is configured. Matching is suffix-based so any
// subdomain of a listed domain is blocked too.
var builtinDenyDomains = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googleadservices.com",
	"google-analytics.com",
	"googletagmanager.com",
	"googletagservices.com",
	"connect.facebook.net",
	"fbcdn.net",
	"adnxs.com",
	"adsrvr.org",
	"amazon-adsystem.com",
	"criteo.com",
	"criteo.net",
	"outbrain.com",
	"taboola.com",
	"moatads.com",
	"pubmatic.com",
	"rubiconproject.com",
	"scorecardresearch.com",
	"quantserve.com",
	"hotjar.com",
	"mixpanel.com",
	"segment.io",
	"segment.com",
	"ads-twitter.com",
	"chartbeat.com",
	"chartbeat.net",
	"optimizely.com",
	"zedo.com",
	"media.net",
	"openx.net",
	"casalemedia.com",
	"demdex.net",
	"krxd.net",
	"bluekai.com",
	"mathtag.com",
	"serving-sys.com",
	"sharethis.com",
	"addthis.com",
}

// requestFilter decides which sub-resource requests a rendering context
// aborts. One filter is shared by every page in the pool.
type requestFilter struct {
	blockedTypes map[proto.NetworkResourceType]struct{}
	denyDomains  map[string]struct{}
	urlParts     []string
}

func newRequestFilter(cfg config.BrowserConfig) *requestFilter {
	f := &requestFilter{
		blockedTypes: make(map[proto.NetworkResourceType]struct{}, len(cfg.BlockedResourceTypes)),
		denyDomains:  make(map[string]struct{}),
		urlParts:     cfg.BlockedURLParts,
	}
	for _, name := range cfg.BlockedResourceTypes {
		if rt, ok := configToProto[name]; ok {
			f.blockedTypes[rt] = struct{}{}
		}
	}
	domains := cfg.BlockedDomains
	if len(domains) == 0 {
		domains = builtinDenyDomains
	}
	for _, d := range domains {
		f.denyDomains[strings.ToLower(d)] = struct{}{}
	}
	return f
}

// deniedDomain checks host and every parent domain against the
// deny-list, so "pagead2.googlesyndication.com" matches
// "googlesyndication.com".
func (f *requestFilter) deniedDomain(host string) bool {
	host = strings.ToLower(host)
	if _, ok := f.denyDomains[host]; ok {
		return true
	}
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
		if _, ok := f.denyDomains[host]; ok {
			return true
		}
	}
}

// block reports whether the request should be aborted, consulting in
// order: resource type (favicons pass even when images are blocked),
// deny-listed domains, URL substrings, then the recently-seen static
// asset memo.
func (f *requestFilter) block(reqURL string, typ proto.NetworkResourceType, assets *assetMemo) bool {
	lower := strings.ToLower(reqURL)

	if _, blocked := f.blockedTypes[typ]; blocked {
		if typ == proto.NetworkResourceTypeImage && strings.Contains(lower, "favicon") {
			return false
		}
		return true
	}

	if u, err := url.Parse(reqURL); err == nil {
		if f.deniedDomain(u.Hostname()) {
			return true
		}
	}

	for _, part := range f.urlParts {
		if strings.Contains(lower, part) {
			return true
		}
	}

	if typ == proto.NetworkResourceTypeFont || typ == proto.NetworkResourceTypeStylesheet {
		return assets.seenRecently(reqURL)
	}
	return false
}

// installHijack attaches the request interceptor to a page. The caller
// must Stop() the returned router when the page is done.
func (p *Pool) installHijack(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()

	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if p.filter.block(ctx.Request.URL().String(), ctx.Request.Type(), p.assets) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks until Stop() is called.
	go router.Run()
	return router
}
