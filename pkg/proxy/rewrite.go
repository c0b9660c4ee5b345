package proxy

import (
	"fmt"
	"regexp"
	"strings"
)

// Rewriter adjusts upstream HTML so the page works when served under a
// mount prefix instead of at the site root. The work is plain text
// munging: the upstream UI is a moving target and a full HTML parse
// buys nothing over anchored patterns here.
//
// Rules run in order and each is independently testable. The whole
// rewrite is idempotent: running it twice produces the same bytes as
// running it once.
type Rewriter struct {
	prefix string
	rules  []rewriteRule
	shim   string
}

// rewriteRule is one ordered pattern/replacement pair.
type rewriteRule struct {
	name    string
	pattern *regexp.Regexp
	replace func(match string) string
}

var (
	headOpenRe  = regexp.MustCompile(`(?i)<head[^>]*>`)
	headCloseRe = regexp.MustCompile(`(?i)</head>`)
	baseTagRe   = regexp.MustCompile(`(?i)<base\s`)
	// Root-absolute references in the three attributes that matter for
	// navigation and asset loading.
	attrRefRe = regexp.MustCompile(`(?i)(href|src|action)="(/[^"]*)"`)
)

// shimMarker identifies an injected script block, so a second pass (or
// an already-rewritten page) is left alone.
const shimMarker = "data-sentinel-shim"

// NewRewriter creates a rewriter for the given mount prefix
// (e.g. "/netdata"). apiRoots are the upstream's own API path roots the
// script shim redirects back through the proxy.
func NewRewriter(prefix string, apiRoots []string) *Rewriter {
	if len(apiRoots) == 0 {
		apiRoots = []string{"/api/"}
	}

	rw := &Rewriter{
		prefix: prefix,
		shim:   buildShim(prefix, apiRoots),
	}

	rw.rules = []rewriteRule{
		{
			name:    "insert-base-tag",
			pattern: headOpenRe,
			replace: func(match string) string {
				return fmt.Sprintf("%s\n  <base href=%q>", match, prefix+"/")
			},
		},
		{
			name:    "prefix-absolute-refs",
			pattern: attrRefRe,
			replace: func(match string) string {
				sub := attrRefRe.FindStringSubmatch(match)
				attr, path := sub[1], sub[2]
				if path == prefix || strings.HasPrefix(path, prefix+"/") {
					return match // already mounted, never double-prefix
				}
				return fmt.Sprintf("%s=%q", attr, prefix+path)
			},
		},
		{
			name:    "inject-network-shim",
			pattern: headCloseRe,
			replace: func(match string) string {
				return rw.shim + match
			},
		},
	}

	return rw
}

// Rewrite applies the rules in order and reports whether the body
// changed.
func (rw *Rewriter) Rewrite(body string) (string, bool) {
	out := body
	for _, rule := range rw.rules {
		out = rw.applyRule(rule, out)
	}
	return out, out != body
}

// RuleNames returns the rule names in application order.
func (rw *Rewriter) RuleNames() []string {
	names := make([]string, len(rw.rules))
	for i, r := range rw.rules {
		names[i] = r.name
	}
	return names
}

// ApplyRule applies a single named rule, for per-rule tests.
func (rw *Rewriter) ApplyRule(name, body string) (string, error) {
	for _, rule := range rw.rules {
		if rule.name == name {
			return rw.applyRule(rule, body), nil
		}
	}
	return "", fmt.Errorf("unknown rewrite rule %q", name)
}

func (rw *Rewriter) applyRule(rule rewriteRule, body string) string {
	switch rule.name {
	case "insert-base-tag":
		// A page that already declares a base path resolves its own
		// relative URLs; inserting a second tag would fight it.
		if baseTagRe.MatchString(body) {
			return body
		}
		// Only the first <head> gets the tag.
		done := false
		return rule.pattern.ReplaceAllStringFunc(body, func(m string) string {
			if done {
				return m
			}
			done = true
			return rule.replace(m)
		})

	case "inject-network-shim":
		if strings.Contains(body, shimMarker) {
			return body
		}
		done := false
		return rule.pattern.ReplaceAllStringFunc(body, func(m string) string {
			if done {
				return m
			}
			done = true
			return rule.replace(m)
		})

	default:
		return rule.pattern.ReplaceAllStringFunc(body, rule.replace)
	}
}

// buildShim renders the script block that monkey-patches the page's
// network primitives. The upstream's bundle issues same-origin
// absolute-path calls (fetch("/api/v1/data"), new WebSocket with an
// /api path); without this they would bypass the mount prefix and 404.
func buildShim(prefix string, apiRoots []string) string {
	quoted := make([]string, len(apiRoots))
	for i, root := range apiRoots {
		quoted[i] = fmt.Sprintf("%q", root)
	}

	return fmt.Sprintf(`<script %s>
(function () {
  var prefix = %q;
  var roots = [%s];
  function rewrite(url) {
    if (typeof url !== "string") { return url; }
    for (var i = 0; i < roots.length; i++) {
      if (url.indexOf(roots[i]) === 0) { return prefix + url; }
    }
    return url;
  }
  if (window.fetch) {
    var origFetch = window.fetch;
    window.fetch = function (input, init) {
      if (typeof input === "string") {
        input = rewrite(input);
      } else if (input && typeof input.url === "string") {
        input = new Request(rewrite(input.url), input);
      }
      return origFetch.call(this, input, init);
    };
  }
  var origOpen = XMLHttpRequest.prototype.open;
  XMLHttpRequest.prototype.open = function (method, url) {
    var args = Array.prototype.slice.call(arguments);
    args[1] = rewrite(url);
    return origOpen.apply(this, args);
  };
  if (window.WebSocket) {
    var OrigWS = window.WebSocket;
    var PatchedWS = function (url, protocols) {
      try {
        var u = new URL(url, window.location.href);
        if (u.origin === window.location.origin) {
          u.pathname = rewrite(u.pathname);
          url = u.toString();
        }
      } catch (e) {}
      return protocols === undefined ? new OrigWS(url) : new OrigWS(url, protocols);
    };
    PatchedWS.prototype = OrigWS.prototype;
    window.WebSocket = PatchedWS;
  }
})();
</script>
`, shimMarker, prefix, strings.Join(quoted, ", "))
}
