package scraper

import (
	"bytes"
	"regexp"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// mountPointIDs are ids client-side frameworks render into.
var mountPointIDs = map[string]bool{
	"root": true, "app": true, "__next": true, "__nuxt": true, "svelte": true,
}

var reJSRequired = regexp.MustCompile(`(enable|activate|turn on|requires?)\s+javascript`)

// pageSignals is what one tokenizer pass learns about a fetched document.
type pageSignals struct {
	textLen         int  // visible body text, whitespace-trimmed
	scripts         int  // <script> elements, inline or external
	inlineScriptLen int  // bytes of inline script source
	emptyMount      bool // a framework mount point with no children
	jsRequired      bool // <noscript> asks the reader to enable JS
}

// needsBrowser reports whether a fetched HTML body only becomes the page
// after its scripts run, so it is worth a browser session.
func needsBrowser(body []byte) bool {
	s := scanPage(body)
	switch {
	case s.textLen < 200:
		return true
	case s.emptyMount, s.jsRequired:
		return true
	case s.scripts > 10 && s.textLen < 500:
		return true
	default:
		// Mostly script by weight: the HTML is a bootstrap payload.
		return s.inlineScriptLen > 20*s.textLen
	}
}

// scanPage walks body once, collecting pageSignals.
func scanPage(body []byte) pageSignals {
	var s pageSignals
	z := html.NewTokenizer(bytes.NewReader(body))

	inBody := false
	var raw atom.Atom // script/style/noscript currently open
	var pendingMount bool

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return s
		}

		var text []byte
		if tt == html.TextToken {
			text = z.Text()
		}

		// A mount point is empty when only whitespace precedes its end tag.
		if pendingMount {
			switch {
			case tt == html.EndTagToken:
				s.emptyMount = true
				pendingMount = false
			case tt == html.TextToken && len(bytes.TrimSpace(text)) == 0:
			default:
				pendingMount = false
			}
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Body:
				inBody = true
			case atom.Script:
				s.scripts++
				if tt == html.StartTagToken {
					raw = atom.Script
				}
			case atom.Style, atom.Noscript:
				if tt == html.StartTagToken {
					raw = tok.DataAtom
				}
			default:
				if tt == html.StartTagToken && inBody && isMountPoint(tok) {
					pendingMount = true
				}
			}
		case html.EndTagToken:
			if tn, _ := z.TagName(); raw != 0 && atom.Lookup(tn) == raw {
				raw = 0
			}
		case html.TextToken:
			switch raw {
			case atom.Script:
				s.inlineScriptLen += len(bytes.TrimSpace(text))
			case atom.Noscript:
				if reJSRequired.Match(bytes.ToLower(text)) {
					s.jsRequired = true
				}
			case atom.Style:
			default:
				if inBody {
					s.textLen += len(bytes.TrimSpace(text))
				}
			}
		}
	}
}

func isMountPoint(tok html.Token) bool {
	for _, a := range tok.Attr {
		if a.Key == "id" && mountPointIDs[a.Val] {
			return true
		}
	}
	return false
}
