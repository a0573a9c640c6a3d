// internal/surface/scripted/page.go
package scripted

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// script is one <script> element, in document order. External scripts carry
// src until their body is fetched.
type script struct {
	src  string
	body string
	err  error
	// builtin marks a reference to the bridge library, which every page
	// already has.
	builtin bool
}

func (sc *script) name(i int) string {
	if sc.src != "" {
		return sc.src
	}
	return fmt.Sprintf("inline-script-%d", i)
}

// page is parsed creative markup reduced to what the runtime executes.
type page struct {
	doc     *html.Node
	scripts []*script
}

// parsePage extracts the executable scripts from markup. Scripts with a
// non-JavaScript type (templates, JSON blobs) are skipped.
func parsePage(markup string) (*page, error) {
	doc, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	nodes, err := htmlquery.QueryAll(doc, "//script")
	if err != nil {
		return nil, fmt.Errorf("selecting scripts: %w", err)
	}

	p := &page{doc: doc}
	for _, n := range nodes {
		if !isJavaScript(htmlquery.SelectAttr(n, "type")) {
			continue
		}
		sc := &script{src: strings.TrimSpace(htmlquery.SelectAttr(n, "src"))}
		switch {
		case sc.src == "":
			sc.body = htmlquery.InnerText(n)
		case isBridgeLibrary(sc.src):
			sc.builtin = true
		}
		p.scripts = append(p.scripts, sc)
	}
	return p, nil
}

// external returns the scripts still waiting for a fetch.
func (p *page) external() []*script {
	var out []*script
	for _, sc := range p.scripts {
		if sc.src != "" && !sc.builtin && sc.body == "" && sc.err == nil {
			out = append(out, sc)
		}
	}
	return out
}

// title returns the document title, if any.
func (p *page) title() string {
	if n := htmlquery.FindOne(p.doc, "//title"); n != nil {
		return strings.TrimSpace(htmlquery.InnerText(n))
	}
	return ""
}

// isBridgeLibrary reports whether src names mraid.js, wherever the creative
// expects it to live.
func isBridgeLibrary(src string) bool {
	p := src
	if u, err := url.Parse(src); err == nil {
		p = u.Path
	}
	return strings.EqualFold(path.Base(p), "mraid.js")
}

func isJavaScript(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript", "module":
		return true
	}
	return false
}

// resolveRef resolves a script reference against the page address. Pages
// loaded from markup have no base, so relative references stay as written;
// pages loaded from a file path resolve against its directory.
func resolveRef(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "about" {
		return ref
	}
	if b.Scheme == "" {
		if filepath.IsAbs(ref) {
			return ref
		}
		return filepath.Join(filepath.Dir(base), ref)
	}
	return b.ResolveReference(r).String()
}
