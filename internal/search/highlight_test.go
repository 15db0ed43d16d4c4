package search

import (
	"strings"
	"testing"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/constants"
)

func TestTermPattern(t *testing.T) {
	if termPattern("") != nil {
		t.Fatalf("empty terms must yield nil pattern")
	}
	if termPattern("   ") != nil {
		t.Fatalf("blank terms must yield nil pattern")
	}

	re := termPattern("foo bar")
	for _, hit := range []string{"foo", "FOO", "Bar"} {
		if !re.MatchString(hit) {
			t.Fatalf("pattern should match %q", hit)
		}
	}
	if re.MatchString("baz") {
		t.Fatalf("pattern should not match baz")
	}

	// 正则元字符按字面匹配
	quoted := termPattern("c++ a.b")
	if !quoted.MatchString("c++") || quoted.MatchString("ccc") {
		t.Fatalf("metacharacters must be quoted")
	}
	if !quoted.MatchString("a.b") || quoted.MatchString("aXb") {
		t.Fatalf("dot must be literal")
	}
}

func TestMarkTerms(t *testing.T) {
	re := termPattern("rust")
	got := markTerms(re, "why Rust though")
	want := "why " + constants.HighlightPre + "Rust" + constants.HighlightPost + " though"
	if got != want {
		t.Fatalf("want %q got %q", want, got)
	}
	if markTerms(nil, "unchanged") != "unchanged" {
		t.Fatalf("nil pattern must pass value through")
	}
	if markTerms(re, "") != "" {
		t.Fatalf("empty value must pass through")
	}
}

func TestMarkThenRenderSpan(t *testing.T) {
	marked := markTerms(termPattern("keyboard"), "my keyboard died")
	html := asagi.HTMLHighlight(marked)
	if !strings.Contains(html, `<span class="`+constants.HighlightClass+`">keyboard</span>`) {
		t.Fatalf("marked term not rendered as span: %q", html)
	}
	if strings.Contains(html, constants.HighlightPre) {
		t.Fatalf("markers must be consumed by render: %q", html)
	}
}
