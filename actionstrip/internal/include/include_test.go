package include

import "testing"

func TestDefault(t *testing.T) {
	m, err := Compile(nil)
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]bool{
		"https://www.facebook.com/some.profile":           true,
		"http://facebook.com/":                            true,
		"https://m.facebook.com/groups/123/posts/456?x=1": true,
		"https://WWW.FACEBOOK.COM/Page":                   true,
		"https://www.facebook.com":                        true,
		"https://www.facebook.com?sk=h_chr":               true,
		"https://facebook.co/x":                           false,
		"ftp://www.facebook.com/":                         false,
		"https://notfacebook.org/":                        false,
	}
	for u, want := range cases {
		if got := m.Match(u); got != want {
			t.Errorf("Match(%q): got %v, want %v", u, got, want)
		}
	}
}

func TestCompile_CustomPatterns(t *testing.T) {
	m, err := Compile([]string{"https://example.org/profile/*", "  "})
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Patterns()) != 1 {
		t.Fatalf("Patterns: got %v", m.Patterns())
	}
	if !m.Match("https://example.org/profile/a/b") {
		t.Error("expected match")
	}
	if m.Match("https://example.org/other") {
		t.Error("unexpected match")
	}
}

func TestMatch_RegexpMetaIsLiteral(t *testing.T) {
	m, _ := Compile([]string{"https://a.b/(x)+?"})
	if !m.Match("https://a.b/(x)+?") {
		t.Error("literal metacharacters should match themselves")
	}
	if m.Match("https://aXb/x") {
		t.Error("dot must be literal")
	}
}

func TestMatch_NilMatcher(t *testing.T) {
	var m *Matcher
	if m.Match("https://www.facebook.com/") {
		t.Error("nil matcher should match nothing")
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"https://www.facebook.com":          "https://www.facebook.com/",
		"https://www.facebook.com?sk=h_chr": "https://www.facebook.com/?sk=h_chr",
		"https://www.facebook.com/x":        "https://www.facebook.com/x",
		"https://a.b/(x)+?":                 "https://a.b/(x)+?",
		"not a url %zz":                     "not a url %zz",
		"mailto:someone@facebook.com":       "mailto:someone@facebook.com",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q): got %q, want %q", in, got, want)
		}
	}
}
