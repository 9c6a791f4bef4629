package telegram

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "paragraphs", input: "<p>Hello</p><p>World</p>", want: "Hello\nWorld"},
		{name: "div with attributes", input: `<div class="x" style="y">Hi</div>`, want: "Hi"},
		{name: "line breaks", input: "a<br>b<br/>c<BR />d", want: "a\nb\nc\nd"},
		{name: "span stripped", input: `<span style="color:red">red</span> text`, want: "red text"},
		{name: "blank runs collapse", input: "<p>a</p><p></p><p></p><p></p><p>b</p>", want: "a\n\nb"},
		{name: "href kept other attrs dropped", input: `<a href="https://x.example" target="_blank" rel="noopener">x</a>`, want: `<a href="https://x.example">x</a>`},
		{name: "single quoted and bare attrs", input: `<b class='k' id=main>bold</b>`, want: "<b>bold</b>"},
		{name: "attribute text inside a quoted value kept", input: `<a href="u" title="x class=y">t</a>`, want: `<a href="u" title="x class=y">t</a>`},
		{name: "quoted value with angle bracket", input: `<a href="u?a>b" class="c">t</a>`, want: `<a href="u?a>b">t</a>`},
		{name: "uppercase attribute names", input: `<b CLASS="k" Style="s">b</b>`, want: "<b>b</b>"},
		{name: "data attributes untouched", input: `<code data-id="1">v</code>`, want: `<code data-id="1">v</code>`},
		{name: "unsupported tag passes through", input: "<h1>Title</h1>", want: "<h1>Title</h1>"},
		{name: "surrounding whitespace trimmed", input: "  \n<p> hi </p>\n ", want: "hi"},
		{name: "paragraph with attributes", input: `<p dir="ltr" class="editor">x</p>`, want: "x"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"<p>Hello</p><p>World</p>",
		`<div class="x"><p style="a">one</p><br><br><br><span>two</span></div>`,
		"<p><br/></p>\n\n\n\n<p>x</p>",
		`<a href="u" class="c">l</a><<p>>`,
		"<p<p>>text</p>",
		"plain text",
		"<b>b</b>\n\n\n<i>i</i>",
	}

	for _, input := range inputs {
		once := Sanitize(input)
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestSanitizeCleanInputUnchanged(t *testing.T) {
	inputs := []string{
		"<b>Vay nhanh</b> trong <i>5 phút</i>",
		`<u>ưu đãi</u> <code>CODE10</code> <a href="https://aff.example/x">link</a>`,
		"line one\nline two",
	}

	for _, input := range inputs {
		if got := Sanitize(input); got != input {
			t.Errorf("Sanitize(%q) = %q, want unchanged", input, got)
		}
	}
}
