package lexer

import (
	"testing"

	"qcc/internal/diag"
	"qcc/internal/token"
)

func tokenize(t *testing.T, src string) []*token.Token {
	t.Helper()
	s := diag.NewSource("test.c", []byte(src))
	tok, err := Lex(s)
	if err != nil {
		t.Fatalf("Lex(%q) returned error: %v", src, err)
	}
	var out []*token.Token
	for ; tok.Kind != token.EOF; tok = tok.Next {
		out = append(out, tok)
	}
	return out
}

func TestLexPunctuationAndTwoCharOps(t *testing.T) {
	toks := tokenize(t, "a==b!=c<=d>=e")
	want := []string{"a", "==", "b", "!=", "c", "<=", "d", ">=", "e"}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		got := toks[i].Text
		if toks[i].Kind == token.Ident {
			got = toks[i].Text
		}
		if got != w {
			t.Errorf("token %d = %q, want %q", i, got, w)
		}
	}
}

func TestLexKeywordsAreReserved(t *testing.T) {
	toks := tokenize(t, "int return")
	for _, tk := range toks {
		if tk.Kind != token.Reserved {
			t.Errorf("%q should lex as Reserved, got %s", tk.Text, tk.Kind)
		}
	}
}

func TestLexIdentifierIsNotReserved(t *testing.T) {
	toks := tokenize(t, "integer")
	if len(toks) != 1 || toks[0].Kind != token.Ident {
		t.Fatalf("\"integer\" should lex as one Ident token, got %+v", toks)
	}
}

func TestLexNumber(t *testing.T) {
	toks := tokenize(t, "12345")
	if len(toks) != 1 || toks[0].Kind != token.Num || toks[0].IVal != 12345 {
		t.Fatalf("got %+v", toks)
	}
}

func TestLexStringLiteralDecodesEscapes(t *testing.T) {
	toks := tokenize(t, `"a\nb"`)
	if len(toks) != 1 || toks[0].Kind != token.Str {
		t.Fatalf("got %+v", toks)
	}
	want := []byte{'a', '\n', 'b', 0}
	if string(toks[0].SVal) != string(want) {
		t.Errorf("SVal = %v, want %v", toks[0].SVal, want)
	}
	if toks[0].ContLen() != 4 {
		t.Errorf("ContLen() = %d, want 4", toks[0].ContLen())
	}
}

func TestLexStringLiteralUnknownEscapePassesThrough(t *testing.T) {
	toks := tokenize(t, `"\q"`)
	want := []byte{'q', 0}
	if string(toks[0].SVal) != string(want) {
		t.Errorf("SVal = %v, want %v", toks[0].SVal, want)
	}
}

func TestLexUnclosedStringIsAnError(t *testing.T) {
	s := diag.NewSource("test.c", []byte(`"abc`))
	_, err := Lex(s)
	if err == nil {
		t.Fatal("expected an error for an unclosed string literal")
	}
}

func TestLexInvalidTokenIsAnError(t *testing.T) {
	s := diag.NewSource("test.c", []byte("int x = 1 @ 2;"))
	_, err := Lex(s)
	if err == nil {
		t.Fatal("expected an error for an invalid token")
	}
}

func TestLexPositionsPointIntoSource(t *testing.T) {
	toks := tokenize(t, "int x;")
	if toks[0].Pos != 0 {
		t.Errorf("first token Pos = %d, want 0", toks[0].Pos)
	}
	if toks[1].Pos != 4 {
		t.Errorf("second token Pos = %d, want 4", toks[1].Pos)
	}
}

func TestLexWhitespaceIsSkipped(t *testing.T) {
	toks := tokenize(t, "  a \t b\n")
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2", len(toks))
	}
}
