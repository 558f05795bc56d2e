package utils

import (
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
}

func TestTruncate_multibyte(t *testing.T) {
	got := Truncate("café résumé", 4)
	if got != "café..." {
		t.Errorf("got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated text is not valid UTF-8: %q", got)
	}
	if Truncate("日本語", 3) != "日本語" {
		t.Error("string of exactly maxLen runes unchanged")
	}
	if got := Truncate(`{"message":"Ungültige Anfrage"}`, 16); got != `{"message":"Ungü...` {
		t.Errorf("got %q", got)
	}
}
