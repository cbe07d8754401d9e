package usecase

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})

	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases and strips accents",
			input: "Árfigyelő",
			want:  "arfigyelo",
		},
		{
			name:  "collapses punctuation runs to single spaces",
			input: "Coca--Cola!!  Zero",
			want:  "coca cola zero",
		},
		{
			name:  "keeps decimal point inside numbers",
			input: "Coca Cola 1.75l",
			want:  "coca cola 1.75l",
		},
		{
			name:  "keeps decimal comma and percent",
			input: "Tej 3,5%",
			want:  "tej 3,5%",
		},
		{
			name:  "trims leading and trailing whitespace",
			input: "  tej  ",
			want:  "tej",
		},
		{
			name:  "empty input stays empty",
			input: "",
			want:  "",
		},
		{
			name:  "punctuation-only input normalizes to empty",
			input: "!?- --",
			want:  "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := n.Normalize(tc.input)
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})

	inputs := []string{
		"Árfigyelő",
		"Coca-Cola Zero 1.75l",
		"Tej 3,5% UHT",
		"",
		"!?!",
		"  Füstölt   sonka, szeletelt  ",
	}

	for _, input := range inputs {
		once := n.Normalize(input)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestNormalizeIsAccentInsensitive(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})

	if n.Normalize("Árfigyelő") != n.Normalize("arfigyelo") {
		t.Errorf("accented and plain forms should normalize identically: %q vs %q",
			n.Normalize("Árfigyelő"), n.Normalize("arfigyelo"))
	}
}

func TestNormalizeKey(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})

	t.Run("strips quantity tokens", func(t *testing.T) {
		got := n.NormalizeKey("Coca Cola 1.75l")
		if got != "coca cola" {
			t.Errorf("NormalizeKey = %q, want %q", got, "coca cola")
		}
	})

	t.Run("strips percent tokens", func(t *testing.T) {
		got := n.NormalizeKey("Tej 3,5%")
		if got != "tej" {
			t.Errorf("NormalizeKey = %q, want %q", got, "tej")
		}
	})

	t.Run("strips packaging noise words", func(t *testing.T) {
		got := n.NormalizeKey("Ásványvíz 6 palack")
		if got != "asvanyviz" {
			t.Errorf("NormalizeKey = %q, want %q", got, "asvanyviz")
		}
	})

	t.Run("honors configured extra noise tokens", func(t *testing.T) {
		custom := NewNormalizer(NormalizerConfig{ExtraNoiseTokens: []string{"Akciós"}})
		got := custom.NormalizeKey("Akciós kenyér")
		if got != "kenyer" {
			t.Errorf("NormalizeKey = %q, want %q", got, "kenyer")
		}
	})

	t.Run("noise-only input normalizes to empty", func(t *testing.T) {
		if got := n.NormalizeKey("1.75l 500g"); got != "" {
			t.Errorf("NormalizeKey = %q, want empty", got)
		}
	})
}

func TestTokenize(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})

	t.Run("splits on whitespace preserving order", func(t *testing.T) {
		got := n.Tokenize("coca cola 1.75l")
		want := []string{"coca", "cola", "1.75l"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Tokenize = %v, want %v", got, want)
		}
	})

	t.Run("empty input yields no tokens", func(t *testing.T) {
		if got := n.Tokenize(""); len(got) != 0 {
			t.Errorf("Tokenize = %v, want empty", got)
		}
	})
}
