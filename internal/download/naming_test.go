package download

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct{ repo, file string }{
		{"org/repo", "model.Q4_K_M.gguf"},
		{"TheBloke/Llama-2-7B-GGUF", "llama-2-7b.Q5_K_M.gguf"},
		{"bare-name", "model.gguf"},
	}
	for _, c := range cases {
		name := EncodeFilename(c.repo, c.file)
		repo, file, ok := DecodeFilename(name)
		if !ok {
			t.Fatalf("DecodeFilename(%q) ok=false", name)
		}
		if repo != c.repo || file != c.file {
			t.Fatalf("round-trip mismatch: got (%q,%q), want (%q,%q)", repo, file, c.repo, c.file)
		}
	}
}

func TestDecodeFilenameRejectsUnrelatedNames(t *testing.T) {
	for _, name := range []string{"README.md", "", "noseparatorhere.gguf"} {
		if _, _, ok := DecodeFilename(name); ok {
			t.Fatalf("expected DecodeFilename(%q) to fail", name)
		}
	}
}
