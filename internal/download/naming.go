package download

import (
	"path/filepath"
	"strings"
)

// nameSeparator joins the encoded modelRepo and filePath components. It is
// chosen to be unlikely to appear in a Hugging-Face-style "org/repo" or in a
// GGUF file name, and is itself escaped if it does.
const nameSeparator = "~~~"
const slashEscape = "~~"

// EncodeFilename produces a reversible, filesystem-safe name for the
// on-disk artifact backing (modelRepo, filePath): slashes in modelRepo are
// escaped so the whole pair round-trips through a single flat file name in
// the managed models directory.
func EncodeFilename(modelRepo, filePath string) string {
	safeRepo := strings.ReplaceAll(modelRepo, "/", slashEscape)
	return safeRepo + nameSeparator + filePath
}

// DecodeFilename parses a name produced by EncodeFilename back into
// (modelRepo, filePath). ok is false if name does not match the expected
// shape, e.g. because it was placed in the models directory by something
// other than this program.
func DecodeFilename(name string) (modelRepo, filePath string, ok bool) {
	idx := strings.Index(name, nameSeparator)
	if idx < 0 {
		return "", "", false
	}
	safeRepo := name[:idx]
	rest := name[idx+len(nameSeparator):]
	if safeRepo == "" || rest == "" {
		return "", "", false
	}
	return strings.ReplaceAll(safeRepo, slashEscape, "/"), rest, true
}

// OutputPath returns the absolute path of the on-disk artifact for
// (modelRepo, filePath) under the managed models directory.
func OutputPath(modelsDir, modelRepo, filePath string) string {
	return filepath.Join(modelsDir, EncodeFilename(modelRepo, filePath))
}
