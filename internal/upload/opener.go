package upload

import (
	"io"
	"os"
	"strings"

	"github.com/example/viewlulu/internal/cosmetic"
)

// FileOpener reads the bytes behind a normalized photo reference.
type FileOpener interface {
	Open(ref string) (io.ReadCloser, error)
}

// FileOpenerFunc adapts a function to FileOpener.
type FileOpenerFunc func(ref string) (io.ReadCloser, error)

func (f FileOpenerFunc) Open(ref string) (io.ReadCloser, error) { return f(ref) }

// LocalFileOpener opens file:// URIs and plain paths from the local filesystem.
type LocalFileOpener struct{}

func (LocalFileOpener) Open(ref string) (io.ReadCloser, error) {
	return os.Open(localPath(ref))
}

func localPath(ref string) string {
	return strings.TrimPrefix(ref, cosmetic.FileScheme)
}
