package manifest

import (
	_ "embed"
	"sync"
)

//go:embed default.yaml
var defaultManifestYAML []byte

var (
	defaultOnce sync.Once
	defaultM    *Manifest
	defaultErr  error
)

// Default returns the embedded default manifest. The embedded document is
// validated once; a broken embed is a build defect, so the error is returned
// rather than panicking to keep library callers in control.
func Default() (*Manifest, error) {
	defaultOnce.Do(func() {
		defaultM, defaultErr = Load(defaultManifestYAML)
	})
	return defaultM, defaultErr
}

// DefaultYAML exposes the raw embedded manifest bytes, mainly for tooling
// that wants to write a starter manifest to disk.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultManifestYAML))
	copy(out, defaultManifestYAML)
	return out
}
