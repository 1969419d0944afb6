package deps

import (
	"encoding/json"

	"github.com/wippyai/wasm-loader/errors"
)

// DefaultEntrypointURL is the document listing the application's modules.
const DefaultEntrypointURL = "index.html"

// Manifest is the ordered module list read from the entrypoint document.
type Manifest struct {
	Modules []string `json:"modules"`
}

// ParseManifest decodes an entrypoint document fetched from url.
func ParseManifest(url string, data []byte) (*Manifest, error) {
	var raw struct {
		Modules *[]string `json:"modules"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Manifest(url, err)
	}
	if raw.Modules == nil {
		return nil, errors.New(errors.PhaseManifest, errors.KindInvalidData).
			URL(url).
			Detail("module manifest %s has no modules field", url).
			Build()
	}
	return &Manifest{Modules: *raw.Modules}, nil
}
