package adapter

import (
	"context"
	"io"
	"net/http"

	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/transport"
	"github.com/BaSui01/aigate/types"
)

// Upload posts a file to the provider's upload endpoint, if it declares one.
// The returned handle (url or id) can be attached to messages.
func (a *Adapter) Upload(ctx context.Context, filename string, content io.Reader) (*transport.UploadResult, error) {
	if a.def.UploadEndpoint == "" {
		return nil, types.Errorf(types.ErrUnsupportedFeature,
			"provider %q declares no upload endpoint", a.providerID).WithProvider(a.providerID)
	}

	headers := map[string]string{}
	for k, v := range a.def.Headers {
		headers[k] = v
	}
	apiKey := resolveAPIKey(a.providerID, a.def.Auth, a.apiKey)
	switch a.def.Auth.Type {
	case manifest.AuthBearer:
		headers["Authorization"] = "Bearer " + apiKey
	case manifest.AuthAPIKeyHeader:
		name := a.def.Auth.HeaderName
		if name == "" {
			name = "x-api-key"
		}
		headers[name] = apiKey
	}

	client := a.client
	if client == nil {
		client = http.DefaultClient
	}
	return transport.UploadFile(ctx, client, a.def.UploadEndpoint, "file", filename, content, headers)
}
