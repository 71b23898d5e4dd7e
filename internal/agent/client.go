package agent

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/pmadusud/salesagent/internal/azureauth"
	"github.com/pmadusud/salesagent/internal/types"
	openai "github.com/sashabaranov/go-openai"
)

const requestTimeout = 2 * time.Minute

// NewAPI builds an agent service client for PROJECT_ENDPOINT. Requests carry an Entra ID
// bearer token for the AI Foundry scope obtained from cred.
func NewAPI(ctx context.Context, cfg *types.Config, cred azcore.TokenCredential) (*openai.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cred == nil {
		return nil, fmt.Errorf("credential cannot be nil")
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.ProjectEndpoint), "/")
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("PROJECT_ENDPOINT must be an https URL, got %q", cfg.ProjectEndpoint)
	}

	clientCfg := openai.DefaultConfig("")
	clientCfg.BaseURL = endpoint
	clientCfg.APIVersion = cfg.AgentsAPIVersion
	clientCfg.HTTPClient = azureauth.NewHTTPClient(ctx, cred, requestTimeout, azureauth.AIFoundryScope)

	return openai.NewClientWithConfig(clientCfg), nil
}
