package azureauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"golang.org/x/oauth2"
)

const (
	// CognitiveServicesScope authorizes Azure AI model inference calls.
	CognitiveServicesScope = "https://cognitiveservices.azure.com/.default"
	// AIFoundryScope authorizes Azure AI Foundry project (agent service) calls.
	AIFoundryScope = "https://ai.azure.com/.default"
)

// Credential kinds accepted by NewCredential
const (
	KindDefault         = "default"
	KindCLI             = "cli"
	KindManagedIdentity = "managed-identity"
)

// NewCredential builds an Azure credential of the given kind
func NewCredential(kind string) (azcore.TokenCredential, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindDefault:
		return azidentity.NewDefaultAzureCredential(nil)
	case KindCLI:
		return azidentity.NewAzureCLICredential(nil)
	case KindManagedIdentity:
		return azidentity.NewManagedIdentityCredential(nil)
	default:
		return nil, fmt.Errorf("unknown credential kind %q", kind)
	}
}

type credentialTokenSource struct {
	ctx    context.Context
	cred   azcore.TokenCredential
	scopes []string
}

func (s *credentialTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.cred.GetToken(s.ctx, policy.TokenRequestOptions{Scopes: s.scopes})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire Azure access token: %w", err)
	}
	return &oauth2.Token{
		AccessToken: tok.Token,
		TokenType:   "Bearer",
		Expiry:      tok.ExpiresOn,
	}, nil
}

// NewTokenSource adapts an Azure credential to an oauth2.TokenSource that caches until expiry
func NewTokenSource(ctx context.Context, cred azcore.TokenCredential, scopes ...string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &credentialTokenSource{
		ctx:    ctx,
		cred:   cred,
		scopes: scopes,
	})
}

// NewHTTPClient returns an HTTP client that attaches bearer tokens from cred
func NewHTTPClient(ctx context.Context, cred azcore.TokenCredential, timeout time.Duration, scopes ...string) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: NewTokenSource(ctx, cred, scopes...),
			Base:   http.DefaultTransport,
		},
	}
}
