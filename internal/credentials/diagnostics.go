// Package credentials diagnoses Azure authentication problems before the agent starts.
package credentials

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/pmadusud/salesagent/internal/azureauth"
	"github.com/pmadusud/salesagent/internal/console"
	"github.com/pmadusud/salesagent/internal/embedding"
	"github.com/pmadusud/salesagent/internal/embedding/inference"
)

const probeText = "test"

// CredentialFactory builds a credential of an azureauth kind.
type CredentialFactory func(kind string) (azcore.TokenCredential, error)

// EmbedderFactory builds an embedding client authenticated with cred.
type EmbedderFactory func(ctx context.Context, endpoint, model string, cred azcore.TokenCredential) embedding.Client

type method struct {
	kind  string
	label string
	hint  string
}

var methods = []method{
	{kind: azureauth.KindDefault, label: "DefaultAzureCredential"},
	{kind: azureauth.KindCLI, label: "AzureCliCredential", hint: "Try running: az login"},
	{kind: azureauth.KindManagedIdentity, label: "ManagedIdentityCredential", hint: "This is expected if not running on Azure"},
}

// Diagnostics checks configuration and tries each credential kind in turn.
type Diagnostics struct {
	ProjectEndpoint    string
	EmbeddingsEndpoint string
	EmbeddingModel     string
	NewCredential      CredentialFactory
	NewEmbedder        EmbedderFactory
	Timeout            time.Duration
	out                *console.Console
}

// New returns diagnostics using real Azure credentials and the inference embeddings client.
func New(projectEndpoint, embeddingsEndpoint, model string, out *console.Console) *Diagnostics {
	return &Diagnostics{
		ProjectEndpoint:    projectEndpoint,
		EmbeddingsEndpoint: embeddingsEndpoint,
		EmbeddingModel:     model,
		NewCredential:      azureauth.NewCredential,
		NewEmbedder:        inferenceEmbedder,
		Timeout:            30 * time.Second,
		out:                out,
	}
}

func inferenceEmbedder(ctx context.Context, endpoint, model string, cred azcore.TokenCredential) embedding.Client {
	httpClient := azureauth.NewHTTPClient(ctx, cred, 30*time.Second, azureauth.CognitiveServicesScope)
	return inference.NewInferenceClient(endpoint, "", model, inference.WithHTTPClient(httpClient))
}

// Run prints the outcome of every check and reports whether a credential could both
// obtain a token and complete an embedding call.
func (d *Diagnostics) Run(ctx context.Context) bool {
	d.out.Plain("=== Azure AI Foundry Authentication Test ===\n")

	if d.ProjectEndpoint == "" {
		d.out.Purple("❌ PROJECT_ENDPOINT environment variable is not set")
		d.out.Plain("   Please set it to your Azure AI Foundry project endpoint")
		return false
	}
	d.out.Green("✅ PROJECT_ENDPOINT: %s", d.ProjectEndpoint)

	if d.EmbeddingModel == "" {
		d.out.Purple("❌ AZURE_FOUNDRY_EMBEDDING_MODEL environment variable is not set")
		d.out.Plain("   Please set it to your embedding model name")
		return false
	}
	d.out.Green("✅ AZURE_FOUNDRY_EMBEDDING_MODEL: %s", d.EmbeddingModel)

	endpoint := d.EmbeddingsEndpoint
	if endpoint == "" {
		endpoint = d.ProjectEndpoint
	}

	d.out.Plain("\n=== Testing Authentication Methods ===\n")
	for i, m := range methods {
		if i > 0 {
			d.out.Plain("")
		}
		d.out.Plain("%d. Testing %s...", i+1, m.label)
		if d.try(ctx, m, endpoint) {
			return true
		}
	}
	return false
}

func (d *Diagnostics) try(ctx context.Context, m method, endpoint string) bool {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	var token azcore.AccessToken
	cred, err := d.NewCredential(m.kind)
	if err == nil {
		token, err = cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{azureauth.CognitiveServicesScope}})
	}
	if err != nil {
		d.out.Purple("   ❌ %s failed: %v", m.label, err)
		if m.hint != "" {
			d.out.Plain("   💡 %s", m.hint)
		}
		return false
	}
	d.out.Green("   ✅ %s: SUCCESS", m.label)
	if info, err := DescribeToken(token.Token); err == nil {
		d.out.Plain("   Token audience: %s, tenant: %s, identity: %s, expires: %s",
			info.Audience, info.TenantID, info.Identity, info.ExpiresAt.Format(time.RFC3339))
	}

	if _, err := d.NewEmbedder(ctx, endpoint, d.EmbeddingModel, cred).GenerateEmbedding(ctx, probeText); err != nil {
		d.out.Purple("   ❌ API call failed: %v", err)
		return false
	}
	d.out.Green("   ✅ API call with %s: SUCCESS", m.label)
	return true
}

// PrintTroubleshooting prints the common fixes and next steps.
func (d *Diagnostics) PrintTroubleshooting() {
	lines := []string{
		"\n=== Troubleshooting Guide ===\n",
		"Common Authentication Issues and Solutions:\n",
		"1. 'No subscription found' error:",
		"   - Run: az login",
		"   - Run: az account set --subscription <your-subscription-id>",
		"   - Verify: az account show\n",
		"2. 'Insufficient privileges' error:",
		"   - Ensure your account has 'Cognitive Services User' role",
		"   - Check resource-level permissions in Azure portal",
		"   - Verify the PROJECT_ENDPOINT is correct\n",
		"3. 'Invalid audience' error:",
		"   - Verify PROJECT_ENDPOINT format: https://<project-name>.<region>.inference.ml.azure.com",
		"   - Check if the model deployment is active\n",
		"4. Environment variable setup:",
		"   - PROJECT_ENDPOINT: Your Azure AI Foundry project endpoint",
		"   - AZURE_FOUNDRY_EMBEDDING_MODEL: Your embedding model deployment name",
		"   - Optional: AZURE_CLIENT_ID, AZURE_CLIENT_SECRET, AZURE_TENANT_ID for service principal\n",
		"5. Alternative authentication methods:",
		"   - Service Principal: Set AZURE_CLIENT_ID, AZURE_CLIENT_SECRET, AZURE_TENANT_ID",
		"   - Managed Identity: Use when running on Azure (VM, App Service, etc.)",
		"   - Interactive: Let DefaultAzureCredential handle browser-based login\n",
		"=== Next Steps ===\n",
		"1. Follow the troubleshooting guide above",
		"2. Run this command again to verify authentication",
		"3. Once authentication works, the chat command should work too",
	}
	for _, line := range lines {
		d.out.Plain("%s", line)
	}
}
