package azureauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/require"
)

type fakeCredential struct {
	calls  atomic.Int32
	scopes []string
	err    error
}

func (f *fakeCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.calls.Add(1)
	f.scopes = opts.Scopes
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: "token-abc", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestTokenSourceCachesToken(t *testing.T) {
	cred := &fakeCredential{}
	ts := NewTokenSource(context.Background(), cred, AIFoundryScope)

	first, err := ts.Token()
	require.NoError(t, err)
	second, err := ts.Token()
	require.NoError(t, err)

	require.Equal(t, "token-abc", first.AccessToken)
	require.Equal(t, first.AccessToken, second.AccessToken)
	require.Equal(t, int32(1), cred.calls.Load())
	require.Equal(t, []string{AIFoundryScope}, cred.scopes)
}

func TestTokenSourcePropagatesError(t *testing.T) {
	cred := &fakeCredential{err: errors.New("no login")}
	_, err := NewTokenSource(context.Background(), cred, CognitiveServicesScope).Token()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no login")
}

func TestHTTPClientSetsBearer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	client := NewHTTPClient(context.Background(), &fakeCredential{}, 5*time.Second, AIFoundryScope)
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, "Bearer token-abc", gotAuth)
}

func TestNewCredentialRejectsUnknownKind(t *testing.T) {
	_, err := NewCredential("browser")
	require.Error(t, err)
}
