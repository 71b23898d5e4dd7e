package bedrock

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// poolKey identifies clients that can be shared. Credentials are compared by provider
// identity so configs loaded separately never share a client.
type poolKey struct {
	region      string
	model       string
	dimensions  int
	credentials string
}

func credentialsID(p aws.CredentialsProvider) string {
	if p == nil {
		return ""
	}
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan:
		return fmt.Sprintf("%T@%x", p, v.Pointer())
	}
	return fmt.Sprintf("%T:%v", p, p)
}

var (
	poolMu sync.Mutex
	pool   = make(map[poolKey]*BedrockClient)
)

// GetSharedBedrockClient returns a process-wide Bedrock client for the region, model and dimension.
func GetSharedBedrockClient(cfg aws.Config, modelID string, dimensions int) *BedrockClient {
	key := poolKey{region: cfg.Region, model: modelID, dimensions: dimensions, credentials: credentialsID(cfg.Credentials)}

	poolMu.Lock()
	defer poolMu.Unlock()

	if client, ok := pool[key]; ok {
		return client
	}
	client := NewBedrockClient(cfg, modelID, dimensions)
	pool[key] = client
	return client
}
