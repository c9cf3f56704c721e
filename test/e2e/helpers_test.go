package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// uniqueName keeps fragment names from colliding across runs against a
// shared deployment.
func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// postRaw sends body as JSON and decodes the envelope into T.
func postRaw[T any](t *testing.T, path string, body interface{}) (int, common.APIResponse[T]) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(testContext(t), http.MethodPost, env.baseURL+path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := env.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out common.APIResponse[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	t.Logf("POST %s -> %d", path, resp.StatusCode)
	return resp.StatusCode, out
}
