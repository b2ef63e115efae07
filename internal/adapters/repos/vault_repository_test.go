package repos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultRepository_GetSecrets(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/apps/data/amqp-messenger", r.URL.Path)
		assert.Equal(t, "root-token", r.Header.Get("X-Vault-Token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     map[string]any{"RABBITMQ_PASSWORD": "s3cret"},
				"metadata": map[string]any{"version": 4},
			},
		})
	}))
	t.Cleanup(server.Close)

	client, err := NewVaultClient(config.SecretStorageConfig{Address: server.URL, Timeout: time.Second})
	require.NoError(t, err)

	repo := NewVaultRepository(client)
	repo.SetToken("root-token")

	secret, err := repo.GetSecrets(context.Background(), "apps/data/amqp-messenger")
	require.NoError(t, err)
	require.NotNil(t, secret)

	data, ok := secret.Data["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "s3cret", data["RABBITMQ_PASSWORD"])
}

func TestVaultRepository_WriteFailureIsWrapped(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewVaultClient(config.SecretStorageConfig{Address: server.URL, Timeout: time.Second, Namespace: "team"})
	require.NoError(t, err)

	_, err = NewVaultRepository(client).WriteWithContext(context.Background(), "auth/approle/login", map[string]any{"role_id": "r"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to write secret "auth/approle/login"`)
}
