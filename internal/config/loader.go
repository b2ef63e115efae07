package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/architeacher/amqp-messenger/internal/ports"
	"github.com/hashicorp/vault/api"
	"github.com/kelseyhightower/envconfig"
)

// Loader overlays secrets from Vault on top of the environment configuration and reacts to
// SIGHUP (reload) and SIGUSR1 (dump).
type Loader struct {
	cfg              *ServiceConfig
	secretsRepo      ports.SecretsRepository
	configSignalChan chan os.Signal
	reloadErrors     chan error
	out              io.Writer

	mutex       sync.Mutex
	lastVersion uint
}

// NewLoader creates a new config loader instance.
func NewLoader(cfg *ServiceConfig, secretsRepo ports.SecretsRepository, initialVersion uint) *Loader {
	return &Loader{
		cfg:              cfg,
		secretsRepo:      secretsRepo,
		configSignalChan: make(chan os.Signal, 1),
		reloadErrors:     make(chan error, 1),
		out:              os.Stdout,
		lastVersion:      initialVersion,
	}
}

// Current returns a copy of the configuration including the latest Vault overlay.
func (l *Loader) Current() ServiceConfig {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return *l.cfg
}

// Init config from environment variables.
func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	if len(ServiceVersion) != 0 {
		cfg.AppConfig.ServiceVersion = ServiceVersion
	}

	if len(CommitSHA) != 0 {
		cfg.AppConfig.CommitSHA = CommitSHA
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *ServiceConfig) validate() error {
	switch c.Subscriptions.Backend {
	case SubscriptionBackendFile, SubscriptionBackendRedis:
	default:
		return fmt.Errorf("unsupported subscriptions backend %q", c.Subscriptions.Backend)
	}

	if c.Broker.Port <= 0 {
		return fmt.Errorf("invalid broker port %d", c.Broker.Port)
	}

	return nil
}

// WatchConfigSignals monitors for SIGHUP (reload) and SIGUSR1 (dump) signals.
// It also starts a background ticker for periodic config reloading if enabled.
// It returns a channel that will receive reload results for logging by the caller.
func (l *Loader) WatchConfigSignals(ctx context.Context) <-chan error {
	signal.Notify(l.configSignalChan, syscall.SIGHUP, syscall.SIGUSR1)

	go func() {
		defer signal.Stop(l.configSignalChan)
		defer close(l.reloadErrors)

		var reloadTickerChan <-chan time.Time
		if l.cfg.SecretStorage.Enabled && l.cfg.SecretStorage.PollInterval > 0 {
			ticker := time.NewTicker(l.cfg.SecretStorage.PollInterval)
			defer ticker.Stop()

			reloadTickerChan = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return

			case <-reloadTickerChan:
				l.handleConfigReload(ctx)

			case sig := <-l.configSignalChan:
				switch sig {
				case syscall.SIGHUP:
					l.handleConfigReload(ctx)

				case syscall.SIGUSR1:
					l.DumpConfig()
				}
			}
		}
	}()

	return l.reloadErrors
}

// DumpConfig writes the current configuration as JSON. Secrets are excluded by their json tags.
func (l *Loader) DumpConfig() {
	configJSON, err := json.MarshalIndent(l.cfg, "", "  ")
	if err != nil {
		fmt.Fprintf(l.out, "Error marshaling config: %v\n", err)

		return
	}

	fmt.Fprintf(l.out, "\n=== Configuration Dump ===\n%s\n=== End Configuration ===\n\n", string(configJSON))
}

// Load authenticates against Vault, applies the stored secrets to the configuration and
// returns the secret version.
func (l *Loader) Load(ctx context.Context) (uint, error) {
	if !l.cfg.SecretStorage.Enabled {
		return 0, fmt.Errorf("secret storage is not enabled")
	}

	if err := l.authenticateVault(ctx, l.cfg.SecretStorage); err != nil {
		return 0, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	data, metadata, err := l.readSecrets(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	applySecretsToConfig(l.cfg, data)

	version, err := getSecretVersion(metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to get secret version: %w", err)
	}

	l.lastVersion = version

	return version, nil
}

func (l *Loader) authenticateVault(ctx context.Context, config SecretStorageConfig) error {
	switch strings.ToLower(config.AuthMethod) {
	case "token":
		if config.Token == "" {
			return fmt.Errorf("token is required for token auth method")
		}
		l.secretsRepo.SetToken(config.Token)
		return nil

	case "approle":
		if config.RoleID == "" || config.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for approle auth method")
		}

		data := map[string]any{
			"role_id":   config.RoleID,
			"secret_id": config.SecretID,
		}

		resp, err := l.secretsRepo.WriteWithContext(ctx, "auth/approle/login", data)
		if err != nil {
			return fmt.Errorf("failed to authenticate via approle: %w", err)
		}

		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("no auth info returned from Vault")
		}

		l.secretsRepo.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", config.AuthMethod)
	}
}

func (l *Loader) handleConfigReload(ctx context.Context) {
	if !l.cfg.SecretStorage.Enabled {
		return
	}

	_, metadata, err := l.readSecrets(ctx)
	if err != nil {
		l.reportReloadStatus(fmt.Errorf("failed to load secret metadata: %w", err))

		return
	}

	currentVersion, err := getSecretVersion(metadata)
	if err != nil {
		l.reportReloadStatus(fmt.Errorf("failed to get secret version: %w", err))

		return
	}

	l.mutex.Lock()
	unchanged := currentVersion == l.lastVersion
	l.mutex.Unlock()

	if unchanged {
		return
	}

	_, err = l.Load(ctx)
	l.reportReloadStatus(err)
}

// readSecrets reads the KV v2 secret of the service and splits it into data and metadata.
func (l *Loader) readSecrets(ctx context.Context) (map[string]any, map[string]any, error) {
	secret, err := getSecretsWithRetry(ctx, l.secretsRepo, l.cfg.SecretStorage)
	if err != nil {
		return nil, nil, err
	}

	if secret == nil || secret.Data == nil {
		return nil, nil, nil
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("invalid secret format at path apps/data/%s, missing 'data' key", l.cfg.SecretStorage.MountPath)
	}

	metadata, _ := secret.Data["metadata"].(map[string]any)

	return data, metadata, nil
}

func getSecretsWithRetry(ctx context.Context, secretsRepo ports.SecretsRepository, cfg SecretStorageConfig) (*api.Secret, error) {
	path := fmt.Sprintf("apps/data/%s", cfg.MountPath)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var secret *api.Secret
	var err error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		secret, err = secretsRepo.GetSecrets(ctx, path)
		if err == nil {
			break
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("failed to read from path %s: %w", path, ctx.Err())
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read from path %s after %d retries: %w", path, cfg.MaxRetries, err)
	}

	return secret, nil
}

func getSecretVersion(metadata map[string]any) (uint, error) {
	if metadata == nil {
		return 0, nil
	}

	currentVersion, ok := metadata["version"]
	if !ok {
		return 0, nil
	}

	switch v := currentVersion.(type) {
	case float64:
		return uint(v), nil
	case int:
		return uint(v), nil
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("failed to parse version: %w", err)
		}

		return uint(version), nil
	default:
		return 0, fmt.Errorf("unexpected version type: %T", currentVersion)
	}
}

// applySecretsToConfig applies flat key-value pairs stored in Vault; unknown keys are ignored.
func applySecretsToConfig(cfg *ServiceConfig, data map[string]any) {
	for key, value := range data {
		strValue, ok := value.(string)
		if !ok || strValue == "" {
			continue
		}

		switch key {
		case "RABBITMQ_USERNAME":
			cfg.Broker.Username = strValue
		case "RABBITMQ_PASSWORD":
			cfg.Broker.Password = strValue
		case "RABBITMQ_HOST":
			cfg.Broker.Host = strValue
		case "RABBITMQ_MANAGEMENT_USERNAME":
			cfg.Management.Username = strValue
		case "RABBITMQ_MANAGEMENT_PASSWORD":
			cfg.Management.Password = strValue
		case "RABBITMQ_MANAGEMENT_URL":
			cfg.Management.URL = strValue
		case "REDIS_PASSWORD":
			cfg.Cache.Password = strValue
		}
	}
}

// reportReloadStatus sends reload status (error or nil for success) to reloadErrors channel.
// It uses non-blocking send to avoid blocking if no receiver is ready.
func (l *Loader) reportReloadStatus(err error) {
	select {
	case l.reloadErrors <- err:
	default:
	}
}
