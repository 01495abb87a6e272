package cmd

import (
	"net/http"
	"os"

	"coaclient/internal/config"
	"coaclient/internal/credstore"
	"coaclient/internal/oauth"
	"coaclient/pkg/logging"

	"github.com/spf13/cobra"
)

// loadConfig resolves the config directory (flag or default) and loads the
// configuration, then initializes logging. The --log-level flag wins over the
// config file when set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dir := configDir
	if dir == "" {
		var err error
		dir, err = config.GetDefaultConfigPath()
		if err != nil {
			return config.Config{}, err
		}
	}

	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return config.Config{}, err
	}

	levelStr := cfg.Logging.Level
	if cmd.Flags().Changed("log-level") || levelStr == "" {
		levelStr = logLevel
	}
	logging.InitForCLI(logging.ParseLevel(levelStr), os.Stderr)

	return cfg, nil
}

// newManager builds the OAuth manager and its file store from configuration.
func newManager(cmd *cobra.Command) (*oauth.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	store, err := credstore.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}

	return oauth.NewManager(oauth.ManagerConfig{
		Store:         store,
		AuthEndpoint:  cfg.OAuth.AuthEndpoint,
		TokenEndpoint: cfg.OAuth.TokenEndpoint,
		CallbackPort:  cfg.OAuth.CallbackPort,
		HTTPClient:    &http.Client{Timeout: cfg.OAuth.HTTPTimeout()},
	})
}
