// File: cmd/context.go
package cmd

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/pagestudy/internal/config"
)

type contextKey string

// configKey holds the validated config.Interface for subcommands.
const configKey contextKey = "config"

// getConfigFromContext returns the configuration stored by the root
// command's PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not found in context")
	}
	return cfg, nil
}
