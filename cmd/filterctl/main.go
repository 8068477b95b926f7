// Command filterctl evaluates filter documents against JSON records or
// PostgreSQL tables and renders them as PostgreSQL expressions.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/config"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/criteria"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	configPath string
	settings   *config.Settings
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "filterctl",
		Short:         "Evaluate and compile filter documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(settings.Logging)
			if err != nil {
				return err
			}
			a.settings, a.logger = settings, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML settings file")
	root.AddCommand(newMatchCmd(a), newSQLCmd(a), newFindCmd(a))
	return root
}

// readCriteria decodes a filter document; .yaml and .yml files are read as
// YAML, anything else as JSON.
func readCriteria(path string) (criteria.Group, error) {
	if path == "" {
		return criteria.Group{}, errors.New("--criteria is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return criteria.Group{}, errors.Wrap(err, "failed to read criteria")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return criteria.DecodeYAML(data)
	}
	return criteria.DecodeJSON(data)
}
