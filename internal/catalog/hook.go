package catalog

import (
	"fmt"

	"assetsync/internal/config"
	"assetsync/internal/core/logger"
)

// RunMode selects how catalog datasets resolve paths and downloads for the
// current execution environment.
type RunMode string

const (
	// RunModeLocal replicates the remote asset layout under the local
	// root and downloads what the run reads.
	RunModeLocal RunMode = "local"
	// RunModeRemote is for execution inside the platform, where the run
	// itself pins asset versions.
	RunModeRemote RunMode = "remote"
)

// Hook applies the current run mode to every dataset in a catalog. It runs
// once per run, before the catalog serves any dataset; datasets are not
// reconfigured after that.
type Hook struct {
	logger *logger.Logger
}

func NewHook() *Hook {
	return &Hook{
		logger: logger.NewLogger(logger.WithName("hook")),
	}
}

// ApplyRunMode configures each catalog dataset for the given mode.
// pipelineInputs names the entries read from outside the run: only those
// need downloading locally, intermediates produced earlier in the same run
// are already on disk.
func (h *Hook) ApplyRunMode(cat *Catalog, mode RunMode, storeCfg config.StoreConfig, pipelineInputs []string) error {
	inputs := make(map[string]bool, len(pipelineInputs))
	for _, name := range pipelineInputs {
		inputs[name] = true
	}

	for _, name := range cat.Names() {
		ds, err := cat.Get(name)
		if err != nil {
			return err
		}
		switch mode {
		case RunModeLocal:
			ds.AsLocal(storeCfg, inputs[name])
		case RunModeRemote:
			ds.AsRemote(storeCfg)
		default:
			return fmt.Errorf("unknown run mode: %s", mode)
		}
		h.logger.Debug("applied run mode",
			"entry", name,
			"mode", string(mode),
			"download", ds.DownloadEnabled(),
		)
	}
	return nil
}
