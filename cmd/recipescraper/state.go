package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"recipescraper/pkg/config"
	"recipescraper/pkg/logger"
	"recipescraper/pkg/state"
	"recipescraper/pkg/storage"
	"recipescraper/pkg/ui"
)

var (
	showFailed bool
	resetAll   bool
)

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset the scrape state",
	Long: `Inspect or reset the scrape state kept in <output>/.scraper_state.json.

The state records which recipes were fetched, which are pending and which
failed, so later runs know what is left to do.`,
}

// stateShowCmd represents the state show command
var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show how many recipes are fetched, pending and failed",
	Example: `  recipescraper state show
  recipescraper state show --failed -o ./recipes`,
	Args: cobra.NoArgs,
	RunE: runStateShow,
}

// stateResetCmd represents the state reset command
var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Move failed recipes back to pending, or forget the state",
	Long: `Move failed recipes back to pending so the next run retries them.

With --all the state file is removed. Recipe files are kept and are adopted
again by the next run.`,
	Args: cobra.NoArgs,
	RunE: runStateReset,
}

func init() {
	for _, cmd := range []*cobra.Command{stateShowCmd, stateResetCmd} {
		cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default ./recipes)")
	}
	stateShowCmd.Flags().BoolVar(&showFailed, "failed", false, "list failed recipes with their last error")
	stateResetCmd.Flags().BoolVar(&resetAll, "all", false, "remove the state file entirely")

	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)
}

// openState loads the configuration and the state repository of its output directory
func openState(cmd *cobra.Command) (*config.Config, *state.FileRepository, logger.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := initLogging(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, state.NewFileRepository(cfg.StatePath(), log), log, nil
}

func runStateShow(cmd *cobra.Command, args []string) error {
	cfg, repo, _, err := openState(cmd)
	if err != nil {
		return exitWith(exitFailure, err)
	}

	if _, err := os.Stat(repo.Path()); os.IsNotExist(err) {
		ui.PrintWarning("No scrape state yet", cfg.Run.OutputDir)
		return nil
	}

	st, err := repo.Load()
	if err != nil {
		return exitWith(exitFailure, err)
	}

	fmt.Print(ui.RenderState(st, showFailed))
	ui.PrintInfo("State file", repo.Path())
	return nil
}

func runStateReset(cmd *cobra.Command, args []string) error {
	cfg, repo, log, err := openState(cmd)
	if err != nil {
		return exitWith(exitFailure, err)
	}

	// A running scrape owns the state file
	store, err := storage.NewManager(cfg.Run.OutputDir, log)
	if err != nil {
		return exitWith(exitFailure, err)
	}
	if err := store.Lock(); err != nil {
		return exitWith(exitFailure, err)
	}
	defer store.Unlock()

	if resetAll {
		if err := repo.Delete(); err != nil {
			return exitWith(exitFailure, err)
		}
		ui.PrintSuccess("State removed: " + repo.Path())
		return nil
	}

	st, err := repo.Load()
	if err != nil {
		return exitWith(exitFailure, err)
	}
	n := st.ResetFailed(time.Now())
	if n == 0 {
		ui.PrintInfo("Failed recipes", "none")
		return nil
	}
	if err := repo.Save(st); err != nil {
		return exitWith(exitFailure, err)
	}
	ui.PrintSuccess(fmt.Sprintf("%d failed recipes moved back to pending", n))
	return nil
}
