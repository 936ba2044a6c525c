package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/config"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/scorer"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gradapp",
	Short: "Graduate application eligibility and risk engine",
	Long: "Checks an applicant profile against a school catalog, scores admission risk per school " +
		"and analyzes the balance of the whole application portfolio.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// loadConfig reads and validates the config, including the scorer weights.
func loadConfig() (*config.Config, error) {
	c, err := config.Load()
	if err != nil {
		return nil, eris.Wrap(err, "load config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := scorer.ValidateConfig(c.Scorer); err != nil {
		return nil, err
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
