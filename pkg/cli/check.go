package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/websublime/vite-open-api-server-sub004/pkg/config"
	"github.com/websublime/vite-open-api-server-sub004/pkg/registry"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and every referenced OpenAPI document",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	failed := 0
	for _, spec := range cfg.Specs {
		doc, err := registry.LoadDocument(context.Background(), spec.File)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", spec.ID, err)
			failed++
			continue
		}
		reg, err := registry.Build(doc, nil)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", spec.ID, err)
			failed++
			continue
		}
		fmt.Printf("✓ %s: %d operations\n", spec.ID, reg.Stats().Total)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d specs failed validation", failed, len(cfg.Specs))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
