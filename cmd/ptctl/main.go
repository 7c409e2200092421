// Command ptctl runs maintenance tasks against the PT Manager database.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/config"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/landing"
	"ptmanager_backend/pkg/seed"
)

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	db, err := database.Open(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	database.SetDB(db)
	return db, nil
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "ptctl",
		Short:         "PT Manager maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := openDB(cfg); err != nil {
				return err
			}
			if err := database.MigrateDatabase(model.All()...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migration complete")
			return nil
		},
	})

	var demo bool
	seedCmd := &cobra.Command{
		Use:   "seed-plans",
		Short: "Upsert the FREE, PRO and ELITE plans, optionally with a demo tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := seed.SeedPlans(db, cfg.Stripe); err != nil {
				return err
			}
			if demo {
				if err := seed.SeedDemoTenant(db, time.Now()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Demo tenant ready: %s / %s\n", seed.DemoAdminEmail, seed.DemoPassword)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Plans seeded")
			return nil
		},
	}
	seedCmd.Flags().BoolVar(&demo, "demo", false, "also create the demo tenant")
	root.AddCommand(seedCmd)

	var tenantSlug, pageSlug, file string
	patchCmd := &cobra.Command{
		Use:   "patch-landing",
		Short: "Overwrite top-level fields of a landing page from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read patch: %w", err)
			}
			patch, err := landing.ParsePatch(data)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			page, err := model.PatchBySlug(db, tenantSlug, pageSlug, patch, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Patched landing page %d (%s)\n", page.ID, page.Slug)
			return nil
		},
	}
	patchCmd.Flags().StringVar(&tenantSlug, "tenant", "", "tenant slug")
	patchCmd.Flags().StringVar(&pageSlug, "page", "", "landing page slug")
	patchCmd.Flags().StringVar(&file, "file", "", "path of the JSON patch")
	_ = patchCmd.MarkFlagRequired("tenant")
	_ = patchCmd.MarkFlagRequired("page")
	_ = patchCmd.MarkFlagRequired("file")
	root.AddCommand(patchCmd)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("ptctl: %v", err)
		os.Exit(1)
	}
}
