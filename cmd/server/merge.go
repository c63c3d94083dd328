package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/database"
	"github.com/charlesng35/inventra/internal/services"
	"github.com/charlesng35/inventra/pkg/logger"
)

const mergeCitiesCommand = "merge-cities"

// runMergeCities folds cities whose names only differ in case or diacritics
// into one survivor and prints what was (or would be) changed.
func runMergeCities(ctx context.Context, args []string, out io.Writer) (err error) {
	fs := flag.NewFlagSet(mergeCitiesCommand, flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		configPath string
		dryRun     bool
	)
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")
	fs.BoolVar(&dryRun, "dry-run", false, "Report the merge plan without writing anything")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := prepareConfig(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync() // best effort

	db, err := database.Open(cfg.Database.DatabaseOptions())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, database.Close(db))
	}()

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto-migrate database: %w", err)
	}

	return mergeCities(ctx, db, dryRun, out)
}

func mergeCities(ctx context.Context, db *gorm.DB, dryRun bool, out io.Writer) error {
	catalog, err := services.NewCatalogService(db)
	if err != nil {
		return err
	}

	report, mergeErr := catalog.MergeDuplicateCities(ctx, dryRun)
	if report == nil {
		return mergeErr
	}

	printMergeReport(out, report)
	if mergeErr != nil {
		logger.WithModule("merge").Warn("some cities could not be merged", zap.Error(mergeErr))
	}
	return mergeErr
}

func printMergeReport(out io.Writer, report *services.MergeReport) {
	if len(report.Groups) == 0 {
		fmt.Fprintln(out, "No duplicate cities found.")
		return
	}

	verb := "merged"
	if report.DryRun {
		verb = "would merge"
	}

	for _, group := range report.Groups {
		fmt.Fprintf(out, "%s: keeping %q (%s, %d buildings, %d items)\n",
			group.Canonical, group.Kept.Name, group.Kept.ID, group.Kept.Buildings, group.Kept.Items)
		for _, result := range group.Merged {
			if result.Error != "" {
				fmt.Fprintf(out, "  failed %q: %s\n", result.Name, result.Error)
				continue
			}
			fmt.Fprintf(out, "  %s %q: %d buildings moved, %d buildings merged, %d items repointed, %d text items updated\n",
				verb, result.Name, result.BuildingsMoved, result.BuildingsMerged, result.ItemsRepointed, result.TextItemsUpdated)
		}
	}

	if report.DryRun {
		fmt.Fprintf(out, "Dry run: %d duplicate groups found, nothing written.\n", len(report.Groups))
		return
	}
	fmt.Fprintf(out, "Merged %d cities.\n", report.MergedCount)
}
