package synthetic

import (
	"context"
	"flag"
	"fmt"

	"pacsguard/dataloader/appcontext"
	"pacsguard/dataloader/config"
)

const defaultSeed = 42

// RunGenerateSyntheticData parses the generate-synthetic-data flags and writes
// the document.
func RunGenerateSyntheticData(ctx context.Context, args []string, cfg *config.Config) error {
	logger := appcontext.LoggerFromContext(ctx)

	genFlagSet := flag.NewFlagSet("generate-synthetic-data", flag.ContinueOnError)
	rows := genFlagSet.Int("rows", cfg.SyntheticDataRows, "Number of transfers to generate")
	dir := genFlagSet.String("dir", cfg.SyntheticDataDir, "Directory to write synthetic data to")
	seed := genFlagSet.Uint64("seed", defaultSeed, "Seed of the random generator")
	if err := genFlagSet.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	logger.InfoContext(ctx, "Generating synthetic data", "rows", *rows, "dir", *dir, "seed", *seed)
	path, err := GenerateSyntheticData(*rows, *dir, *seed)
	if err != nil {
		return fmt.Errorf("failed to generate synthetic data: %w", err)
	}
	logger.InfoContext(ctx, "Synthetic data generated successfully", "file", path)

	return nil
}
