package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wfunc/gombiful/catalog"
	"github.com/wfunc/gombiful/models"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [file]",
	Short: "Validate a song catalog and list it by year",
	Long:  `Loads the catalog from file, or the configured/built-in one, checks it and prints it oldest first.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalog,
}

func runCatalog(cmd *cobra.Command, args []string) error {
	path := cfg.Game.CatalogPath
	if len(args) == 1 {
		path = args[0]
	}
	songs, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}
	printCatalog(cmd.OutOrStdout(), songs)
	return nil
}

func printCatalog(w io.Writer, songs []models.Song) {
	sorted := append([]models.Song(nil), songs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })
	for _, s := range sorted {
		fmt.Fprintf(w, "%4d  %3d  %s - %s\n", s.Year, s.ID, s.Artist, s.Title)
	}
	if len(sorted) > 0 {
		fmt.Fprintf(w, "%d songs, %d-%d\n", len(sorted), sorted[0].Year, sorted[len(sorted)-1].Year)
	}
}
