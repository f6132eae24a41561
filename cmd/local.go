package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wfunc/gombiful/catalog"
	"github.com/wfunc/gombiful/deck"
	"github.com/wfunc/gombiful/local"
)

var localCmd = &cobra.Command{
	Use:   "local NAME [NAME...]",
	Short: "Play a pass-the-device game in this terminal",
	Args:  cobra.RangeArgs(1, local.MaxPlayers),
	RunE:  runLocal,
}

func init() {
	rootCmd.AddCommand(localCmd)
}

func runLocal(cmd *cobra.Command, args []string) error {
	songs, err := catalog.LoadFile(cfg.Game.CatalogPath)
	if err != nil {
		return err
	}
	g, err := local.New(cfg.Game.Config, deck.NewDealer(nil), songs, args)
	if err != nil {
		return err
	}
	return playLocal(g, cmd.InOrStdin(), cmd.OutOrStdout())
}

// playLocal reads "N", "skip" or "auto" per turn until someone wins or
// input ends.
func playLocal(g *local.Game, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for !g.Over() {
		p := g.CurrentPlayer()
		years := make([]string, len(p.Timeline))
		for i, s := range p.Timeline {
			years[i] = fmt.Sprintf("[%d] %d", i, s.Year)
		}
		song := g.Current()
		fmt.Fprintf(out, "\n%s (%d cards, %d tokens): %s - %s\n", p.Name, p.Score, p.Tokens, song.Artist, song.Title)
		fmt.Fprintf(out, "  %s  [%d]\n> ", strings.Join(years, " "), len(p.Timeline))

		if !scanner.Scan() {
			return scanner.Err()
		}
		var turn *local.Turn
		var err error
		switch line := strings.TrimSpace(scanner.Text()); line {
		case "skip":
			err = g.SkipWithToken()
		case "auto":
			turn, err = g.AutoCard()
		default:
			index, convErr := strconv.Atoi(line)
			if convErr != nil {
				err = errors.New("enter a position, skip or auto")
				break
			}
			turn, err = g.Place(index)
		}
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if turn != nil {
			switch {
			case turn.Result.Correct:
				fmt.Fprintf(out, "Correct! It is from %d.\n", turn.Song.Year)
			default:
				fmt.Fprintf(out, "Wrong: %s\n", turn.Result.Message)
			}
			if turn.Granted {
				fmt.Fprintln(out, "Streak bonus: +1 token")
			}
		}
	}
	_, winner, _ := g.Winner()
	fmt.Fprintf(out, "\n%s wins with %d cards!\n", winner.Name, winner.Score)
	return nil
}
