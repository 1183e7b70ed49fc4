// Command analyze prints a quick, human-readable analysis of every level in
// a levels directory: its map, the reference solution and the path that
// solution walks. It is the standalone form of "codemaze analyze".
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/codemaze/game/config"
	"github.com/wricardo/mcp-training/codemaze/validate"
)

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Analyze every level of a levels directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "levels-dir",
				Value:   "configs/levels",
				Usage:   "Directory with extra level files (empty: built-in levels only)",
				Sources: cli.EnvVars("LEVELS_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return analyzeCatalog(cmd.Root().Writer, cmd.String("levels-dir"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}

// analyzeCatalog renders every level of the catalog followed by a summary of
// the reference solutions that fail to reach their finish.
func analyzeCatalog(w io.Writer, dir string) error {
	catalog, err := config.NewManager(dir)
	if err != nil {
		return err
	}

	infos, err := catalog.ListLevels()
	if err != nil {
		return err
	}

	unsolved := 0
	for _, info := range infos {
		level, err := catalog.LoadLevel(info.Level)
		if err != nil {
			return err
		}
		a := validate.Analyze(info.Source, level)
		if !a.Reached {
			unsolved++
		}
		fmt.Fprintf(w, "\n=== Level %d (%s) ===\n%s", info.Level, info.Source, a.Render())
	}

	if unsolved > 0 {
		fmt.Fprintf(w, "\n⚠️  %d of %d reference solutions do not reach the finish\n", unsolved, len(infos))
	} else {
		fmt.Fprintf(w, "\n✅ All %d reference solutions reach the finish\n", len(infos))
	}
	return nil
}
