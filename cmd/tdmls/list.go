package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/arloliu/tdm"
)

func listCmd() *cli.Command {
	var (
		path         string
		showWarnings bool
	)

	return &cli.Command{
		Name:  "list",
		Usage: "List channel groups and channels",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to the .tdm file (or zip archive)",
				Destination: &path,
				Required:    true,
			},
			&cli.BoolFlag{
				Name:        "warnings",
				Aliases:     []string{"w"},
				Usage:       "also print load warnings",
				Destination: &showWarnings,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := tdm.OpenFile(path, tdm.WithEagerLoad())
			if err != nil {
				return err
			}
			defer f.Close()

			if exp := f.Exporter(); exp != "" {
				fmt.Printf("exporter: %s\n", exp)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "GROUP\tCHANNEL\tNAME\tTYPE\tUNIT\tLENGTH\tDECLARED")
			for gi := 0; gi < f.NumGroups(); gi++ {
				groupName, _ := f.GroupName(gi)
				n, _ := f.NumChannels(gi)
				if n == 0 {
					fmt.Fprintf(w, "%d (%s)\t-\t-\t-\t-\t-\t-\n", gi, groupName)
					continue
				}
				for ci := 0; ci < n; ci++ {
					name, _ := f.ChannelName(gi, ci)
					unit, _ := f.ChannelUnit(gi, ci)
					view, err := f.Channel(gi, ci)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%d (%s)\t%d\t%s\t%s\t%s\t%d\t%d\n",
						gi, groupName, ci, name, view.Type(), unit, view.Len(), view.DeclaredLength())
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if showWarnings {
				for _, warn := range f.Warnings() {
					fmt.Printf("warning: group %d channel %d (%s): %v\n",
						warn.Group, warn.Channel, warn.Name, warn.Err)
				}
			}

			return nil
		},
	}
}
