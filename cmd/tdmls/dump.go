package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/arloliu/tdm"
)

// channelDump is the JSON shape of one dumped channel.
type channelDump struct {
	Group    int    `json:"group"`
	Channel  int    `json:"channel"`
	Name     string `json:"name"`
	Unit     string `json:"unit,omitempty"`
	Type     string `json:"type"`
	Length   int    `json:"length"`
	Declared uint64 `json:"declared_length"`
	Values   any    `json:"values"`
}

func dumpCmd() *cli.Command {
	var (
		path    string
		group   int
		channel int
		whole   bool
	)

	return &cli.Command{
		Name:  "dump",
		Usage: "Dump channel values as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to the .tdm file (or zip archive)",
				Destination: &path,
				Required:    true,
			},
			&cli.IntFlag{
				Name:        "group",
				Aliases:     []string{"g"},
				Usage:       "channel group index",
				Destination: &group,
			},
			&cli.IntFlag{
				Name:        "channel",
				Aliases:     []string{"c"},
				Usage:       "channel index within the group",
				Destination: &channel,
			},
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "dump every channel of the group",
				Destination: &whole,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := tdm.OpenFile(path)
			if err != nil {
				return err
			}
			defer f.Close()

			var out any
			if whole {
				n, err := f.NumChannels(group)
				if err != nil {
					return err
				}
				dumps := make([]channelDump, 0, n)
				for ci := 0; ci < n; ci++ {
					d, err := dumpChannel(f, group, ci)
					if err != nil {
						return err
					}
					dumps = append(dumps, d)
				}
				out = dumps
			} else {
				d, err := dumpChannel(f, group, channel)
				if err != nil {
					return err
				}
				out = d
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(out)
		},
	}
}

func dumpChannel(f *tdm.File, group, channel int) (channelDump, error) {
	view, err := f.Channel(group, channel)
	if err != nil {
		return channelDump{}, err
	}
	name, _ := f.ChannelName(group, channel)
	unit, _ := f.ChannelUnit(group, channel)

	return channelDump{
		Group:    group,
		Channel:  channel,
		Name:     name,
		Unit:     unit,
		Type:     view.Type().String(),
		Length:   view.Len(),
		Declared: view.DeclaredLength(),
		Values:   view.Export(),
	}, nil
}

func searchCmd() *cli.Command {
	var path string

	return &cli.Command{
		Name:      "search",
		Usage:     "Search channel names by substring",
		ArgsUsage: "<term>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to the .tdm file (or zip archive)",
				Destination: &path,
				Required:    true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			term := cmd.Args().First()
			f, err := tdm.OpenFile(path)
			if err != nil {
				return err
			}
			defer f.Close()

			for _, m := range f.ChannelSearch(term) {
				fmt.Printf("%d\t%d\t%s\n", m.Group, m.Channel, m.Name)
			}

			return nil
		},
	}
}
