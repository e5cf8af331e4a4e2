package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/visita-intel/newsintel/internal/feeds"
)

var feedsShowURLs bool

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "List the feed catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		return printCatalog(cmd.OutOrStdout(), catalog, feedsShowURLs)
	},
}

func printCatalog(w io.Writer, c *feeds.Catalog, withURLs bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, n := range c.Niches() {
		sources := c.Feeds(n)
		if !withURLs {
			keys := make([]string, len(sources))
			for i, s := range sources {
				keys[i] = s.Key
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\n", n, len(sources), strings.Join(keys, ", "))
			continue
		}
		for _, s := range sources {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", n, s.Key, s.URL)
		}
	}
	fmt.Fprintf(tw, "total\t%d\t\n", c.Size())
	return tw.Flush()
}

func init() {
	feedsCmd.Flags().BoolVar(&feedsShowURLs, "urls", false, "print one line per feed with its URL")
	rootCmd.AddCommand(feedsCmd)
}
