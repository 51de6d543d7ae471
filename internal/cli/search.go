package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rednhax/varman/pkg/hub"
)

// searchCommand creates the search command for querying hub resources.
func (c *CLI) searchCommand() *cobra.Command {
	var (
		page    int
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search resources on the hub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd.Context(), args[0], page, noCache)
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "result page")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache")

	return cmd
}

func (c *CLI) runSearch(ctx context.Context, query string, page int, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	client, err := c.newHub(cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize hub client: %w", err)
	}

	spinner := newSpinnerWithContext(ctx, "Searching hub...")
	spinner.Start()
	result, err := client.Search(ctx, hub.SearchParams{Query: query, Page: page})
	if err != nil {
		spinner.StopWithError("Search failed")
		return err
	}
	spinner.Stop()

	if len(result.Resources) == 0 {
		printInfo("No resources match %q", query)
		return nil
	}

	fmt.Println(StyleTitle.Render(fmt.Sprintf("Results for %q", query)))
	for _, res := range result.Resources {
		printInfo("%s", StyleHighlight.Render(res.Name))
		printDetail("id %s · %d dependencies · %d files", res.ID, res.DependencyCount, len(res.Files))
	}
	printNewline()
	printDetail("page %d of %d", result.Page, result.TotalPages)
	if result.Page < result.TotalPages {
		printNextStep("Next page", fmt.Sprintf("varman search %q --page %d", query, result.Page+1))
	}
	return nil
}
