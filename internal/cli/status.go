package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rednhax/varman/pkg/hub"
	"github.com/rednhax/varman/pkg/library"
)

// statusCommand creates the status command for checking hub resources
// against the local library.
func (c *CLI) statusCommand() *cobra.Command {
	var (
		query   string
		page    int
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check hub resources against the local package library",
		Long: `Check hub resources against the local package library.

Status scans the configured package folders, loads the hub's package
index, and evaluates one page of hub resources: for each resource it
reports whether every required package is already in the library and
whether a newer version is available on the hub.

Results stream as evaluations complete, in completion order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus(cmd.Context(), query, page, noCache)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter resources by search query")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "result page to evaluate")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache")

	return cmd
}

func (c *CLI) runStatus(ctx context.Context, query string, page int, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	pkgs, store, err := c.scanLibrary(cfg)
	if err != nil {
		return err
	}
	printInfo("Library: %d packages across %d folders", len(pkgs), len(cfg.Folders))

	client, err := c.newHub(cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize hub client: %w", err)
	}

	spinner := newSpinnerWithContext(ctx, "Loading hub index...")
	spinner.Start()
	if err := client.LoadIndex(ctx); err != nil {
		spinner.StopWithError("Hub index load failed")
		return err
	}
	spinner.Stop()

	result, err := client.Search(ctx, hub.SearchParams{Query: query, Page: page})
	if err != nil {
		return fmt.Errorf("search hub: %w", err)
	}
	if len(result.Resources) == 0 {
		printInfo("No resources match")
		return nil
	}

	concurrency, delay := schedulerDefaults(cfg)
	sched := &library.Scheduler{
		Evaluator: &library.Evaluator{
			Local:   store,
			Remote:  client,
			Details: client,
			Logger:  c.Logger,
		},
		Concurrency:  concurrency,
		InitialDelay: delay,
		Logger:       c.Logger,
	}

	var inLibrary, updates int
	for res := range sched.Schedule(ctx, result.Resources) {
		printResourceStatus(res)
		if res.Status.InLibrary {
			inLibrary++
		}
		if res.Status.UpdateAvailable {
			updates++
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	printNewline()
	printKeyValue("resources", fmt.Sprintf("%d (page %d/%d)", len(result.Resources), result.Page, result.TotalPages))
	printKeyValue("in library", fmt.Sprint(inLibrary))
	printKeyValue("updates", fmt.Sprint(updates))
	return nil
}

func printResourceStatus(res library.Result) {
	switch {
	case res.Status.InLibrary && res.Status.UpdateAvailable:
		printWarning("%s (update available)", res.Resource.Name)
	case res.Status.InLibrary:
		printSuccess("%s", res.Resource.Name)
	case res.Status.UpdateAvailable:
		printError("%s (missing, newer version on hub)", res.Resource.Name)
	default:
		printError("%s (missing)", res.Resource.Name)
	}
}
