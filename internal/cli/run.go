package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/marketlyhq/contentscout/agent"
	"github.com/marketlyhq/contentscout/discovery"
	"github.com/marketlyhq/contentscout/observe"
	"github.com/marketlyhq/contentscout/providers/openai"
	"github.com/marketlyhq/contentscout/runtimeconfig"
	"github.com/marketlyhq/contentscout/state"
	"github.com/marketlyhq/contentscout/tools"
	"github.com/marketlyhq/contentscout/types"
)

func runResearch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		siteURL     = fs.String("url", "", "prospect site or blog URL")
		name        = fs.String("name", "", "prospect company name")
		industry    = fs.String("industry", "", "prospect industry")
		notes       = fs.String("notes", "", "extra context for the researcher")
		configPath  = fs.String("config", "", "JSON limits file")
		entityID    = fs.String("entity", "", "entity id to store the report under")
		userID      = fs.String("user", "", "user id to log costs against")
		parallel    = fs.Bool("parallel", false, "dispatch tool calls concurrently")
		verbose     = fs.Bool("verbose", false, "emit progress events to stderr")
		competitors stringList
	)
	fs.Var(&competitors, "competitor", "competitor blog URL (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *siteURL == "" {
		return fmt.Errorf("-url is required")
	}

	limits, err := loadLimits(*configPath)
	if err != nil {
		return err
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	providerOpts := []openai.Option{openai.WithModel(limits.Model)}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		providerOpts = append(providerOpts, openai.WithBaseURL(base))
	}
	provider, err := openai.New(apiKey, providerOpts...)
	if err != nil {
		return err
	}

	svc := discovery.NewService(
		discovery.NewFeedFinder(discovery.WithFeedTimeout(limits.FeedProbeTimeout())),
		discovery.NewScraper(
			discovery.WithPageTimeout(limits.PageFetchTimeout()),
			discovery.WithTruncateChars(limits.PageTruncateChars),
			discovery.WithMaxPosts(limits.MaxPostsPerScrape),
		),
	)
	registry, err := tools.NewRegistry(
		tools.NewBrowseBlog(svc),
		tools.NewScrapePage(svc),
	)
	if err != nil {
		return err
	}

	agentOpts := []agent.Option{agent.WithParallelToolCalls(*parallel)}
	if *verbose {
		agentOpts = append(agentOpts, agent.WithObserver(stderrSink(stderr)))
	}
	researcher, err := agent.New(provider, registry, limits, agentOpts...)
	if err != nil {
		return err
	}

	result, err := researcher.Research(ctx, agent.ResearchRequest{
		CompanyName:    *name,
		SiteURL:        *siteURL,
		CompetitorURLs: competitors,
		Industry:       *industry,
		Notes:          *notes,
	})
	if err != nil {
		return err
	}

	out, merr := json.MarshalIndent(result, "", "  ")
	if merr != nil {
		return fmt.Errorf("failed to encode result: %w", merr)
	}
	writeJSONLine(stdout, out)

	persist(ctx, stderr, result, *entityID, *userID)
	return nil
}

// persist stores the report and cost entry when a store is configured.
// A store failure is reported on stderr but never fails the run.
func persist(ctx context.Context, stderr io.Writer, result types.ResearchResult, entityID, userID string) {
	if entityID == "" && userID == "" {
		return
	}
	store, err := openStore()
	if err != nil {
		fmt.Fprintf(stderr, "state store unavailable: %v\n", err)
		return
	}
	if store == nil {
		return
	}
	defer store.Close()

	runID := uuid.NewString()
	now := time.Now().UTC()
	if entityID != "" {
		err := store.SaveReport(ctx, state.ReportRecord{
			EntityID:  entityID,
			RunID:     runID,
			Model:     result.Model,
			Result:    result,
			CreatedAt: now,
		})
		if err != nil {
			fmt.Fprintf(stderr, "failed to store report: %v\n", err)
		}
	}
	if userID != "" {
		err := store.LogCost(ctx, state.CostEntry{
			UserID:       userID,
			RunID:        runID,
			Model:        result.Model,
			TotalCostUSD: result.CostInfo.TotalCost,
			TotalTokens:  result.CostInfo.TotalTokens,
			CreatedAt:    now,
		})
		if err != nil {
			fmt.Fprintf(stderr, "failed to log cost: %v\n", err)
		}
	}
}

func loadLimits(configPath string) (runtimeconfig.Limits, error) {
	limits := runtimeconfig.Defaults()
	if configPath != "" {
		loaded, err := runtimeconfig.Load(configPath)
		if err != nil {
			return runtimeconfig.Limits{}, err
		}
		limits = loaded
	}
	return runtimeconfig.FromEnv(limits), nil
}

func stderrSink(w io.Writer) observe.Sink {
	return observe.SinkFunc(func(ctx context.Context, event observe.Event) error {
		line, err := json.Marshal(event)
		if err != nil {
			return err
		}
		writeJSONLine(w, line)
		return nil
	})
}
