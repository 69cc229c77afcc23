package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/marketlyhq/contentscout/state"
	"github.com/marketlyhq/contentscout/state/redis"
	"github.com/marketlyhq/contentscout/state/sqlite"
)

// openStore picks a state backend from CONTENTSCOUT_STATE. A nil store
// with nil error means persistence is disabled.
func openStore() (state.Store, error) {
	switch backend := os.Getenv("CONTENTSCOUT_STATE"); backend {
	case "", "none":
		return nil, nil
	case "sqlite":
		path := os.Getenv("CONTENTSCOUT_SQLITE_PATH")
		if path == "" {
			path = "contentscout.db"
		}
		return sqlite.New(path)
	case "redis":
		addr := os.Getenv("CONTENTSCOUT_REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		var opts []redis.Option
		if password := os.Getenv("CONTENTSCOUT_REDIS_PASSWORD"); password != "" {
			opts = append(opts, redis.WithPassword(password))
		}
		return redis.New(addr, opts...)
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}

func requireStore() (state.Store, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("no state backend configured; set CONTENTSCOUT_STATE to sqlite or redis")
	}
	return store, nil
}

func runReports(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("reports", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "maximum reports to list")
	entityID := fs.String("entity", "", "show the report for a single entity id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := requireStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if *entityID != "" {
		record, err := store.LoadReport(ctx, *entityID)
		if err != nil {
			return err
		}
		return printJSON(stdout, record)
	}

	records, err := store.ListReports(ctx, *limit)
	if err != nil {
		return err
	}
	for _, record := range records {
		fmt.Fprintf(stdout, "%s\t%s\t%s\tsuccess=%t\t$%.4f\n",
			record.CreatedAt.Format("2006-01-02 15:04"),
			record.EntityID,
			record.Model,
			record.Result.Success,
			record.Result.CostInfo.TotalCost,
		)
	}
	return nil
}

func runCosts(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("costs", flag.ContinueOnError)
	userID := fs.String("user", "", "user id to list costs for")
	limit := fs.Int("limit", 20, "maximum entries to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("-user is required")
	}

	store, err := requireStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.ListCosts(ctx, *userID, *limit)
	if err != nil {
		return err
	}
	var total float64
	for _, entry := range entries {
		total += entry.TotalCostUSD
		fmt.Fprintf(stdout, "%s\t%s\t%d tokens\t$%.4f\n",
			entry.CreatedAt.Format("2006-01-02 15:04"),
			entry.Model,
			entry.TotalTokens,
			entry.TotalCostUSD,
		)
	}
	fmt.Fprintf(stdout, "total\t$%.4f over %d runs\n", total, len(entries))
	return nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	writeJSONLine(w, out)
	return nil
}
