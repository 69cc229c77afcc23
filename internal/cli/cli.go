// Package cli implements the contentscout command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
)

const usage = `contentscout - agentic content-marketing research

Usage:
  contentscout run -url <site> [flags]    research a prospect's blog
  contentscout reports [-limit N]         list stored reports
  contentscout costs -user <id> [-limit N]  list cost entries for a user
  contentscout help                       show this message

Run flags:
  -url URL            prospect site or blog URL (required)
  -name NAME          prospect company name
  -competitor URL     competitor blog URL (repeatable)
  -industry TEXT      prospect industry
  -notes TEXT         extra context for the researcher
  -config PATH        JSON limits file (merged over defaults)
  -entity ID          entity id to store the report under
  -user ID            user id to log costs against
  -parallel           dispatch tool calls concurrently
  -verbose            emit progress events to stderr

Environment:
  OPENAI_API_KEY            required for run
  OPENAI_BASE_URL           override the completion endpoint
  CONTENTSCOUT_STATE        sqlite | redis | none (default none)
  CONTENTSCOUT_SQLITE_PATH  sqlite file path (default contentscout.db)
  CONTENTSCOUT_REDIS_ADDR   redis address (default localhost:6379)
  CONTENTSCOUT_MODEL, CONTENTSCOUT_MAX_ITERATIONS, CONTENTSCOUT_COST_CAP_USD,
  CONTENTSCOUT_FEED_TIMEOUT_SEC, CONTENTSCOUT_PAGE_TIMEOUT_SEC,
  CONTENTSCOUT_PAGE_TRUNCATE_CHARS, CONTENTSCOUT_MAX_POSTS
                            override individual limits
`

// Run dispatches to a subcommand. Output goes to stdout, diagnostics
// and progress to stderr.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("a subcommand is required")
	}
	switch args[0] {
	case "run":
		return runResearch(ctx, args[1:], os.Stdout, os.Stderr)
	case "reports":
		return runReports(ctx, args[1:], os.Stdout)
	case "costs":
		return runCosts(ctx, args[1:], os.Stdout)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func writeJSONLine(w io.Writer, data []byte) {
	w.Write(data)
	io.WriteString(w, "\n")
}
