package agent

import (
	"fmt"
	"strings"
)

// ResearchRequest is the per-invocation context the user prompt is
// built from. Empty fields are omitted from the prompt entirely.
type ResearchRequest struct {
	CompanyName    string
	SiteURL        string
	CompetitorURLs []string
	Industry       string
	Notes          string
}

func (r ResearchRequest) validate() error {
	if strings.TrimSpace(r.SiteURL) == "" {
		return fmt.Errorf("site url is required")
	}
	return nil
}

const systemPrompt = `You are a content-marketing research analyst for a marketing agency.
Your job: analyze a prospect company's blog and its competitors' blogs, then draft a
personalized outreach offer grounded in what you found.

You have two tools:
- browse_blog(url): discovers a blog's recent posts and posting cadence (feed-first, scrape fallback).
- scrape_page(url): reads a single page as plain text when you need more detail.

Work method: browse the prospect's blog first, then each competitor blog. Use scrape_page
sparingly, only when a post or page needs a closer look. When you have enough evidence,
respond with your final answer.

The final answer MUST be a single bare JSON object - no markdown code fences, no prose
before or after - with exactly this shape:
{
  "offerParagraph": string,
  "internalJustification": string,
  "companyBlogSnapshot": {
    "blogUrl": string,
    "postsPerMonth": number,
    "recentTopics": [string],
    "contentTypes": [string],
    "recentPosts": [{"title": string, "date": string, "url": string}]
  },
  "competitorSnapshots": [
    {"companyName": string, "blogUrl": string, "postsPerMonth": number,
     "recentTopics": [string], "notableStrengths": string}
  ]
}`

// buildUserPrompt renders only the non-empty request fields; an absent
// field is omitted, never rendered as an empty placeholder.
func buildUserPrompt(req ResearchRequest) string {
	var sb strings.Builder
	sb.WriteString("Research the content marketing of this prospect.\n")
	if name := strings.TrimSpace(req.CompanyName); name != "" {
		fmt.Fprintf(&sb, "Company: %s\n", name)
	}
	fmt.Fprintf(&sb, "Website: %s\n", strings.TrimSpace(req.SiteURL))
	if len(req.CompetitorURLs) > 0 {
		sb.WriteString("Competitor sites:\n")
		for _, u := range req.CompetitorURLs {
			if u = strings.TrimSpace(u); u != "" {
				fmt.Fprintf(&sb, "- %s\n", u)
			}
		}
	}
	if industry := strings.TrimSpace(req.Industry); industry != "" {
		fmt.Fprintf(&sb, "Industry: %s\n", industry)
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		fmt.Fprintf(&sb, "Additional context: %s\n", notes)
	}
	return sb.String()
}

// buildRepairPrompt quotes the validation error and restates the
// output contract after the model produced malformed output.
func buildRepairPrompt(validationErr error) string {
	return fmt.Sprintf(
		"Your previous answer failed validation: %v.\n"+
			"Respond again with ONLY the required JSON object - a bare, fence-free JSON object "+
			"with all required fields (offerParagraph, internalJustification, companyBlogSnapshot, "+
			"competitorSnapshots). Do not wrap it in markdown code fences and do not add any other text.",
		validationErr,
	)
}
