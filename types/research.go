package types

import "time"

// DiscoveryItem is one post found by the discovery chain. Date keeps
// whatever string the source exposed; the frequency estimator parses it
// best-effort.
type DiscoveryItem struct {
	Title   string `json:"title"`
	Date    string `json:"date,omitempty"`
	URL     string `json:"url,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
	Author  string `json:"author,omitempty"`
}

// DiscoveryResult is the browse_blog tool payload. Immutable once
// returned; a fresh value is produced per invocation.
type DiscoveryResult struct {
	Success       bool            `json:"success"`
	CanonicalURL  string          `json:"canonicalUrl,omitempty"`
	Items         []DiscoveryItem `json:"items,omitempty"`
	PostsPerMonth float64         `json:"postsPerMonth"`
	TotalFound    int             `json:"totalFound"`
	FeedUsed      bool            `json:"feedUsed"`
	Error         string          `json:"error,omitempty"`
}

// PageContent is the scrape_page tool payload.
type PageContent struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

type PostRef struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	URL   string `json:"url,omitempty"`
}

type BlogSnapshot struct {
	BlogURL       string    `json:"blogUrl"`
	PostsPerMonth float64   `json:"postsPerMonth"`
	RecentTopics  []string  `json:"recentTopics"`
	ContentTypes  []string  `json:"contentTypes"`
	RecentPosts   []PostRef `json:"recentPosts"`
}

type CompetitorSnapshot struct {
	CompanyName      string   `json:"companyName"`
	BlogURL          string   `json:"blogUrl"`
	PostsPerMonth    float64  `json:"postsPerMonth"`
	RecentTopics     []string `json:"recentTopics"`
	NotableStrengths string   `json:"notableStrengths"`
}

// FinalAnswer is the schema-validated structured answer the model must
// produce, as a bare JSON object with no markdown fencing.
type FinalAnswer struct {
	OfferParagraph        string               `json:"offerParagraph"`
	InternalJustification string               `json:"internalJustification"`
	CompanyBlogSnapshot   BlogSnapshot         `json:"companyBlogSnapshot"`
	CompetitorSnapshots   []CompetitorSnapshot `json:"competitorSnapshots"`
}

// CostRecord accounts one completion-service round-trip.
type CostRecord struct {
	Model         string  `json:"model"`
	InputTokens   int     `json:"inputTokens"`
	OutputTokens  int     `json:"outputTokens"`
	InputCostUSD  float64 `json:"inputCostUsd"`
	OutputCostUSD float64 `json:"outputCostUsd"`
	TotalCostUSD  float64 `json:"totalCostUsd"`
}

type CostInfo struct {
	TotalCost      float64      `json:"totalCost"`
	TotalTokens    int          `json:"totalTokens"`
	IterationCosts []CostRecord `json:"iterationCosts"`
}

// ResearchResult is what the loop hands back to its caller: either a
// validated answer or a structured failure, always with accounting.
type ResearchResult struct {
	Success               bool                 `json:"success"`
	OfferParagraph        string               `json:"offerParagraph"`
	InternalJustification string               `json:"internalJustification"`
	CompanyBlogSnapshot   BlogSnapshot         `json:"companyBlogSnapshot"`
	CompetitorSnapshots   []CompetitorSnapshot `json:"competitorSnapshots"`
	CompetitorsAnalyzed   int                  `json:"competitorsAnalyzed"`
	AgentIterations       int                  `json:"agentIterations"`
	ToolCallsCount        int                  `json:"toolCallsCount"`
	CostInfo              CostInfo             `json:"costInfo"`
	GeneratedAt           string               `json:"generatedAt"`
	Model                 string               `json:"model"`
}

func (r *ResearchResult) Stamp(now time.Time) {
	r.GeneratedAt = now.UTC().Format(time.RFC3339)
}
