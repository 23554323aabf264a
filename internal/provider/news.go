package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

// DefaultNewsBaseURL is the public NewsAPI endpoint.
const DefaultNewsBaseURL = "https://newsapi.org/v2"

// Sentiment label thresholds: scores above/below this margin are labelled
// positive/negative, anything between is neutral.
const sentimentMargin = 0.2

// positiveWords and negativeWords form the lexicon used for headline
// scoring. Intentionally small; this is a coarse signal, not NLP.
var (
	positiveWords = []string{
		"success", "successful", "milestone", "record", "breakthrough",
		"historic", "achievement", "win", "soar", "growth", "on track",
	}
	negativeWords = []string{
		"failure", "failed", "delay", "delayed", "scrub", "scrubbed",
		"explosion", "anomaly", "loss", "crash", "setback", "abort",
	}
)

// Headline is a single scored article.
type Headline struct {
	// Title is the article title.
	Title string `json:"title"`
	// Source is the publishing outlet.
	Source string `json:"source"`
	// PublishedAt is the publication timestamp as reported upstream.
	PublishedAt string `json:"published_at"`
	// Score is the lexicon sentiment score of this headline.
	Score float64 `json:"score"`
}

// Sentiment aggregates headline sentiment for a mission.
type Sentiment struct {
	// Score is the mean headline score in [-1, 1].
	Score float64 `json:"score"`
	// Label is positive, negative or neutral.
	Label string `json:"label"`
	// Headlines are the scored articles, most recent first as returned
	// by the API.
	Headlines []Headline `json:"headlines"`
}

// News fetches mission-related headlines and scores their sentiment.
// It depends on the launch capability for the mission name.
type News struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// NewNews creates a news provider against the public API.
func NewNews(apiKey string) *News {
	return NewNewsWith(DefaultNewsBaseURL, apiKey, newHTTPClient())
}

// NewNewsWith creates a news provider with an explicit base URL and
// client, primarily for tests.
func NewNewsWith(baseURL, apiKey string, hc *http.Client) *News {
	return &News{baseURL: baseURL, apiKey: apiKey, hc: hc}
}

// ID implements Provider.
func (n *News) ID() string { return "news" }

// RequiredInputs implements Provider.
func (n *News) RequiredInputs() []string { return []string{KeyLaunchData} }

// ProducedOutputs implements Provider.
func (n *News) ProducedOutputs() []string { return []string{KeyNewsSentiment} }

// CanProcess implements Provider.
func (n *News) CanProcess(c models.Context) bool { return hasInputs(n, c) }

// apiArticles mirrors the fields we read from /everything.
type apiArticles struct {
	Articles []struct {
		Title  string `json:"title"`
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Invoke searches for headlines about the upcoming mission and emits
// news_sentiment.
func (n *News) Invoke(ctx context.Context, c models.Context) (map[string]any, error) {
	if n.apiKey == "" {
		return nil, &Error{Capability: n.ID(), Err: fmt.Errorf("NewsAPI key not configured")}
	}

	query := "spacex launch"
	if raw, ok := c.Value(KeyLaunchData); ok {
		if info, ok := raw.(LaunchInfo); ok && info.Name != "" {
			query = "spacex " + info.Name
		}
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", "10")
	q.Set("language", "en")
	q.Set("apiKey", n.apiKey)

	var resp apiArticles
	if err := getJSON(ctx, n.hc, n.baseURL+"/everything?"+q.Encode(), &resp); err != nil {
		return nil, &Error{Capability: n.ID(), Err: err}
	}

	s := Sentiment{Headlines: make([]Headline, 0, len(resp.Articles))}
	var total float64
	for _, a := range resp.Articles {
		score := scoreHeadline(a.Title)
		total += score
		s.Headlines = append(s.Headlines, Headline{
			Title:       a.Title,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
			Score:       score,
		})
	}
	if len(s.Headlines) > 0 {
		s.Score = total / float64(len(s.Headlines))
	}
	s.Label = SentimentLabel(s.Score)

	return map[string]any{KeyNewsSentiment: s}, nil
}

// scoreHeadline counts lexicon hits and normalizes to [-1, 1].
func scoreHeadline(title string) float64 {
	lower := strings.ToLower(title)
	var hits, score float64
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			hits++
			score++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			hits++
			score--
		}
	}
	if hits == 0 {
		return 0
	}
	return score / hits
}

// SentimentLabel maps a score to positive, negative or neutral.
func SentimentLabel(score float64) string {
	switch {
	case score > sentimentMargin:
		return "positive"
	case score < -sentimentMargin:
		return "negative"
	default:
		return "neutral"
	}
}
