/*
Package library runs stored search queries against digital libraries and
records what they return.

arXiv is the only library wired in. Its export API answers with an Atom
feed; the total hit count comes from the OpenSearch extension element.
*/
package library

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/slrkit/slrkit/internal/storage"
	"github.com/slrkit/slrkit/internal/version"
	"go.uber.org/zap"
)

// ArxivName is the digital library name results are recorded under.
const ArxivName = "arXiv"

// ErrSearchFailed wraps transport and protocol failures.
var ErrSearchFailed = errors.New("library search failed")

// Page is one page of results from a library.
type Page struct {
	Total   int
	Results []storage.SearchResult
}

// Options configures an Arxiv client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Arxiv queries the arXiv export API.
type Arxiv struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewArxiv creates an arXiv client.
func NewArxiv(opts Options) *Arxiv {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://export.arxiv.org/api/query"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Arxiv{
		baseURL:    opts.BaseURL,
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger.Named("arxiv"),
	}
}

// BaseURL returns the endpoint the client queries.
func (a *Arxiv) BaseURL() string {
	return a.baseURL
}

type atomFeed struct {
	TotalResults int         `xml:"totalResults"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
	Authors []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
}

// Search fetches up to limit results for query starting at offset start.
func (a *Arxiv) Search(ctx context.Context, query string, start, limit int) (*Page, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrSearchFailed)
	}
	if limit <= 0 {
		limit = 25
	}

	params := url.Values{}
	params.Set("search_query", arxivQuery(query))
	params.Set("start", strconv.Itoa(start))
	params.Set("max_results", strconv.Itoa(limit))

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	a.logger.Debug("querying arXiv", zap.String("search_query", params.Get("search_query")))
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearchFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: malformed feed: %v", ErrSearchFailed, err)
	}

	page := &Page{Total: feed.TotalResults}
	for _, e := range feed.Entries {
		// arXiv reports query errors as a single entry titled "Error".
		if strings.TrimSpace(e.Title) == "Error" {
			return nil, fmt.Errorf("%w: %s", ErrSearchFailed, squash(e.Summary))
		}
		page.Results = append(page.Results, toResult(e))
	}
	return page, nil
}

func toResult(e atomEntry) storage.SearchResult {
	link := strings.TrimSpace(e.ID)
	for _, l := range e.Links {
		if l.Rel == "alternate" && l.Href != "" {
			link = l.Href
			break
		}
	}
	names := make([]string, 0, len(e.Authors))
	for _, au := range e.Authors {
		if n := squash(au.Name); n != "" {
			names = append(names, n)
		}
	}
	return storage.SearchResult{
		URL:      link,
		Title:    squash(e.Title),
		Authors:  strings.Join(names, "; "),
		Abstract: squash(e.Summary),
	}
}

// squash collapses the line breaks arXiv leaves inside titles and abstracts.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// arxivQuery rewrites a boolean query into arXiv's syntax: bare terms and
// quoted phrases get the all: field prefix and NOT becomes ANDNOT.
func arxivQuery(q string) string {
	var out []string
	for _, tok := range tokenize(q) {
		switch upper := strings.ToUpper(tok); {
		case tok == "(" || tok == ")":
			out = append(out, tok)
		case upper == "AND" || upper == "OR" || upper == "ANDNOT":
			out = append(out, upper)
		case upper == "NOT":
			out = append(out, "ANDNOT")
		case strings.Contains(tok, ":"):
			out = append(out, tok)
		default:
			out = append(out, "all:"+tok)
		}
	}
	return strings.Join(out, " ")
}

// tokenize splits on whitespace, keeping quoted phrases whole and
// parentheses as separate tokens.
func tokenize(q string) []string {
	var (
		tokens []string
		cur    strings.Builder
		quoted bool
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range q {
		switch {
		case r == '"':
			cur.WriteRune(r)
			if quoted {
				flush()
			}
			quoted = !quoted
		case quoted:
			cur.WriteRune(r)
		case r == '(' || r == ')':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
