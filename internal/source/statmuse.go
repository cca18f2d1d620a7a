package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"statguard/internal/config"
	"statguard/internal/model"
)

type Client struct {
	http   *http.Client
	logger *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	return &Client{http: &http.Client{}, logger: logger}
}

// NewClientWithHTTP lets callers supply their own transport.
func NewClientWithHTTP(hc *http.Client, logger *slog.Logger) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{http: hc, logger: logger}
}

// Slug lower-cases a name and joins its words with "-".
func Slug(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

// URL builds the game-log address for q under cfg.
func URL(cfg config.SourceConfig, q model.Query) string {
	tmpl := cfg.FullGamePath
	if q.Mode == model.ModeFirstQuarter {
		tmpl = cfg.FirstQuarterPath
	}
	path := fmt.Sprintf(tmpl, Slug(q.Player))
	if q.Opponent != "" {
		path += "-vs-" + Slug(q.Opponent)
	}
	return strings.TrimRight(cfg.BaseURL, "/") + "/" + path
}

// Fetch downloads the game-log page for q and extracts its first table.
func (c *Client) Fetch(ctx context.Context, cfg config.SourceConfig, q model.Query) (model.Table, error) {
	url := URL(cfg, q)
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Table{}, fmt.Errorf("%w: %v", model.ErrFetchFailed, err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return model.Table{}, fmt.Errorf("%w: %v", model.ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.Table{}, fmt.Errorf("%w: status %d", model.ErrFetchFailed, resp.StatusCode)
	}
	var body io.Reader = resp.Body
	if cfg.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, cfg.MaxBodyBytes)
	}
	table, err := ExtractTable(body)
	if err != nil {
		return model.Table{}, err
	}
	if c.logger != nil {
		c.logger.Debug("fetched game log", "url", url, "rows", len(table.Rows))
	}
	return table, nil
}

// ExtractTable reads the first <table> in the document. Header cells come from
// the first row holding <th>; body rows are the following rows with a <td>.
func ExtractTable(r io.Reader) (model.Table, error) {
	root, err := html.Parse(r)
	if err != nil {
		return model.Table{}, fmt.Errorf("%w: %v", model.ErrFetchFailed, err)
	}
	doc := goquery.NewDocumentFromNode(root)
	sel := doc.Find("table").First()
	if sel.Length() == 0 {
		return model.Table{}, fmt.Errorf("no table in page: %w", model.ErrNoData)
	}
	var table model.Table
	headerSeen := false
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !headerSeen {
			th := tr.Find("th")
			if th.Length() == 0 {
				return
			}
			headerSeen = true
			th.Each(func(_ int, cell *goquery.Selection) {
				table.Header = append(table.Header, cellText(cell))
			})
			return
		}
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}
		row := make([]string, 0, tr.Children().Length())
		tr.Children().Each(func(_ int, cell *goquery.Selection) {
			if goquery.NodeName(cell) == "td" || goquery.NodeName(cell) == "th" {
				row = append(row, cellText(cell))
			}
		})
		table.Rows = append(table.Rows, row)
	})
	return table, nil
}

func cellText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
