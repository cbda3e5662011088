// Package pesmaster locates team logo and kit images on pesmaster.com
// team pages.
package pesmaster

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/pesworks/squadsync/internal/assets"
	"github.com/pesworks/squadsync/internal/logctx"
	"github.com/pesworks/squadsync/internal/webclient"
)

const (
	teamLinkSelector = `a[href*="/team/"]`
	logoSelector     = "img.team-logo"
	kitSelector      = "img.kit"
)

type Client struct {
	baseURL *url.URL
	http    *resty.Client
}

func NewClient(baseURL string, httpClient *resty.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid scrape base url %q: %w", baseURL, err)
	}

	return &Client{baseURL: u, http: httpClient}, nil
}

// SearchTeam finds the team page URL for a team name via the site search.
// The first team link on the results page wins.
func (c *Client) SearchTeam(ctx context.Context, teamName string) (string, error) {
	logger := logctx.LoggerFromContext(ctx).With("team", teamName)

	searchURL := fmt.Sprintf("%s/search/?q=%s", c.baseURL, url.QueryEscape(teamName))

	doc, err := c.fetchDocument(ctx, searchURL)
	if err != nil {
		return "", err
	}

	href, ok := doc.Find(teamLinkSelector).First().Attr("href")
	if !ok {
		return "", &assets.AssetNotFoundError{TeamName: teamName}
	}

	teamURL, err := c.resolve(href)
	if err != nil {
		return "", &webclient.ParseError{URL: searchURL, Reason: "team link is not a valid URL", Err: err}
	}

	logger.Debug("found team page", "team_url", teamURL)

	return teamURL, nil
}

// LocateAssets collects logo and kit candidates from a team page, in
// document order, with declared widths when the page states them.
func (c *Client) LocateAssets(ctx context.Context, teamURL string) (*assets.TeamPage, error) {
	doc, err := c.fetchDocument(ctx, teamURL)
	if err != nil {
		return nil, err
	}

	page := &assets.TeamPage{
		Logos: c.collectCandidates(doc, logoSelector),
		Kits:  c.collectCandidates(doc, kitSelector),
	}

	return page, nil
}

func (c *Client) collectCandidates(doc *goquery.Document, selector string) []assets.Candidate {
	var candidates []assets.Candidate

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return
		}

		abs, err := c.resolve(src)
		if err != nil {
			return
		}

		width := 0
		if w, ok := sel.Attr("width"); ok {
			width, _ = strconv.Atoi(w)
		}

		candidates = append(candidates, assets.Candidate{URL: abs, Width: width})
	})

	return candidates
}

func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		return nil, &webclient.FetchError{URL: pageURL, Err: err}
	}

	if !resp.IsSuccess() {
		return nil, &webclient.FetchError{
			URL:        pageURL,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected status %s", resp.Status()),
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, &webclient.ParseError{URL: pageURL, Reason: "response body is not parseable HTML", Err: err}
	}

	return doc, nil
}

func (c *Client) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}

	return c.baseURL.ResolveReference(ref).String(), nil
}
