// Package footballdata is the football-data.org v4 API client.
package footballdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pesworks/squadsync/internal/logctx"
	"github.com/pesworks/squadsync/internal/transfer"
	"github.com/pesworks/squadsync/internal/webclient"
)

const authHeader = "X-Auth-Token"

type Client struct {
	baseURL string
	apiKey  string
	http    *resty.Client
}

func NewClient(baseURL, apiKey string, httpClient *resty.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

type transfersResponse struct {
	Transfers []transferEntry `json:"transfers"`
}

type transferEntry struct {
	Player struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"player"`
	TransferFrom struct {
		Name string `json:"name"`
	} `json:"transferFrom"`
	TransferTo struct {
		Name string `json:"name"`
	} `json:"transferTo"`
	Date string `json:"date"`
	Fee  *struct {
		Value int64 `json:"value"`
	} `json:"fee"`
}

// FetchTransfers implements transfer.Source for football-data.org. The
// retry budget lives in the injected resty client; once it is exhausted the
// last response (or transport error) surfaces as a *webclient.FetchError.
func (c *Client) FetchTransfers(ctx context.Context, competition string) ([]transfer.Record, error) {
	logger := logctx.LoggerFromContext(ctx).With("competition", competition)

	url := fmt.Sprintf("%s/competitions/%s/transfers", c.baseURL, competition)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(authHeader, c.apiKey).
		Get(url)
	if err != nil {
		return nil, &webclient.FetchError{URL: url, Err: err}
	}

	if !resp.IsSuccess() {
		return nil, &webclient.FetchError{
			URL:        url,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected status %s", resp.Status()),
		}
	}

	var body transfersResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &webclient.ParseError{
			URL:    url,
			Reason: "response body is not valid transfer JSON",
			Err:    err,
		}
	}

	records := make([]transfer.Record, 0, len(body.Transfers))

	for _, entry := range body.Transfers {
		if entry.Player.Name == "" {
			logger.Warn("skipping transfer entry without player name", "player_id", entry.Player.ID)

			continue
		}

		record := transfer.Record{
			PlayerName:      entry.Player.Name,
			FromClub:        entry.TransferFrom.Name,
			ToClub:          entry.TransferTo.Name,
			CompetitionCode: competition,
			TransferDate:    entry.Date,
		}

		if entry.Fee != nil {
			fee := entry.Fee.Value
			record.Fee = &fee
		}

		records = append(records, record)
	}

	return records, nil
}
