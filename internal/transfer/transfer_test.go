package transfer_test

import (
	"context"
	"testing"

	"github.com/pesworks/squadsync/internal/transfer"
	"github.com/pesworks/squadsync/internal/webclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	records map[string][]transfer.Record
	errs    map[string]error
}

func (s *stubSource) FetchTransfers(_ context.Context, competition string) ([]transfer.Record, error) {
	if err, ok := s.errs[competition]; ok {
		return nil, err
	}

	return s.records[competition], nil
}

func rec(player, from, to, competition string) transfer.Record {
	return transfer.Record{
		PlayerName:      player,
		FromClub:        from,
		ToClub:          to,
		CompetitionCode: competition,
		TransferDate:    "2026-07-01",
	}
}

func TestFetchAll_MergesAndSorts(t *testing.T) {
	source := &stubSource{
		records: map[string][]transfer.Record{
			"SA": {rec("Zidane", "Juventus", "Real Madrid", "SA")},
			"PL": {
				rec("Kane", "Spurs", "Bayern", "PL"),
				rec("Bellingham", "Dortmund", "Real Madrid", "PL"),
			},
		},
	}

	records, failures := transfer.NewManager(source).FetchAll(context.Background(), []string{"PL", "SA"})

	require.Empty(t, failures)
	require.Len(t, records, 3)

	assert.Equal(t, "Bellingham", records[0].PlayerName)
	assert.Equal(t, "Kane", records[1].PlayerName)
	assert.Equal(t, "Zidane", records[2].PlayerName)
}

func TestFetchAll_DropsDuplicates(t *testing.T) {
	source := &stubSource{
		records: map[string][]transfer.Record{
			"PL": {
				rec("Kane", "Spurs", "Bayern", "PL"),
				rec("Kane", "Spurs", "Bayern", "PL"),
			},
		},
	}

	records, failures := transfer.NewManager(source).FetchAll(context.Background(), []string{"PL"})

	require.Empty(t, failures)
	assert.Len(t, records, 1)
}

func TestFetchAll_FailedCompetitionDoesNotAbortBatch(t *testing.T) {
	fetchErr := &webclient.FetchError{URL: "https://api.example.com/competitions/SA/transfers", StatusCode: 500}

	source := &stubSource{
		records: map[string][]transfer.Record{
			"PL": {rec("Kane", "Spurs", "Bayern", "PL")},
		},
		errs: map[string]error{"SA": fetchErr},
	}

	records, failures := transfer.NewManager(source).FetchAll(context.Background(), []string{"PL", "SA"})

	require.Len(t, records, 1)
	assert.Equal(t, "Kane", records[0].PlayerName)

	require.Len(t, failures, 1)
	assert.Same(t, fetchErr, failures["SA"])
}

func TestFetchAll_AllCompetitionsFail(t *testing.T) {
	source := &stubSource{
		errs: map[string]error{
			"PL": &webclient.FetchError{URL: "https://api.example.com", StatusCode: 503},
			"SA": &webclient.FetchError{URL: "https://api.example.com", StatusCode: 503},
		},
	}

	records, failures := transfer.NewManager(source).FetchAll(context.Background(), []string{"PL", "SA"})

	assert.Empty(t, records)
	assert.Len(t, failures, 2)
}
