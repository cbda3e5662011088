package pesmaster_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pesworks/squadsync/internal/assets"
	"github.com/pesworks/squadsync/internal/assets/pesmaster"
	"github.com/pesworks/squadsync/internal/webclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResultsHTML = `<html><body>
	<div class="search-results">
		<a href="/player/123/">Some Player</a>
		<a href="/pes-2021/team/101/">Arsenal</a>
		<a href="/pes-2021/team/102/">Arsenal Women</a>
	</div>
</body></html>`

const teamPageHTML = `<html><body>
	<img class="team-logo" src="/img/arsenal-logo-64.png" width="64">
	<img class="team-logo" src="/img/arsenal-logo-256.png" width="256">
	<img class="kit" src="/img/arsenal-kit-home.png">
	<img class="kit" src="/img/arsenal-kit-away.png">
	<img class="banner" src="/img/unrelated.png">
</body></html>`

func testHTTPClient() *resty.Client {
	return webclient.New(time.Second, webclient.RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	})
}

func TestSearchTeam(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/", r.URL.Path)
		assert.Equal(t, "Arsenal", r.URL.Query().Get("q"))

		_, _ = w.Write([]byte(searchResultsHTML))
	}))
	defer ts.Close()

	client, err := pesmaster.NewClient(ts.URL, testHTTPClient())
	require.NoError(t, err)

	teamURL, err := client.SearchTeam(context.Background(), "Arsenal")
	require.NoError(t, err)

	// first team link wins, player links don't count
	assert.Equal(t, ts.URL+"/pes-2021/team/101/", teamURL)
}

func TestSearchTeam_NoTeamLink(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>No results.</p></body></html>`))
	}))
	defer ts.Close()

	client, err := pesmaster.NewClient(ts.URL, testHTTPClient())
	require.NoError(t, err)

	_, err = client.SearchTeam(context.Background(), "Ghost United")

	var notFound *assets.AssetNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Ghost United", notFound.TeamName)
	assert.Empty(t, notFound.AssetType)
}

func TestSearchTeam_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client, err := pesmaster.NewClient(ts.URL, testHTTPClient())
	require.NoError(t, err)

	_, err = client.SearchTeam(context.Background(), "Arsenal")

	var fetchErr *webclient.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
}

func TestLocateAssets(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(teamPageHTML))
	}))
	defer ts.Close()

	client, err := pesmaster.NewClient(ts.URL, testHTTPClient())
	require.NoError(t, err)

	page, err := client.LocateAssets(context.Background(), ts.URL+"/pes-2021/team/101/")
	require.NoError(t, err)

	require.Len(t, page.Logos, 2)
	assert.Equal(t, ts.URL+"/img/arsenal-logo-64.png", page.Logos[0].URL)
	assert.Equal(t, 64, page.Logos[0].Width)
	assert.Equal(t, ts.URL+"/img/arsenal-logo-256.png", page.Logos[1].URL)
	assert.Equal(t, 256, page.Logos[1].Width)

	require.Len(t, page.Kits, 2)
	assert.Equal(t, ts.URL+"/img/arsenal-kit-home.png", page.Kits[0].URL)
	assert.Equal(t, 0, page.Kits[0].Width) // page declares no width
}

func TestLocateAssets_EmptyPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	defer ts.Close()

	client, err := pesmaster.NewClient(ts.URL, testHTTPClient())
	require.NoError(t, err)

	page, err := client.LocateAssets(context.Background(), ts.URL+"/pes-2021/team/101/")
	require.NoError(t, err)

	assert.Empty(t, page.Logos)
	assert.Empty(t, page.Kits)
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := pesmaster.NewClient("://not-a-url", testHTTPClient())
	assert.Error(t, err)
}
