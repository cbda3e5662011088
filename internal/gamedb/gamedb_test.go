package gamedb_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/pesworks/squadsync/internal/gamedb"
	"github.com/pesworks/squadsync/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squadCSV = "name,club,transfer_date,transfer_fee\n" +
	"Player A,Club X,,\n" +
	"Player B,Club X,,\n" +
	"Player C,Club Y,,\n"

func writeSquadFile(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "squad.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	return rows
}

func findRow(rows [][]string, player string) []string {
	for _, row := range rows[1:] {
		if row[0] == player {
			return row
		}
	}

	return nil
}

func TestApply_MovesPlayerAndBacksUpFirst(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeSquadFile(t, dir, squadCSV)
	backupDir := filepath.Join(dir, "backups")

	fee := int64(50000000)
	records := []transfer.Record{{
		PlayerName:      "Player A",
		FromClub:        "Club X",
		ToClub:          "Club Y",
		CompetitionCode: "PL",
		TransferDate:    "2026-07-01",
		Fee:             &fee,
	}}

	m := gamedb.NewManager(dbPath, backupDir)
	require.NoError(t, m.Apply(context.Background(), records))

	rows := readRows(t, dbPath)
	require.Len(t, rows, 4) // header + 3 players, a move never adds a row

	moved := findRow(rows, "Player A")
	require.NotNil(t, moved)
	assert.Equal(t, "Club Y", moved[1])
	assert.Equal(t, "2026-07-01", moved[2])
	assert.Equal(t, "50000000", moved[3])

	// untouched players keep their clubs
	assert.Equal(t, "Club X", findRow(rows, "Player B")[1])
	assert.Equal(t, "Club Y", findRow(rows, "Player C")[1])

	// exactly one timestamped backup holding the pre-mutation bytes
	backups, err := filepath.Glob(filepath.Join(backupDir, "*"))
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Regexp(t, regexp.MustCompile(`squad_backup_\d{8}_\d{6}\.csv$`), backups[0])

	backupContent, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, squadCSV, string(backupContent))
}

func TestApply_InsertsUnknownPlayer(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeSquadFile(t, dir, squadCSV)

	records := []transfer.Record{{
		PlayerName:      "New Signing",
		FromClub:        "Foreign Club",
		ToClub:          "Club X",
		CompetitionCode: "PL",
		TransferDate:    "2026-08-15",
	}}

	m := gamedb.NewManager(dbPath, filepath.Join(dir, "backups"))
	require.NoError(t, m.Apply(context.Background(), records))

	rows := readRows(t, dbPath)
	require.Len(t, rows, 5)

	added := findRow(rows, "New Signing")
	require.NotNil(t, added)
	assert.Equal(t, "Club X", added[1])
	assert.Equal(t, "2026-08-15", added[2])
	assert.Equal(t, "", added[3]) // no fee reported
}

func TestApply_UpdatesPlayerAlreadyAtDestination(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeSquadFile(t, dir, squadCSV)

	records := []transfer.Record{{
		PlayerName:      "Player C",
		FromClub:        "Somewhere Else",
		ToClub:          "Club Y",
		CompetitionCode: "PL",
		TransferDate:    "2026-07-10",
	}}

	m := gamedb.NewManager(dbPath, filepath.Join(dir, "backups"))
	require.NoError(t, m.Apply(context.Background(), records))

	rows := readRows(t, dbPath)
	require.Len(t, rows, 4)

	row := findRow(rows, "Player C")
	assert.Equal(t, "Club Y", row[1])
	assert.Equal(t, "2026-07-10", row[2])
}

func TestApply_AddsMissingBookkeepingColumns(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeSquadFile(t, dir, "name,club\nPlayer A,Club X\n")

	records := []transfer.Record{{
		PlayerName:   "Player A",
		FromClub:     "Club X",
		ToClub:       "Club Y",
		TransferDate: "2026-07-01",
	}}

	m := gamedb.NewManager(dbPath, filepath.Join(dir, "backups"))
	require.NoError(t, m.Apply(context.Background(), records))

	rows := readRows(t, dbPath)
	assert.Equal(t, []string{"name", "club", "transfer_date", "transfer_fee"}, rows[0])
	assert.Equal(t, []string{"Player A", "Club Y", "2026-07-01", ""}, rows[1])
}

func TestApply_BackupFailureLeavesLiveFileUntouched(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeSquadFile(t, dir, squadCSV)

	// a regular file where the backup dir should be forces the backup to fail
	backupDir := filepath.Join(dir, "backups")
	require.NoError(t, os.WriteFile(backupDir, []byte("not a directory"), 0o644))

	records := []transfer.Record{{
		PlayerName: "Player A",
		FromClub:   "Club X",
		ToClub:     "Club Y",
	}}

	m := gamedb.NewManager(dbPath, backupDir)
	err := m.Apply(context.Background(), records)
	require.Error(t, err)

	var backupErr *gamedb.BackupError
	require.True(t, errors.As(err, &backupErr))

	content, readErr := os.ReadFile(dbPath)
	require.NoError(t, readErr)
	assert.Equal(t, squadCSV, string(content))

	// no stray temp files either
	leftovers, globErr := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, globErr)
	assert.Empty(t, leftovers)
}

func TestApply_NoRecordsIsANoOp(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeSquadFile(t, dir, squadCSV)
	backupDir := filepath.Join(dir, "backups")

	m := gamedb.NewManager(dbPath, backupDir)
	require.NoError(t, m.Apply(context.Background(), nil))

	content, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, squadCSV, string(content))

	_, err = os.Stat(backupDir)
	assert.True(t, os.IsNotExist(err))
}

func TestApply_MissingRequiredColumns(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no club column", "name,position\nPlayer A,GK\n"},
		{"no name column", "club,position\nClub X,GK\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			dbPath := writeSquadFile(t, dir, tt.content)

			m := gamedb.NewManager(dbPath, filepath.Join(dir, "backups"))
			err := m.Apply(context.Background(), []transfer.Record{{PlayerName: "Player A", ToClub: "Club Y"}})

			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), "missing"))
		})
	}
}

func TestApply_MissingSquadFile(t *testing.T) {
	dir := t.TempDir()

	m := gamedb.NewManager(filepath.Join(dir, "nope.csv"), filepath.Join(dir, "backups"))
	err := m.Apply(context.Background(), []transfer.Record{{PlayerName: "Player A", ToClub: "Club Y"}})

	require.Error(t, err)

	// nothing was created
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestApply_PreservesUnknownColumns(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeSquadFile(t, dir, "name,club,overall,transfer_date,transfer_fee\nPlayer A,Club X,91,,\n")

	records := []transfer.Record{{
		PlayerName:   "Player A",
		FromClub:     "Club X",
		ToClub:       "Club Y",
		TransferDate: "2026-07-01",
	}}

	m := gamedb.NewManager(dbPath, filepath.Join(dir, "backups"))
	require.NoError(t, m.Apply(context.Background(), records))

	rows := readRows(t, dbPath)
	assert.Equal(t, []string{"Player A", "Club Y", "91", "2026-07-01", ""}, rows[1])
}
