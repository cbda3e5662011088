// Package gamedb applies normalized transfer records to the local squad
// database file using backup-then-write semantics: the live file is only
// mutated after a timestamped copy of it has been durably written.
package gamedb

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pesworks/squadsync/internal/logctx"
	"github.com/pesworks/squadsync/internal/transfer"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	backupTimeFormat = "20060102_150405"

	colName = "name"
	colClub = "club"
	colDate = "transfer_date"
	colFee  = "transfer_fee"
)

// Manager owns the squad database file. Single writer: callers never run
// two Apply calls concurrently.
type Manager struct {
	dbPath    string
	backupDir string
	now       func() time.Time
}

func NewManager(dbPath, backupDir string) *Manager {
	return &Manager{
		dbPath:    dbPath,
		backupDir: backupDir,
		now:       time.Now,
	}
}

// Apply updates the squad file with the given records. A player currently
// listed under the record's from-club moves to the to-club; otherwise the
// record upserts the player under the to-club. The order is strict:
// backup, mutate in memory, write to a temp path, rename, verify.
func (m *Manager) Apply(ctx context.Context, records []transfer.Record) error {
	logger := logctx.LoggerFromContext(ctx).With("squad_db", m.dbPath)

	if len(records) == 0 {
		logger.Info("no transfer records to apply")

		return nil
	}

	s, err := loadSquad(m.dbPath)
	if err != nil {
		return fmt.Errorf("failed to read squad database: %w", err)
	}

	backupPath, err := m.backupDatabase()
	if err != nil {
		return err
	}

	logger.Info("squad database backed up", "backup_path", backupPath)

	applied := s.apply(records)

	if err := m.writeSquad(s); err != nil {
		return err
	}

	if err := m.verify(s, records); err != nil {
		return err
	}

	logger.Info("squad database updated", "applied_count", applied, "row_count", len(s.rows))

	return nil
}

// backupDatabase copies the live file into the backup dir under a
// timestamped name and fsyncs the copy before returning. Backups are kept
// indefinitely.
func (m *Manager) backupDatabase() (string, error) {
	if err := os.MkdirAll(m.backupDir, dirPerm); err != nil {
		return "", &BackupError{Path: m.backupDir, Err: err}
	}

	ext := filepath.Ext(m.dbPath)
	base := strings.TrimSuffix(filepath.Base(m.dbPath), ext)
	backupPath := filepath.Join(m.backupDir, fmt.Sprintf("%s_backup_%s%s", base, m.now().Format(backupTimeFormat), ext))

	in, err := os.Open(m.dbPath)
	if err != nil {
		return "", &BackupError{Path: backupPath, Err: err}
	}
	defer in.Close()

	out, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return "", &BackupError{Path: backupPath, Err: err}
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(backupPath)

		return "", &BackupError{Path: backupPath, Err: err}
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(backupPath)

		return "", &BackupError{Path: backupPath, Err: err}
	}

	if err := out.Close(); err != nil {
		os.Remove(backupPath)

		return "", &BackupError{Path: backupPath, Err: err}
	}

	return backupPath, nil
}

// writeSquad writes to a temp file in the same directory and renames it
// over the live file so a failed write never leaves a half-written squad.
func (m *Manager) writeSquad(s *squad) error {
	tmp, err := os.CreateTemp(filepath.Dir(m.dbPath), filepath.Base(m.dbPath)+".tmp-*")
	if err != nil {
		return &WriteError{Path: m.dbPath, Reason: "failed to create temp file", Err: err}
	}

	w := csv.NewWriter(tmp)

	writeErr := w.Write(s.header)
	for _, row := range s.rows {
		if writeErr != nil {
			break
		}

		writeErr = w.Write(row)
	}

	if writeErr == nil {
		w.Flush()
		writeErr = w.Error()
	}

	if writeErr == nil {
		writeErr = tmp.Sync()
	}

	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		os.Remove(tmp.Name())

		return &WriteError{Path: m.dbPath, Reason: "failed to write temp file", Err: writeErr}
	}

	if err := os.Rename(tmp.Name(), m.dbPath); err != nil {
		os.Remove(tmp.Name())

		return &WriteError{Path: m.dbPath, Reason: "failed to replace squad file", Err: err}
	}

	return nil
}

// verify re-reads the written file and checks it structurally: same
// header, same row count, and every applied player listed under its
// destination club.
func (m *Manager) verify(expected *squad, records []transfer.Record) error {
	s, err := loadSquad(m.dbPath)
	if err != nil {
		return &WriteError{Path: m.dbPath, Reason: "post-write re-read failed", Err: err}
	}

	if len(s.header) != len(expected.header) {
		return &WriteError{Path: m.dbPath, Reason: "post-write verification failed: header mismatch"}
	}

	if len(s.rows) != len(expected.rows) {
		return &WriteError{
			Path:   m.dbPath,
			Reason: fmt.Sprintf("post-write verification failed: %d rows written, %d read back", len(expected.rows), len(s.rows)),
		}
	}

	for _, r := range records {
		if _, ok := s.index[squadKey(r.PlayerName, r.ToClub)]; !ok {
			return &WriteError{
				Path:   m.dbPath,
				Reason: fmt.Sprintf("post-write verification failed: %s not listed under %s", r.PlayerName, r.ToClub),
			}
		}
	}

	return nil
}

// squad is the in-memory form of the CSV file. Unknown columns are kept
// verbatim so rewrites never lose game data this tool doesn't understand.
type squad struct {
	header []string
	rows   [][]string

	nameIdx, clubIdx, dateIdx, feeIdx int

	index map[string]int // (name, club) -> row
}

func squadKey(name, club string) string {
	return name + "\x00" + club
}

func loadSquad(path string) (*squad, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("squad file %s has no header row", path)
	}

	s := &squad{
		header:  rows[0],
		rows:    rows[1:],
		nameIdx: -1,
		clubIdx: -1,
		dateIdx: -1,
		feeIdx:  -1,
	}

	for i, col := range s.header {
		switch strings.TrimSpace(strings.ToLower(col)) {
		case colName:
			s.nameIdx = i
		case colClub:
			s.clubIdx = i
		case colDate:
			s.dateIdx = i
		case colFee:
			s.feeIdx = i
		}
	}

	if s.nameIdx < 0 || s.clubIdx < 0 {
		return nil, fmt.Errorf("squad file %s is missing the %q or %q column", path, colName, colClub)
	}

	s.ensureColumns()
	s.reindex()

	return s, nil
}

// ensureColumns appends the transfer bookkeeping columns when the squad
// file predates them.
func (s *squad) ensureColumns() {
	if s.dateIdx < 0 {
		s.header = append(s.header, colDate)
		s.dateIdx = len(s.header) - 1
	}

	if s.feeIdx < 0 {
		s.header = append(s.header, colFee)
		s.feeIdx = len(s.header) - 1
	}

	for i, row := range s.rows {
		for len(row) < len(s.header) {
			row = append(row, "")
		}

		s.rows[i] = row
	}
}

func (s *squad) reindex() {
	s.index = make(map[string]int, len(s.rows))

	for i, row := range s.rows {
		s.index[squadKey(row[s.nameIdx], row[s.clubIdx])] = i
	}
}

// apply mutates the in-memory squad and returns how many records changed a
// row. Duplicate player/club pairs across fetch cycles simply overwrite.
func (s *squad) apply(records []transfer.Record) int {
	applied := 0

	for _, r := range records {
		fee := ""
		if r.Fee != nil {
			fee = strconv.FormatInt(*r.Fee, 10)
		}

		if i, ok := s.index[squadKey(r.PlayerName, r.FromClub)]; ok {
			delete(s.index, squadKey(r.PlayerName, r.FromClub))

			s.rows[i][s.clubIdx] = r.ToClub
			s.rows[i][s.dateIdx] = r.TransferDate
			s.rows[i][s.feeIdx] = fee
			s.index[squadKey(r.PlayerName, r.ToClub)] = i

			applied++

			continue
		}

		if i, ok := s.index[squadKey(r.PlayerName, r.ToClub)]; ok {
			s.rows[i][s.dateIdx] = r.TransferDate
			s.rows[i][s.feeIdx] = fee

			applied++

			continue
		}

		row := make([]string, len(s.header))
		row[s.nameIdx] = r.PlayerName
		row[s.clubIdx] = r.ToClub
		row[s.dateIdx] = r.TransferDate
		row[s.feeIdx] = fee

		s.rows = append(s.rows, row)
		s.index[squadKey(r.PlayerName, r.ToClub)] = len(s.rows) - 1

		applied++
	}

	return applied
}
