package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	// 注册 modernc SQLite 驱动
	_ "modernc.org/sqlite"

	"spamstat/pkg/contract"
)

// Options 为 SQLite 结果库的可选配置。
type Options struct {
	// Path: 数据库文件路径，或 ":memory:"（必需）。
	Path string `json:"path"`
	// BusyTimeoutMS: busy_timeout，<=0 使用 5000。
	BusyTimeoutMS int `json:"busy_timeout_ms"`
}

// Store 将每次运行的汇总写入 runs/class_stats/frequencies 三张表。
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	labels     TEXT NOT NULL,
	ignored    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS class_stats (
	run_id             TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	label              TEXT NOT NULL,
	position           INTEGER NOT NULL,
	records            INTEGER NOT NULL,
	empty_records      INTEGER NOT NULL,
	tokens             INTEGER NOT NULL,
	distinct_stems     INTEGER NOT NULL,
	avg_stem_length    REAL,
	avg_message_length REAL,
	note               TEXT,
	PRIMARY KEY (run_id, label)
);

CREATE TABLE IF NOT EXISTS frequencies (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	label  TEXT NOT NULL,
	rank   INTEGER NOT NULL,
	stem   TEXT NOT NULL,
	count  INTEGER NOT NULL,
	PRIMARY KEY (run_id, label, stem)
);

CREATE INDEX IF NOT EXISTS idx_frequencies_rank ON frequencies(run_id, label, rank);
`

// buildDSN: 文件库开启 WAL；内存库使用共享缓存以便连接池内共享。
func buildDSN(path string, busyMS int) string {
	if busyMS <= 0 {
		busyMS = 5000
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(ON)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyMS))
	if path == ":memory:" {
		return "file::memory:?cache=shared&" + q.Encode()
	}
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

// New 打开数据库并建表。
func New(ctx context.Context, opts *Options) (*Store, error) {
	if opts == nil || strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("%w: sqlite path required", contract.ErrInvalidInput)
	}
	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", buildDSN(opts.Path, opts.BusyTimeoutMS))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// 单写者，避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

var _ contract.Store = (*Store)(nil)

// DB 暴露底层连接（查询/测试用）。
func (s *Store) DB() *sql.DB { return s.db }

// Close 关闭数据库。
func (s *Store) Close() error { return s.db.Close() }

// Save 在单个事务中写入一次运行；失败整体回滚。
// frequencies.rank 为全量排序中的 1 起名次。
func (s *Store) Save(ctx context.Context, rep contract.Report) (err error) {
	if strings.TrimSpace(rep.RunID) == "" {
		return fmt.Errorf("%w: run id required", contract.ErrInvalidInput)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	labels := make([]string, len(rep.Labels))
	for i, l := range rep.Labels {
		labels[i] = string(l)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, labels, ignored, created_at) VALUES (?, ?, ?, ?)`,
		rep.RunID, strings.Join(labels, ","), rep.Ignored, s.now().UTC(),
	); err != nil {
		return fmt.Errorf("sqlite: insert run: %w", err)
	}

	statStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO class_stats (
			run_id, label, position, records, empty_records, tokens, distinct_stems,
			avg_stem_length, avg_message_length, note
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare class_stats: %w", err)
	}
	defer statStmt.Close()
	freqStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO frequencies (run_id, label, rank, stem, count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare frequencies: %w", err)
	}
	defer freqStmt.Close()

	for pos, c := range rep.Classes {
		if _, err = statStmt.ExecContext(ctx,
			rep.RunID, string(c.Label), pos, c.Records, c.EmptyRecords, c.Tokens, c.DistinctStems,
			nullFloat(c.AvgStemLength), nullFloat(c.AvgMessageLength), nullString(c.Note),
		); err != nil {
			return fmt.Errorf("sqlite: insert class %q: %w", c.Label, err)
		}
		for i, sc := range c.Sorted {
			if _, err = freqStmt.ExecContext(ctx, rep.RunID, string(c.Label), i+1, sc.Stem, sc.Count); err != nil {
				return fmt.Errorf("sqlite: insert frequency %q/%q: %w", c.Label, sc.Stem, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Top 读取某次运行某类别的前 n 个词干（n<=0 返回全部），按名次升序。
func (s *Store) Top(ctx context.Context, runID string, label contract.Label, n int) ([]contract.StemCount, error) {
	q := `SELECT stem, count FROM frequencies WHERE run_id = ? AND label = ? ORDER BY rank`
	args := []any{runID, string(label)}
	if n > 0 {
		q += ` LIMIT ?`
		args = append(args, n)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query frequencies: %w", err)
	}
	defer rows.Close()
	var out []contract.StemCount
	for rows.Next() {
		var sc contract.StemCount
		if err := rows.Scan(&sc.Stem, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
