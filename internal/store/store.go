// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists index snapshots in a SQLite database so that
// indexes survive restarts without refitting.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/relevance-engine/internal/index"
	"github.com/pdiddy/relevance-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "relevance.db"
)

// ErrIndexNotFound is returned when no snapshot exists for a source.
var ErrIndexNotFound = errors.New("index not found")

// Store manages the index snapshot database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the snapshot database at dataDir/index/relevance.db
// and creates the schema if it does not exist.
func Open(dataDir string) (*Store, error) {
	dbDir := filepath.Join(dataDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS indexes (
			source TEXT PRIMARY KEY,
			built_at TEXT NOT NULL,
			ngram_min INTEGER NOT NULL,
			ngram_max INTEGER NOT NULL,
			terms TEXT NOT NULL,
			idf TEXT NOT NULL,
			components TEXT,
			document_count INTEGER NOT NULL,
			vocabulary_size INTEGER NOT NULL,
			svd_components INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS index_documents (
			source TEXT NOT NULL REFERENCES indexes(source) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			document_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (source, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_index_documents_id ON index_documents(document_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveIndex replaces the stored snapshot for the index's source in one
// transaction.
func (s *Store) SaveIndex(ctx context.Context, ix *index.Index) error {
	if ix == nil {
		return fmt.Errorf("save: nil index")
	}
	snap := ix.Snapshot()

	termsJSON, err := json.Marshal(snap.Terms)
	if err != nil {
		return fmt.Errorf("encoding terms: %w", err)
	}
	idfJSON, err := json.Marshal(snap.IDF)
	if err != nil {
		return fmt.Errorf("encoding idf: %w", err)
	}
	var components sql.NullString
	if len(snap.Components) > 0 {
		raw, err := json.Marshal(snap.Components)
		if err != nil {
			return fmt.Errorf("encoding components: %w", err)
		}
		components = sql.NullString{String: string(raw), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM indexes WHERE source = ?`, string(snap.Source)); err != nil {
		return fmt.Errorf("deleting old snapshot: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexes (source, built_at, ngram_min, ngram_max, terms, idf, components,
			document_count, vocabulary_size, svd_components)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(snap.Source), snap.BuiltAt.UTC().Format(time.RFC3339Nano),
		snap.NGramRange[0], snap.NGramRange[1],
		string(termsJSON), string(idfJSON), components,
		len(snap.Documents), len(snap.Terms), len(snap.Components),
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO index_documents (source, position, document_id, kind, payload) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range snap.Documents {
		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encoding document %s: %w", doc.DocumentID(), err)
		}
		if _, err := stmt.ExecContext(ctx, string(snap.Source), i, doc.DocumentID(), string(doc.Kind()), string(payload)); err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.DocumentID(), err)
		}
	}

	return tx.Commit()
}

// LoadIndex restores the snapshot for source. Embeddings are recomputed
// from the stored vocabulary and components.
func (s *Store) LoadIndex(ctx context.Context, source types.SourceType) (*index.Index, error) {
	var (
		builtAt, termsJSON, idfJSON string
		ngramMin, ngramMax          int
		components                  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT built_at, ngram_min, ngram_max, terms, idf, components FROM indexes WHERE source = ?`,
		string(source),
	).Scan(&builtAt, &ngramMin, &ngramMax, &termsJSON, &idfJSON, &components)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, source)
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot %s: %w", source, err)
	}

	snap := index.Snapshot{Source: source, NGramRange: [2]int{ngramMin, ngramMax}}
	if snap.BuiltAt, err = time.Parse(time.RFC3339Nano, builtAt); err != nil {
		return nil, fmt.Errorf("parsing built_at for %s: %w", source, err)
	}
	if err := json.Unmarshal([]byte(termsJSON), &snap.Terms); err != nil {
		return nil, fmt.Errorf("decoding terms for %s: %w", source, err)
	}
	if err := json.Unmarshal([]byte(idfJSON), &snap.IDF); err != nil {
		return nil, fmt.Errorf("decoding idf for %s: %w", source, err)
	}
	if components.Valid {
		if err := json.Unmarshal([]byte(components.String), &snap.Components); err != nil {
			return nil, fmt.Errorf("decoding components for %s: %w", source, err)
		}
	}

	if snap.Documents, err = s.loadDocuments(ctx, source); err != nil {
		return nil, err
	}
	return index.FromSnapshot(snap)
}

func (s *Store) loadDocuments(ctx context.Context, source types.SourceType) ([]types.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, payload FROM index_documents WHERE source = ? ORDER BY position`, string(source))
	if err != nil {
		return nil, fmt.Errorf("querying documents for %s: %w", source, err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var kind, payload string
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc, err := decodeDocument(types.SourceType(kind), []byte(payload))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func decodeDocument(kind types.SourceType, payload []byte) (types.Document, error) {
	var doc types.Document
	switch kind {
	case types.SourceConfluence:
		doc = &types.ConfluencePage{}
	case types.SourceJira:
		doc = &types.JiraIssue{}
	case types.SourceCode:
		doc = &types.CodeFile{}
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownSourceType, kind)
	}
	if err := json.Unmarshal(payload, doc); err != nil {
		return nil, fmt.Errorf("decoding %s document: %w", kind, err)
	}
	return doc, nil
}

// LoadAll restores every stored snapshot, keyed by source.
func (s *Store) LoadAll(ctx context.Context) (map[types.SourceType]*index.Index, error) {
	out := map[types.SourceType]*index.Index{}
	for _, st := range types.SourceTypes {
		ix, err := s.LoadIndex(ctx, st)
		if errors.Is(err, ErrIndexNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[st] = ix
	}
	return out, nil
}

// List reports statistics for every stored snapshot without restoring it.
func (s *Store) List(ctx context.Context) ([]types.IndexStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, built_at, document_count, vocabulary_size, svd_components FROM indexes`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	bySource := map[types.SourceType]types.IndexStats{}
	for rows.Next() {
		var (
			source, builtAt string
			st              types.IndexStats
		)
		if err := rows.Scan(&source, &builtAt, &st.DocumentCount, &st.VocabularySize, &st.SVDComponents); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		st.SourceType = types.SourceType(source)
		st.BuiltAt, _ = time.Parse(time.RFC3339Nano, builtAt)
		st.HasSVD = st.SVDComponents > 0
		st.FeatureCount = st.VocabularySize
		if st.HasSVD {
			st.FeatureCount = st.SVDComponents
		}
		bySource[st.SourceType] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []types.IndexStats
	for _, st := range types.SourceTypes {
		if stats, ok := bySource[st]; ok {
			out = append(out, stats)
		}
	}
	return out, nil
}

// DeleteIndex removes the snapshot for source.
func (s *Store) DeleteIndex(ctx context.Context, source types.SourceType) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM indexes WHERE source = ?`, string(source))
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", source, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", source, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, source)
	}
	return nil
}
