package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/vigil/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

// Store persists the live guidance generation in a SQLite file so the
// knowledge base survives restarts.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.vigil/data/guidance.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".vigil", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "guidance.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// GuidanceStore returns a GuidanceStore interface backed by this store.
// Closing it closes the store.
func (s *Store) GuidanceStore() driven.GuidanceStore {
	return &guidanceStore{store: s}
}

// migrate applies every NNN_name.up.sql in fsys newer than the recorded
// schema version, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	slices.Sort(names)

	for _, name := range names {
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= current {
			continue
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(body)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) apply(version int, body string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(body); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// guidanceStore implements driven.GuidanceStore.
type guidanceStore struct {
	store *Store
}

var _ driven.GuidanceStore = (*guidanceStore)(nil)

// SaveGeneration stores a generation and prunes older ones in one transaction.
func (g *guidanceStore) SaveGeneration(ctx context.Context, gen *domain.GuidanceGeneration) error {
	if gen == nil {
		return domain.ErrInvalidInput
	}
	titlesJSON, err := json.Marshal(gen.Titles)
	if err != nil {
		return fmt.Errorf("marshalling titles: %w", err)
	}

	tx, err := g.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Only the live generation is kept; sections cascade.
	if _, err := tx.ExecContext(ctx, "DELETE FROM guidance_generations"); err != nil {
		return fmt.Errorf("pruning generations: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO guidance_generations (id, titles, embedding_model, embedding_dimensions)
		VALUES (?, ?, ?, ?)`, gen.ID, string(titlesJSON), gen.EmbeddingModel, gen.EmbeddingDimensions); err != nil {
		return fmt.Errorf("inserting generation: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO guidance_sections
			(generation_id, position, id, document_title, heading, category, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing section insert: %w", err)
	}
	defer stmt.Close()

	for i, sec := range gen.Sections {
		if _, err := stmt.ExecContext(ctx, gen.ID, i, sec.ID, sec.DocumentTitle, sec.Heading,
			sec.Category, sec.Text, float32SliceToBytes(sec.Embedding)); err != nil {
			return fmt.Errorf("inserting section %s: %w", sec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing generation: %w", err)
	}
	return nil
}

// LoadLatest returns the newest generation with its sections in order.
func (g *guidanceStore) LoadLatest(ctx context.Context) (*domain.GuidanceGeneration, error) {
	var gen domain.GuidanceGeneration
	var titlesJSON string
	err := g.store.db.QueryRowContext(ctx,
		`SELECT id, titles, embedding_model, embedding_dimensions
		FROM guidance_generations ORDER BY id DESC LIMIT 1`).
		Scan(&gen.ID, &titlesJSON, &gen.EmbeddingModel, &gen.EmbeddingDimensions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying generation: %w", err)
	}
	if err := json.Unmarshal([]byte(titlesJSON), &gen.Titles); err != nil {
		return nil, fmt.Errorf("unmarshalling titles: %w", err)
	}

	rows, err := g.store.db.QueryContext(ctx, `
		SELECT id, document_title, heading, category, text, embedding
		FROM guidance_sections
		WHERE generation_id = ?
		ORDER BY position`, gen.ID)
	if err != nil {
		return nil, fmt.Errorf("querying sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sec domain.GuidanceSection
		var embedding []byte
		if err := rows.Scan(&sec.ID, &sec.DocumentTitle, &sec.Heading, &sec.Category, &sec.Text, &embedding); err != nil {
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		sec.Embedding = bytesToFloat32Slice(embedding)
		gen.Sections = append(gen.Sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sections: %w", err)
	}
	return &gen, nil
}

// Close closes the underlying store.
func (g *guidanceStore) Close() error {
	return g.store.Close()
}

// float32SliceToBytes converts []float32 to little-endian bytes.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
