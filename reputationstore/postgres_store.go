package reputationstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rookdaemon/agora/internal/metrics"
	"github.com/rookdaemon/agora/reputation"
)

// PostgresConfig holds connection parameters for a PostgresStore.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// PostgresStore is a reputationstore.Store backed by a Postgres table of
// tagged records, as an alternative to FileStore for deployments that
// already run a database. The log table is still append-only and remains
// the source of truth; indexed queries are plain SQL rather than rebuilt
// in-memory maps.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the reputation_records
// table exists.
func NewPostgresStore(ctx context.Context, cfg *PostgresConfig) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("reputationstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("reputationstore: ping: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS reputation_records (
			seq         BIGSERIAL PRIMARY KEY,
			record_type TEXT NOT NULL,
			record_id   TEXT NOT NULL,
			target      TEXT,
			verifier    TEXT,
			agent       TEXT,
			commitment_id TEXT,
			verification_id TEXT,
			domain      TEXT,
			payload     JSONB NOT NULL
		)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("reputationstore: create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) insert(ctx context.Context, kind string, v interface{}, id, target, verifier, agent, commitmentID, verificationID, domain string) error {
	payload, err := reputation.MarshalTagged(kind, v)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO reputation_records
			(record_type, record_id, target, verifier, agent, commitment_id, verification_id, domain, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = s.pool.Exec(ctx, q, kind, id, target, verifier, agent, commitmentID, verificationID, domain, payload)
	if err != nil {
		metrics.RecordsRejected.WithLabelValues(kind).Inc()
		return fmt.Errorf("reputationstore: insert %s: %w", kind, err)
	}
	metrics.RecordsAppended.WithLabelValues(kind).Inc()
	return nil
}

// AppendVerification validates and appends a Verification record.
func (s *PostgresStore) AppendVerification(v *reputation.Verification) error {
	if err := reputation.ValidateVerification(v); err != nil {
		metrics.RecordsRejected.WithLabelValues("verification").Inc()
		return err
	}
	return s.insert(context.Background(), "verification", v, v.ID, v.Target, v.Verifier, "", "", "", v.Domain)
}

// AppendCommit validates and appends a Commit record.
func (s *PostgresStore) AppendCommit(c *reputation.Commit) error {
	if err := reputation.ValidateCommit(c); err != nil {
		metrics.RecordsRejected.WithLabelValues("commit").Inc()
		return err
	}
	return s.insert(context.Background(), "commit", c, c.ID, "", "", c.Agent, "", "", c.Domain)
}

// AppendReveal validates and appends a Reveal record.
func (s *PostgresStore) AppendReveal(r *reputation.Reveal) error {
	if err := reputation.ValidateReveal(r); err != nil {
		metrics.RecordsRejected.WithLabelValues("reveal").Inc()
		return err
	}
	return s.insert(context.Background(), "reveal", r, r.ID, "", "", r.Agent, r.CommitmentID, "", "")
}

// AppendRevocation validates and appends a Revocation record.
func (s *PostgresStore) AppendRevocation(r *reputation.Revocation) error {
	if err := reputation.ValidateRevocation(r); err != nil {
		metrics.RecordsRejected.WithLabelValues("revocation").Inc()
		return err
	}
	return s.insert(context.Background(), "revocation", r, r.ID, "", r.Verifier, "", "", r.VerificationID, "")
}

func decodePayload(kind string, payload []byte) (TaggedRecord, error) {
	rec := TaggedRecord{Type: kind}
	switch kind {
	case "verification":
		var v reputation.Verification
		if err := json.Unmarshal(payload, &v); err != nil {
			return TaggedRecord{}, err
		}
		rec.Verification = &v
	case "commit":
		var c reputation.Commit
		if err := json.Unmarshal(payload, &c); err != nil {
			return TaggedRecord{}, err
		}
		rec.Commit = &c
	case "reveal":
		var r reputation.Reveal
		if err := json.Unmarshal(payload, &r); err != nil {
			return TaggedRecord{}, err
		}
		rec.Reveal = &r
	case "revocation":
		var r reputation.Revocation
		if err := json.Unmarshal(payload, &r); err != nil {
			return TaggedRecord{}, err
		}
		rec.Revocation = &r
	}
	return rec, nil
}

// ReadAll streams every record, ordered by insertion sequence.
func (s *PostgresStore) ReadAll() ([]TaggedRecord, error) {
	rows, err := s.pool.Query(context.Background(), `SELECT record_type, payload FROM reputation_records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("reputationstore: read all: %w", err)
	}
	defer rows.Close()

	var out []TaggedRecord
	for rows.Next() {
		var kind string
		var payload []byte
		if err := rows.Scan(&kind, &payload); err != nil {
			continue
		}
		rec, err := decodePayload(kind, payload)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) queryVerifications(ctx context.Context, query string, args ...interface{}) ([]*reputation.Verification, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reputationstore: query verifications: %w", err)
	}
	defer rows.Close()

	var out []*reputation.Verification
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			continue
		}
		var v reputation.Verification
		if err := json.Unmarshal(payload, &v); err != nil {
			continue
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// VerificationsFor returns every verification targeting target, in
// insertion order.
func (s *PostgresStore) VerificationsFor(target string) ([]*reputation.Verification, error) {
	return s.queryVerifications(context.Background(),
		`SELECT payload FROM reputation_records WHERE record_type = 'verification' AND target = $1 ORDER BY seq`, target)
}

// VerificationsBy returns every verification issued by verifier, optionally
// filtered to one domain.
func (s *PostgresStore) VerificationsBy(verifier, domain string) ([]*reputation.Verification, error) {
	if domain == "" {
		return s.queryVerifications(context.Background(),
			`SELECT payload FROM reputation_records WHERE record_type = 'verification' AND verifier = $1 ORDER BY seq`, verifier)
	}
	return s.queryVerifications(context.Background(),
		`SELECT payload FROM reputation_records WHERE record_type = 'verification' AND verifier = $1 AND domain = $2 ORDER BY seq`, verifier, domain)
}

// CommitByID looks up a commit by its id.
func (s *PostgresStore) CommitByID(id string) (*reputation.Commit, error) {
	var payload []byte
	err := s.pool.QueryRow(context.Background(),
		`SELECT payload FROM reputation_records WHERE record_type = 'commit' AND record_id = $1`, id,
	).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("reputationstore: commit %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("reputationstore: commit lookup: %w", err)
	}
	var c reputation.Commit
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// RevealForCommit looks up the reveal bound to commitID.
func (s *PostgresStore) RevealForCommit(commitID string) (*reputation.Reveal, error) {
	var payload []byte
	err := s.pool.QueryRow(context.Background(),
		`SELECT payload FROM reputation_records WHERE record_type = 'reveal' AND commitment_id = $1 ORDER BY seq DESC LIMIT 1`, commitID,
	).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("reputationstore: no reveal recorded for commit %s", commitID)
	}
	if err != nil {
		return nil, fmt.Errorf("reputationstore: reveal lookup: %w", err)
	}
	var r reputation.Reveal
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// RevocationsFor returns every revocation issued by verifier.
func (s *PostgresStore) RevocationsFor(verifier string) ([]*reputation.Revocation, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT payload FROM reputation_records WHERE record_type = 'revocation' AND verifier = $1 ORDER BY seq`, verifier)
	if err != nil {
		return nil, fmt.Errorf("reputationstore: revocations query: %w", err)
	}
	defer rows.Close()

	var out []*reputation.Revocation
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			continue
		}
		var r reputation.Revocation
		if err := json.Unmarshal(payload, &r); err != nil {
			continue
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// ActiveVerificationsFor returns VerificationsFor(target) excluding any
// verification that has since been revoked.
func (s *PostgresStore) ActiveVerificationsFor(target string) ([]*reputation.Verification, error) {
	return s.queryVerifications(context.Background(), `
		SELECT payload FROM reputation_records
		WHERE record_type = 'verification' AND target = $1
		  AND record_id NOT IN (
		      SELECT verification_id FROM reputation_records WHERE record_type = 'revocation'
		  )
		ORDER BY seq`, target)
}

// Domains returns the distinct domain values observed across every
// verification recorded for target.
func (s *PostgresStore) Domains(target string) ([]string, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT DISTINCT domain FROM reputation_records WHERE record_type = 'verification' AND target = $1 ORDER BY domain`, target)
	if err != nil {
		return nil, fmt.Errorf("reputationstore: domains query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
