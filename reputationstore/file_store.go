package reputationstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rookdaemon/agora/anchor"
	"github.com/rookdaemon/agora/internal/logger"
	"github.com/rookdaemon/agora/internal/metrics"
	"github.com/rookdaemon/agora/reputation"
)

// FileStore is a single append-only text file where each line is a
// canonical JSON object carrying one tagged record. Indices are
// rebuilt from the log on open and kept in sync on every append.
type FileStore struct {
	mu   sync.RWMutex
	path string
	file *os.File

	byTarget     map[string][]*reputation.Verification
	byVerifier   map[string][]*reputation.Verification
	commits      map[string]*reputation.Commit
	revealsByCid map[string]*reputation.Reveal
	revocations  map[string][]*reputation.Revocation
	revokedIDs   map[string]bool

	chainClock anchor.ChainClock
	maxSkew    time.Duration
	log        logger.Logger
}

// Open opens (creating if necessary) the log file at path and rebuilds its
// indices.
func Open(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("reputationstore: open log: %w", err)
	}

	s := &FileStore{
		path:         path,
		file:         f,
		byTarget:     make(map[string][]*reputation.Verification),
		byVerifier:   make(map[string][]*reputation.Verification),
		commits:      make(map[string]*reputation.Commit),
		revealsByCid: make(map[string]*reputation.Reveal),
		revocations:  make(map[string][]*reputation.Revocation),
		revokedIDs:   make(map[string]bool),
	}
	if err := s.rebuild(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// SetChainClock configures an optional cross-check: every append compares
// the local append time against clock.Now() and logs a warning (never an
// error — the chain clock is purely auxiliary, per anchor's package doc) if
// they disagree by more than maxSkew.
func (s *FileStore) SetChainClock(clock anchor.ChainClock, maxSkew time.Duration, log logger.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chainClock = clock
	s.maxSkew = maxSkew
	s.log = log
}

func (s *FileStore) checkSkewLocked(kind string) {
	if s.chainClock == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	chainTime, err := s.chainClock.Now(ctx)
	if err != nil {
		return
	}
	delta, exceeded := anchor.Skew(chainTime, time.Now(), s.maxSkew)
	if exceeded && s.log != nil {
		s.log.Warn("chain clock skew exceeds configured bound",
			logger.String("kind", kind),
			logger.String("chain", s.chainClock.Chain()),
			logger.String("skew", delta.String()),
		)
	}
}

func (s *FileStore) rebuild() error {
	if _, err := s.file.Seek(0, 0); err != nil {
		return err
	}
	scanner := bufio.NewScanner(s.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := decodeLine(line)
		if err != nil {
			continue // malformed lines are skipped, never rewritten.
		}
		s.indexLocked(rec)
	}
	if _, err := s.file.Seek(0, 2); err != nil {
		return err
	}
	return scanner.Err()
}

func decodeLine(line []byte) (TaggedRecord, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &tag); err != nil {
		return TaggedRecord{}, err
	}

	rec := TaggedRecord{Type: tag.Type}
	switch tag.Type {
	case "verification":
		var v reputation.Verification
		if err := json.Unmarshal(line, &v); err != nil {
			return TaggedRecord{}, err
		}
		rec.Verification = &v
	case "commit":
		var c reputation.Commit
		if err := json.Unmarshal(line, &c); err != nil {
			return TaggedRecord{}, err
		}
		rec.Commit = &c
	case "reveal":
		var r reputation.Reveal
		if err := json.Unmarshal(line, &r); err != nil {
			return TaggedRecord{}, err
		}
		rec.Reveal = &r
	case "revocation":
		var r reputation.Revocation
		if err := json.Unmarshal(line, &r); err != nil {
			return TaggedRecord{}, err
		}
		rec.Revocation = &r
	default:
		return TaggedRecord{}, fmt.Errorf("reputationstore: unknown record type %q", tag.Type)
	}
	return rec, nil
}

// indexLocked updates in-memory indices for rec. Callers must hold s.mu for
// writing (or be single-threaded during rebuild).
func (s *FileStore) indexLocked(rec TaggedRecord) {
	switch rec.Type {
	case "verification":
		v := rec.Verification
		s.byTarget[v.Target] = append(s.byTarget[v.Target], v)
		s.byVerifier[v.Verifier] = append(s.byVerifier[v.Verifier], v)
	case "commit":
		s.commits[rec.Commit.ID] = rec.Commit
	case "reveal":
		s.revealsByCid[rec.Reveal.CommitmentID] = rec.Reveal
	case "revocation":
		rv := rec.Revocation
		s.revocations[rv.Verifier] = append(s.revocations[rv.Verifier], rv)
		s.revokedIDs[rv.VerificationID] = true
	}
}

func (s *FileStore) appendLocked(kind string, v interface{}) error {
	raw, err := reputation.MarshalTagged(kind, v)
	if err != nil {
		return err
	}
	line := append(raw, '\n')
	if _, err := s.file.Write(line); err != nil {
		metrics.RecordsRejected.WithLabelValues(kind).Inc()
		return fmt.Errorf("reputationstore: append %s: %w", kind, err)
	}
	metrics.RecordsAppended.WithLabelValues(kind).Inc()
	return nil
}

// AppendVerification validates and appends a Verification record.
func (s *FileStore) AppendVerification(v *reputation.Verification) error {
	if err := reputation.ValidateVerification(v); err != nil {
		metrics.RecordsRejected.WithLabelValues("verification").Inc()
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked("verification", v); err != nil {
		return err
	}
	s.indexLocked(TaggedRecord{Type: "verification", Verification: v})
	s.checkSkewLocked("verification")
	return nil
}

// AppendCommit validates and appends a Commit record.
func (s *FileStore) AppendCommit(c *reputation.Commit) error {
	if err := reputation.ValidateCommit(c); err != nil {
		metrics.RecordsRejected.WithLabelValues("commit").Inc()
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked("commit", c); err != nil {
		return err
	}
	s.indexLocked(TaggedRecord{Type: "commit", Commit: c})
	s.checkSkewLocked("commit")
	return nil
}

// AppendReveal validates and appends a Reveal record. It does not check
// VerifyRevealMatches against the originating commit; callers that need the
// bridging check call it explicitly with the commit they expect.
func (s *FileStore) AppendReveal(r *reputation.Reveal) error {
	if err := reputation.ValidateReveal(r); err != nil {
		metrics.RecordsRejected.WithLabelValues("reveal").Inc()
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked("reveal", r); err != nil {
		return err
	}
	s.indexLocked(TaggedRecord{Type: "reveal", Reveal: r})
	s.checkSkewLocked("reveal")
	return nil
}

// AppendRevocation validates and appends a Revocation record.
func (s *FileStore) AppendRevocation(r *reputation.Revocation) error {
	if err := reputation.ValidateRevocation(r); err != nil {
		metrics.RecordsRejected.WithLabelValues("revocation").Inc()
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked("revocation", r); err != nil {
		return err
	}
	s.indexLocked(TaggedRecord{Type: "revocation", Revocation: r})
	s.checkSkewLocked("revocation")
	return nil
}

// ReadAll streams the log, skipping malformed lines, and returns ordered
// records.
func (s *FileStore) ReadAll() ([]TaggedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("reputationstore: read log: %w", err)
	}
	defer f.Close()

	var out []TaggedRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := decodeLine(line)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, scanner.Err()
}

// VerificationsFor returns every verification targeting target, in append
// order.
func (s *FileStore) VerificationsFor(target string) ([]*reputation.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*reputation.Verification(nil), s.byTarget[target]...), nil
}

// VerificationsBy returns every verification issued by verifier, optionally
// filtered to one domain.
func (s *FileStore) VerificationsBy(verifier, domain string) ([]*reputation.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.byVerifier[verifier]
	if domain == "" {
		return append([]*reputation.Verification(nil), all...), nil
	}
	out := make([]*reputation.Verification, 0, len(all))
	for _, v := range all {
		if v.Domain == domain {
			out = append(out, v)
		}
	}
	return out, nil
}

// CommitByID looks up a commit by its id.
func (s *FileStore) CommitByID(id string) (*reputation.Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commits[id]
	if !ok {
		return nil, fmt.Errorf("reputationstore: commit %s not found", id)
	}
	return c, nil
}

// RevealForCommit looks up the reveal bound to commitID, if any has been
// recorded.
func (s *FileStore) RevealForCommit(commitID string) (*reputation.Reveal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.revealsByCid[commitID]
	if !ok {
		return nil, fmt.Errorf("reputationstore: no reveal recorded for commit %s", commitID)
	}
	return r, nil
}

// RevocationsFor returns every revocation issued by verifier.
func (s *FileStore) RevocationsFor(verifier string) ([]*reputation.Revocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*reputation.Revocation(nil), s.revocations[verifier]...), nil
}

// ActiveVerificationsFor returns VerificationsFor(target) excluding any
// verification that has since been revoked.
func (s *FileStore) ActiveVerificationsFor(target string) ([]*reputation.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.byTarget[target]
	out := make([]*reputation.Verification, 0, len(all))
	for _, v := range all {
		if !s.revokedIDs[v.ID] {
			out = append(out, v)
		}
	}
	return out, nil
}

// Domains returns the distinct domain values observed across every
// verification recorded for target, sorted lexicographically.
func (s *FileStore) Domains(target string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	for _, v := range s.byTarget[target] {
		seen[v.Domain] = true
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

// Close closes the underlying log file.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
