// Package reputationstore persists and indexes the reputation ledger's
// tagged records. The log is the source of truth; indices are rebuilt from
// it on open.
package reputationstore

import (
	"github.com/rookdaemon/agora/reputation"
)

// TaggedRecord is one decoded line of the reputation log.
type TaggedRecord struct {
	Type       string
	Verification *reputation.Verification
	Commit       *reputation.Commit
	Reveal       *reputation.Reveal
	Revocation   *reputation.Revocation
}

// Store is the reputation ledger's persistence and query interface.
type Store interface {
	AppendVerification(v *reputation.Verification) error
	AppendCommit(c *reputation.Commit) error
	AppendReveal(r *reputation.Reveal) error
	AppendRevocation(r *reputation.Revocation) error

	ReadAll() ([]TaggedRecord, error)

	VerificationsFor(target string) ([]*reputation.Verification, error)
	VerificationsBy(verifier, domain string) ([]*reputation.Verification, error)
	CommitByID(id string) (*reputation.Commit, error)
	RevealForCommit(commitID string) (*reputation.Reveal, error)
	RevocationsFor(verifier string) ([]*reputation.Revocation, error)

	// ActiveVerificationsFor returns VerificationsFor(target) excluding any
	// verification that has since been revoked.
	ActiveVerificationsFor(target string) ([]*reputation.Verification, error)

	// Domains returns the distinct domain values observed across every
	// verification recorded for target.
	Domains(target string) ([]string, error)

	Close() error
}
