package repo_test

import (
	"testing"

	"github.com/arifmahmud/uptimebot/internal/repo"
	"github.com/arifmahmud/uptimebot/internal/repo/memory"
	pg "github.com/arifmahmud/uptimebot/internal/repo/postgres"
	sq "github.com/arifmahmud/uptimebot/internal/repo/sqlite"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.Store = memory.New()
	var _ repo.Store = (*sq.Store)(nil)
	var _ repo.Store = (*pg.Store)(nil)
}
