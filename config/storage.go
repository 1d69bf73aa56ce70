package config

import "fmt"

// Storage backends
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StorageConfig selects where run history is kept.
type StorageConfig struct {
	Backend string `hcl:"backend,optional"`
	Path    string `hcl:"path,optional"` // sqlite file
	DSN     string `hcl:"dsn,optional"`  // postgres connection string
}

// Defaults fills in default values for unset fields
func (s *StorageConfig) Defaults() {
	if s.Backend == "" {
		s.Backend = BackendSQLite
	}
	if s.Path == "" {
		s.Path = ".taskweave/runs.db"
	}
}

func (s *StorageConfig) Validate() error {
	switch s.Backend {
	case "", BackendMemory, BackendSQLite:
		return nil
	case BackendPostgres:
		if s.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend '%s': expected memory, sqlite or postgres", s.Backend)
	}
}
