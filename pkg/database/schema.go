package database

import (
	"fmt"
	"regexp"
)

var keyspacePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,47}$`)

// CreateKeyspace creates keyspace with SimpleStrategy replication if it does not exist
func CreateKeyspace(session Sessioner, keyspace string, replicationFactor int) error {
	if !keyspacePattern.MatchString(keyspace) {
		return fmt.Errorf("invalid keyspace name %q", keyspace)
	}
	if replicationFactor < 1 {
		replicationFactor = 1
	}

	stmt := fmt.Sprintf(`
		CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {
			'class': 'SimpleStrategy',
			'replication_factor': %d
		}`, keyspace, replicationFactor)
	if err := session.Query(stmt).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace %s: %w", keyspace, err)
	}
	return nil
}

// ledgerTables hold every record needed to rebuild the ledger after restart
var ledgerTables = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		task_key text PRIMARY KEY,
		title text,
		handle blob,
		reward_amount varint,
		deadline timestamp,
		requester text,
		status text,
		assigned_worker text,
		disclosed_value bigint,
		created_at timestamp,
		completed_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS workers (
		identity text PRIMARY KEY,
		reputation bigint,
		completed_tasks bigint,
		registered_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS handles (
		handle blob PRIMARY KEY,
		owner text,
		publicly_disclosable boolean,
		disclosed boolean,
		registered_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS ordering (
		kind text,
		position bigint,
		id text,
		PRIMARY KEY (kind, position)
	) WITH CLUSTERING ORDER BY (position ASC)`,
	`CREATE TABLE IF NOT EXISTS ledger_meta (
		name text PRIMARY KEY,
		seq bigint
	)`,
}

// InitSchema creates the ledger tables in the session's keyspace
func InitSchema(session Sessioner) error {
	for _, stmt := range ledgerTables {
		if err := session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("failed to initialise schema: %w", err)
		}
	}
	return nil
}
