package database

import "github.com/gocql/gocql"

// Sessioner is the subset of *gocql.Session the store uses
type Sessioner interface {
	Query(string, ...interface{}) *gocql.Query
	NewBatch(gocql.BatchType) *gocql.Batch
	ExecuteBatch(*gocql.Batch) error
	Close()
}
