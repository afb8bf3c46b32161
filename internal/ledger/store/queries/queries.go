package queries

// Ordering kinds and the metadata row name
const (
	KindTask   = "task"
	KindWorker = "worker"
	MetaLedger = "ledger"
)

// Write Queries
const (
	UpsertTaskQuery = `
		INSERT INTO tasks (
			task_key, title, handle, reward_amount, deadline, requester,
			status, assigned_worker, disclosed_value, created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	UpsertWorkerQuery = `
		INSERT INTO workers (identity, reputation, completed_tasks, registered_at)
		VALUES (?, ?, ?, ?)`

	UpsertHandleQuery = `
		INSERT INTO handles (handle, owner, publicly_disclosable, disclosed, registered_at)
		VALUES (?, ?, ?, ?, ?)`

	AppendOrderingQuery = `
		INSERT INTO ordering (kind, position, id)
		VALUES (?, ?, ?)`

	UpdateSeqQuery = `
		INSERT INTO ledger_meta (name, seq)
		VALUES (?, ?)`
)

// Read Queries
const (
	SelectTasksQuery = `
		SELECT task_key, title, handle, reward_amount, deadline, requester,
			status, assigned_worker, disclosed_value, created_at, completed_at
		FROM tasks`

	SelectWorkersQuery = `
		SELECT identity, reputation, completed_tasks, registered_at
		FROM workers`

	SelectHandlesQuery = `
		SELECT handle, owner, publicly_disclosable, disclosed, registered_at
		FROM handles`

	SelectOrderingQuery = `
		SELECT id FROM ordering WHERE kind = ?`

	SelectSeqQuery = `
		SELECT seq FROM ledger_meta WHERE name = ?`
)
