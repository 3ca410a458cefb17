// SPDX-License-Identifier: Apache-2.0

package store

const (
	saveTask = `
		INSERT INTO tasks (
			id,
			payload,
			vector_clock,
			updated_at,
			deleted
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			payload      = excluded.payload,
			vector_clock = excluded.vector_clock,
			updated_at   = excluded.updated_at,
			deleted      = excluded.deleted;`

	getTask = `
		SELECT
			id,
			payload,
			vector_clock,
			updated_at,
			deleted
		FROM tasks
		WHERE id = $1;`

	getAllTasks = `
		SELECT
			id,
			payload,
			vector_clock,
			updated_at,
			deleted
		FROM tasks
		WHERE deleted = false;`

	saveQueueEntry = `
		INSERT INTO sync_queue (
			id,
			task_id,
			operation,
			payload,
			vector_clock,
			enqueued_at,
			retry_count,
			last_error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			operation    = excluded.operation,
			payload      = excluded.payload,
			vector_clock = excluded.vector_clock,
			retry_count  = excluded.retry_count,
			last_error   = excluded.last_error;`

	getQueueEntryByTask = `
		SELECT
			id,
			task_id,
			operation,
			payload,
			vector_clock,
			enqueued_at,
			retry_count,
			last_error
		FROM sync_queue
		WHERE task_id = $1 AND sending = 0
		ORDER BY enqueued_at
		LIMIT 1;`

	getQueueBatch = `
		SELECT
			id,
			task_id,
			operation,
			payload,
			vector_clock,
			enqueued_at,
			retry_count,
			last_error
		FROM sync_queue
		WHERE retry_count < $1 AND sending = 0
		ORDER BY enqueued_at
		LIMIT $2;`

	markQueueEntrySending = `
		UPDATE sync_queue
		SET sending = 1
		WHERE id = $1;`

	releaseQueueEntry = `
		UPDATE sync_queue
		SET sending = 0
		WHERE id = $1;`

	releaseAllQueueEntries = `
		UPDATE sync_queue
		SET sending = 0;`

	deleteQueueEntry = `
		DELETE FROM sync_queue
		WHERE id = $1;`

	incrementQueueRetry = `
		UPDATE sync_queue
		SET retry_count = retry_count + 1,
		    last_error  = $1,
		    sending     = 0
		WHERE id = $2;`

	resetQueueRetry = `
		UPDATE sync_queue
		SET retry_count = 0,
		    last_error  = ''
		WHERE id = $1;`

	countQueueEntries = `
		SELECT COUNT(*) FROM sync_queue;`

	getTerminalQueueEntries = `
		SELECT
			id,
			task_id,
			operation,
			payload,
			vector_clock,
			enqueued_at,
			retry_count,
			last_error
		FROM sync_queue
		WHERE retry_count >= $1
		ORDER BY enqueued_at;`

	getSyncConfig = `
		SELECT
			enabled,
			user_id,
			device_id,
			credential,
			credential_expiry,
			remote_endpoint,
			conflict_strategy,
			last_sync_cursor,
			last_sync_at,
			vector_clock,
			consecutive_failures,
			last_failure_at,
			last_failure_reason,
			next_retry_at
		FROM sync_config
		WHERE id = 1;`

	saveSyncConfig = `
		INSERT INTO sync_config (
			id,
			enabled,
			user_id,
			device_id,
			credential,
			credential_expiry,
			remote_endpoint,
			conflict_strategy,
			last_sync_cursor,
			last_sync_at,
			vector_clock,
			consecutive_failures,
			last_failure_at,
			last_failure_reason,
			next_retry_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			enabled              = excluded.enabled,
			user_id              = excluded.user_id,
			device_id            = excluded.device_id,
			credential           = excluded.credential,
			credential_expiry    = excluded.credential_expiry,
			remote_endpoint      = excluded.remote_endpoint,
			conflict_strategy    = excluded.conflict_strategy,
			last_sync_cursor     = excluded.last_sync_cursor,
			last_sync_at         = excluded.last_sync_at,
			vector_clock         = excluded.vector_clock,
			consecutive_failures = excluded.consecutive_failures,
			last_failure_at      = excluded.last_failure_at,
			last_failure_reason  = excluded.last_failure_reason,
			next_retry_at        = excluded.next_retry_at;`
)
