package db

const (
	UpsertJob = `
		INSERT INTO spool_jobs (id, dest, size, state, title, user, actual_printer_uri)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			dest = excluded.dest,
			size = excluded.size,
			state = excluded.state,
			title = excluded.title,
			user = excluded.user,
			actual_printer_uri = excluded.actual_printer_uri,
			updated_at = CURRENT_TIMESTAMP
	`

	GetJobByID = `
		SELECT id, dest, size, state, title, user, actual_printer_uri
		FROM spool_jobs WHERE id = ?
	`

	ListJobs = `
		SELECT id, dest, size, state, title, user, actual_printer_uri
		FROM spool_jobs ORDER BY id DESC
	`

	UpdateJobState = `
		UPDATE spool_jobs SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`

	DeleteJob = `DELETE FROM spool_jobs WHERE id = ?`

	DeleteFinishedJobsBefore = `
		DELETE FROM spool_jobs WHERE state IN (7, 8, 9) AND updated_at < datetime('now', ?)
	`
)

const (
	UpsertPrinter = `
		INSERT INTO printers (name, state) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET state = excluded.state, updated_at = CURRENT_TIMESTAMP
	`

	GetPrinterByName = `
		SELECT name, state, updated_at FROM printers WHERE name = ?
	`

	ListPrinters = `
		SELECT name, state, updated_at FROM printers ORDER BY name ASC
	`

	DeletePrinter = `DELETE FROM printers WHERE name = ?`
)

const (
	ListClassMembers = `
		SELECT member FROM queue_classes WHERE class = ? ORDER BY member ASC
	`

	DeleteClassMembers = `DELETE FROM queue_classes WHERE class = ?`

	InsertClassMember = `
		INSERT INTO queue_classes (class, member) VALUES (?, ?)
	`

	ListQueueNames = `
		SELECT name FROM printers
		UNION
		SELECT class FROM queue_classes
		ORDER BY 1
	`
)
