// Package log provides a Zerolog-based logger that writes to the console and,
// optionally, to an SQLite run journal.
package log

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	stdlog "log" // Use alias to avoid conflict with package name
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

var (
	pkgLogger              = zerolog.Nop()
	console                io.Writer
	journal                *sqliteWriter
	dbHandle               *sql.DB
	mu                     sync.RWMutex // Protects dbHandle, journal and pkgLogger during setup/Close
	zerologTimeFieldFormat = time.RFC3339Nano

	ErrNotInitialized = errors.New("log: journal not opened, call log.OpenJournal() first")
)

type sqliteWriter struct {
	db   *sql.DB
	stmt *sql.Stmt
	mu   sync.Mutex
}

func newSQLiteWriter(dbPath string) (*sqliteWriter, *sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode=wal&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite db %s: %w", dbPath, err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping sqlite db %s: %w", dbPath, err)
	}

	createTableSQL := `
    CREATE TABLE IF NOT EXISTS logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        inserted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL,
        log_data TEXT NOT NULL
    );`
	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create logs table: %w", err)
	}

	createIndexSQLTime := `CREATE INDEX IF NOT EXISTS idx_logs_json_time ON logs (json_extract(log_data, '$.time'));`
	if _, err = db.Exec(createIndexSQLTime); err != nil {
		stdlog.Printf("Warning: Failed to create JSON time index: %v\n", err)
	}

	stmt, err := db.Prepare(`INSERT INTO logs (log_data) VALUES (?)`)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	return &sqliteWriter{db: db, stmt: stmt}, db, nil
}

func (w *sqliteWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err = w.stmt.Exec(string(p)); err != nil {
		stdlog.Printf("ERROR writing log to SQLite: %v\n", err)
		return 0, err
	}
	return len(p), nil
}

func (w *sqliteWriter) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing statement: %w", err))
		}
		w.stmt = nil
	}
	if w.db != nil {
		if err := w.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing db: %w", err))
		}
		w.db = nil
	}
	return errors.Join(errs...)
}

// ParseLevel accepts zerolog level names; an empty string means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(s)
}

// SetStd routes log events at level and above to stderr.
func SetStd(level zerolog.Level) {
	SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}, level)
}

// SetOutput routes log events at level and above to w, plus the journal if
// one is open.
func SetOutput(w io.Writer, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	console = w
	zerolog.SetGlobalLevel(level)
	rebuild()
}

// rebuild must be called with mu held.
func rebuild() {
	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}
	if journal != nil {
		writers = append(writers, journal)
	}
	switch len(writers) {
	case 0:
		pkgLogger = zerolog.Nop()
	case 1:
		pkgLogger = zerolog.New(writers[0]).With().Timestamp().Logger()
	default:
		pkgLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	}
}

// OpenJournal starts copying log events as JSON rows into the SQLite
// database at dbPath.
func OpenJournal(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("journal needs an explicit db path")
	}

	mu.Lock()
	defer mu.Unlock()

	if journal != nil {
		return fmt.Errorf("journal already opened")
	}

	writer, db, err := newSQLiteWriter(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create SQLite writer: %w", err)
	}

	journal = writer
	dbHandle = db
	zerolog.TimeFieldFormat = zerologTimeFieldFormat
	rebuild()
	return nil
}

// Close detaches and closes the journal. Console output is kept.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if journal == nil {
		return nil
	}

	w := journal
	journal = nil
	dbHandle = nil
	rebuild()

	if err := w.close(); err != nil {
		stdlog.Printf("Error closing SQLite journal: %v\n", err)
		return fmt.Errorf("error closing SQLite journal: %w", err)
	}
	return nil
}

func logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := pkgLogger
	return &l
}

func Debug() *zerolog.Event { return logger().Debug() }
func Info() *zerolog.Event  { return logger().Info() }
func Warn() *zerolog.Event  { return logger().Warn() }
func Error() *zerolog.Event { return logger().Error() }

// --- Journal retrieval ---

type LogEntry struct {
	ID         int64
	InsertedAt time.Time
	LogData    string // The raw JSON string
}

const DefaultLimit = 100

func getHandle() (*sql.DB, error) {
	mu.RLock()
	defer mu.RUnlock()
	if dbHandle == nil {
		return nil, ErrNotInitialized
	}
	return dbHandle, nil
}

// parseDBTimestamp tries common SQLite timestamp formats.
func parseDBTimestamp(ts string) time.Time {
	formats := []string{
		"2006-01-02 15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetLastNLogs retrieves the most recent n entries in chronological order.
func GetLastNLogs(n int) ([]LogEntry, error) {
	handle, err := getHandle()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []LogEntry{}, nil
	}

	rows, err := handle.Query(`SELECT id, inserted_at, log_data FROM logs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query last %d logs: %w", n, err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var entry LogEntry
		var insertedAtStr string
		if err := rows.Scan(&entry.ID, &insertedAtStr, &entry.LogData); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entry.InsertedAt = parseDBTimestamp(insertedAtStr)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log rows: %w", err)
	}

	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// GetLogsBetween retrieves entries whose event time (the JSON 'time' field)
// falls within [start, end], oldest first. limit <= 0 means DefaultLimit.
func GetLogsBetween(start, end time.Time, limit int) ([]LogEntry, error) {
	handle, err := getHandle()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	startTimeStr := start.Format(zerologTimeFieldFormat)
	endTimeStr := end.Format(zerologTimeFieldFormat)

	query := `
        SELECT id, inserted_at, log_data
        FROM logs
        WHERE json_extract(log_data, '$.time') >= ? AND json_extract(log_data, '$.time') <= ?
        ORDER BY json_extract(log_data, '$.time') ASC, id ASC
        LIMIT ?`

	rows, err := handle.Query(query, startTimeStr, endTimeStr, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs between %s and %s: %w", startTimeStr, endTimeStr, err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var entry LogEntry
		var insertedAtStr string
		if err := rows.Scan(&entry.ID, &insertedAtStr, &entry.LogData); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entry.InsertedAt = parseDBTimestamp(insertedAtStr)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log rows: %w", err)
	}
	return logs, nil
}

// GetLogsSince is GetLogsBetween(start, now, limit).
func GetLogsSince(start time.Time, limit int) ([]LogEntry, error) {
	return GetLogsBetween(start, time.Now(), limit)
}
