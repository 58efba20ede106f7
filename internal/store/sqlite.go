package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/watchtower/controlplane/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite. Intended for single-instance
// deployments; DueMonitors claims rows with the same UPDATE...RETURNING lease
// as the Postgres backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite single-writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Monitor operations ---

func (s *SQLiteStore) CreateMonitor(m *model.Monitor) error {
	contacts, _ := json.Marshal(m.ContactIDs)
	_, err := s.db.Exec(
		`INSERT INTO monitors (id, user_id, name, kind, url, port, frequency, alert_frequency,
		 is_paused, last_alert_sent_at, updated_at, created_at, contact_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Name, string(m.Kind), m.URL, m.Port, m.Frequency, m.AlertFrequency,
		boolToInt(m.IsPaused), nullInt64(m.LastAlertSentAt), m.UpdatedAt, m.CreatedAt, string(contacts),
	)
	return err
}

func (s *SQLiteStore) GetMonitor(id string) (*model.Monitor, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, name, kind, url, port, frequency, alert_frequency,
		 is_paused, last_alert_sent_at, updated_at, created_at, contact_ids
		 FROM monitors WHERE id = ?`, id)
	return scanMonitor(row)
}

func (s *SQLiteStore) ListMonitors(userID string) ([]model.Monitor, error) {
	var rows *sql.Rows
	var err error
	if userID != "" {
		rows, err = s.db.Query(
			`SELECT id, user_id, name, kind, url, port, frequency, alert_frequency,
			 is_paused, last_alert_sent_at, updated_at, created_at, contact_ids
			 FROM monitors WHERE user_id = ? ORDER BY name`, userID)
	} else {
		rows, err = s.db.Query(
			`SELECT id, user_id, name, kind, url, port, frequency, alert_frequency,
			 is_paused, last_alert_sent_at, updated_at, created_at, contact_ids
			 FROM monitors ORDER BY name`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []model.Monitor
	for rows.Next() {
		m, err := scanMonitorRow(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, *m)
	}
	return monitors, rows.Err()
}

func (s *SQLiteStore) UpdateMonitor(m *model.Monitor) error {
	contacts, _ := json.Marshal(m.ContactIDs)
	_, err := s.db.Exec(
		`UPDATE monitors SET user_id = ?, name = ?, kind = ?, url = ?, port = ?, frequency = ?,
		 alert_frequency = ?, is_paused = ?, last_alert_sent_at = ?, updated_at = ?, contact_ids = ?
		 WHERE id = ?`,
		m.UserID, m.Name, string(m.Kind), m.URL, m.Port, m.Frequency, m.AlertFrequency,
		boolToInt(m.IsPaused), nullInt64(m.LastAlertSentAt), m.UpdatedAt, string(contacts), m.ID,
	)
	return err
}

func (s *SQLiteStore) DeleteMonitor(id string) error {
	_, err := s.db.Exec(`DELETE FROM monitors WHERE id = ?`, id)
	return err
}

// DueMonitors atomically claims paused=false monitors in bucket whose
// updated_at predates now-window: the UPDATE...RETURNING only touches rows it
// selected, so it doubles as the lease described for multi-instance
// deployments, and costs nothing extra in the single-writer SQLite case.
func (s *SQLiteStore) DueMonitors(bucket int, window time.Duration, now int64, limit, offset int) ([]model.Monitor, error) {
	cutoff := now - window.Milliseconds()
	rows, err := s.db.Query(
		`UPDATE monitors SET updated_at = ?
		 WHERE id IN (
		   SELECT id FROM monitors
		   WHERE frequency = ? AND is_paused = 0 AND updated_at <= ?
		   ORDER BY id LIMIT ? OFFSET ?
		 )
		 RETURNING id, user_id, name, kind, url, port, frequency, alert_frequency,
		 is_paused, last_alert_sent_at, updated_at, created_at, contact_ids`,
		now, bucket, cutoff, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []model.Monitor
	for rows.Next() {
		m, err := scanMonitorRow(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, *m)
	}
	return monitors, rows.Err()
}

func (s *SQLiteStore) TouchMonitor(monitorID string, updatedAt int64) error {
	_, err := s.db.Exec(`UPDATE monitors SET updated_at = ? WHERE id = ?`, updatedAt, monitorID)
	return err
}

func (s *SQLiteStore) SetLastAlertSentAt(monitorID string, at int64) error {
	_, err := s.db.Exec(`UPDATE monitors SET last_alert_sent_at = ? WHERE id = ?`, at, monitorID)
	return err
}

// --- Event operations ---

func (s *SQLiteStore) LatestEvent(monitorID string) (*model.UptimeEvent, error) {
	row := s.db.QueryRow(
		`SELECT id, monitor_id, user_id, kind, timestamp, end_time, availability, ping, port,
		 response_time_ms, confirmed_by_agent, reason
		 FROM uptime_events WHERE monitor_id = ? ORDER BY timestamp DESC LIMIT 1`, monitorID)
	return scanEvent(row)
}

func (s *SQLiteStore) AppendEvent(e *model.UptimeEvent) error {
	res, err := s.db.Exec(
		`INSERT INTO uptime_events (monitor_id, user_id, kind, timestamp, end_time, availability,
		 ping, port, response_time_ms, confirmed_by_agent, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.MonitorID, e.UserID, string(e.Kind), e.Timestamp, nullInt64(e.EndTime),
		string(e.Availability), string(e.Ping), string(e.Port), e.ResponseTime,
		e.ConfirmedByAgent, nullString(e.Reason),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (s *SQLiteStore) CloseEvent(id int64, endTime int64) error {
	_, err := s.db.Exec(`UPDATE uptime_events SET end_time = ? WHERE id = ?`, endTime, id)
	return err
}

func (s *SQLiteStore) EventsSince(monitorID string, since int64) ([]model.UptimeEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, monitor_id, user_id, kind, timestamp, end_time, availability, ping, port,
		 response_time_ms, confirmed_by_agent, reason
		 FROM uptime_events WHERE monitor_id = ? AND timestamp >= ? ORDER BY timestamp ASC`,
		monitorID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLiteStore) EventsPaged(monitorID string, before int64, limit int) ([]model.UptimeEvent, error) {
	query := `SELECT id, monitor_id, user_id, kind, timestamp, end_time, availability, ping, port,
	 response_time_ms, confirmed_by_agent, reason FROM uptime_events WHERE monitor_id = ?`
	args := []any{monitorID}
	if before > 0 {
		query += ` AND timestamp < ?`
		args = append(args, before)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLiteStore) LatestDowntime(userID string) (*model.UptimeEvent, error) {
	row := s.db.QueryRow(
		`SELECT id, monitor_id, user_id, kind, timestamp, end_time, availability, ping, port,
		 response_time_ms, confirmed_by_agent, reason
		 FROM uptime_events WHERE (? = '' OR user_id = ?) AND availability = 'Down'
		 ORDER BY timestamp DESC LIMIT 1`, userID, userID)
	return scanEvent(row)
}

// --- Alert operations ---

func (s *SQLiteStore) InsertAlert(a *model.Alert) error {
	res, err := s.db.Exec(
		`INSERT INTO alerts (user_id, monitor_id, url, tries, max_tries, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.UserID, a.MonitorID, a.URL, a.Tries, a.MaxTries, a.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (s *SQLiteStore) UndeliveredAlerts(limit int) ([]model.Alert, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, monitor_id, url, tries, max_tries, created_at
		 FROM alerts WHERE tries < max_tries ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.UserID, &a.MonitorID, &a.URL, &a.Tries, &a.MaxTries, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteStore) IncrementAlertTries(id int64) error {
	_, err := s.db.Exec(`UPDATE alerts SET tries = tries + 1 WHERE id = ?`, id)
	return err
}

// --- MonitorAgent operations ---

func (s *SQLiteStore) ListMonitorAgents(agentType model.AgentType) ([]model.MonitorAgent, error) {
	rows, err := s.db.Query(`SELECT id, type, region, url FROM monitor_agents WHERE type = ? ORDER BY id`, string(agentType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []model.MonitorAgent
	for rows.Next() {
		var a model.MonitorAgent
		if err := rows.Scan(&a.ID, &a.Type, &a.Region, &a.URL); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *SQLiteStore) CreateMonitorAgent(a *model.MonitorAgent) error {
	_, err := s.db.Exec(`INSERT INTO monitor_agents (id, type, region, url) VALUES (?, ?, ?, ?)`,
		a.ID, string(a.Type), a.Region, a.URL)
	return err
}

func (s *SQLiteStore) DeleteMonitorAgent(id string) error {
	_, err := s.db.Exec(`DELETE FROM monitor_agents WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) GetUser(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT id, email, name FROM users WHERE id = ?`, id)
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// --- Helper functions ---

type scannable interface {
	Scan(dest ...any) error
}

func scanMonitor(row scannable) (*model.Monitor, error) {
	var m model.Monitor
	var kind string
	var lastAlert sql.NullInt64
	var contacts sql.NullString
	var isPaused int

	err := row.Scan(&m.ID, &m.UserID, &m.Name, &kind, &m.URL, &m.Port, &m.Frequency,
		&m.AlertFrequency, &isPaused, &lastAlert, &m.UpdatedAt, &m.CreatedAt, &contacts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.Kind = model.MonitorKind(kind)
	m.IsPaused = isPaused == 1
	if lastAlert.Valid {
		m.LastAlertSentAt = lastAlert.Int64
	}
	if contacts.Valid && contacts.String != "" {
		json.Unmarshal([]byte(contacts.String), &m.ContactIDs)
	}
	return &m, nil
}

func scanMonitorRow(rows *sql.Rows) (*model.Monitor, error) {
	return scanMonitor(rows)
}

func scanEvent(row scannable) (*model.UptimeEvent, error) {
	var e model.UptimeEvent
	var kind, availability, ping, port string
	var endTime sql.NullInt64
	var reason sql.NullString

	err := row.Scan(&e.ID, &e.MonitorID, &e.UserID, &kind, &e.Timestamp, &endTime,
		&availability, &ping, &port, &e.ResponseTime, &e.ConfirmedByAgent, &reason)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.Kind = model.MonitorKind(kind)
	e.Availability = model.Availability(availability)
	e.Ping = model.PingState(ping)
	e.Port = model.PortState(port)
	if endTime.Valid {
		e.EndTime = endTime.Int64
	}
	if reason.Valid {
		e.Reason = reason.String
	}
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]model.UptimeEvent, error) {
	var events []model.UptimeEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func nullInt64(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
