package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/watchtower/controlplane/internal/model"
)

// PostgresStore implements Store using PostgreSQL, for deployments that run
// more than one controlplane instance against a shared database.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to Postgres at dsn and ensures the schema exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &PostgresStore{db: db}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// --- Monitor operations ---

func (s *PostgresStore) CreateMonitor(m *model.Monitor) error {
	contacts, _ := json.Marshal(m.ContactIDs)
	_, err := s.db.Exec(
		`INSERT INTO monitors (id, user_id, name, kind, url, port, frequency, alert_frequency,
		 is_paused, last_alert_sent_at, updated_at, created_at, contact_ids)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.UserID, m.Name, string(m.Kind), m.URL, m.Port, m.Frequency, m.AlertFrequency,
		m.IsPaused, pgNullInt64(m.LastAlertSentAt), m.UpdatedAt, m.CreatedAt, string(contacts),
	)
	return err
}

func (s *PostgresStore) GetMonitor(id string) (*model.Monitor, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, name, kind, url, port, frequency, alert_frequency,
		 is_paused, last_alert_sent_at, updated_at, created_at, contact_ids
		 FROM monitors WHERE id = $1`, id)
	return pgScanMonitor(row)
}

func (s *PostgresStore) ListMonitors(userID string) ([]model.Monitor, error) {
	var rows *sql.Rows
	var err error
	if userID != "" {
		rows, err = s.db.Query(
			`SELECT id, user_id, name, kind, url, port, frequency, alert_frequency,
			 is_paused, last_alert_sent_at, updated_at, created_at, contact_ids
			 FROM monitors WHERE user_id = $1 ORDER BY name`, userID)
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
		m, err := pgScanMonitorRow(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, *m)
	}
	return monitors, rows.Err()
}

func (s *PostgresStore) UpdateMonitor(m *model.Monitor) error {
	contacts, _ := json.Marshal(m.ContactIDs)
	_, err := s.db.Exec(
		`UPDATE monitors SET user_id = $1, name = $2, kind = $3, url = $4, port = $5, frequency = $6,
		 alert_frequency = $7, is_paused = $8, last_alert_sent_at = $9, updated_at = $10, contact_ids = $11
		 WHERE id = $12`,
		m.UserID, m.Name, string(m.Kind), m.URL, m.Port, m.Frequency, m.AlertFrequency,
		m.IsPaused, pgNullInt64(m.LastAlertSentAt), m.UpdatedAt, string(contacts), m.ID,
	)
	return err
}

func (s *PostgresStore) DeleteMonitor(id string) error {
	_, err := s.db.Exec(`DELETE FROM monitors WHERE id = $1`, id)
	return err
}

// DueMonitors atomically claims eligible monitors in bucket with a single
// UPDATE ... RETURNING under SKIP LOCKED, so concurrent instances polling the
// same bucket never fan out the same monitor twice.
func (s *PostgresStore) DueMonitors(bucket int, window time.Duration, now int64, limit, offset int) ([]model.Monitor, error) {
	cutoff := now - window.Milliseconds()

	rows, err := s.db.Query(
		`UPDATE monitors SET updated_at = $1
		 WHERE id IN (
		   SELECT id FROM monitors
		   WHERE frequency = $2 AND is_paused = FALSE AND updated_at <= $3
		   ORDER BY id LIMIT $4 OFFSET $5
		   FOR UPDATE SKIP LOCKED
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
		m, err := pgScanMonitorRow(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, *m)
	}
	return monitors, rows.Err()
}

func (s *PostgresStore) TouchMonitor(monitorID string, updatedAt int64) error {
	_, err := s.db.Exec(`UPDATE monitors SET updated_at = $1 WHERE id = $2`, updatedAt, monitorID)
	return err
}

func (s *PostgresStore) SetLastAlertSentAt(monitorID string, at int64) error {
	_, err := s.db.Exec(`UPDATE monitors SET last_alert_sent_at = $1 WHERE id = $2`, at, monitorID)
	return err
}

// --- Event operations ---

func (s *PostgresStore) LatestEvent(monitorID string) (*model.UptimeEvent, error) {
	row := s.db.QueryRow(
		`SELECT id, monitor_id, user_id, kind, timestamp, end_time, availability, ping, port,
		 response_time_ms, confirmed_by_agent, reason
		 FROM uptime_events WHERE monitor_id = $1 ORDER BY timestamp DESC LIMIT 1`, monitorID)
	return pgScanEvent(row)
}

func (s *PostgresStore) AppendEvent(e *model.UptimeEvent) error {
	row := s.db.QueryRow(
		`INSERT INTO uptime_events (monitor_id, user_id, kind, timestamp, end_time, availability,
		 ping, port, response_time_ms, confirmed_by_agent, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		e.MonitorID, e.UserID, string(e.Kind), e.Timestamp, pgNullInt64(e.EndTime),
		string(e.Availability), string(e.Ping), string(e.Port), e.ResponseTime,
		e.ConfirmedByAgent, pgNullString(e.Reason),
	)
	return row.Scan(&e.ID)
}

func (s *PostgresStore) CloseEvent(id int64, endTime int64) error {
	_, err := s.db.Exec(`UPDATE uptime_events SET end_time = $1 WHERE id = $2`, endTime, id)
	return err
}

func (s *PostgresStore) EventsSince(monitorID string, since int64) ([]model.UptimeEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, monitor_id, user_id, kind, timestamp, end_time, availability, ping, port,
		 response_time_ms, confirmed_by_agent, reason
		 FROM uptime_events WHERE monitor_id = $1 AND timestamp >= $2 ORDER BY timestamp ASC`,
		monitorID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgScanEvents(rows)
}

func (s *PostgresStore) EventsPaged(monitorID string, before int64, limit int) ([]model.UptimeEvent, error) {
	query := `SELECT id, monitor_id, user_id, kind, timestamp, end_time, availability, ping, port,
	 response_time_ms, confirmed_by_agent, reason FROM uptime_events WHERE monitor_id = $1`
	args := []any{monitorID}
	if before > 0 {
		query += ` AND timestamp < $2`
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
	return pgScanEvents(rows)
}

func (s *PostgresStore) LatestDowntime(userID string) (*model.UptimeEvent, error) {
	row := s.db.QueryRow(
		`SELECT id, monitor_id, user_id, kind, timestamp, end_time, availability, ping, port,
		 response_time_ms, confirmed_by_agent, reason
		 FROM uptime_events WHERE ($1 = '' OR user_id = $1) AND availability = 'Down'
		 ORDER BY timestamp DESC LIMIT 1`, userID)
	return pgScanEvent(row)
}

// --- Alert operations ---

func (s *PostgresStore) InsertAlert(a *model.Alert) error {
	row := s.db.QueryRow(
		`INSERT INTO alerts (user_id, monitor_id, url, tries, max_tries, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		a.UserID, a.MonitorID, a.URL, a.Tries, a.MaxTries, a.CreatedAt,
	)
	return row.Scan(&a.ID)
}

func (s *PostgresStore) UndeliveredAlerts(limit int) ([]model.Alert, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, monitor_id, url, tries, max_tries, created_at
		 FROM alerts WHERE tries < max_tries ORDER BY created_at ASC LIMIT $1`, limit)
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

func (s *PostgresStore) IncrementAlertTries(id int64) error {
	_, err := s.db.Exec(`UPDATE alerts SET tries = tries + 1 WHERE id = $1`, id)
	return err
}

// --- MonitorAgent operations ---

func (s *PostgresStore) ListMonitorAgents(agentType model.AgentType) ([]model.MonitorAgent, error) {
	rows, err := s.db.Query(`SELECT id, type, region, url FROM monitor_agents WHERE type = $1 ORDER BY id`, string(agentType))
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

func (s *PostgresStore) CreateMonitorAgent(a *model.MonitorAgent) error {
	_, err := s.db.Exec(`INSERT INTO monitor_agents (id, type, region, url) VALUES ($1, $2, $3, $4)`,
		a.ID, string(a.Type), a.Region, a.URL)
	return err
}

func (s *PostgresStore) DeleteMonitorAgent(id string) error {
	_, err := s.db.Exec(`DELETE FROM monitor_agents WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) GetUser(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT id, email, name FROM users WHERE id = $1`, id)
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

func pgScanMonitor(row pgScannable) (*model.Monitor, error) {
	var m model.Monitor
	var kind string
	var lastAlert sql.NullInt64
	var contacts sql.NullString

	err := row.Scan(&m.ID, &m.UserID, &m.Name, &kind, &m.URL, &m.Port, &m.Frequency,
		&m.AlertFrequency, &m.IsPaused, &lastAlert, &m.UpdatedAt, &m.CreatedAt, &contacts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.Kind = model.MonitorKind(kind)
	if lastAlert.Valid {
		m.LastAlertSentAt = lastAlert.Int64
	}
	if contacts.Valid && contacts.String != "" {
		json.Unmarshal([]byte(contacts.String), &m.ContactIDs)
	}
	return &m, nil
}

func pgScanMonitorRow(rows *sql.Rows) (*model.Monitor, error) {
	return pgScanMonitor(rows)
}

type pgScannable interface {
	Scan(dest ...any) error
}

func pgScanEvent(row pgScannable) (*model.UptimeEvent, error) {
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

func pgScanEvents(rows *sql.Rows) ([]model.UptimeEvent, error) {
	var events []model.UptimeEvent
	for rows.Next() {
		e, err := pgScanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func pgNullInt64(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

func pgNullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
