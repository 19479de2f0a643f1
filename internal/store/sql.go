package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	v1 "github.com/lyraio/lyra/api/v1"
	"github.com/lyraio/lyra/internal/types"
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// Supported SQL backends.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// userModel maps the users table.
type userModel struct {
	bun.BaseModel `bun:"table:users"`
	ID            string         `bun:"id,pk"`
	Name          sql.NullString `bun:"name"`
}

// guardianModel maps the guardians table.
type guardianModel struct {
	bun.BaseModel `bun:"table:guardians"`
	ID            int64          `bun:"id,pk,autoincrement"`
	LinkedUserID  string         `bun:"linked_user_id,notnull"`
	FCMToken      sql.NullString `bun:"fcm_token"`
}

// authorityModel maps the authorities table.
type authorityModel struct {
	bun.BaseModel `bun:"table:authorities"`
	ID            int64          `bun:"id,pk,autoincrement"`
	Active        bool           `bun:"active,notnull"`
	FCMToken      sql.NullString `bun:"fcm_token"`
}

// notificationLogModel maps the append-only notification_logs table.
type notificationLogModel struct {
	bun.BaseModel       `bun:"table:notification_logs"`
	ID                  string          `bun:"id,pk"`
	EventID             string          `bun:"event_id,notnull"`
	Kind                string          `bun:"kind,notnull"`
	UserID              string          `bun:"user_id,notnull"`
	Source              sql.NullString  `bun:"source"`
	DangerScore         sql.NullFloat64 `bun:"danger_score"`
	GuardiansNotified   bool            `bun:"guardians_notified,notnull"`
	AuthoritiesNotified bool            `bun:"authorities_notified,notnull"`
	GuardianRecipients  int             `bun:"guardian_recipients,notnull"`
	AuthorityRecipients int             `bun:"authority_recipients,notnull"`
	Timestamp           time.Time       `bun:"timestamp,notnull"`
}

// sosAlertModel maps sos_alerts. Seq orders rows for the poller.
type sosAlertModel struct {
	bun.BaseModel `bun:"table:sos_alerts"`
	Seq           int64           `bun:"seq,pk,autoincrement"`
	ID            string          `bun:"id,notnull,unique"`
	UserID        sql.NullString  `bun:"user_id"`
	Source        sql.NullString  `bun:"source"`
	Risk          sql.NullFloat64 `bun:"risk"`
	Latitude      sql.NullFloat64 `bun:"latitude"`
	Longitude     sql.NullFloat64 `bun:"longitude"`
}

// trackingEventModel maps tracking_events. Seq orders rows for the poller.
type trackingEventModel struct {
	bun.BaseModel `bun:"table:tracking_events"`
	Seq           int64          `bun:"seq,pk,autoincrement"`
	ID            string         `bun:"id,notnull,unique"`
	UserID        sql.NullString `bun:"user_id"`
	Type          sql.NullString `bun:"type"`
}

// RawEvent is a trigger row rendered in document form. Absent columns are
// omitted from Data.
type RawEvent struct {
	Seq  int64
	ID   string
	Data map[string]any
}

// SQLStore is a bun-backed Store over sqlite, postgres or mysql.
type SQLStore struct {
	db     *bun.DB
	dbType string
	now    func() time.Time
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens the database, creates missing tables and returns a store.
func OpenSQL(ctx context.Context, dbType, dsn string) (*SQLStore, error) {
	driverName := dbType
	// The pgx stdlib registers driver name "pgx"; map "postgres" to that driver.
	if dbType == DriverPostgres {
		driverName = "pgx"
	}
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// In-memory SQLite is per-connection; pin to one connection.
	if dbType == DriverSQLite && (dsn == ":memory:" || dsn == "file::memory:") {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	bunDB, err := createBunDB(sqlDB, dbType)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	s := &SQLStore{db: bunDB, dbType: dbType, now: time.Now}
	if err := s.createSchema(ctx); err != nil {
		_ = bunDB.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

// createBunDB wraps sqlDB with the dialect for dbType.
func createBunDB(sqlDB *sql.DB, dbType string) (*bun.DB, error) {
	switch dbType {
	case DriverSQLite:
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	case DriverPostgres:
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	case DriverMySQL:
		return bun.NewDB(sqlDB, mysqldialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %q", dbType)
	}
}

func (s *SQLStore) createSchema(ctx context.Context) error {
	models := []any{
		(*userModel)(nil),
		(*guardianModel)(nil),
		(*authorityModel)(nil),
		(*notificationLogModel)(nil),
		(*sosAlertModel)(nil),
		(*trackingEventModel)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	// MySQL has no CREATE INDEX IF NOT EXISTS.
	if s.dbType != DriverMySQL {
		if _, err := s.db.NewCreateIndex().
			Model((*guardianModel)(nil)).
			Index("guardians_linked_user_id_idx").
			Column("linked_user_id").
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// UserProfile implements Directory.
func (s *SQLStore) UserProfile(ctx context.Context, userID string) (UserProfile, error) {
	var u userModel
	err := s.db.NewSelect().Model(&u).Where("id = ?", userID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return UserProfile{}, ErrNotFound
	}
	if err != nil {
		return UserProfile{}, fmt.Errorf("select user %s: %w", userID, err)
	}
	return UserProfile{ID: u.ID, Name: u.Name.String}, nil
}

// GuardianAddresses implements Directory.
func (s *SQLStore) GuardianAddresses(ctx context.Context, subjectUserID string) ([]string, error) {
	var gs []guardianModel
	err := s.db.NewSelect().Model(&gs).Where("linked_user_id = ?", subjectUserID).OrderExpr("id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select guardians: %w", err)
	}
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.FCMToken.String)
	}
	return out, nil
}

// ActiveAuthorityAddresses implements Directory.
func (s *SQLStore) ActiveAuthorityAddresses(ctx context.Context) ([]string, error) {
	var as []authorityModel
	err := s.db.NewSelect().Model(&as).Where("active = ?", true).OrderExpr("id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select authorities: %w", err)
	}
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.FCMToken.String)
	}
	return out, nil
}

// AppendDeliveryLog implements LogWriter. The id is a random UUID and the
// timestamp is taken from the store clock.
func (s *SQLStore) AppendDeliveryLog(ctx context.Context, entry types.DeliveryLogEntry) (string, error) {
	m := &notificationLogModel{
		ID:                  uuid.NewString(),
		EventID:             entry.EventID,
		Kind:                string(entry.Kind),
		UserID:              entry.SubjectUserID,
		Source:              nullString(string(entry.Source)),
		GuardiansNotified:   entry.GuardiansNotified,
		AuthoritiesNotified: entry.AuthoritiesNotified,
		GuardianRecipients:  entry.GuardianRecipients,
		AuthorityRecipients: entry.AuthorityRecipients,
		Timestamp:           s.now().UTC(),
	}
	if entry.RiskScore != nil {
		m.DangerScore = sql.NullFloat64{Float64: *entry.RiskScore, Valid: true}
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return "", fmt.Errorf("insert notification log: %w", err)
	}
	return m.ID, nil
}

// DeliveryLogs returns all delivery logs in write order.
func (s *SQLStore) DeliveryLogs(ctx context.Context) ([]v1.NotificationLog, error) {
	var ms []notificationLogModel
	if err := s.db.NewSelect().Model(&ms).OrderExpr("timestamp ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select notification logs: %w", err)
	}
	out := make([]v1.NotificationLog, 0, len(ms))
	for _, m := range ms {
		entry := types.DeliveryLogEntry{
			EventID:             m.EventID,
			Kind:                types.EventKind(m.Kind),
			SubjectUserID:       m.UserID,
			Source:              types.Source(m.Source.String),
			GuardiansNotified:   m.GuardiansNotified,
			AuthoritiesNotified: m.AuthoritiesNotified,
			GuardianRecipients:  m.GuardianRecipients,
			AuthorityRecipients: m.AuthorityRecipients,
			Timestamp:           m.Timestamp,
		}
		if m.DangerScore.Valid {
			entry.RiskScore = types.Float(m.DangerScore.Float64)
		}
		out = append(out, LogDocument(entry))
	}
	return out, nil
}

// AddUser inserts a user profile.
func (s *SQLStore) AddUser(ctx context.Context, id string, u v1.User) error {
	_, err := s.db.NewInsert().Model(&userModel{ID: id, Name: nullString(u.Name)}).Exec(ctx)
	return err
}

// AddGuardian inserts a guardian link.
func (s *SQLStore) AddGuardian(ctx context.Context, g v1.Guardian) error {
	_, err := s.db.NewInsert().Model(&guardianModel{
		LinkedUserID: g.LinkedUserID,
		FCMToken:     nullString(g.FCMToken),
	}).Exec(ctx)
	return err
}

// AddAuthority inserts a responder device.
func (s *SQLStore) AddAuthority(ctx context.Context, a v1.Authority) error {
	_, err := s.db.NewInsert().Model(&authorityModel{
		Active:   a.Active,
		FCMToken: nullString(a.FCMToken),
	}).Exec(ctx)
	return err
}

// InsertSOSAlert inserts a trigger row into sos_alerts.
func (s *SQLStore) InsertSOSAlert(ctx context.Context, id string, doc v1.SOSAlert) error {
	m := &sosAlertModel{
		ID:        id,
		UserID:    nullString(doc.UserID),
		Source:    nullString(doc.Source),
		Risk:      nullFloat(doc.Risk),
		Latitude:  nullFloat(doc.Latitude),
		Longitude: nullFloat(doc.Longitude),
	}
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	return err
}

// InsertTrackingEvent inserts a trigger row into tracking_events.
func (s *SQLStore) InsertTrackingEvent(ctx context.Context, id string, doc v1.TrackingEvent) error {
	m := &trackingEventModel{
		ID:     id,
		UserID: nullString(doc.UserID),
		Type:   nullString(doc.Type),
	}
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	return err
}

// MaxSeq returns the highest sequence number in a trigger collection, or 0 when empty.
func (s *SQLStore) MaxSeq(ctx context.Context, collection string) (int64, error) {
	var model any
	switch collection {
	case v1.CollectionSOSAlerts:
		model = (*sosAlertModel)(nil)
	case v1.CollectionTrackingEvents:
		model = (*trackingEventModel)(nil)
	default:
		return 0, fmt.Errorf("unsupported trigger collection %q", collection)
	}
	var maxSeq sql.NullInt64
	if err := s.db.NewSelect().Model(model).ColumnExpr("MAX(seq)").Scan(ctx, &maxSeq); err != nil {
		return 0, fmt.Errorf("select max seq from %s: %w", collection, err)
	}
	return maxSeq.Int64, nil
}

// EventsAfter returns up to limit trigger rows with seq greater than afterSeq, oldest first.
func (s *SQLStore) EventsAfter(ctx context.Context, collection string, afterSeq int64, limit int) ([]RawEvent, error) {
	switch collection {
	case v1.CollectionSOSAlerts:
		var rows []sosAlertModel
		if err := s.db.NewSelect().Model(&rows).Where("seq > ?", afterSeq).OrderExpr("seq ASC").Limit(limit).Scan(ctx); err != nil {
			return nil, fmt.Errorf("select %s: %w", collection, err)
		}
		out := make([]RawEvent, 0, len(rows))
		for _, r := range rows {
			data := make(map[string]any)
			putString(data, v1.FieldUserID, r.UserID)
			putString(data, v1.FieldSource, r.Source)
			putFloat(data, v1.FieldRisk, r.Risk)
			putFloat(data, v1.FieldLatitude, r.Latitude)
			putFloat(data, v1.FieldLongitude, r.Longitude)
			out = append(out, RawEvent{Seq: r.Seq, ID: r.ID, Data: data})
		}
		return out, nil
	case v1.CollectionTrackingEvents:
		var rows []trackingEventModel
		if err := s.db.NewSelect().Model(&rows).Where("seq > ?", afterSeq).OrderExpr("seq ASC").Limit(limit).Scan(ctx); err != nil {
			return nil, fmt.Errorf("select %s: %w", collection, err)
		}
		out := make([]RawEvent, 0, len(rows))
		for _, r := range rows {
			data := make(map[string]any)
			putString(data, v1.FieldUserID, r.UserID)
			putString(data, v1.FieldType, r.Type)
			out = append(out, RawEvent{Seq: r.Seq, ID: r.ID, Data: data})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported trigger collection %q", collection)
	}
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func putString(m map[string]any, key string, v sql.NullString) {
	if v.Valid {
		m[key] = v.String
	}
}

func putFloat(m map[string]any, key string, v sql.NullFloat64) {
	if v.Valid {
		m[key] = v.Float64
	}
}
