package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
)

// serviceRow is the raw database shape of one services row.
type serviceRow struct {
	ID        string         `db:"id"`
	Port      sql.NullInt64  `db:"port"`
	Status    string         `db:"status"`
	PID       sql.NullInt64  `db:"pid"`
	Cmd       sql.NullString `db:"cmd"`
	Cwd       sql.NullString `db:"cwd"`
	Metadata  sql.NullString `db:"metadata"`
	CreatedAt int64          `db:"created_at"`
	LastSeen  int64          `db:"last_seen"`
	ExpiresAt sql.NullInt64  `db:"expires_at"`
}

type endpointRow struct {
	ServiceID string `db:"service_id"`
	Env       string `db:"env"`
	URL       string `db:"url"`
}

func findRowByID(tx *dbx.Tx, id string) (serviceRow, bool, error) {
	var row serviceRow
	err := tx.Select("id", "port", "status", "pid", "cmd", "cwd", "metadata", "created_at", "last_seen", "expires_at").
		From("services").Where(dbx.HashExp{"id": id}).One(&row)
	if err == sql.ErrNoRows {
		return serviceRow{}, false, nil
	}
	if err != nil {
		return serviceRow{}, false, fmt.Errorf("registry: lookup %s: %w", id, err)
	}
	return row, true, nil
}

func allRows(tx *dbx.Tx) ([]serviceRow, error) {
	var rows []serviceRow
	err := tx.Select("id", "port", "status", "pid", "cmd", "cwd", "metadata", "created_at", "last_seen", "expires_at").
		From("services").All(&rows)
	if err != nil {
		return nil, fmt.Errorf("registry: list services: %w", err)
	}
	return rows, nil
}

func deleteRows(tx *dbx.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Delete("services", dbx.HashExp{"id": ids}).Execute()
	if err != nil {
		return fmt.Errorf("registry: delete services: %w", err)
	}
	return nil
}

func upsertEndpoint(tx *dbx.Tx, id, env, url string) error {
	res, err := tx.Update("endpoints", dbx.Params{"url": url}, dbx.HashExp{"service_id": id, "env": env}).Execute()
	if err != nil {
		return fmt.Errorf("registry: update endpoint: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = tx.Insert("endpoints", dbx.Params{"service_id": id, "env": env, "url": url}).Execute()
	if err != nil {
		return fmt.Errorf("registry: insert endpoint: %w", err)
	}
	return nil
}

func endpointsFor(tx *dbx.Tx, ids []string) (map[string]map[string]string, error) {
	urls := make(map[string]map[string]string, len(ids))
	if len(ids) == 0 {
		return urls, nil
	}
	var rows []endpointRow
	err := tx.Select("service_id", "env", "url").From("endpoints").
		Where(dbx.HashExp{"service_id": ids}).All(&rows)
	if err != nil {
		return nil, fmt.Errorf("registry: list endpoints: %w", err)
	}
	for _, row := range rows {
		m, ok := urls[row.ServiceID]
		if !ok {
			m = make(map[string]string)
			urls[row.ServiceID] = m
		}
		m[row.Env] = row.URL
	}
	return urls, nil
}

func enrichRows(tx *dbx.Tx, rows []serviceRow) ([]ServiceInfo, error) {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	urls, err := endpointsFor(tx, ids)
	if err != nil {
		return nil, err
	}

	infos := make([]ServiceInfo, len(rows))
	for i, row := range rows {
		meta, err := unmarshalMetadata(row.Metadata)
		if err != nil {
			return nil, err
		}
		info := ServiceInfo{
			ID:        row.ID,
			Port:      intOrZero(row.Port),
			Status:    row.Status,
			PID:       int(row.PID.Int64),
			Cmd:       row.Cmd.String,
			Cwd:       row.Cwd.String,
			CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
			LastSeen:  time.UnixMilli(row.LastSeen).UTC(),
			Metadata:  meta,
			URLs:      urls[row.ID],
		}
		if row.ExpiresAt.Valid {
			t := time.UnixMilli(row.ExpiresAt.Int64).UTC()
			info.ExpiresAt = &t
		}
		if info.URLs == nil {
			info.URLs = map[string]string{}
		}
		infos[i] = info
	}
	return infos, nil
}

func rowExpired(row serviceRow, nowMs int64) bool {
	return row.ExpiresAt.Valid && row.ExpiresAt.Int64 <= nowMs
}

func intOrZero(n sql.NullInt64) int {
	if !n.Valid {
		return 0
	}
	return int(n.Int64)
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("registry: marshal metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMetadata(s sql.NullString) (map[string]any, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, fmt.Errorf("registry: unmarshal metadata: %w", err)
	}
	return m, nil
}
