// Package registry implements the port-and-identity registry: a persistent
// store of service records and endpoints, a collision-free port allocator,
// pattern-based lookup, and TTL expiration.
//
// It is backed by modernc.org/sqlite (the same pure-Go SQLite the teacher's
// PocketBase stack resolves to) accessed through github.com/pocketbase/dbx,
// the teacher's own SQL builder. Every exported method opens exactly one
// transaction; no callback runs while a transaction is open.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	_ "modernc.org/sqlite"

	"github.com/websoft9/portd/internal/audit"
	"github.com/websoft9/portd/internal/identity"
)

// Status values a ServiceRecord can hold.
const (
	StatusAssigned = "assigned"
	StatusRunning  = "running"
	StatusStopped  = "stopped"
	StatusFailed   = "failed"
)

// ReservedPorts may never be allocated.
var ReservedPorts = map[int]bool{8080: true, 8000: true, 9876: true}

// DefaultRangeLo and DefaultRangeHi bound allocation when the caller
// supplies no preferred range.
const (
	DefaultRangeLo = 3100
	DefaultRangeHi = 9999
)

// Registry is the public contract described in the specification's §4.1.
type Registry struct {
	sqlDB    *sql.DB
	db       *dbx.DB
	notifier Notifier
	audit    *audit.Logger
	now      func() time.Time
}

// Option configures a Registry at Open time.
type Option func(*Registry)

// WithNotifier registers a callback invoked after each successful mutation.
func WithNotifier(n Notifier) Option {
	return func(r *Registry) { r.notifier = n }
}

// WithAudit attaches an audit logger; claim/release/setStatus/setEndpoint/
// cleanup each write one entry per successful call (release and cleanup
// only when they removed at least one record).
func WithAudit(l *audit.Logger) Option {
	return func(r *Registry) { r.audit = l }
}

// Open creates or reuses a SQLite database at path (use ":memory:" or
// "file::memory:?cache=shared" for an ephemeral, test-only store) and
// applies the schema.
func Open(path string, opts ...Option) (*Registry, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", path, err)
	}
	// SQLite has a single writer; serializing all connections onto one makes
	// "every public operation executes as a single serializable transaction"
	// (spec §5) true without a separate application-level lock manager.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(context.Background(), schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("registry: apply schema: %w", err)
	}

	r := &Registry{
		sqlDB: sqlDB,
		db:    dbx.NewFromDB(sqlDB, "sqlite"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close releases the underlying database handle.
func (r *Registry) Close() error {
	return r.sqlDB.Close()
}

// ─── claim ───────────────────────────────────────────────────────────────

// ClaimOptions carries the optional inputs to Claim.
type ClaimOptions struct {
	Port     int // preferred port; 0 means no preference
	RangeLo  int // 0 means DefaultRangeLo
	RangeHi  int // 0 means DefaultRangeHi
	PID      int
	Cmd      string
	Cwd      string
	Metadata map[string]any
	Expires  string // duration literal "<n>s|m|h|d"; "" means no expiration
}

// ClaimResult is the result of Claim.
type ClaimResult struct {
	Success  bool
	ID       string
	Port     int
	Status   string
	Existing bool
	Message  string
	Error    string
}

// Claim atomically reserves a port for id, or returns the existing
// reservation when id already has a non-expired record (idempotent reuse).
func (r *Registry) Claim(id string, opts ClaimOptions) ClaimResult {
	if _, err := identity.ParseIdentity(id); err != nil {
		return ClaimResult{Error: err.Error()}
	}

	var expiresAt *int64
	if opts.Expires != "" {
		d, err := parseDurationLiteral(opts.Expires)
		if err != nil {
			return ClaimResult{Error: err.Error()}
		}
		ts := r.now().Add(d).UnixMilli()
		expiresAt = &ts
	}

	lo, hi := opts.RangeLo, opts.RangeHi
	if lo == 0 {
		lo = DefaultRangeLo
	}
	if hi == 0 {
		hi = DefaultRangeHi
	}

	var result ClaimResult
	txErr := r.db.Transactional(func(tx *dbx.Tx) error {
		nowMs := r.now().UnixMilli()

		existing, found, err := findRowByID(tx, id)
		if err != nil {
			return err
		}
		if found {
			if !rowExpired(existing, nowMs) {
				result = ClaimResult{
					Success:  true,
					ID:       id,
					Port:     intOrZero(existing.Port),
					Status:   existing.Status,
					Existing: true,
					Message:  "existing claim reused",
				}
				return nil
			}
			// Expired: treat as absent. Delete it now so its port (if any) is
			// free for the fresh allocation below.
			if err := deleteRows(tx, []string{existing.ID}); err != nil {
				return err
			}
		}

		port, message, err := r.allocatePort(tx, opts.Port, lo, hi, nowMs)
		if err != nil {
			result = ClaimResult{Error: err.Error()}
			return nil
		}

		metaBlob, err := marshalMetadata(opts.Metadata)
		if err != nil {
			return err
		}

		_, err = tx.Insert("services", dbx.Params{
			"id":         id,
			"port":       port,
			"status":     StatusAssigned,
			"pid":        nullableInt(opts.PID),
			"cmd":        nullableString(opts.Cmd),
			"cwd":        nullableString(opts.Cwd),
			"metadata":   metaBlob,
			"created_at": nowMs,
			"last_seen":  nowMs,
			"expires_at": expiresAt,
		}).Execute()
		if err != nil {
			return fmt.Errorf("registry: insert service: %w", err)
		}

		if err := upsertEndpoint(tx, id, "local", fmt.Sprintf("http://localhost:%d", port)); err != nil {
			return err
		}

		result = ClaimResult{
			Success: true,
			ID:      id,
			Port:    port,
			Status:  StatusAssigned,
			Message: message,
		}
		return nil
	})
	if txErr != nil {
		return ClaimResult{Error: txErr.Error()}
	}

	if result.Success {
		r.notify(Event{Kind: EventClaim, ID: id, Port: result.Port})
		r.writeAudit("registry.claim", id, result.Existing, map[string]any{"port": result.Port, "existing": result.Existing})
	}
	return result
}

// allocatePort implements the two-step algorithm from spec §4.1: try the
// preferred port first, then scan the range ascending. Caller must hold tx.
func (r *Registry) allocatePort(tx *dbx.Tx, preferred, lo, hi int, nowMs int64) (int, string, error) {
	if preferred != 0 {
		free, err := r.portFreeLocked(tx, preferred, nowMs)
		if err != nil {
			return 0, "", err
		}
		if free && !ReservedPorts[preferred] {
			return preferred, "using preferred port", nil
		}
	}

	inUse, err := portsInUseLocked(tx, lo, hi, nowMs)
	if err != nil {
		return 0, "", err
	}
	for p := lo; p <= hi; p++ {
		if ReservedPorts[p] || inUse[p] {
			continue
		}
		return p, "allocated from range", nil
	}
	return 0, "", fmt.Errorf("No available ports in range")
}

func (r *Registry) portFreeLocked(tx *dbx.Tx, port int, nowMs int64) (bool, error) {
	if ReservedPorts[port] {
		return false, nil
	}
	var count int
	err := tx.NewQuery(`SELECT COUNT(*) FROM services WHERE port = {:port} AND (expires_at IS NULL OR expires_at > {:now})`).
		Bind(dbx.Params{"port": port, "now": nowMs}).Row(&count)
	if err != nil {
		return false, fmt.Errorf("registry: check port free: %w", err)
	}
	return count == 0, nil
}

// portsInUseLocked returns the set of ports in [lo,hi] held by a non-expired
// record, in one query (avoids an O(range) query loop).
func portsInUseLocked(tx *dbx.Tx, lo, hi int, nowMs int64) (map[int]bool, error) {
	var ports []int
	err := tx.NewQuery(`SELECT port FROM services WHERE port BETWEEN {:lo} AND {:hi} AND (expires_at IS NULL OR expires_at > {:now})`).
		Bind(dbx.Params{"lo": lo, "hi": hi, "now": nowMs}).Column(&ports)
	if err != nil {
		return nil, fmt.Errorf("registry: scan ports in use: %w", err)
	}
	set := make(map[int]bool, len(ports))
	for _, p := range ports {
		set[p] = true
	}
	return set, nil
}

// ─── release ─────────────────────────────────────────────────────────────

// ReleaseOptions restricts which matching records are released.
type ReleaseOptions struct {
	ExpiredOnly bool
}

// ReleaseResult is the result of Release.
type ReleaseResult struct {
	Success  bool
	Released int
	Port     int // populated only when exactly one record was released
	Message  string
	Error    string
}

// Release deletes every ServiceRecord matching pattern (cascading their
// endpoints). Releasing a pattern that matches nothing is not an error.
func (r *Registry) Release(pattern string, opts ReleaseOptions) ReleaseResult {
	pat, err := identity.ParsePattern(pattern)
	if err != nil {
		return ReleaseResult{Error: err.Error()}
	}

	var result ReleaseResult
	txErr := r.db.Transactional(func(tx *dbx.Tx) error {
		nowMs := r.now().UnixMilli()
		rows, err := allRows(tx)
		if err != nil {
			return err
		}

		var toDelete []serviceRow
		for _, row := range rows {
			ident, err := identity.ParseIdentity(row.ID)
			if err != nil {
				continue
			}
			if !identity.Matches(pat, ident) {
				continue
			}
			if opts.ExpiredOnly && !rowExpired(row, nowMs) {
				continue
			}
			toDelete = append(toDelete, row)
		}

		if len(toDelete) == 0 {
			result = ReleaseResult{Success: true, Released: 0}
			return nil
		}

		ids := make([]string, len(toDelete))
		for i, row := range toDelete {
			ids[i] = row.ID
		}
		if err := deleteRows(tx, ids); err != nil {
			return err
		}

		result = ReleaseResult{Success: true, Released: len(toDelete)}
		if len(toDelete) == 1 {
			result.Port = intOrZero(toDelete[0].Port)
		}
		return nil
	})
	if txErr != nil {
		return ReleaseResult{Error: txErr.Error()}
	}

	if result.Success && result.Released > 0 {
		r.notify(Event{Kind: EventRelease, Count: result.Released})
		r.writeAudit("registry.release", pattern, false, map[string]any{"released": result.Released})
	}
	return result
}

// ─── find / get ──────────────────────────────────────────────────────────

// FindOptions filters Find results.
type FindOptions struct {
	Status  string
	Port    int
	Expired *bool // nil: don't filter; else only expired/non-expired
	Limit   int
}

// ServiceInfo is the enriched, read-facing view of a ServiceRecord.
type ServiceInfo struct {
	ID        string
	Port      int
	Status    string
	PID       int
	Cmd       string
	Cwd       string
	CreatedAt time.Time
	LastSeen  time.Time
	ExpiresAt *time.Time
	Metadata  map[string]any
	URLs      map[string]string
}

// FindResult is the result of Find.
type FindResult struct {
	Success  bool
	Count    int
	Services []ServiceInfo
	Error    string
}

// Find returns every ServiceRecord matching pattern, subject to opts.
func (r *Registry) Find(pattern string, opts FindOptions) FindResult {
	pat, err := identity.ParsePattern(pattern)
	if err != nil {
		return FindResult{Error: err.Error()}
	}

	var result FindResult
	txErr := r.db.Transactional(func(tx *dbx.Tx) error {
		nowMs := r.now().UnixMilli()
		rows, err := allRows(tx)
		if err != nil {
			return err
		}

		var matched []serviceRow
		for _, row := range rows {
			ident, err := identity.ParseIdentity(row.ID)
			if err != nil {
				continue
			}
			if !identity.Matches(pat, ident) {
				continue
			}
			if opts.Status != "" && row.Status != opts.Status {
				continue
			}
			if opts.Port != 0 && intOrZero(row.Port) != opts.Port {
				continue
			}
			if opts.Expired != nil && rowExpired(row, nowMs) != *opts.Expired {
				continue
			}
			matched = append(matched, row)
			if opts.Limit > 0 && len(matched) >= opts.Limit {
				break
			}
		}

		infos, err := enrichRows(tx, matched)
		if err != nil {
			return err
		}
		result = FindResult{Success: true, Count: len(infos), Services: infos}
		return nil
	})
	if txErr != nil {
		return FindResult{Error: txErr.Error()}
	}
	return result
}

// GetResult is the result of Get.
type GetResult struct {
	Success bool
	Service *ServiceInfo
	Error   string
}

// Get returns the single ServiceRecord with the given identity.
func (r *Registry) Get(id string) GetResult {
	if _, err := identity.ParseIdentity(id); err != nil {
		return GetResult{Error: err.Error()}
	}

	var result GetResult
	txErr := r.db.Transactional(func(tx *dbx.Tx) error {
		row, found, err := findRowByID(tx, id)
		if err != nil {
			return err
		}
		if !found {
			result = GetResult{Error: "not found"}
			return nil
		}
		infos, err := enrichRows(tx, []serviceRow{row})
		if err != nil {
			return err
		}
		result = GetResult{Success: true, Service: &infos[0]}
		return nil
	})
	if txErr != nil {
		return GetResult{Error: txErr.Error()}
	}
	return result
}

// ─── setEndpoint / setStatus ─────────────────────────────────────────────

// EndpointResult is the result of SetEndpoint.
type EndpointResult struct {
	Success bool
	Error   string
}

// SetEndpoint creates or updates the (id, env) endpoint to url.
func (r *Registry) SetEndpoint(id, env, url string) EndpointResult {
	var result EndpointResult
	txErr := r.db.Transactional(func(tx *dbx.Tx) error {
		_, found, err := findRowByID(tx, id)
		if err != nil {
			return err
		}
		if !found {
			result = EndpointResult{Error: "not found"}
			return nil
		}
		if err := upsertEndpoint(tx, id, env, url); err != nil {
			return err
		}
		result = EndpointResult{Success: true}
		return nil
	})
	if txErr != nil {
		return EndpointResult{Error: txErr.Error()}
	}
	if result.Success {
		r.notify(Event{Kind: EventSetEndpoint, ID: id})
		r.writeAudit("registry.set_endpoint", id, false, map[string]any{"env": env, "url": url})
	}
	return result
}

// StatusResult is the result of SetStatus.
type StatusResult struct {
	Success bool
	Error   string
}

// SetStatus updates a service's status and refreshes last_seen.
func (r *Registry) SetStatus(id, status string) StatusResult {
	var result StatusResult
	txErr := r.db.Transactional(func(tx *dbx.Tx) error {
		_, found, err := findRowByID(tx, id)
		if err != nil {
			return err
		}
		if !found {
			result = StatusResult{Error: "not found"}
			return nil
		}
		_, err = tx.Update("services", dbx.Params{
			"status":    status,
			"last_seen": r.now().UnixMilli(),
		}, dbx.HashExp{"id": id}).Execute()
		if err != nil {
			return fmt.Errorf("registry: update status: %w", err)
		}
		result = StatusResult{Success: true}
		return nil
	})
	if txErr != nil {
		return StatusResult{Error: txErr.Error()}
	}
	if result.Success {
		r.notify(Event{Kind: EventSetStatus, ID: id})
		r.writeAudit("registry.set_status", id, false, map[string]any{"status": status})
	}
	return result
}

// ─── cleanup ─────────────────────────────────────────────────────────────

// CleanupResult is the result of Cleanup.
type CleanupResult struct {
	Cleaned int
}

// Cleanup removes every expired ServiceRecord and its endpoints.
func (r *Registry) Cleanup() CleanupResult {
	var result CleanupResult
	_ = r.db.Transactional(func(tx *dbx.Tx) error {
		nowMs := r.now().UnixMilli()
		var ids []string
		err := tx.NewQuery(`SELECT id FROM services WHERE expires_at IS NOT NULL AND expires_at <= {:now}`).
			Bind(dbx.Params{"now": nowMs}).Column(&ids)
		if err != nil {
			return fmt.Errorf("registry: find expired: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := deleteRows(tx, ids); err != nil {
			return err
		}
		result.Cleaned = len(ids)
		return nil
	})
	if result.Cleaned > 0 {
		r.notify(Event{Kind: EventCleanup, Count: result.Cleaned})
		r.writeAudit("registry.cleanup", "", false, map[string]any{"cleaned": result.Cleaned})
	}
	return result
}

func (r *Registry) writeAudit(action, resourceID string, existing bool, detail map[string]any) {
	if r.audit == nil {
		return
	}
	if detail == nil {
		detail = map[string]any{}
	}
	detail["existing"] = existing
	r.audit.Write(audit.Entry{Action: action, ResourceID: resourceID, Status: audit.StatusSuccess, Detail: detail})
}
