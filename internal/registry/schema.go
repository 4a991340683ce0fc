package registry

// schema is applied once at Open time. It mirrors the two tables described
// in the specification's external-interfaces section.
//
// The partial unique index on services.port is approximated as
// "WHERE port IS NOT NULL" rather than "restricted to non-expired rows":
// SQLite partial-index predicates must be deterministic and cannot reference
// the current time, so a literal "non-expired" predicate isn't expressible
// as a static index. Expiration-awareness is instead enforced by the
// allocation query (which only treats a port as free when no non-expired
// row holds it) plus opportunistic deletion of stale rows encountered along
// the way — see allocatePort and reapExpiredLocked in registry.go.
const schema = `
CREATE TABLE IF NOT EXISTS services (
	id         TEXT PRIMARY KEY,
	port       INTEGER,
	status     TEXT NOT NULL,
	pid        INTEGER,
	cmd        TEXT,
	cwd        TEXT,
	metadata   TEXT,
	created_at INTEGER NOT NULL,
	last_seen  INTEGER NOT NULL,
	expires_at INTEGER
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_services_port
	ON services(port) WHERE port IS NOT NULL;

CREATE TABLE IF NOT EXISTS endpoints (
	service_id TEXT NOT NULL,
	env        TEXT NOT NULL,
	url        TEXT NOT NULL,
	PRIMARY KEY (service_id, env),
	FOREIGN KEY (service_id) REFERENCES services(id) ON DELETE CASCADE
);
`
