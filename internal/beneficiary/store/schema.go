package store

// Schema is the slice of the platform's beneficiaries and visits tables this
// core reads. The case-management subsystems own the real DDL; the
// integration-test harness applies this to stand in for them.
const Schema = `
CREATE TABLE IF NOT EXISTS beneficiaries (
	id                UUID PRIMARY KEY,
	name              TEXT NOT NULL,
	lmp               TEXT,
	confirmation_date TEXT,
	delivery_status   TEXT NOT NULL DEFAULT 'pregnant',
	registered_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS visits (
	id             UUID PRIMARY KEY,
	beneficiary_id UUID NOT NULL REFERENCES beneficiaries(id),
	visited_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_visits_beneficiary ON visits (beneficiary_id);
`
