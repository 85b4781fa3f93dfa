package store

// Schema is the DDL for the benefit ledger tables. Applied by deploy tooling
// and by the integration-test harness. The CHECK on installment_no and the
// composite primary key enforce the fixed three-installment layout at the
// database level too.
const Schema = `
CREATE TABLE IF NOT EXISTS benefit_records (
	beneficiary_id       UUID PRIMARY KEY,
	program_name         TEXT NOT NULL,
	program_short_name   TEXT NOT NULL,
	total_amount         INTEGER NOT NULL,
	total_eligible       INTEGER NOT NULL,
	total_paid           INTEGER NOT NULL,
	progress             TEXT NOT NULL,
	account_number       TEXT,
	account_holder_name  TEXT,
	ifsc_code            TEXT,
	bank_name            TEXT,
	details_submitted_at TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS benefit_installments (
	beneficiary_id           UUID NOT NULL REFERENCES benefit_records(beneficiary_id) ON DELETE CASCADE,
	installment_no           INTEGER NOT NULL CHECK (installment_no BETWEEN 1 AND 3),
	amount                   INTEGER NOT NULL,
	status                   TEXT NOT NULL,
	eligibility_date         TIMESTAMPTZ,
	application_submitted_at TIMESTAMPTZ,
	application_status       TEXT,
	application_approved_at  TIMESTAMPTZ,
	paid_date                TIMESTAMPTZ,
	transaction_id           TEXT,
	eligibility_criteria     TEXT NOT NULL,
	description              TEXT NOT NULL,
	PRIMARY KEY (beneficiary_id, installment_no)
);

CREATE INDEX IF NOT EXISTS idx_benefit_installments_status
	ON benefit_installments (status);
`
