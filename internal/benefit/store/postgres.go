package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"janani/internal/benefit/models"
	id "janani/pkg/domain"
	"janani/pkg/platform/sentinel"
)

// PostgresStore persists benefit records across benefit_records and
// benefit_installments. The conditional-write contract is implemented with
// SELECT ... FOR UPDATE plus a pre-state recheck inside one transaction, so a
// racing transition observes sentinel.ErrInvalidState instead of silently
// overwriting.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, record *models.BenefitRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertRecord = `
		INSERT INTO benefit_records (
			beneficiary_id, program_name, program_short_name,
			total_amount, total_eligible, total_paid, progress,
			account_number, account_holder_name, ifsc_code, bank_name, details_submitted_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	var acctNumber, acctHolder, ifsc, bank sql.NullString
	var detailsAt sql.NullTime
	if d := record.PaymentDetails; d != nil {
		acctNumber = sql.NullString{String: d.AccountNumber, Valid: true}
		acctHolder = sql.NullString{String: d.AccountHolderName, Valid: true}
		ifsc = sql.NullString{String: d.IFSCCode, Valid: true}
		bank = sql.NullString{String: d.BankName, Valid: true}
		detailsAt = sql.NullTime{Time: d.SubmittedDate, Valid: true}
	}

	_, err = tx.ExecContext(ctx, insertRecord,
		uuid.UUID(record.BeneficiaryID), record.ProgramTitle, record.ProgramShort,
		record.TotalAmount, record.TotalEligible, record.TotalPaid, record.Progress,
		acctNumber, acctHolder, ifsc, bank, detailsAt,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert benefit record: %w", err)
	}

	const insertInstallment = `
		INSERT INTO benefit_installments (
			beneficiary_id, installment_no, amount, status,
			eligibility_date, application_submitted_at, application_status, application_approved_at,
			paid_date, transaction_id, eligibility_criteria, description
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for i := range record.Installments {
		inst := &record.Installments[i]
		appSubmitted, appStatus, appApproved := applicationColumns(inst.Application)
		_, err = tx.ExecContext(ctx, insertInstallment,
			uuid.UUID(record.BeneficiaryID), int(inst.Number), inst.Amount, string(inst.Status),
			nullTime(inst.EligibilityDate), appSubmitted, appStatus, appApproved,
			nullTime(inst.PaidDate), nullString(inst.TransactionID),
			inst.EligibilityCriteria, inst.Description,
		)
		if err != nil {
			return fmt.Errorf("insert installment %d: %w", inst.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, beneficiaryID id.BeneficiaryID) (*models.BenefitRecord, error) {
	return findRecord(ctx, s.db, beneficiaryID, false)
}

func (s *PostgresStore) UpdateInstallment(
	ctx context.Context,
	beneficiaryID id.BeneficiaryID,
	n id.InstallmentNumber,
	expect models.InstallmentStatus,
	mutate func(*models.BenefitRecord) error,
) (*models.BenefitRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	record, err := findRecord(ctx, tx, beneficiaryID, true)
	if err != nil {
		return nil, err
	}
	if record.Installment(n).Status != expect {
		return nil, sentinel.ErrInvalidState
	}

	if err := mutate(record); err != nil {
		return nil, err
	}

	inst := record.Installment(n)
	appSubmitted, appStatus, appApproved := applicationColumns(inst.Application)

	const updateInstallment = `
		UPDATE benefit_installments
		SET status = $3, eligibility_date = $4,
			application_submitted_at = $5, application_status = $6, application_approved_at = $7,
			paid_date = $8, transaction_id = $9
		WHERE beneficiary_id = $1 AND installment_no = $2 AND status = $10`

	res, err := tx.ExecContext(ctx, updateInstallment,
		uuid.UUID(beneficiaryID), int(n), string(inst.Status),
		nullTime(inst.EligibilityDate), appSubmitted, appStatus, appApproved,
		nullTime(inst.PaidDate), nullString(inst.TransactionID),
		string(expect),
	)
	if err != nil {
		return nil, fmt.Errorf("update installment %d: %w", n, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update installment %d: %w", n, err)
	}
	if affected == 0 {
		// Row lock should make this unreachable; keep the guard anyway.
		return nil, sentinel.ErrInvalidState
	}

	const updateRecord = `
		UPDATE benefit_records
		SET total_eligible = $2, total_paid = $3, progress = $4,
			account_number = $5, account_holder_name = $6, ifsc_code = $7, bank_name = $8,
			details_submitted_at = $9, updated_at = $10
		WHERE beneficiary_id = $1`

	var acctNumber, acctHolder, ifsc, bank sql.NullString
	var detailsAt sql.NullTime
	if d := record.PaymentDetails; d != nil {
		acctNumber = sql.NullString{String: d.AccountNumber, Valid: true}
		acctHolder = sql.NullString{String: d.AccountHolderName, Valid: true}
		ifsc = sql.NullString{String: d.IFSCCode, Valid: true}
		bank = sql.NullString{String: d.BankName, Valid: true}
		detailsAt = sql.NullTime{Time: d.SubmittedDate, Valid: true}
	}
	_, err = tx.ExecContext(ctx, updateRecord,
		uuid.UUID(beneficiaryID),
		record.TotalEligible, record.TotalPaid, record.Progress,
		acctNumber, acctHolder, ifsc, bank, detailsAt, record.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update benefit record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListPendingApplications(ctx context.Context) ([]*models.PendingApplication, error) {
	const query = `
		SELECT i.beneficiary_id, i.installment_no, i.amount, i.application_submitted_at,
			r.account_number, r.account_holder_name, r.ifsc_code, r.bank_name, r.details_submitted_at
		FROM benefit_installments i
		JOIN benefit_records r ON r.beneficiary_id = i.beneficiary_id
		WHERE i.status = $1
		ORDER BY i.application_submitted_at`

	rows, err := s.db.QueryContext(ctx, query, string(models.StatusApplicationSubmitted))
	if err != nil {
		return nil, fmt.Errorf("list pending applications: %w", err)
	}
	defer rows.Close()

	pending := []*models.PendingApplication{}
	for rows.Next() {
		var rawID uuid.UUID
		var instNo int
		item := &models.PendingApplication{}
		var submittedAt sql.NullTime
		var acctNumber, acctHolder, ifsc, bank sql.NullString
		var detailsAt sql.NullTime
		if err := rows.Scan(&rawID, &instNo, &item.Amount, &submittedAt,
			&acctNumber, &acctHolder, &ifsc, &bank, &detailsAt); err != nil {
			return nil, fmt.Errorf("scan pending application: %w", err)
		}
		item.BeneficiaryID = id.BeneficiaryID(rawID)
		item.InstallmentNumber = id.InstallmentNumber(instNo)
		if submittedAt.Valid {
			item.SubmittedDate = submittedAt.Time
		}
		if acctNumber.Valid {
			item.PaymentDetails = &models.PaymentDetails{
				AccountNumber:     acctNumber.String,
				AccountHolderName: acctHolder.String,
				IFSCCode:          ifsc.String,
				BankName:          bank.String,
				SubmittedDate:     detailsAt.Time,
			}
		}
		pending = append(pending, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending applications: %w", err)
	}
	return pending, nil
}

// querier abstracts *sql.DB and *sql.Tx for the shared load path.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func findRecord(ctx context.Context, q querier, beneficiaryID id.BeneficiaryID, forUpdate bool) (*models.BenefitRecord, error) {
	recordQuery := `
		SELECT program_name, program_short_name, total_amount, total_eligible, total_paid, progress,
			account_number, account_holder_name, ifsc_code, bank_name, details_submitted_at,
			created_at, updated_at
		FROM benefit_records
		WHERE beneficiary_id = $1`
	if forUpdate {
		recordQuery += " FOR UPDATE"
	}

	record := &models.BenefitRecord{BeneficiaryID: beneficiaryID}
	var acctNumber, acctHolder, ifsc, bank sql.NullString
	var detailsAt sql.NullTime
	err := q.QueryRowContext(ctx, recordQuery, uuid.UUID(beneficiaryID)).Scan(
		&record.ProgramTitle, &record.ProgramShort,
		&record.TotalAmount, &record.TotalEligible, &record.TotalPaid, &record.Progress,
		&acctNumber, &acctHolder, &ifsc, &bank, &detailsAt,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find benefit record: %w", err)
	}
	if acctNumber.Valid {
		record.PaymentDetails = &models.PaymentDetails{
			AccountNumber:     acctNumber.String,
			AccountHolderName: acctHolder.String,
			IFSCCode:          ifsc.String,
			BankName:          bank.String,
			SubmittedDate:     detailsAt.Time,
		}
	}

	installmentQuery := `
		SELECT installment_no, amount, status,
			eligibility_date, application_submitted_at, application_status, application_approved_at,
			paid_date, transaction_id, eligibility_criteria, description
		FROM benefit_installments
		WHERE beneficiary_id = $1
		ORDER BY installment_no`
	if forUpdate {
		installmentQuery += " FOR UPDATE"
	}

	rows, err := q.QueryContext(ctx, installmentQuery, uuid.UUID(beneficiaryID))
	if err != nil {
		return nil, fmt.Errorf("find installments: %w", err)
	}
	defer rows.Close()

	seen := 0
	for rows.Next() {
		var instNo int
		var inst models.Installment
		var status, appStatus sql.NullString
		var eligibleAt, appSubmitted, appApproved, paidAt sql.NullTime
		var txnID sql.NullString
		if err := rows.Scan(&instNo, &inst.Amount, &status,
			&eligibleAt, &appSubmitted, &appStatus, &appApproved,
			&paidAt, &txnID, &inst.EligibilityCriteria, &inst.Description); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		inst.Number = id.InstallmentNumber(instNo)
		inst.Status = models.InstallmentStatus(status.String)
		if eligibleAt.Valid {
			t := eligibleAt.Time
			inst.EligibilityDate = &t
		}
		if appSubmitted.Valid {
			app := &models.Application{
				SubmittedDate: appSubmitted.Time,
				Status:        models.ApplicationStatus(appStatus.String),
			}
			if appApproved.Valid {
				t := appApproved.Time
				app.ApprovedDate = &t
			}
			inst.Application = app
		}
		if paidAt.Valid {
			t := paidAt.Time
			inst.PaidDate = &t
		}
		if txnID.Valid {
			t := txnID.String
			inst.TransactionID = &t
		}
		if !inst.Number.IsValid() {
			return nil, fmt.Errorf("installment row with number %d", instNo)
		}
		record.Installments[inst.Number.Index()] = inst
		seen++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installments: %w", err)
	}
	if seen != id.InstallmentCount {
		return nil, fmt.Errorf("benefit record %s has %d installment rows", beneficiaryID, seen)
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// applicationColumns flattens the nested application state into its three
// nullable columns. A nil application yields all-invalid, matching the
// pre-submission rows.
func applicationColumns(app *models.Application) (sql.NullTime, sql.NullString, sql.NullTime) {
	if app == nil {
		return sql.NullTime{}, sql.NullString{}, sql.NullTime{}
	}
	submitted := sql.NullTime{Time: app.SubmittedDate, Valid: true}
	status := sql.NullString{String: string(app.Status), Valid: true}
	var approved sql.NullTime
	if app.ApprovedDate != nil {
		approved = sql.NullTime{Time: *app.ApprovedDate, Valid: true}
	}
	return submitted, status, approved
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
