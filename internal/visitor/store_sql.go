package visitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) CreateVisitor(ctx context.Context, in CreateVisitorInput) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO visitors (name, contact_number, address, purpose, patient_id, check_in_time)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING visitor_id`,
		in.Name, in.ContactNumber, nullStr(in.Address), nullStr(in.Purpose),
		in.PatientID, in.CheckInTime.Unix()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert visitor: %w", err)
	}
	return id, nil
}

func (s *SQLStore) DeleteVisitor(ctx context.Context, visitorID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE visitor_id=$1`, visitorID)
	return err
}

func (s *SQLStore) SetCheckInToken(ctx context.Context, visitorID int64, qrDataURL string) error {
	return s.updateVisitor(ctx, `UPDATE visitors SET qr_code=$1 WHERE visitor_id=$2`, qrDataURL, visitorID)
}

func (s *SQLStore) SetIDProofRef(ctx context.Context, visitorID int64, objectName string) error {
	return s.updateVisitor(ctx, `UPDATE visitors SET id_proof=$1 WHERE visitor_id=$2`, objectName, visitorID)
}

func (s *SQLStore) SetCheckOutTime(ctx context.Context, visitorID int64, at time.Time) error {
	return s.updateVisitor(ctx, `UPDATE visitors SET check_out_time=$1 WHERE visitor_id=$2`, at.Unix(), visitorID)
}

func (s *SQLStore) updateVisitor(ctx context.Context, q string, val interface{}, visitorID int64) error {
	res, err := s.db.ExecContext(ctx, q, val, visitorID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: visitor %d", ErrNotFound, visitorID)
	}
	return nil
}

func (s *SQLStore) GetIDProofRef(ctx context.Context, visitorID int64) (string, error) {
	var ref sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id_proof FROM visitors WHERE visitor_id=$1`, visitorID).Scan(&ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: visitor %d", ErrNotFound, visitorID)
		}
		return "", err
	}
	return ref.String, nil
}

func (s *SQLStore) List(ctx context.Context) ([]Visitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.visitor_id, v.name, v.contact_number, v.address, v.purpose,
		        v.patient_id, v.check_in_time, v.check_out_time, v.id_proof, v.qr_code,
		        p.name, p.ward
		 FROM visitors v
		 LEFT JOIN patients p ON v.patient_id = p.patient_id
		 ORDER BY v.visitor_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Visitor{}
	for rows.Next() {
		var (
			v                        Visitor
			address, purpose         sql.NullString
			patientID                sql.NullInt64
			checkIn                  int64
			checkOut                 sql.NullInt64
			idProof, qrCode          sql.NullString
			patientName, patientWard sql.NullString
		)
		if err := rows.Scan(&v.VisitorID, &v.Name, &v.ContactNumber, &address, &purpose,
			&patientID, &checkIn, &checkOut, &idProof, &qrCode,
			&patientName, &patientWard); err != nil {
			return nil, err
		}
		v.Address = address.String
		v.Purpose = purpose.String
		if patientID.Valid {
			pid := patientID.Int64
			v.PatientID = &pid
		}
		v.CheckInTime = time.Unix(checkIn, 0).UTC()
		if checkOut.Valid {
			t := time.Unix(checkOut.Int64, 0).UTC()
			v.CheckOutTime = &t
		}
		v.IDProof = idProof.String
		v.QRCode = qrCode.String
		v.PatientName = patientName.String
		v.Ward = patientWard.String
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetPatient(ctx context.Context, patientID int64) (Patient, error) {
	var p Patient
	err := s.db.QueryRowContext(ctx,
		`SELECT patient_id, name, ward, allowed_visit_hours FROM patients WHERE patient_id=$1`,
		patientID).Scan(&p.PatientID, &p.Name, &p.Ward, &p.AllowedVisitHours)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Patient{}, fmt.Errorf("%w: patient %d", ErrNotFound, patientID)
		}
		return Patient{}, err
	}
	return p, nil
}

func (s *SQLStore) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT patient_id, name, ward, allowed_visit_hours FROM patients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Patient{}
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.PatientID, &p.Name, &p.Ward, &p.AllowedVisitHours); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreatePatient(ctx context.Context, p Patient) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO patients (name, ward, allowed_visit_hours) VALUES ($1,$2,$3)
		 RETURNING patient_id`,
		p.Name, p.Ward, p.AllowedVisitHours).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert patient: %w", err)
	}
	return id, nil
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
