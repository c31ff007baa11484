package visitor

import (
	"context"
	"time"
)

type CreateVisitorInput struct {
	Name          string
	ContactNumber string
	Address       string
	Purpose       string
	PatientID     *int64
	CheckInTime   time.Time
}

type Store interface {
	CreateVisitor(ctx context.Context, in CreateVisitorInput) (int64, error)
	// DeleteVisitor exists only as registration compensation; checked-in
	// visitors are never deleted through this service.
	DeleteVisitor(ctx context.Context, visitorID int64) error
	SetCheckInToken(ctx context.Context, visitorID int64, qrDataURL string) error
	SetIDProofRef(ctx context.Context, visitorID int64, objectName string) error
	// GetIDProofRef returns "" (not an error) for a visitor with no proof;
	// an unknown visitor is ErrNotFound.
	GetIDProofRef(ctx context.Context, visitorID int64) (string, error)
	SetCheckOutTime(ctx context.Context, visitorID int64, at time.Time) error
	List(ctx context.Context) ([]Visitor, error)

	GetPatient(ctx context.Context, patientID int64) (Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	CreatePatient(ctx context.Context, p Patient) (int64, error)
}
