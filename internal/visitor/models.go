package visitor

import "time"

type Visitor struct {
	VisitorID     int64      `json:"VisitorID"`
	Name          string     `json:"Name"`
	ContactNumber string     `json:"ContactNumber"`
	Address       string     `json:"Address,omitempty"`
	Purpose       string     `json:"Purpose,omitempty"`
	PatientID     *int64     `json:"PatientID,omitempty"`
	CheckInTime   time.Time  `json:"CheckInTime"`
	CheckOutTime  *time.Time `json:"CheckOutTime"`

	// IDProof is the object name in the blob container. Never serialized:
	// clients get the download endpoint, not the storage key.
	IDProof string `json:"-"`

	QRCode string `json:"QRCode,omitempty"` // check-in token rendering (data URL)

	// Joined from the patient record when the visit targets one.
	PatientName string `json:"PatientName,omitempty"`
	Ward        string `json:"Ward,omitempty"`
}

type Patient struct {
	PatientID         int64  `json:"PatientID"`
	Name              string `json:"Name"`
	Ward              string `json:"Ward"`
	AllowedVisitHours string `json:"AllowedVisitHours"`
}
