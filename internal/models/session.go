package models

import "time"

const (
	SessionStatusScheduled = "scheduled"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

// ScheduledSession is a booked future meeting between a doctor and a
// patient. Its id doubles as the conversation id once either party opens
// the session's chat.
type ScheduledSession struct {
	ID           string    `json:"id"`
	DoctorID     int64     `json:"doctor_id"`
	PatientID    int64     `json:"patient_id"`
	DoctorName   string    `json:"doctor_name"`
	PatientName  string    `json:"patient_name"`
	PatientEmail string    `json:"patient_email"`
	PatientImage string    `json:"patient_image"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}
