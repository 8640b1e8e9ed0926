package models

import "time"

// ChatReport is the immutable end-of-session archive of a conversation.
// Messages are a snapshot copy; the live message log is never touched.
type ChatReport struct {
	ID           string        `json:"id"`
	DoctorID     int64         `json:"doctor_id"`
	PatientID    int64         `json:"patient_id"`
	PatientName  string        `json:"patient_name"`
	PatientImage string        `json:"patient_image"`
	Messages     []ChatMessage `json:"messages"`
	CreatedAt    time.Time     `json:"created_at"`
}
