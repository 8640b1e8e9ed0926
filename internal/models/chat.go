package models

import "time"

// Conversation is the single doctor<->patient channel. The id is either the
// composite "<doctorID>_<patientID>" pair key or a scheduled session's id,
// so both parties compute the same id without coordination.
type Conversation struct {
	ID                 string     `json:"id"`
	DoctorID           int64      `json:"doctor_id"`
	PatientID          int64      `json:"patient_id"`
	LastMessage        string     `json:"last_message"`
	LastTimestamp      *time.Time `json:"last_timestamp"`
	UnreadCountDoctor  int        `json:"unread_count_doctor"`
	UnreadCountPatient int        `json:"unread_count_patient"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ChatMessage is one immutable chat turn. Sender display fields are
// denormalized at send time so transcripts survive profile edits.
type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	SenderRole     string    `json:"sender_role"`
	SenderName     string    `json:"sender_name"`
	SenderImage    string    `json:"sender_image"`
	Body           string    `json:"body"`
	System         bool      `json:"system"`
	CreatedAt      time.Time `json:"created_at"`
}

// UnreadCounts is the per-role counter pair pushed to roster badges.
type UnreadCounts struct {
	ConversationID string `json:"conversation_id"`
	Doctor         int    `json:"doctor"`
	Patient        int    `json:"patient"`
}

// UnreadFor returns the counter belonging to the given viewer role.
func (u UnreadCounts) UnreadFor(role string) int {
	if role == RoleDoctor {
		return u.Doctor
	}
	return u.Patient
}

func (c *Conversation) Counts() UnreadCounts {
	return UnreadCounts{
		ConversationID: c.ID,
		Doctor:         c.UnreadCountDoctor,
		Patient:        c.UnreadCountPatient,
	}
}
