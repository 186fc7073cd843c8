package model

import "time"

// CertificateTemplate is the background image used to render a course's certificates
type CertificateTemplate struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	TemplateURL string    `json:"template_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Certificate is issued once per (user, course) on full completion or by an admin
type Certificate struct {
	ID                int64     `json:"id"`
	UserEmail         string    `json:"user_email"`
	UserName          string    `json:"user_name"`
	CourseID          *int64    `json:"course_id"`
	CourseTitle       string    `json:"course_title"`
	IssuedAt          time.Time `json:"issued_at"`
	CompletionDate    time.Time `json:"completion_date"`
	Workload          string    `json:"workload"`
	VerificationCode  string    `json:"verification_code"`
	VerificationCount int       `json:"verification_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// CertificateWithTemplate adds the course template URL, null when none was uploaded
type CertificateWithTemplate struct {
	Certificate
	TemplateURL *string `json:"template_url"`
}

// CertificateVerification is the public view of a verified certificate
type CertificateVerification struct {
	StudentName       string    `json:"student_name"`
	CourseTitle       string    `json:"course_title"`
	Workload          string    `json:"workload"`
	CompletionDate    time.Time `json:"completion_date"`
	IssuedAt          time.Time `json:"issued_at"`
	VerificationCode  string    `json:"verification_code"`
	VerificationCount int       `json:"verification_count"`
	Modules           []string  `json:"modules,omitempty"`
}

// CertificateDocument is everything the printable certificate shows
type CertificateDocument struct {
	CertificateWithTemplate
	Modules []string `json:"modules"`
}
