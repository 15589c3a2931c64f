package models

// Institution is a school a student previously studied at.
type Institution struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	IsHome bool   `json:"isHome" db:"is_home"` // Owns the target curricula
}

// Curriculum is a receiving program whose courses can be credited.
type Curriculum struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Course holds the fields shared by source and target courses.
// Description is the only field the matcher reads.
type Course struct {
	ID          int64  `json:"id" db:"id"`
	Code        string `json:"code" db:"code"`
	Name        string `json:"name" db:"name"`
	Credits     int    `json:"credits" db:"credits"`
	Description string `json:"description" db:"description"`
}

// SourceCourse is a course completed at an external institution.
type SourceCourse struct {
	Course
	InstitutionID int64 `json:"institutionId" db:"institution_id"`

	Institution *Institution `json:"institution,omitempty"`
}

// TargetCourse is a course of a curriculum that source courses are credited against.
type TargetCourse struct {
	Course
	CurriculumID int64 `json:"curriculumId" db:"curriculum_id"`
}
