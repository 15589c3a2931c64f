package models

import "time"

// TransferRequest is a student's submission to have prior courses credited
// against a target curriculum.
type TransferRequest struct {
	ID              int64         `json:"id" db:"id"`
	StudentID       int64         `json:"studentId" db:"student_id"`
	CurriculumID    *int64        `json:"curriculumId,omitempty" db:"curriculum_id"` // Nullable once the curriculum is deleted
	Status          RequestStatus `json:"status" db:"status"`
	ViewedByStudent bool          `json:"viewedByStudent" db:"viewed_by_student"`
	EvidencePath    *string       `json:"evidencePath,omitempty" db:"evidence_path"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at"`

	// Relations (populated when needed)
	Student    *User          `json:"student,omitempty"`
	Curriculum *Curriculum    `json:"curriculum,omitempty"`
	Items      []*RequestItem `json:"items,omitempty"`
}

// ItemStatuses returns the statuses of the loaded items in order.
func (r *TransferRequest) ItemStatuses() []ItemStatus {
	statuses := make([]ItemStatus, 0, len(r.Items))
	for _, item := range r.Items {
		statuses = append(statuses, item.Status)
	}
	return statuses
}

// RequestItem is one source course claimed within a transfer request.
type RequestItem struct {
	ID             int64      `json:"id" db:"id"`
	RequestID      int64      `json:"requestId" db:"transfer_request_id"`
	SourceCourseID int64      `json:"sourceCourseId" db:"source_course_id"`
	Grade          string     `json:"grade" db:"grade"`
	Status         ItemStatus `json:"status" db:"status"`
	Position       int        `json:"position" db:"position"` // Submission order

	SourceCourse *SourceCourse     `json:"sourceCourse,omitempty"`
	Comparison   *ComparisonResult `json:"comparison,omitempty"`
}

// ComparisonResult is the suggested target course for a request item. It is
// written once when the request is created and never changed afterwards.
type ComparisonResult struct {
	ID                int64     `json:"id" db:"id"`
	RequestItemID     int64     `json:"requestItemId" db:"request_item_id"`
	SuggestedCourseID int64     `json:"suggestedCourseId" db:"suggested_course_id"`
	SimilarityScore   float64   `json:"similarityScore" db:"similarity_score"`
	Explanation       string    `json:"explanation" db:"explanation"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`

	SuggestedCourse *TargetCourse `json:"suggestedCourse,omitempty"`
}

// SimilarityPercent returns the score scaled for display.
func (c *ComparisonResult) SimilarityPercent() float64 {
	return c.SimilarityScore * 100
}
