package models

import "time"

// GradeURLRequest asks the service to grade photographs already hosted elsewhere
type GradeURLRequest struct {
	UserID   string `json:"user_id" binding:"required,max=128"`
	FrontURL string `json:"front_url" binding:"required,url"`
	BackURL  string `json:"back_url" binding:"required,url"`
}

// GradeResponse is returned once a grading has been stored
type GradeResponse struct {
	UserID       string         `json:"user_id"`
	ComicID      string         `json:"comic_id"`
	Result       *GradingResult `json:"result"`
	AnalysisPath string         `json:"analysis_path"`
	ReportPath   string         `json:"report_path"`
}

// GradingRecord is the analysis document persisted for every graded comic
type GradingRecord struct {
	UserID       string        `json:"user_id"`
	ComicID      string        `json:"comic_id"`
	Provider     string        `json:"provider"`
	CreatedAt    time.Time     `json:"created_at"`
	Result       GradingResult `json:"result"`
	AnalysisPath string        `json:"analysis_path"`
	ReportPath   string        `json:"report_path"`
}

// Clone returns a deep copy of the record
func (r *GradingRecord) Clone() *GradingRecord {
	out := *r
	out.Result = r.Result.Clone()
	return &out
}

// Summary reduces the record to its index row
func (r *GradingRecord) Summary() GradingSummary {
	return GradingSummary{
		UserID:               r.UserID,
		ComicID:              r.ComicID,
		Final:                r.Result.Final,
		Confidence:           r.Result.Confidence,
		RestorationSuspected: r.Result.Flags.RestorationSuspected,
		AnalysisPath:         r.AnalysisPath,
		ReportPath:           r.ReportPath,
		CreatedAt:            r.CreatedAt,
	}
}

// GradingSummary is one row of a user's grading history
type GradingSummary struct {
	UserID               string    `json:"user_id"`
	ComicID              string    `json:"comic_id"`
	Final                float64   `json:"final"`
	Confidence           float64   `json:"confidence"`
	RestorationSuspected bool      `json:"restoration_suspected"`
	AnalysisPath         string    `json:"analysis_path"`
	ReportPath           string    `json:"report_path"`
	CreatedAt            time.Time `json:"created_at"`
}

// GradingListResponse lists a user's gradings, newest first
type GradingListResponse struct {
	UserID   string           `json:"user_id"`
	Gradings []GradingSummary `json:"gradings"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
