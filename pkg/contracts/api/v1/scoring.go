package v1

// PredictRequest is the scoring request consumed by POST /predict. Age -1
// means the chronological age is unknown; every numeric output then collapses
// to the "-1" string.
type PredictRequest struct {
	Age      int    `json:"age" validate:"min=-1,max=120"`
	IDCard   string `json:"id_card" validate:"required"`
	Name     string `json:"name" validate:"required"`
	TestDate string `json:"test_date" validate:"required"`
}

// PredictResults carries the fixed-precision numeric outputs. Each string is
// a "%.2f" rendering or exactly "-1" when the value is suppressed.
type PredictResults struct {
	BrainAge         string `json:"brainAge"`
	ChronologicalAge int    `json:"chronologicalAge"`
	OriginalPAD      string `json:"originalPAD"`
	AgeCorrectedPAD  string `json:"ageCorrectedPAD"`
}

// CognitiveFunctionScore is one domain's percentile, -1 when the domain did
// not qualify for scoring.
type CognitiveFunctionScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// PredictMeta carries response metadata.
type PredictMeta struct {
	TotalParticipants int `json:"totalParticipants"`
}

// PredictResponse is the scoring response returned by POST /predict.
type PredictResponse struct {
	IDCard             string                   `json:"id_card"`
	Name               string                   `json:"name"`
	TestDate           string                   `json:"testDate"`
	Results            PredictResults           `json:"results"`
	CognitiveFunctions []CognitiveFunctionScore `json:"cognitiveFunctions"`
	Meta               PredictMeta              `json:"meta"`
}
