package v1

// WebhookCommit is a single repository commit entry in a platform webhook
// delivery. Only commits of finished data files are acted on.
type WebhookCommit struct {
	Title  string   `json:"title"`
	Added  []string `json:"added"`
	Author struct {
		Name string `json:"name"`
	} `json:"author"`
}

// WebhookProject identifies the experiment project a webhook refers to.
type WebhookProject struct {
	ID   int    `json:"id"`
	Name string `json:"name" validate:"required"`
}

// WebhookRequest is the platform's "new file committed" notification.
type WebhookRequest struct {
	Project WebhookProject  `json:"project" validate:"required"`
	Commits []WebhookCommit `json:"commits"`
}

// SubjectRequest addresses a single subject by ID. Used by the reprocess and
// integrated-result endpoints.
type SubjectRequest struct {
	SubjectID string `json:"subject_id" validate:"required,min=1,max=64"`
}

// IntegratedResultResponse wraps a subject's canonical feature record.
type IntegratedResultResponse struct {
	Status           string             `json:"status"`
	IntegratedResult map[string]float64 `json:"integrated_result"`
}

// ReprocessResponse acknowledges an asynchronous reprocess request.
type ReprocessResponse struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}
