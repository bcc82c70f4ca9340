package dispatch

// Aggregate dispatch outcomes.
const (
	StatusSuccess        = "SUCCESS"
	StatusPartialSuccess = "PARTIAL_SUCCESS"
)

// SendRequest triggers delivery of one template to one or more
// recipients sharing a single placeholder map. Recipient and
// Recipients may both be set; they are merged in order.
type SendRequest struct {
	APIKey       string                 `json:"apiKey"`
	TemplateID   int64                  `json:"templateId"`
	Recipient    string                 `json:"recipient,omitempty"`
	Recipients   []string               `json:"recipients,omitempty"`
	Placeholders map[string]interface{} `json:"placeholders,omitempty"`
}

// BulkRecipient carries one recipient's address and its personal
// placeholder values. Personal values override global ones on key
// collision.
type BulkRecipient struct {
	Email        string                 `json:"email"`
	Placeholders map[string]interface{} `json:"placeholders,omitempty"`
}

type BulkSendRequest struct {
	APIKey             string                 `json:"apiKey"`
	TemplateID         int64                  `json:"templateId"`
	Recipients         []BulkRecipient        `json:"recipients"`
	GlobalPlaceholders map[string]interface{} `json:"globalPlaceholders,omitempty"`
}

// DispatchSummary is the aggregate outcome of a send or bulk send.
// Every recipient appears in exactly one of the two lists.
type DispatchSummary struct {
	Status               string   `json:"status"`
	TotalRecipients      int      `json:"totalRecipients"`
	SuccessCount         int      `json:"successCount"`
	FailureCount         int      `json:"failureCount"`
	SuccessfulRecipients []string `json:"successfulRecipients"`
	FailedRecipients     []string `json:"failedRecipients"`
	Message              string   `json:"message"`
}

// RetryResult reports the outcome of retrying a failed delivery.
type RetryResult struct {
	NotificationID int64  `json:"notificationId"`
	Status         string `json:"status"`
	RetryCount     int    `json:"retryCount"`
	Message        string `json:"message"`
}
