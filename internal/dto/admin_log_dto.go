package dto

// Note: log ids are MD5 hashes of the raw line, not UUIDs

type LogListResponse struct {
	Id        string `json:"id"`
	Level     string `json:"level"`
	Module    string `json:"module"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

type LogDetailResponse struct {
	LogListResponse
	Details map[string]interface{} `json:"details"`
}

type LogPageResponse struct {
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Items []LogListResponse `json:"items"`
}
