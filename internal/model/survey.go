package model

// TopTaskSurvey is one top-task exit-survey response. The four free-text
// fields are independently nullable: nil means the respondent never
// answered, empty string means the answer was cleaned down to nothing.
type TopTaskSurvey struct {
	ID       string `json:"id"`
	DateTime string `json:"dateTime"`

	ThemeOther         *string `json:"themeOther"`
	TaskOther          *string `json:"taskOther"`
	TaskImproveComment *string `json:"taskImproveComment"`
	TaskWhyNotComment  *string `json:"taskWhyNotComment"`

	PersonalInfoProcessed Flag   `json:"personalInfoProcessed"`
	Processed             Flag   `json:"processed"`
	ProcessedDate         string `json:"processedDate,omitempty"`
}
