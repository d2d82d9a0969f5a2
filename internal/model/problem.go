// Package model defines the feedback records that flow through the
// cleaning, sync, and completion stages.
package model

// DateLayout is the storage format for problem dates and processed dates.
const DateLayout = "2006-01-02"

// Problem is one free-text page-feedback submission. URL and
// ProblemDetails are rewritten in place during processing; the remaining
// attributes are immutable after creation.
type Problem struct {
	ID             string `json:"id"`
	URL            string `json:"url"`
	ProblemDetails string `json:"problemDetails"`
	ProblemDate    string `json:"problemDate"`
	TimeStamp      string `json:"timeStamp"`
	Language       string `json:"language"`
	Institution    string `json:"institution"`
	Section        string `json:"section"`
	Theme          string `json:"theme"`
	Title          string `json:"title"`

	PersonalInfoProcessed Flag   `json:"personalInfoProcessed"`
	AirtableSync          Flag   `json:"airTableSync"`
	Processed             Flag   `json:"processed"`
	ProcessedDate         string `json:"processedDate,omitempty"`
}

// Row is one enriched record bound for a collaboration-database table.
// Field names match the destination columns.
type Row struct {
	UniqueID    string `json:"Unique ID"`
	Date        string `json:"Date"`
	TimeStamp   string `json:"Time Stamp"`
	URL         string `json:"URL"`
	Lang        string `json:"Lang"`
	Comment     string `json:"Comment"`
	UTM         string `json:"UTM"`
	MainSection string `json:"Main Section"`
	Institution string `json:"Institution"`
	Theme       string `json:"Theme"`
	PageTitle   string `json:"Page Title,omitempty"`
	Status      string `json:"Status"`
}

// RowStatusNew is the workflow status assigned to every freshly created row.
const RowStatusNew = "New"
