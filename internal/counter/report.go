package counter

import "encoding/json"

// Report is the decoded shape of a COUNTER Release 5 master report, down
// to the level the processor needs; report-type specific identifier
// blocks (Item_ID, DOI and friends) are not modeled.
type Report struct {
	Header ReportHeader `json:"Report_Header"`
	Items  []ReportItem `json:"Report_Items"`
}

// ReportHeader identifies the report and the schema release it claims to
// conform to.
type ReportHeader struct {
	Created         string      `json:"Created"`
	CreatedBy       string      `json:"Created_By"`
	ReportID        string      `json:"Report_ID"`
	ReportName      string      `json:"Report_Name"`
	Release         string      `json:"Release"`
	InstitutionName string      `json:"Institution_Name"`
	Exceptions      []Exception `json:"Exceptions"`
}

// Exception is a provider-attached warning or error inside the header.
type Exception struct {
	Code     int    `json:"Code"`
	Severity string `json:"Severity"`
	Message  string `json:"Message"`
	Data     string `json:"Data"`
}

// ReportItem is one usage entry. Which of the name fields is populated
// depends on the report type: Title for TR, Database for DR, Item for IR;
// PR items carry only the platform.
type ReportItem struct {
	Title        string        `json:"Title"`
	Database     string        `json:"Database"`
	Item         string        `json:"Item"`
	Publisher    string        `json:"Publisher"`
	Platform     string        `json:"Platform"`
	DataType     string        `json:"Data_Type"`
	SectionType  string        `json:"Section_Type"`
	AccessType   string        `json:"Access_Type"`
	AccessMethod string        `json:"Access_Method"`
	YOP          json.Number   `json:"YOP"`
	Performance  []Performance `json:"Performance"`
}

// Performance groups metric instances under one date range.
type Performance struct {
	Period   Period     `json:"Period"`
	Instance []Instance `json:"Instance"`
}

// Period is the usage date range of a performance block.
type Period struct {
	BeginDate string `json:"Begin_Date"`
	EndDate   string `json:"End_Date"`
}

// Instance is a single metric count.
type Instance struct {
	MetricType string `json:"Metric_Type"`
	Count      uint   `json:"Count"`
}

// HasException reports whether the header carries the given code.
func (h ReportHeader) HasException(code int) bool {
	for _, exc := range h.Exceptions {
		if exc.Code == code {
			return true
		}
	}
	return false
}
