package resume

// The types below describe the JSON shape the builder UI writes into each section.
// They drive schema validation and readiness checks; the store itself keeps the raw JSON.
// Fields tagged schema:"required" must be present and non-empty on every entry.

// PersonalInfo 是基本信息（唯一的对象型分区）。
type PersonalInfo struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth"`
	LinkedIn    string `json:"linkedin"`
	Summary     string `json:"summary"`
}

type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	StartYear   string `json:"startYear"`
	EndYear     string `json:"endYear"`
	Percentage  string `json:"percentage"`
}

type Experience struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

type Project struct {
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Domain       string `json:"domain"`
	TeamSize     string `json:"teamSize"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Description  string `json:"description"`
}

type Skill struct {
	Name  string `json:"name" schema:"required"`
	Level string `json:"level"`
	Type  string `json:"type"`
}

type Position struct {
	Title        string `json:"title"`
	Organization string `json:"organization"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Description  string `json:"description"`
}

type Award struct {
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Date         string `json:"date"`
	Description  string `json:"description"`
}

type Certification struct {
	Name         string `json:"name"`
	Issuer       string `json:"issuer"`
	IssueDate    string `json:"issueDate"`
	ExpiryDate   string `json:"expiryDate"`
	CredentialID string `json:"credentialId"`
	URL          string `json:"url"`
	Description  string `json:"description"`
}

type Volunteering struct {
	Role         string `json:"role"`
	Organization string `json:"organization"`
	Location     string `json:"location"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Description  string `json:"description"`
}

type Conference struct {
	Title       string `json:"title"`
	Organizer   string `json:"organizer"`
	Address     string `json:"address"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

type Publication struct {
	Title       string `json:"title"`
	Publisher   string `json:"publisher"`
	Date        string `json:"date"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type Patent struct {
	Title             string `json:"title"`
	Office            string `json:"office"`
	ApplicationNumber string `json:"applicationNumber"`
	FilingDate        string `json:"filingDate"`
	IssueDate         string `json:"issueDate"`
	Description       string `json:"description"`
}

type TestScore struct {
	Title          string `json:"title"`
	Score          string `json:"score"`
	TotalScore     string `json:"totalScore"`
	ExamDate       string `json:"examDate"`
	AssociatedWith string `json:"associatedWith"`
	Description    string `json:"description"`
}

type Scholarship struct {
	Title          string `json:"title"`
	AssociatedWith string `json:"associatedWith"`
	GrantDate      string `json:"grantDate"`
	Description    string `json:"description"`
}

type Guardian struct {
	Name         string `json:"name"`
	Occupation   string `json:"occupation"`
	Organization string `json:"organization"`
	Designation  string `json:"designation"`
	Email        string `json:"email"`
	Mobile       string `json:"mobile"`
	DateOfBirth  string `json:"dateOfBirth"`
	Notes        string `json:"notes"`
}

// Language and Subject make up the "misc" grouping.
type Language struct {
	Name  string `json:"name" schema:"required"`
	Level string `json:"level"`
}

type Subject struct {
	Name  string `json:"name" schema:"required"`
	Level string `json:"level"`
}
