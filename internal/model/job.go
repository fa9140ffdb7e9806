package model

import "time"

// Sentinel value for any field the parser could not extract.
const Unknown = "Unknown"

// RawBlock is one unit of scraped text as delivered by the rendering
// service: the inner text of a job card or a page body, plus the job
// URL when one was found inside the card.
type RawBlock struct {
	Text       string    `json:"text"`
	URL        string    `json:"url,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// JobRecord is the central entity of the pipeline. It is created by the
// parser from a RawBlock, mutated by refinement (absolute date) and
// consolidation (full description), and optionally carries an
// EnhancedProfile after the enhancement stage.
type JobRecord struct {
	Company         string `json:"company"`
	Title           string `json:"title"`
	Location        string `json:"location"`
	JobType         string `json:"job_type"`
	ExperienceLevel string `json:"experience_level"`
	Industry        string `json:"industry"`
	SalaryLow       int    `json:"salary_low"`
	SalaryHigh      int    `json:"salary_high"`

	// PostDateRaw is the date string as scraped ("Posted 3 days ago");
	// PostDate is the resolved absolute YYYY-MM-DD.
	PostDateRaw string `json:"post_date_raw,omitempty"`
	PostDate    string `json:"post_date,omitempty"`

	URL         string `json:"url,omitempty"`
	ScrapedAt   string `json:"scraped_at"`
	Fingerprint string `json:"fingerprint"`

	// RawText is the original block, retained for audit and re-parsing.
	// Consolidation replaces it with the full page body.
	RawText        string `json:"raw_text,omitempty"`
	JobDescription string `json:"job_description,omitempty"`
	ConsolidatedAt string `json:"consolidated_at,omitempty"`

	Enhanced   *EnhancedProfile `json:"enhanced_data,omitempty"`
	EnhancedAt string           `json:"enhanced_at,omitempty"`
}

// HasSalary reports whether the record carries a usable salary range.
// Records without one are never persisted as refined output.
func (j *JobRecord) HasSalary() bool {
	return j.SalaryLow > 0 && j.SalaryHigh > 0
}

// FailedJob is a JobRecord that could not be enhanced, retained with
// the failure reason so it can be reprocessed manually.
type FailedJob struct {
	Job   JobRecord `json:"job"`
	Error string    `json:"error"`
}

// EnhancedProfile is the LLM-derived overlay on a JobRecord. A failed
// enhancement call yields no profile at all, never a partial one.
type EnhancedProfile struct {
	CompanyTier       string          `json:"company_tier"`
	TitleClean        string          `json:"title_clean"`
	JobFamily         string          `json:"job_family"`
	SeniorityLevel    string          `json:"seniority_level"`
	RemotePolicy      string          `json:"remote_policy"`
	VisaRequirement   VisaRequirement `json:"visa_requirement"`
	ExperienceYears   YearsRange      `json:"experience_years_req"`
	EducationReq      []string        `json:"education_req"`
	CertificationsReq []string        `json:"certifications_req"`
	SkillsRequired    []Skill         `json:"skills_required"`
	SkillsOptional    []string        `json:"skills_optional"`
	JobFunctions      []string        `json:"job_functions"`
	Currency          string          `json:"currency"`
	ExpiresAt         string          `json:"expires_at"`
	TrustScore        float64         `json:"trust_score"`
	SourceSite        string          `json:"source_site"`
	SourceURL         string          `json:"source_url"`

	// Idx echoes the record's position in a batched request and is used
	// only to reconcile batch responses; it is not persisted.
	Idx *int `json:"idx,omitempty"`
}

// VisaRequirement captures work-authorization flags for Singapore pass
// types (Employment Pass, S Pass, Work Permit).
type VisaRequirement struct {
	LocalOnly bool `json:"local_only"`
	EPOK      bool `json:"ep_ok"`
	SPOK      bool `json:"sp_ok"`
	WPOK      bool `json:"wp_ok"`
}

// YearsRange is a min/max experience requirement in years.
type YearsRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Skill is a required skill with a 1-5 proficiency level.
type Skill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}
