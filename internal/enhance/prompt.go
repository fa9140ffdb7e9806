package enhance

import (
	"fmt"
	"strings"

	"github.com/jobsift/jobsift/internal/model"
)

const systemPrompt = "You are an expert job analyst specializing in the Singapore job market. " +
	"Extract structured data from job descriptions and return valid JSON."

// maxDescriptionChars bounds how much of a job description goes into a
// single-record prompt.
const maxDescriptionChars = 2000

const profileContract = `{
  "company_tier": "MNC|GLC|Educational Institution|SME",
  "title_clean": "Normalized job title",
  "job_family": "Engineering|IT|Finance|Marketing|Operations|Sales|HR|Other",
  "seniority_level": "Entry|Mid|Senior|Lead|Manager|Director|Executive",
  "remote_policy": "Onsite|Hybrid|Remote",
  "visa_requirement": {"local_only": false, "ep_ok": true, "sp_ok": false, "wp_ok": false},
  "experience_years_req": {"min": 3, "max": 5},
  "education_req": ["Bachelor's degree"],
  "certifications_req": ["AWS Certified"],
  "skills_required": [{"name": "Python", "level": 4}],
  "skills_optional": ["Docker"],
  "job_functions": ["Software Development"],
  "currency": "SGD",
  "expires_at": "2026-12-31",
  "trust_score": 0.85,
  "source_site": "MyCareersFuture",
  "source_url": ""
}`

const promptGuidelines = `Guidelines:
- Company tier: MNC for multinationals, GLC for government-linked companies, Educational Institution for schools/universities, SME for others
- Skill levels: 1=Beginner, 2=Intermediate, 3=Advanced, 4=Expert, 5=Master
- Experience years: extract from the description or infer from seniority
- Skills: focus on technical and professional skills actually mentioned
- Trust score: 0-1 confidence in the posting's completeness and legitimacy`

// recordPrompt builds the single-record enhancement prompt.
func recordPrompt(job *model.JobRecord) string {
	var b strings.Builder
	b.WriteString("Analyze this job posting and extract structured data in JSON format.\n\n")
	writeJobHeader(&b, job)
	b.WriteString("\nExtract and return ONLY this JSON structure, no other text:\n")
	b.WriteString(profileContract)
	b.WriteString("\n\n")
	b.WriteString(promptGuidelines)
	b.WriteString(fmt.Sprintf("\n- source_url: %q", job.URL))
	return b.String()
}

// batchPrompt concatenates all records in a batch into one prompt and
// asks for a JSON array, one object per job in input order. Each object
// must echo the job's index in an "idx" field so the response can be
// reconciled even if the model reorders it.
func batchPrompt(jobs []model.JobRecord) string {
	var b strings.Builder
	b.WriteString("Analyze each of the following job postings and extract structured data.\n")
	b.WriteString(fmt.Sprintf("Return ONLY a JSON array with exactly %d objects, one per job, in the same order.\n", len(jobs)))
	b.WriteString("Each object must follow this structure, plus an \"idx\" field echoing the job number:\n")
	b.WriteString(profileContract)
	b.WriteString("\n\n")
	b.WriteString(promptGuidelines)
	b.WriteString("\n\n")
	for i := range jobs {
		b.WriteString(fmt.Sprintf("=== JOB %d ===\n", i))
		writeJobHeader(&b, &jobs[i])
		b.WriteString("\n")
	}
	return b.String()
}

func writeJobHeader(b *strings.Builder, job *model.JobRecord) {
	fmt.Fprintf(b, "Job Title: %s\n", job.Title)
	fmt.Fprintf(b, "Company: %s\n", job.Company)
	fmt.Fprintf(b, "Location: %s\n", job.Location)
	fmt.Fprintf(b, "Salary: $%d - $%d\n", job.SalaryLow, job.SalaryHigh)
	fmt.Fprintf(b, "Industry: %s\n", job.Industry)

	desc := job.JobDescription
	if desc == "" {
		desc = job.RawText
	}
	if len(desc) > maxDescriptionChars {
		desc = desc[:maxDescriptionChars]
	}
	fmt.Fprintf(b, "Job Description:\n%s\n", desc)
}

// parsePrompt builds the LLM-extraction prompt used by the single-call
// parser path: raw card text in, one structured record out.
func parsePrompt(rawText, scrapedDate string) string {
	var b strings.Builder
	b.WriteString("You are a job data extraction expert. Parse the following raw job text.\n\n")
	b.WriteString("Raw job text:\n")
	b.WriteString(rawText)
	b.WriteString("\n\nExtract these fields and return ONLY a valid JSON object:\n")
	b.WriteString(`{
  "company": "", "title": "",
  "location": "North|South|East|West|Central|Singapore|Islandwide",
  "industry": "", "post_date": "YYYY-MM-DD",
  "salary_low": 0, "salary_high": 0,
  "job_type": "Full Time|Part Time|Contract|Temporary|Internship|Permanent",
  "url": ""
}`)
	b.WriteString("\n\nNotes:\n")
	b.WriteString(fmt.Sprintf("1. Today is %s; convert relative dates (\"Posted yesterday\") to absolute YYYY-MM-DD.\n", scrapedDate))
	b.WriteString("2. Use \"Unknown\" or 0 for fields not found.\n")
	b.WriteString("3. Return ONLY the JSON object, no other text.\n")
	return b.String()
}
