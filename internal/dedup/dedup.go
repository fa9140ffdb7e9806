// Package dedup decides whether a candidate job record has been seen
// before: earlier on the same page, earlier in the same run, or in the
// persisted trailing window loaded at start-up.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/jobsift/jobsift/internal/model"
)

// Fingerprint is the content identity of a job: an MD5 over
// company|title|salary_low|salary_high with the casing as scraped.
// Stored hashes were produced this way, so the unnormalized form stays
// the primary key.
func Fingerprint(rec *model.JobRecord) string {
	return hash(rec.Company, rec.Title, rec.SalaryLow, rec.SalaryHigh)
}

// NormalizedFingerprint is the strict-mode variant: the same hash over
// lowercased company and title, catching re-scrapes that differ only in
// casing.
func NormalizedFingerprint(rec *model.JobRecord) string {
	return hash(strings.ToLower(rec.Company), strings.ToLower(rec.Title), rec.SalaryLow, rec.SalaryHigh)
}

func hash(company, title string, low, high int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%d|%d", company, title, low, high)))
	return hex.EncodeToString(sum[:])
}

// State carries the three deduplication scopes through the pipeline as
// an explicit value instead of ambient object fields. Page resets on
// every page; Run accumulates for one invocation; Persisted is a
// read-only snapshot of the store's trailing window, updated lazily at
// the persist stage rather than per record.
type State struct {
	// Strict additionally checks the normalized fingerprint variant.
	Strict bool

	page      map[string]struct{}
	run       map[string]struct{}
	persisted map[string]struct{}
}

// NewState builds a State seeded with persisted fingerprints and URLs
// from the trailing window.
func NewState(strict bool, persistedKeys ...[]string) *State {
	s := &State{
		Strict:    strict,
		page:      make(map[string]struct{}),
		run:       make(map[string]struct{}),
		persisted: make(map[string]struct{}),
	}
	for _, keys := range persistedKeys {
		for _, k := range keys {
			if k != "" {
				s.persisted[k] = struct{}{}
			}
		}
	}
	return s
}

// ResetPage clears the page scope. Called once per page extraction.
func (s *State) ResetPage() {
	s.page = make(map[string]struct{})
}

// keys returns the identity keys for a record, most precise first: the
// canonical URL when present, then the content fingerprint, then the
// normalized variant in strict mode.
func (s *State) keys(rec *model.JobRecord) []string {
	var keys []string
	if rec.URL != "" {
		keys = append(keys, rec.URL)
	}
	keys = append(keys, Fingerprint(rec))
	if s.Strict {
		keys = append(keys, NormalizedFingerprint(rec))
	}
	return keys
}

// IsDuplicate reports whether any identity key of rec was already seen
// in the page, run, or persisted scope, in that order.
func (s *State) IsDuplicate(rec *model.JobRecord) bool {
	for _, scope := range []map[string]struct{}{s.page, s.run, s.persisted} {
		for _, k := range s.keys(rec) {
			if _, ok := scope[k]; ok {
				return true
			}
		}
	}
	return false
}

// Register records rec in the page and run scopes. The persisted scope
// is only a snapshot; the store is updated at the persist stage.
func (s *State) Register(rec *model.JobRecord) {
	for _, k := range s.keys(rec) {
		s.page[k] = struct{}{}
		s.run[k] = struct{}{}
	}
}

// Admit is the combined check-and-register: it returns false for a
// duplicate and registers the record otherwise.
func (s *State) Admit(rec *model.JobRecord) bool {
	if s.IsDuplicate(rec) {
		return false
	}
	s.Register(rec)
	return true
}

// Merge groups records by fingerprint and keeps exactly one per group:
// the record with the lexicographically-latest scraped_at timestamp
// (safe under consistent ISO formatting). Losers are counted and
// discarded, never field-merged. Output preserves first-seen order of
// the surviving fingerprints.
func Merge(records []model.JobRecord) (survivors []model.JobRecord, removed int) {
	groups := make(map[string][]model.JobRecord)
	var order []string
	for _, rec := range records {
		fp := rec.Fingerprint
		if fp == "" {
			fp = Fingerprint(&rec)
		}
		if _, seen := groups[fp]; !seen {
			order = append(order, fp)
		}
		groups[fp] = append(groups[fp], rec)
	}

	for _, fp := range order {
		group := groups[fp]
		if len(group) > 1 {
			sort.SliceStable(group, func(i, j int) bool {
				return group[i].ScrapedAt > group[j].ScrapedAt
			})
			removed += len(group) - 1
		}
		survivors = append(survivors, group[0])
	}
	return survivors, removed
}
