package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateSessionKey returns the cache key for a candidate's login session.
func (r *CacheKeyStruct) CandidateSessionKey(candidateID int) string {
	return fmt.Sprintf("login:candidate:%d", candidateID)
}

// TestDefinitionKey returns the cache key for a full test definition,
// including correct answers and hidden test cases. Never sent to candidates.
func (r *CacheKeyStruct) TestDefinitionKey(testID string) string {
	return fmt.Sprintf("test:%s:definition", testID)
}

// TestPaperKey returns the cache key for the candidate-facing paper
// (correct answers and hidden cases redacted).
func (r *CacheKeyStruct) TestPaperKey(testID string) string {
	return fmt.Sprintf("test:%s:paper", testID)
}

// ActiveSessionKey returns the cache key mapping a candidate to their
// currently running proctored session.
func (r *CacheKeyStruct) ActiveSessionKey(candidateID int) string {
	return fmt.Sprintf("candidate:%d:active_session", candidateID)
}

var CacheKey = NewCacheKeyStruct()
