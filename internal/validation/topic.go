package validation

import "github.com/brightpath/lessongate/internal/types"

// Grades is the closed set of grade codes a topic may target.
var Grades = []string{"K", "1", "2", "3", "4", "5"}

const (
	maxNameLength    = 200
	maxSubjectLength = 100
)

// ValidateTopic checks a topic definition before it is persisted.
// All field failures are collected rather than failing on the first.
func ValidateTopic(t types.Topic) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("name", t.Name))
	c.Add(ValidateMaxLength("name", t.Name, maxNameLength))
	c.Add(ValidateRequired("grade", t.Grade))
	if t.Grade != "" {
		c.Add(ValidateEnum("grade", t.Grade, Grades))
	}
	c.Add(ValidateRequired("subject", t.Subject))
	c.Add(ValidateMaxLength("subject", t.Subject, maxSubjectLength))
	return c.Errors()
}
