package models

import "strings"

// ReviewRequest is the platform-agnostic content of a pull/merge request.
type ReviewRequest struct {
	Platform     string
	Title        string
	Description  string
	SourceBranch string
	TargetBranch string
	Reviewers    []string
}

// NewReviewRequest splits message into a title (first line) and a description
// (the remainder) and targets refs.Remote onto refs.Base.
func NewReviewRequest(platform, message string, refs BranchSet, reviewers string) ReviewRequest {
	title, description, _ := strings.Cut(message, "\n")
	return ReviewRequest{
		Platform:     platform,
		Title:        strings.TrimSpace(title),
		Description:  strings.TrimLeft(description, "\n"),
		SourceBranch: refs.Remote,
		TargetBranch: refs.Base,
		Reviewers:    SplitReviewers(reviewers),
	}
}

// SplitReviewers parses a comma separated list of handles, dropping blanks.
func SplitReviewers(reviewers string) []string {
	var handles []string
	for _, h := range strings.Split(reviewers, ",") {
		if h = strings.TrimSpace(h); h != "" {
			handles = append(handles, h)
		}
	}
	return handles
}
