package models

// BranchSet holds the branch references a review run needs. It is computed once
// per run and never modified afterwards.
type BranchSet struct {
	// Default is the remote's default branch.
	Default string
	// Branch is the local branch under review.
	Branch string
	// Remote is the name the branch is pushed under.
	Remote string
	// Base is the remote branch the change should be merged onto.
	Base string
}
