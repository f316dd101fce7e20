// internal/workers/proposal/generate-proposal/models.go
package generateproposal

type Input struct {
	SubmissionID string `json:"submissionId"`
	Force        bool   `json:"forceRegenerate,omitempty"`
}

type Output struct {
	SubmissionID   string `json:"submissionId"`
	ProposalReady  bool   `json:"proposalReady"`
	ProposalFile   string `json:"proposalFile"`
	ProposalLength int    `json:"proposalLength"`
}
