package notifications

const (
	TypeAppraisalSubmitted  = "appraisal_submitted"
	TypeAwaitingFinalReview = "appraisal_awaiting_final_review"
	TypeChangesRequested    = "appraisal_changes_requested"
	TypeRatingsReopened     = "appraisal_ratings_reopened"
	TypeAppraisalCompleted  = "appraisal_completed"
	TypeAppraisalCancelled  = "appraisal_cancelled"
)
