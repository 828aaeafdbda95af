package contribution

import (
	"fmt"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
)

// allowed is the single source of truth for contribution status transitions.
// Anything not listed is rejected with INVALID_TRANSITION.
var allowed = map[models.ContributionStatus][]models.ContributionStatus{
	models.ContributionPending: {
		models.ContributionApproved,
		models.ContributionRejected,
		models.ContributionCancelled,
	},
}

func checkTransition(from, to models.ContributionStatus) error {
	for _, t := range allowed[from] {
		if t == to {
			return nil
		}
	}
	return apperr.New(409, apperr.CodeInvalidTransition,
		fmt.Sprintf("cannot move contribution from %s to %s", from, to))
}
