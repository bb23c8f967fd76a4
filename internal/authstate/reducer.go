package authstate

import "github.com/securedbank/sentinel/internal/models"

// Reduce applies an action to a state and returns the next state. It is
// pure: no I/O, no clock reads beyond the action payloads, no mutation
// of the input.
func Reduce(s State, a Action) State {
	switch action := a.(type) {
	case AuthStart:
		s.IsLoading = true
		s.Error = ""
		return s

	case AuthSuccess:
		return State{
			User:              action.User,
			Token:             action.Token,
			IsAuthenticated:   true,
			SecurityScore:     clampScore(action.Score),
			SessionExpiresAt:  action.ExpiresAt,
			DeviceFingerprint: action.Fingerprint,
			LastLoginAt:       action.LoginAt,
		}

	case AuthFailure:
		// A rejected login surfaces the error without logging out an
		// already-authenticated session; the attempt counter and score
		// penalty belong to LoginAttemptFailed.
		s.IsLoading = false
		s.Error = action.Message
		return s

	case LoginAttemptFailed:
		s.FailedAttempts++
		s.SecurityScore = clampScore(s.SecurityScore - models.SeverityWeight(models.SeverityMedium))
		return s

	case SecurityAlert:
		s.SecurityScore = clampScore(s.SecurityScore - models.SeverityWeight(action.Severity))
		return s

	case RefreshToken:
		s.Token = action.Token
		s.SessionExpiresAt = action.ExpiresAt
		if action.Score != nil {
			s.SecurityScore = clampScore(*action.Score)
		}
		return s

	case SessionExpired:
		next := Initial()
		next.Error = action.Message
		next.FailedAttempts = s.FailedAttempts
		return next

	case Logout:
		next := Initial()
		next.Error = action.Message
		return next

	default:
		return s
	}
}

// BelowCriticalThreshold reports whether the state describes an
// authenticated session whose score has dropped into forced-logout
// territory.
func BelowCriticalThreshold(s State) bool {
	return s.IsAuthenticated && s.SecurityScore < CriticalScoreThreshold
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxSecurityScore {
		return MaxSecurityScore
	}
	return score
}
