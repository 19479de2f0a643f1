package notifier

import "github.com/lyraio/lyra/internal/types"

// AuthorityRiskThreshold is the minimum risk score at which an ai alert is
// escalated to authorities.
const AuthorityRiskThreshold = 90.0

// Route returns the recipient groups for a validated event. It is pure.
//
// Guardians are notified for every alert and every tracking start.
// Authorities are notified for manual and voice alerts, and for ai alerts
// whose risk score is present and at least AuthorityRiskThreshold. Alerts
// from any other source and tracking events never reach authorities.
func Route(ev types.Event) types.Decision {
	switch ev.Kind {
	case types.EventKindAlert:
		return types.Decision{
			NotifyGuardians:   true,
			NotifyAuthorities: escalate(ev),
		}
	case types.EventKindTracking:
		return types.Decision{NotifyGuardians: true}
	default:
		return types.Decision{}
	}
}

func escalate(ev types.Event) bool {
	switch ev.Source {
	case types.SourceManual, types.SourceVoice:
		return true
	case types.SourceAI:
		return ev.RiskScore != nil && *ev.RiskScore >= AuthorityRiskThreshold
	default:
		return false
	}
}
