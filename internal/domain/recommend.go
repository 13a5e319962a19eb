package domain

// Recommendation levels.
const (
	LevelMajor  = "major"
	LevelStable = "stable"
)

var majorAlarmActions = []string{
	"Check sector capacity",
	"Consider carrier expansion",
	"Evaluate load balancing",
	"Review peak hour traffic",
}

// Recommend derives operator guidance from the major alarms of a report.
func Recommend(majorAlarms []ClassifiedRow) Recommendation {
	if len(majorAlarms) == 0 {
		return Recommendation{
			Level:   LevelStable,
			Message: "Network condition stable based on selected threshold",
		}
	}
	actions := make([]string, len(majorAlarmActions))
	copy(actions, majorAlarmActions)
	return Recommendation{
		Level:   LevelMajor,
		Message: "Major congestion detected",
		Actions: actions,
	}
}
