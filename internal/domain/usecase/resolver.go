package usecase

import (
	"strings"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
)

// stationStrategy extracts a canonical station token from a run, or returns
// "" when it cannot. Strategies run in a fixed order and the first non-empty
// result wins; the order is load-bearing, so they stay separate functions
// instead of one regex.
type stationStrategy func(run entity.RunRecord) string

var stationStrategies = []stationStrategy{
	fromStationTag,
	fromStationNameTag,
	fromStationNameParam,
	fromProcessedDataRunName,
	fromRunNameKeyword,
}

// runNameKeywords mark run names produced by the imputation notebooks,
// where the station token follows the keyword token.
var runNameKeywords = []string{"imputacao", "imputation", "estacao", "station"}

// ResolveStation derives the station identifier for a run. An empty result
// is a normal outcome for runs without station metadata; callers skip the
// run instead of failing the cycle.
func ResolveStation(run entity.RunRecord) string {
	for _, strategy := range stationStrategies {
		if name := strategy(run); name != "" {
			return name
		}
	}
	return ""
}

func fromStationTag(run entity.RunRecord) string {
	return run.Tags["station"]
}

func fromStationNameTag(run entity.RunRecord) string {
	return run.Tags["station_name"]
}

func fromStationNameParam(run entity.RunRecord) string {
	return run.Params["station_name"]
}

// fromProcessedDataRunName handles names like
// "processed_data_SERRA_TALHADA_20240101": drop the two leading tokens,
// drop the trailing token when it is numeric, rejoin the rest.
func fromProcessedDataRunName(run entity.RunRecord) string {
	if !strings.HasPrefix(run.RunName, "processed_data_") {
		return ""
	}
	parts := strings.Split(run.RunName, "_")
	if len(parts) < 3 {
		return ""
	}
	station := parts[2:]
	if isNumeric(station[len(station)-1]) {
		station = station[:len(station)-1]
	}
	return strings.Join(station, "_")
}

// fromRunNameKeyword handles names like "imputacao_PETROLINA_20240101":
// the token right after the first keyword token is the station.
func fromRunNameKeyword(run entity.RunRecord) string {
	if run.RunName == "" {
		return ""
	}
	lowered := strings.ToLower(run.RunName)
	for _, keyword := range runNameKeywords {
		if !strings.Contains(lowered, keyword) {
			continue
		}
		parts := strings.Split(run.RunName, "_")
		for i, part := range parts {
			if strings.Contains(strings.ToLower(part), keyword) && i+1 < len(parts) {
				return parts[i+1]
			}
		}
	}
	return ""
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
