package usecase

import (
	"testing"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
)

func TestResolveStation(t *testing.T) {
	tests := []struct {
		name string
		run  entity.RunRecord
		want string
	}{
		{
			name: "station tag",
			run:  entity.RunRecord{Tags: map[string]string{"station": "PETROLINA"}},
			want: "PETROLINA",
		},
		{
			name: "station_name tag",
			run:  entity.RunRecord{Tags: map[string]string{"station_name": "SERRA_TALHADA"}},
			want: "SERRA_TALHADA",
		},
		{
			name: "station_name param",
			run:  entity.RunRecord{Params: map[string]string{"station_name": "CARUARU"}},
			want: "CARUARU",
		},
		{
			name: "tag wins over param",
			run: entity.RunRecord{
				Tags:   map[string]string{"station": "PETROLINA"},
				Params: map[string]string{"station_name": "CARUARU"},
			},
			want: "PETROLINA",
		},
		{
			name: "processed_data run name with date suffix",
			run:  entity.RunRecord{RunName: "processed_data_PETROLINA_20240101"},
			want: "PETROLINA",
		},
		{
			name: "processed_data multi-word station",
			run:  entity.RunRecord{RunName: "processed_data_SERRA_TALHADA_20240101"},
			want: "SERRA_TALHADA",
		},
		{
			name: "processed_data without date suffix",
			run:  entity.RunRecord{RunName: "processed_data_SERRA_TALHADA"},
			want: "SERRA_TALHADA",
		},
		{
			name: "imputacao keyword",
			run:  entity.RunRecord{RunName: "imputacao_PETROLINA_20240101"},
			want: "PETROLINA",
		},
		{
			name: "estacao keyword",
			run:  entity.RunRecord{RunName: "estacao_CARUARU"},
			want: "CARUARU",
		},
		{
			name: "station keyword uppercase",
			run:  entity.RunRecord{RunName: "Station_ARCOVERDE_v2"},
			want: "ARCOVERDE",
		},
		{
			name: "keyword with nothing after it",
			run:  entity.RunRecord{RunName: "imputacao"},
			want: "",
		},
		{
			name: "unrelated name",
			run:  entity.RunRecord{RunName: "baseline_model_v3"},
			want: "",
		},
		{
			name: "empty run",
			run:  entity.RunRecord{},
			want: "",
		},
		{
			name: "empty tag falls through to name",
			run: entity.RunRecord{
				RunName: "processed_data_GARANHUNS_20240202",
				Tags:    map[string]string{"station": ""},
			},
			want: "GARANHUNS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveStation(tt.run); got != tt.want {
				t.Errorf("ResolveStation() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromProcessedDataRunName(t *testing.T) {
	tests := []struct {
		runName string
		want    string
	}{
		{"processed_data_PETROLINA_20240101", "PETROLINA"},
		{"processed_data_SERRA_TALHADA_20240101", "SERRA_TALHADA"},
		{"processed_data_PETROLINA", "PETROLINA"},
		{"processed_data_", ""},
		{"other_prefix_PETROLINA", ""},
		{"", ""},
	}

	for _, tt := range tests {
		run := entity.RunRecord{RunName: tt.runName}
		if got := fromProcessedDataRunName(run); got != tt.want {
			t.Errorf("fromProcessedDataRunName(%q) = %q, want %q", tt.runName, got, tt.want)
		}
	}
}
