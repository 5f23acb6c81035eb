package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

type fakeStorage struct {
	keys    []string
	listErr error
	objects map[string]string
	getErr  error

	listCalls int
}

func (f *fakeStorage) ListKeys(_ context.Context, prefix string) ([]string, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.keys, nil
}

func (f *fakeStorage) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader([]byte(body))), nil
}

func TestDataLocatorFind(t *testing.T) {
	prefix := "dados_imputados/resultados/"

	tests := []struct {
		name    string
		keys    []string
		station string
		model   string
		want    string
		wantErr error
	}{
		{
			name:    "underscored match",
			keys:    []string{prefix + "PETROLINA_resultado.csv"},
			station: "PETROLINA",
			want:    prefix + "PETROLINA_resultado.csv",
		},
		{
			name:    "spaced fallback",
			keys:    []string{prefix + "SERRA TALHADA resultado.csv"},
			station: "SERRA_TALHADA",
			want:    prefix + "SERRA TALHADA resultado.csv",
		},
		{
			name:    "non-csv ignored",
			keys:    []string{prefix + "PETROLINA_resultado.parquet", prefix + "PETROLINA_resultado.txt"},
			station: "PETROLINA",
			wantErr: ErrDataNotFound,
		},
		{
			name:    "csv extension case-insensitive",
			keys:    []string{prefix + "PETROLINA_resultado.CSV"},
			station: "PETROLINA",
			want:    prefix + "PETROLINA_resultado.CSV",
		},
		{
			name: "model qualifier preferred",
			keys: []string{
				prefix + "PETROLINA_Modelo_knn.csv",
				prefix + "PETROLINA_Modelo_mice.csv",
			},
			station: "PETROLINA",
			model:   "mice",
			want:    prefix + "PETROLINA_Modelo_mice.csv",
		},
		{
			name: "model absent falls back to first match",
			keys: []string{
				prefix + "PETROLINA_Modelo_knn.csv",
				prefix + "PETROLINA_Modelo_mice.csv",
			},
			station: "PETROLINA",
			model:   "arima",
			want:    prefix + "PETROLINA_Modelo_knn.csv",
		},
		{
			name:    "no match",
			keys:    []string{prefix + "CARUARU_resultado.csv"},
			station: "PETROLINA",
			wantErr: ErrDataNotFound,
		},
		{
			name:    "empty listing",
			keys:    nil,
			station: "PETROLINA",
			wantErr: ErrDataNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &fakeStorage{keys: tt.keys}
			locator := &DataLocator{Storage: storage, Prefix: prefix}

			got, err := locator.Find(context.Background(), tt.station, tt.model)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Find() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Find() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDataLocatorListsOnce(t *testing.T) {
	prefix := "dados_imputados/resultados/"

	tests := []struct {
		name string
		key  string
	}{
		{"underscored hit", prefix + "SERRA_TALHADA_resultado.csv"},
		{"spaced fallback hit", prefix + "SERRA TALHADA resultado.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &fakeStorage{keys: []string{tt.key}}
			locator := &DataLocator{Storage: storage, Prefix: prefix}

			got, err := locator.Find(context.Background(), "SERRA_TALHADA", "")
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if got != tt.key {
				t.Errorf("Find() = %q, want %q", got, tt.key)
			}
			if storage.listCalls != 1 {
				t.Errorf("listCalls = %d, want 1 (variants filter the same listing)", storage.listCalls)
			}
		})
	}
}

func TestDataLocatorListError(t *testing.T) {
	storage := &fakeStorage{listErr: errors.New("connection refused")}
	locator := &DataLocator{Storage: storage, Prefix: "p/"}

	if _, err := locator.Find(context.Background(), "PETROLINA", ""); err == nil {
		t.Fatal("Find() expected error for failed listing")
	}
	if storage.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1 (no retry on transport error)", storage.listCalls)
	}
}
