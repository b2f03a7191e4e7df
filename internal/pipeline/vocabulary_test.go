package pipeline

import (
	"slices"
	"testing"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

var testCategories = []domain.Category{
	{ID: "cat-food", Name: "Food", Type: domain.CategoryExpense},
	{ID: "cat-transport", Name: "Transporte", Type: domain.CategoryExpense},
	{ID: "cat-salary", Name: "Salário", Type: domain.CategoryIncome},
	{ID: "cat-other", Name: "Outros", Type: domain.CategoryExpense},
}

func TestVocabulary_Lookup(t *testing.T) {
	v := NewVocabulary(testCategories, DefaultFallbackCategories)

	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{name: "exact", input: "Food", wantID: "cat-food", wantOK: true},
		{name: "different case", input: "FOOD", wantID: "cat-food", wantOK: true},
		{name: "surrounding space", input: "  transporte ", wantID: "cat-transport", wantOK: true},
		{name: "accented", input: "SALÁRIO", wantID: "cat-salary", wantOK: true},
		{name: "unknown", input: "Travel", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := v.Lookup(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && c.ID != tt.wantID {
				t.Errorf("Lookup(%q) = %s, want %s", tt.input, c.ID, tt.wantID)
			}
		})
	}
}

func TestVocabulary_Labels(t *testing.T) {
	v := NewVocabulary(testCategories, nil)

	want := []string{"food", "outros", "salário", "transporte"}
	if got := v.Labels(); !slices.Equal(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}

	labels := v.Labels()
	labels[0] = "changed"
	if v.Labels()[0] != "food" {
		t.Error("Labels() must return a copy")
	}
}

func TestVocabulary_Fallback(t *testing.T) {
	tests := []struct {
		name      string
		fallbacks []string
		wantID    string
		wantOK    bool
	}{
		{name: "default names", fallbacks: DefaultFallbackCategories, wantID: "cat-other", wantOK: true},
		{name: "first present name wins", fallbacks: []string{"missing", "food", "outros"}, wantID: "cat-food", wantOK: true},
		{name: "none present", fallbacks: []string{"misc"}, wantOK: false},
		{name: "no names", fallbacks: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVocabulary(testCategories, tt.fallbacks)
			c, ok := v.Fallback()
			if ok != tt.wantOK {
				t.Fatalf("Fallback() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && c.ID != tt.wantID {
				t.Errorf("Fallback() = %s, want %s", c.ID, tt.wantID)
			}
		})
	}
}

func TestVocabulary_DuplicateNamesKeepFirst(t *testing.T) {
	v := NewVocabulary([]domain.Category{
		{ID: "a", Name: "Food"},
		{ID: "b", Name: " food "},
	}, nil)

	if v.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", v.Len())
	}
	if c, _ := v.Lookup("food"); c.ID != "a" {
		t.Errorf("Lookup(food) = %s, want a", c.ID)
	}
}
