package classify

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect Category
	}{
		{"plain maths", "Mathématiques", Mathematics},
		{"upper case", "MATHS", Mathematics},
		{"english name", "Algebra II", Mathematics},
		{"compound physics first", "Physique-Chimie", Physics},
		{"chemistry", "Chimie organique", Chemistry},
		{"svt acronym", "SVT", Biology},
		{"biology", "Biology", Biology},
		{"french accent", "Français", French},
		{"french no accent", "francais", French},
		{"english", "Anglais", English},
		{"spanish", "Espagnol LV2", Spanish},
		{"german", "Allemand", German},
		{"compound history first", "Histoire-Géographie", History},
		{"geography", "Géographie", Geography},
		{"philosophy", "Philosophie", Philosophy},
		{"unknown", "Piano", Default},
		{"empty", "", Default},
		{"whitespace", "   ", Default},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.input); got != tt.expect {
				t.Errorf("Classify(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		if got := Classify("Histoire-Géographie"); got != History {
			t.Fatalf("iteration %d: got %q", i, got)
		}
	}
}

func TestFold(t *testing.T) {
	if got := Fold("  Éléments de Géométrie "); got != "elements de geometrie" {
		t.Fatalf("Fold = %q", got)
	}
}

func TestCategoriesEndsWithDefault(t *testing.T) {
	cats := Categories()
	if len(cats) != 12 {
		t.Fatalf("expected 12 categories, got %d", len(cats))
	}
	if cats[len(cats)-1] != Default {
		t.Fatalf("expected Default last, got %q", cats[len(cats)-1])
	}
}
