package text

import (
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "basic sentences",
			input: "Moi. Mitä kuuluu? Hyvää.",
			want:  []string{"Moi.", "Mitä kuuluu?", "Hyvää."},
		},
		{
			name:  "abbreviation inside sentence",
			input: "Ostin esim. omenoita. Ne olivat hyviä.",
			want:  []string{"Ostin esim. omenoita.", "Ne olivat hyviä."},
		},
		{
			name:  "list ender closes sentence before capital",
			input: "Myymme omenoita, päärynöitä jne. Tervetuloa!",
			want:  []string{"Myymme omenoita, päärynöitä jne.", "Tervetuloa!"},
		},
		{
			name:  "ordinal number",
			input: "Juhla on 5. toukokuuta. Tule mukaan.",
			want:  []string{"Juhla on 5. toukokuuta.", "Tule mukaan."},
		},
		{
			name:  "closing quote and ellipsis",
			input: "Hän sanoi: ”Lähdetään.” Sitten hiljaisuus… Loppu.",
			want:  []string{"Hän sanoi: ”Lähdetään.”", "Sitten hiljaisuus…", "Loppu."},
		},
		{
			name:  "paragraph break ends sentence",
			input: "Otsikko ilman pistettä\n\nEnsimmäinen kappale\nrivitettynä.",
			want:  []string{"Otsikko ilman pistettä", "Ensimmäinen kappale rivitettynä."},
		},
		{
			name:  "punctuation only dropped",
			input: "Moi! ... ?",
			want:  []string{"Moi!"},
		},
		{
			name:  "empty input",
			input: "   \n\n ",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d segments %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i, seg := range got {
				if seg.Index != i {
					t.Errorf("segment %d has index %d", i, seg.Index)
				}
				if seg.Text != tt.want[i] {
					t.Errorf("segment %d = %q, want %q", i, seg.Text, tt.want[i])
				}
			}
		})
	}
}

func TestSplit_NormalizesToNFC(t *testing.T) {
	// "ä" written as a + combining diaeresis.
	got := Split("Pa\u0308iva\u0308a\u0308.")
	if len(got) != 1 {
		t.Fatalf("got %d segments", len(got))
	}
	if got[0].Text != "P\u00e4iv\u00e4\u00e4." {
		t.Errorf("text = %q, want NFC form", got[0].Text)
	}
}
