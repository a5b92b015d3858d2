package similarity

import "testing"

func TestRankDay_CompetitionRanking(t *testing.T) {
	tests := []struct {
		name    string
		subject float64
		refs    map[string]float64
		want    map[string]int
	}{
		{
			name:    "Distinct distances rank sequentially",
			subject: 0.0,
			refs: map[string]float64{
				"IDX1": 0.01,
				"IDX2": 0.03,
				"IDX3": -0.02,
			},
			want: map[string]int{"IDX1": 1, "IDX3": 2, "IDX2": 3},
		},
		{
			name:    "Ties share the first position of the group",
			subject: 0.0,
			refs: map[string]float64{
				"A": 0.01,
				"B": 0.02,
				"C": -0.02,
				"D": 0.05,
			},
			// Distances 0.01, 0.02, 0.02, 0.05 -> ranks 1, 2, 2, 4
			want: map[string]int{"A": 1, "B": 2, "C": 2, "D": 4},
		},
		{
			name:    "All tied",
			subject: 0.01,
			refs: map[string]float64{
				"X": 0.02,
				"Y": 0.00,
				"Z": 0.02,
			},
			want: map[string]int{"X": 1, "Y": 1, "Z": 1},
		},
		{
			name:    "Single reference",
			subject: -0.05,
			refs:    map[string]float64{"ONLY": 0.10},
			want:    map[string]int{"ONLY": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := RankDay(tt.subject, tt.refs)
			if len(ranked) != len(tt.want) {
				t.Fatalf("got %d ranked refs, want %d", len(ranked), len(tt.want))
			}
			for _, r := range ranked {
				if want, ok := tt.want[r.Symbol]; !ok || r.Rank != want {
					t.Errorf("rank for %s = %d, want %d", r.Symbol, r.Rank, want)
				}
			}
		})
	}
}

func TestRankDay_EmptyCrossSection(t *testing.T) {
	if got := RankDay(0.01, nil); len(got) != 0 {
		t.Errorf("nil refs should yield empty ranking, got %v", got)
	}
	if got := RankDay(0.01, map[string]float64{}); len(got) != 0 {
		t.Errorf("empty refs should yield empty ranking, got %v", got)
	}
}

func TestRankDay_DeterministicOrderWithinTies(t *testing.T) {
	refs := map[string]float64{"B": 0.02, "A": 0.02, "C": 0.02}
	for i := 0; i < 20; i++ {
		ranked := RankDay(0.0, refs)
		if ranked[0].Symbol != "A" || ranked[1].Symbol != "B" || ranked[2].Symbol != "C" {
			t.Fatalf("tied output order not deterministic: %v", ranked)
		}
	}
}
