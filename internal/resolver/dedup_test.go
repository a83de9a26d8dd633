package resolver

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sells-group/person-search/internal/model"
)

func TestMergeGroups(t *testing.T) {
	base := []model.Candidate{
		{ID: "a", Name: "Ann Lee", Description: "Designer"},
		{ID: "b", Name: "Ann M. Lee", Description: "Designer • NYC", ImageURL: "https://img.example/b.jpg", HasFaceImage: true},
		{ID: "c", Name: "Bo Chen", Description: "Chef"},
		{ID: "d", Name: "Ann Lee", Description: "", ImageURL: "https://img.example/d.jpg", TwitterURL: "https://x.com/annlee"},
	}

	tests := []struct {
		name   string
		groups [][]string
		want   []model.Candidate
	}{
		{
			name: "no groups",
			want: base,
		},
		{
			name:   "primary id kept, longest fields, first photo",
			groups: [][]string{{"d", "a", "b"}},
			want: []model.Candidate{
				{ID: "d", Name: "Ann M. Lee", Description: "Designer • NYC", ImageURL: "https://img.example/d.jpg", TwitterURL: "https://x.com/annlee"},
				base[2],
			},
		},
		{
			name:   "unknown ids and singletons ignored",
			groups: [][]string{{"a", "zzz"}, {"c"}},
			want:   base,
		},
		{
			name:   "id claimed by first group only",
			groups: [][]string{{"a", "c"}, {"c", "d"}},
			want: []model.Candidate{
				{ID: "a", Name: "Ann Lee", Description: "Designer"},
				base[1],
				base[3],
			},
		},
		{
			name:   "repeated id in one group",
			groups: [][]string{{"b", "b"}},
			want:   base,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeGroups(base, tt.groups)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MergeGroups() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
