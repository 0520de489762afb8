package dataset

import (
	"math"
	"strings"
	"testing"
)

func TestFromCSV(t *testing.T) {
	csvData := `age,income,region,default
34,52000,north,no
51,NA,south,yes
29,31000,north,no
46,78000,?,yes
`
	ds, err := FromCSV(strings.NewReader(csvData), "default")
	if err != nil {
		t.Fatalf("FromCSV() error = %v", err)
	}

	if got := ds.NRows(); got != 4 {
		t.Errorf("NRows() = %v, want 4", got)
	}
	if got := ds.NCols(); got != 3 {
		t.Errorf("NCols() = %v, want 3", got)
	}

	cols := ds.Columns()
	if cols[0].Kind != Numeric || cols[1].Kind != Numeric {
		t.Errorf("age/income kinds = %v/%v, want numeric", cols[0].Kind, cols[1].Kind)
	}
	if cols[2].Kind != Categorical {
		t.Errorf("region kind = %v, want categorical", cols[2].Kind)
	}
	// "?" in a categorical column is its own level, not a missing cell.
	if len(cols[2].Levels) != 3 {
		t.Errorf("region levels = %v, want 3 entries", cols[2].Levels)
	}

	// Labels map lexically: "no" -> 0, "yes" -> 1.
	if names := ds.ClassNames(); names != [2]string{"no", "yes"} {
		t.Errorf("ClassNames() = %v, want [no yes]", names)
	}
	wantLabels := []int{0, 1, 0, 1}
	for i, want := range wantLabels {
		if got := ds.Label(i); got != want {
			t.Errorf("Label(%d) = %v, want %v", i, got, want)
		}
	}

	// Missing numeric cell is NaN.
	if v := ds.At(1, 1); !math.IsNaN(v) {
		t.Errorf("At(1,1) = %v, want NaN", v)
	}
}

func TestFromCSVErrors(t *testing.T) {
	tests := []struct {
		name     string
		csv      string
		labelCol string
	}{
		{
			name:     "missing label column",
			csv:      "a,b\n1,2\n3,4\n",
			labelCol: "y",
		},
		{
			name:     "single class",
			csv:      "a,y\n1,yes\n2,yes\n",
			labelCol: "y",
		},
		{
			name:     "three classes",
			csv:      "a,y\n1,lo\n2,mid\n3,hi\n",
			labelCol: "y",
		},
		{
			name:     "missing label cell",
			csv:      "a,y\n1,yes\n2,\n3,no\n",
			labelCol: "y",
		},
		{
			name:     "ragged record",
			csv:      "a,b,y\n1,2,yes\n3,no\n",
			labelCol: "y",
		},
		{
			name:     "header only",
			csv:      "a,y\n",
			labelCol: "y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromCSV(strings.NewReader(tt.csv), tt.labelCol); err == nil {
				t.Errorf("FromCSV() error = nil, want error")
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	csvData := `x,cat,y
1,a,no
2,b,yes
3,a,no
NA,b,yes
`
	ds, err := FromCSV(strings.NewReader(csvData), "y")
	if err != nil {
		t.Fatalf("FromCSV() error = %v", err)
	}

	summaries := ds.Describe()
	x := summaries[0]
	if x.Count != 3 || x.Missing != 1 {
		t.Errorf("x count/missing = %d/%d, want 3/1", x.Count, x.Missing)
	}
	if math.Abs(x.Mean-2.0) > 1e-10 {
		t.Errorf("x mean = %v, want 2", x.Mean)
	}
	if x.Min != 1 || x.Max != 3 {
		t.Errorf("x min/max = %v/%v, want 1/3", x.Min, x.Max)
	}

	cat := summaries[1]
	if cat.LevelCounts["a"] != 2 || cat.LevelCounts["b"] != 2 {
		t.Errorf("cat level counts = %v, want a:2 b:2", cat.LevelCounts)
	}
}
