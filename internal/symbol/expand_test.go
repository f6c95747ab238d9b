package symbol

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jobdeck/jobdeck/internal/fault"
)

func tableWith(bindings ...Binding) *Table {
	tbl := NewTable()
	for _, b := range bindings {
		tbl.Define(b.Name, b.Value, Global)
	}
	return tbl
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		bindings       []Binding
		want           string
		wantUnresolved []string
	}{
		{
			name:     "simple substitution",
			text:     "//DD1 DD DSN=&HLQ.DATA",
			bindings: []Binding{{"HLQ", "PROD."}},
			want:     "//DD1 DD DSN=PROD.DATA",
		},
		{
			name:     "period delimiter consumed",
			text:     "DSN=&HLQ..DATA",
			bindings: []Binding{{"HLQ", "PROD"}},
			want:     "DSN=PROD.DATA",
		},
		{
			name:     "single period delimiter vanishes",
			text:     "DSN=&HLQ.DATA",
			bindings: []Binding{{"HLQ", "PROD"}},
			want:     "DSN=PRODDATA",
		},
		{
			name:     "longest defined name wins",
			text:     "&VAR1",
			bindings: []Binding{{"VAR", "SHORT"}, {"VAR1", "LONG"}},
			want:     "LONG",
		},
		{
			name:     "shorter name with trailing text",
			text:     "&VARX",
			bindings: []Binding{{"VAR", "V"}},
			want:     "VX",
		},
		{
			name:     "temporary dataset passes through",
			text:     "DSN=&&TEMP",
			bindings: []Binding{{"TEMP", "NO"}},
			want:     "DSN=&&TEMP",
		},
		{
			name:           "unresolved left verbatim and reported",
			text:           "DSN=&MISSING.DATA,UNIT=&UNIT",
			bindings:       []Binding{{"UNIT", "SYSDA"}},
			want:           "DSN=&MISSING.DATA,UNIT=SYSDA",
			wantUnresolved: []string{"MISSING"},
		},
		{
			name:     "value containing a reference resolves on a later pass",
			text:     "&FULL",
			bindings: []Binding{{"FULL", "&HLQ..FILE"}, {"HLQ", "SYS1"}},
			want:     "SYS1.FILE",
		},
		{
			name:     "multiple references on one statement",
			text:     "//S&ID EXEC &PROC,PARM=&PARM",
			bindings: []Binding{{"ID", "1"}, {"PROC", "COPYPR"}, {"PARM", "'GO'"}},
			want:     "//S1 EXEC COPYPR,PARM='GO'",
		},
		{
			name: "no references is a no-op",
			text: "//STEP1 EXEC PGM=IEFBR14",
			want: "//STEP1 EXEC PGM=IEFBR14",
		},
		{
			name:     "national characters in names",
			text:     "&SYS$V",
			bindings: []Binding{{"SYS$V", "A"}},
			want:     "A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unresolved, err := Expand(tt.text, tableWith(tt.bindings...), DefaultMaxPasses)
			if err != nil {
				t.Fatalf("Expand: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.text, got, tt.want)
			}
			if diff := cmp.Diff(tt.wantUnresolved, unresolved); diff != "" {
				t.Errorf("unresolved mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpandDivergence(t *testing.T) {
	tbl := tableWith(Binding{"LOOP", "X&LOOP"})
	_, _, err := Expand("&LOOP", tbl, 5)
	if err == nil {
		t.Fatal("expected divergence error, got nil")
	}
	if !fault.HasCode(err, fault.CodeSymbolExpansionDivergence) {
		t.Errorf("error code mismatch: %v", err)
	}
}

func TestExpandConvergesExactlyAtBound(t *testing.T) {
	// Three chained definitions need three passes; the bound of three
	// must still count as convergence because the final pass is a no-op.
	tbl := tableWith(
		Binding{"A", "&B"},
		Binding{"B", "&C"},
		Binding{"C", "DONE"},
	)
	got, _, err := Expand("&A", tbl, 3)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got != "DONE" {
		t.Errorf("Expand = %q, want DONE", got)
	}
}
