package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck/internal/fault"
	"github.com/jobdeck/jobdeck/internal/member"
	"github.com/jobdeck/jobdeck/internal/model"
)

func lines(texts ...string) string {
	return strings.Join(texts, "\n")
}

func TestRunFullPipeline(t *testing.T) {
	lib := member.Memory{
		"COPYJOB": lines(
			"//COPYJOB JOB (ACCT),CLASS=A",
			"// SET HLQ=PROD",
			"//COPYPR PROC UNIT=SYSDA",
			"//COPY01 EXEC PGM=IEBGENER",
			"//SYSUT1 DD DSN=&HLQ..MASTER,DISP=SHR",
			"// DD DSN=&HLQ..DELTA,DISP=SHR",
			"//SYSUT2 DD DSN=&HLQ..COPY,UNIT=&UNIT,",
			"// DISP=(NEW,CATLG,DELETE)",
			"// PEND",
			"//RUNIT EXEC COPYPR,UNIT=VIO",
			"//CLEANUP EXEC PGM=IEFBR14",
			"//SYSIN DD *",
			" DELETE OLD.COPY",
			"/*",
		),
	}

	result, err := Run(context.Background(), Config{Member: "COPYJOB", Library: lib})
	require.NoError(t, err)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "COPYJOB", result.Member)
	assert.Zero(t, result.Diagnostics.Skipped())
	assert.Empty(t, result.Diagnostics.Unresolved)

	first := result.Steps[0]
	assert.Equal(t, "X0000001", first.RelativeStep)
	assert.Equal(t, "RUNIT", first.StepName)
	assert.Equal(t, "COPY01", first.ProcStepName)
	assert.Equal(t, "COPYPR", first.ProcName)
	assert.Equal(t, "IEBGENER", first.ProgramName)
	require.Len(t, first.Allocations, 3)

	// Concatenated SYSUT1 entries share the dd_name with rising offsets.
	assert.Equal(t, "SYSUT1", first.Allocations[0].DDName)
	assert.Equal(t, 1, first.Allocations[0].AllocationOffset)
	assert.Equal(t, "PROD.MASTER", first.Allocations[0].DSN)
	assert.Equal(t, "SYSUT1", first.Allocations[1].DDName)
	assert.Equal(t, 2, first.Allocations[1].AllocationOffset)
	assert.Equal(t, "PROD.DELTA", first.Allocations[1].DSN)

	// The continued SYSUT2 statement resolved the call-site override.
	out := first.Allocations[2]
	assert.Equal(t, "SYSUT2", out.DDName)
	assert.Equal(t, "PROD.COPY", out.DSN)
	assert.Equal(t, "VIO", out.Unit)
	assert.Equal(t, "NEW", out.DispStatus)
	assert.Equal(t, "CATLG", out.DispNormal)
	assert.Equal(t, "DELETE", out.DispAbnormal)

	second := result.Steps[1]
	assert.Equal(t, "X0000002", second.RelativeStep)
	assert.Equal(t, "CLEANUP", second.StepName)
	assert.Empty(t, second.ProcStepName)
	require.Len(t, second.Allocations, 1)
	assert.Equal(t, model.DSNInstream, second.Allocations[0].DSN)
	assert.Equal(t, " DELETE OLD.COPY", second.Allocations[0].InstreamRef)
}

func TestRunRecoverableDiagnostics(t *testing.T) {
	lib := member.Memory{
		"MAIN": lines(
			"//STEP1 EXEC PGM=IEFBR14",
			"//BAD GLORP X=1",
			"//DD1 DD DSN=&NODEF..DATA,DISP=SHR",
		),
	}
	result, err := Run(context.Background(), Config{Member: "MAIN", Library: lib})
	require.NoError(t, err)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, 1, result.Diagnostics.Skipped())
	require.Len(t, result.Diagnostics.Unresolved, 1)
	assert.Equal(t, "NODEF", result.Diagnostics.Unresolved[0].Name)
	assert.Contains(t, result.Diagnostics.Summary(), "1 statement(s) skipped")
}

func TestRunFatalErrorsYieldNoModel(t *testing.T) {
	tests := []struct {
		name     string
		lib      member.Memory
		target   string
		wantCode string
	}{
		{
			name:     "missing target member",
			lib:      member.Memory{},
			target:   "NOSUCH",
			wantCode: fault.CodeMemberNotFound,
		},
		{
			name: "cyclic include",
			lib: member.Memory{
				"A": "// INCLUDE MEMBER=B",
				"B": "// INCLUDE MEMBER=A",
			},
			target:   "A",
			wantCode: fault.CodeCyclicInclude,
		},
		{
			name: "unterminated continuation",
			lib: member.Memory{
				"MAIN": "//STEP1 EXEC PGM=IEFBR14,",
			},
			target:   "MAIN",
			wantCode: fault.CodeUnterminatedContinuation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(context.Background(), Config{Member: tt.target, Library: tt.lib})
			require.Error(t, err)
			assert.Nil(t, result, "fatal error must not leak a partial model")
			assert.True(t, fault.HasCode(err, tt.wantCode), "unexpected error: %v", err)
		})
	}
}

func TestRunConfigValidation(t *testing.T) {
	_, err := Run(context.Background(), Config{Library: member.Memory{}})
	assert.True(t, fault.HasCode(err, fault.CodeConfigInvalid))

	_, err = Run(context.Background(), Config{Member: "X"})
	assert.True(t, fault.HasCode(err, fault.CodeConfigInvalid))
}

func TestRunHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Config{Member: "X", Library: member.Memory{"X": "//S1 EXEC PGM=IEFBR14"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunCarriesRelationalConditions(t *testing.T) {
	lib := member.Memory{
		"MAIN": lines(
			"//COND1 IF RC = 0 THEN",
			"//S1 EXEC PGM=IEFBR14",
			"// ENDIF",
			"//COND2 IF (STEP1.RC > 4) THEN",
			"//S2 EXEC PGM=IEFBR14",
			"// ENDIF",
		),
	}
	result, err := Run(context.Background(), Config{Member: "MAIN", Library: lib})
	require.NoError(t, err)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "RC = 0", result.Steps[0].CondLogic)
	assert.Equal(t, "(STEP1.RC > 4)", result.Steps[1].CondLogic)
}

func TestRunTierSelection(t *testing.T) {
	lib := member.Memory{"MAIN": "//S1 EXEC PGM=IEFBR14"}
	result, err := Run(context.Background(), Config{Member: "MAIN", Library: lib, Tier: 'B'})
	require.NoError(t, err)
	assert.Equal(t, "B0000001", result.Steps[0].RelativeStep)
}
