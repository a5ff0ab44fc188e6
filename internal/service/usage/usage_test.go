package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skedyul/toolserver/internal/model"
	"github.com/skedyul/toolserver/pkg/testhelpers"
)

func newInvocation(tool, mode string, outcome model.InvocationOutcome, credits float64) *model.Invocation {
	return &model.Invocation{
		InvocationID: uuid.NewString(),
		Tool:         tool,
		Mode:         mode,
		Outcome:      outcome,
		Credits:      credits,
		Duration:     time.Millisecond,
		Arguments:    []byte(`{}`),
	}
}

func TestRecordRequiresInvocationID(t *testing.T) {
	setup := testhelpers.SetupTestDB(t)
	defer setup.Cleanup()

	svc := NewUsageService(setup.DB)
	err := svc.Record(context.Background(), &model.Invocation{Tool: "echo"})
	testhelpers.AssertError(t, err)
}

func TestRecordRejectsDuplicateInvocationID(t *testing.T) {
	setup := testhelpers.SetupTestDB(t)
	defer setup.Cleanup()

	svc := NewUsageService(setup.DB)
	inv := newInvocation("echo", "execute", model.InvocationOutcomeSuccess, 1)
	testhelpers.AssertNoError(t, svc.Record(context.Background(), inv))

	dup := newInvocation("echo", "execute", model.InvocationOutcomeSuccess, 1)
	dup.InvocationID = inv.InvocationID
	testhelpers.AssertError(t, svc.Record(context.Background(), dup))
}

func TestSummarize(t *testing.T) {
	setup := testhelpers.SetupTestDB(t)
	defer setup.Cleanup()

	svc := NewUsageService(setup.DB)
	ctx := context.Background()

	for _, inv := range []*model.Invocation{
		newInvocation("echo", "execute", model.InvocationOutcomeSuccess, 2),
		newInvocation("echo", "execute", model.InvocationOutcomeSuccess, 3),
		newInvocation("echo", "estimate", model.InvocationOutcomeSuccess, 6),
		newInvocation("calculate", "execute", model.InvocationOutcomeFailure, 0),
		newInvocation("calculate", "execute", model.InvocationOutcomeSuccess, 1),
	} {
		testhelpers.AssertNoError(t, svc.Record(ctx, inv))
	}

	summary, err := svc.Summarize(ctx, "")
	testhelpers.AssertNoError(t, err)
	testhelpers.AssertEqual(t, 3, len(summary.Tools))
	testhelpers.AssertEqual(t, int64(5), summary.TotalCalls)
	testhelpers.AssertEqual(t, 12.0, summary.TotalCredits)

	// rows are ordered by tool, then mode
	calc := summary.Tools[0]
	testhelpers.AssertEqual(t, "calculate", calc.Tool)
	testhelpers.AssertEqual(t, int64(2), calc.Calls)
	testhelpers.AssertEqual(t, int64(1), calc.Failures)
	testhelpers.AssertEqual(t, 1.0, calc.Credits)

	// "estimate" sorts before "execute"
	echoEst := summary.Tools[1]
	testhelpers.AssertEqual(t, "echo", echoEst.Tool)
	testhelpers.AssertEqual(t, "estimate", echoEst.Mode)
	testhelpers.AssertEqual(t, int64(1), echoEst.Calls)
	testhelpers.AssertEqual(t, 6.0, echoEst.Credits)

	echoExec := summary.Tools[2]
	testhelpers.AssertEqual(t, "echo", echoExec.Tool)
	testhelpers.AssertEqual(t, "execute", echoExec.Mode)
	testhelpers.AssertEqual(t, int64(2), echoExec.Calls)
	testhelpers.AssertEqual(t, 5.0, echoExec.Credits)

	filtered, err := svc.Summarize(ctx, "calculate")
	testhelpers.AssertNoError(t, err)
	testhelpers.AssertEqual(t, 1, len(filtered.Tools))
	testhelpers.AssertEqual(t, int64(2), filtered.TotalCalls)
}

func TestSummarizeEmptyLedger(t *testing.T) {
	setup := testhelpers.SetupTestDB(t)
	defer setup.Cleanup()

	svc := NewUsageService(setup.DB)
	summary, err := svc.Summarize(context.Background(), "")
	testhelpers.AssertNoError(t, err)
	testhelpers.AssertNotNil(t, summary.Tools)
	testhelpers.AssertEqual(t, 0, len(summary.Tools))
	testhelpers.AssertEqual(t, int64(0), summary.TotalCalls)
}

func TestListRecent(t *testing.T) {
	setup := testhelpers.SetupTestDB(t)
	defer setup.Cleanup()

	svc := NewUsageService(setup.DB)
	ctx := context.Background()

	first := newInvocation("echo", "execute", model.InvocationOutcomeSuccess, 1)
	second := newInvocation("calculate", "execute", model.InvocationOutcomeSuccess, 1)
	testhelpers.AssertNoError(t, svc.Record(ctx, first))
	testhelpers.AssertNoError(t, svc.Record(ctx, second))

	recent, err := svc.ListRecent(ctx, 1)
	testhelpers.AssertNoError(t, err)
	testhelpers.AssertEqual(t, 1, len(recent))
	testhelpers.AssertEqual(t, second.InvocationID, recent[0].InvocationID)

	_, err = svc.ListRecent(ctx, 0)
	testhelpers.AssertTrue(t, errors.Is(err, ErrInvalidLimit), "expected ErrInvalidLimit")
}
