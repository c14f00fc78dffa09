package report_test

import (
	"context"
	"testing"

	"github.com/mangar2/qaplatester/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIdempotent(t *testing.T) {
	r := report.NewRegistry()
	topic := report.Topic{Group: "g", ID: "x", Text: "t", Section: report.Notes}

	require.NoError(t, r.Register(topic))
	require.NoError(t, r.Register(topic)) // identical re-registration is a no-op

	conflicting := topic
	conflicting.Section = report.Important
	assert.Error(t, r.Register(conflicting))
}

func TestInstanceSuppressesAfterMax(t *testing.T) {
	r := report.NewRegistry()
	require.NoError(t, r.Register(report.Topic{Group: "g", ID: "flaky", Text: "t", Section: report.Misbehaviour}))

	in := report.NewInstance(context.Background(), r, "engineA")
	for i := 0; i < report.MaxCLILogsPerError+3; i++ {
		in.Report("flaky", false, "boom")
	}

	total, failures := in.Counts("flaky")
	assert.Equal(t, report.MaxCLILogsPerError+3, total)
	assert.Equal(t, report.MaxCLILogsPerError+3, failures)
}

func TestLogEscalatesReturnCode(t *testing.T) {
	r := report.NewRegistry()
	require.NoError(t, r.Register(report.Topic{Group: "g", ID: "crit", Text: "t", Section: report.Important}))

	in := report.NewInstance(context.Background(), r, "engineA")
	in.Report("crit", true, "")
	_, code := in.Log()
	assert.Equal(t, report.NoError, code)

	in.Report("crit", false, "bad")
	_, code = in.Log()
	assert.Equal(t, report.EngineError, code)
}

func TestNoDisconnectNeverFailsWhenResponsive(t *testing.T) {
	in := report.NewInstance(context.Background(), nil, "engineA")
	for i := 0; i < 10; i++ {
		in.Report("no-disconnect", true, "")
	}
	_, failures := in.Counts("no-disconnect")
	assert.Equal(t, 0, failures)
}
