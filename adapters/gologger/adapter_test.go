package gologger

import (
	"context"
	"testing"

	"github.com/goliatone/go-cerm/core"
	glog "github.com/goliatone/go-logger/glog"
)

func TestChannelNaming(t *testing.T) {
	cases := []struct {
		name     string
		segments []string
		want     string
	}{
		{name: "root only", want: "cerm"},
		{name: "single segment", segments: []string{"transport"}, want: "cerm.transport"},
		{name: "nested", segments: []string{"ratelimit", "gate"}, want: "cerm.ratelimit.gate"},
		{name: "blank segments dropped", segments: []string{" ", "transport", ""}, want: "cerm.transport"},
		{name: "stray dots trimmed", segments: []string{".transport."}, want: "cerm.transport"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Channel(tc.segments...); got != tc.want {
				t.Fatalf("unexpected channel: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestJobChannel_StripsTheJobIDPrefix(t *testing.T) {
	if got := JobChannel(core.JobValidateAddress); got != "cerm.jobs.validate_address" {
		t.Fatalf("unexpected validate-address channel %q", got)
	}
	if got := JobChannel(core.JobSubmitSalesOrder); got != "cerm.jobs.salesorder.submit" {
		t.Fatalf("unexpected sales-order channel %q", got)
	}
	if got := JobChannel("custom.job"); got != "cerm.jobs.custom.job" {
		t.Fatalf("unexpected foreign job channel %q", got)
	}
}

func TestResolve_DeterministicPrecedence(t *testing.T) {
	direct := &capturingLogger{id: "direct"}
	channelled := &capturingLogger{id: "channelled"}
	provider := &capturingProvider{logger: channelled}

	_, resolved := Resolve(Channel("transport"), provider, direct)
	if resolved.(*capturingLogger).id != "channelled" {
		t.Fatalf("expected provider logger to win, got %q", resolved.(*capturingLogger).id)
	}
	if provider.lastChannel != "cerm.transport" {
		t.Fatalf("expected provider asked for cerm.transport, got %q", provider.lastChannel)
	}

	resolvedProvider, resolved := Resolve("", nil, direct)
	if resolved.(*capturingLogger).id != "direct" {
		t.Fatalf("expected direct logger when provider is nil")
	}
	if resolvedProvider == nil {
		t.Fatalf("expected a provider wrapped around the direct logger")
	}

	_, resolved = Resolve("", nil, nil)
	if resolved == nil {
		t.Fatalf("expected nop fallback when nothing is configured")
	}
}

func TestResolveJobLoggers_BridgesIntoGoJob(t *testing.T) {
	channelled := &capturingLogger{id: "channelled"}
	provider := &capturingProvider{logger: channelled}

	_, _, jobProvider, jobLogger := ResolveJobLoggers(core.JobSubmitSalesOrder, provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job bridges")
	}
	if provider.lastChannel != "cerm.jobs.salesorder.submit" {
		t.Fatalf("expected job channel resolution, got %q", provider.lastChannel)
	}

	bridged := jobProvider.GetLogger(JobChannel(core.JobSubmitSalesOrder))
	bridged.Info("sales order queued", "idempotency_key", "so-web-42")

	captured := channelled.lastInfo
	if captured.msg != "sales order queued" {
		t.Fatalf("expected bridged message, got %q", captured.msg)
	}
	if captured.args[0] != "idempotency_key" || captured.args[1] != "so-web-42" {
		t.Fatalf("expected bridged args, got %#v", captured.args)
	}
}

var (
	_ glog.Logger         = (*capturingLogger)(nil)
	_ glog.LoggerProvider = (*capturingProvider)(nil)
)

type capturingProvider struct {
	logger      *capturingLogger
	lastChannel string
}

func (p *capturingProvider) GetLogger(name string) glog.Logger {
	p.lastChannel = name
	if p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type infoCall struct {
	msg  string
	args []any
}

type capturingLogger struct {
	id       string
	lastInfo infoCall
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.lastInfo = infoCall{
		msg:  msg,
		args: append([]any(nil), args...),
	}
}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
