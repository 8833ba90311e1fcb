package shutdown

import (
	"context"
	"log/slog"

	"github.com/looplab/fsm"

	"github.com/hugr-lab/berth-go/registry"
)

// Lifecycle states of one connection record during a shutdown run. The
// transition table below is the single source of truth for what may
// happen to a record; states only ever advance.
const (
	StateDiscovered      = "discovered"
	StateExportAttempted = "export_attempted"
	StateExportSucceeded = "export_succeeded"
	StateExportFailed    = "export_failed"
	StateDisconnected    = "disconnected"
	StateReplaced        = "replaced"
	StateBackupCleaned   = "backup_cleaned"
	StateFailed          = "failed"
)

const (
	eventAttemptExport = "attempt_export"
	eventExportOK      = "export_ok"
	eventExportFail    = "export_fail"
	eventDisconnect    = "disconnect"
	eventReplace       = "replace"
	eventCleanup       = "cleanup"
	eventFail          = "fail"
)

// machine drives one record through its lifecycle. Transition errors are
// sticky: after the first illegal transition every later step is a no-op
// and err() reports the original failure. The pipeline checks once, at
// the points where the outcome is decided.
type machine struct {
	fsm     *fsm.FSM
	stepErr error
}

func newMachine(rec *registry.Record, logger *slog.Logger) *machine {
	m := &machine{}
	m.fsm = fsm.NewFSM(
		StateDiscovered,
		fsm.Events{
			{Name: eventAttemptExport, Src: []string{StateDiscovered}, Dst: StateExportAttempted},
			{Name: eventExportOK, Src: []string{StateExportAttempted, StateExportFailed}, Dst: StateExportSucceeded},
			{Name: eventExportFail, Src: []string{StateExportAttempted}, Dst: StateExportFailed},
			{Name: eventDisconnect, Src: []string{StateDiscovered, StateExportSucceeded, StateExportFailed}, Dst: StateDisconnected},
			{Name: eventReplace, Src: []string{StateDisconnected}, Dst: StateReplaced},
			{Name: eventCleanup, Src: []string{StateReplaced}, Dst: StateBackupCleaned},
			{Name: eventFail, Src: []string{StateDisconnected}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				rec.State = e.Dst
				logger.Debug("connection state advanced",
					"connection", rec.Name,
					"from", e.Src,
					"to", e.Dst,
				)
			},
		},
	)
	rec.State = StateDiscovered
	return m
}

// to fires a transition. No-op once a previous transition failed.
func (m *machine) to(ctx context.Context, event string) {
	if m.stepErr != nil {
		return
	}
	m.stepErr = m.fsm.Event(ctx, event)
}

// current returns the machine's state.
func (m *machine) current() string { return m.fsm.Current() }

// err returns the first transition error, if any.
func (m *machine) err() error { return m.stepErr }
