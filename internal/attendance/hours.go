package attendance

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"rollcall/internal/queue"
)

// Creditor adds a closed log's duration to its student once.
type Creditor interface {
	CreditLog(ctx context.Context, logID int64) (float64, bool, error)
}

// HoursWorker consumes attendance.closed messages and credits rendered hours.
type HoursWorker struct {
	store    Creditor
	recorder Recorder
}

// NewHoursWorker creates a worker. r may be nil.
func NewHoursWorker(s Creditor, r Recorder) *HoursWorker {
	return &HoursWorker{store: s, recorder: r}
}

// Run handles messages until the channel closes or ctx is done.
func (w *HoursWorker) Run(ctx context.Context, messages <-chan queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := w.Handle(ctx, msg); err != nil {
				log.Printf("hours worker: %v", err)
			}
		}
	}
}

// Handle credits one message. Other message types are ignored and
// redelivered logs are a no-op.
func (w *HoursWorker) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeAttendanceClosed {
		return nil
	}
	logID, err := strconv.ParseInt(string(msg.Body), 10, 64)
	if err != nil {
		return fmt.Errorf("bad log id %q: %w", msg.Body, err)
	}
	hours, credited, err := w.store.CreditLog(ctx, logID)
	if err != nil {
		return fmt.Errorf("credit log %d: %w", logID, err)
	}
	if !credited {
		return nil
	}
	log.Printf("credited %.2fh from log %d", hours, logID)
	if w.recorder != nil {
		w.recorder.HoursCredited(hours)
	}
	return nil
}
