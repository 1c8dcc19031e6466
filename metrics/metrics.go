// Package metrics records bid transaction outcomes.
package metrics

import (
	"time"
)

// Recorder receives transaction and transport events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordTransaction(exchange, state string, elapsed time.Duration)
	RecordDeadlineFired(exchange string)
	RecordFault(exchange string)
	RecordRejectedRequest(reason string)
	RecordRejectedOffers(exchange, reason string, count int)
}

// NilRecorder discards everything.
type NilRecorder struct{}

func (NilRecorder) RecordTransaction(string, string, time.Duration) {}
func (NilRecorder) RecordDeadlineFired(string)                      {}
func (NilRecorder) RecordFault(string)                              {}
func (NilRecorder) RecordRejectedRequest(string)                    {}
func (NilRecorder) RecordRejectedOffers(string, string, int)        {}
