package store

// Status is the state of one request lifecycle.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Lifecycle tracks one kind of request. It stays loading while any request of
// that kind is in flight and otherwise reports the outcome of the request that
// completed last.
type Lifecycle struct {
	Status   Status
	InFlight int
	// Error is the message of the most recent failure, cleared by a success.
	Error string
}

func idleLifecycle() Lifecycle {
	return Lifecycle{Status: StatusIdle}
}

// Loading reports whether a request of this kind is outstanding.
func (l Lifecycle) Loading() bool {
	return l.InFlight > 0
}

func (l *Lifecycle) begin() {
	l.InFlight++
	l.Status = StatusLoading
}

func (l *Lifecycle) end(err error) {
	if l.InFlight > 0 {
		l.InFlight--
	}
	outcome := StatusSucceeded
	if err != nil {
		outcome = StatusFailed
		l.Error = errorMessage(err)
	} else {
		l.Error = ""
	}
	if l.InFlight > 0 {
		l.Status = StatusLoading
		return
	}
	l.Status = outcome
}

// errorMessage reduces err to the human readable text surfaced to users.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
