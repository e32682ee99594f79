package compile

// Observer is told about compile activity. Callbacks run on the worker
// goroutine, except SchedulingFailure which runs on the caller's.
type Observer interface {
	JobStarted(job *Job)
	// Diagnostic reports a message attributed to a target.
	Diagnostic(target string, d Diagnostic)
	JobFinished(job *Job, success bool)
	// SchedulingFailure reports a target that could not be put in a job.
	SchedulingFailure(target string, err error)
	// ProjectMessage reports a message no source file can be found for.
	ProjectMessage(msg string)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) JobStarted(*Job) {}
func (NopObserver) Diagnostic(string, Diagnostic) {}
func (NopObserver) JobFinished(*Job, bool) {}
func (NopObserver) SchedulingFailure(string, error) {}
func (NopObserver) ProjectMessage(string) {}

// LogObserver writes compile activity to the log.
type LogObserver struct{}

func (LogObserver) JobStarted(job *Job) {
	log.Infof("job %s: compiling %v", job.ID, job.Targets)
}

func (LogObserver) Diagnostic(target string, d Diagnostic) {
	if d.Severity == SeverityWarning {
		log.Warningf("%s: %s", target, d)
		return
	}
	log.Errorf("%s: %s", target, d)
}

func (LogObserver) JobFinished(job *Job, success bool) {
	log.Infof("job %s: %s", job.ID, job.Status())
}

func (LogObserver) SchedulingFailure(target string, err error) {
	log.Warningf("cannot schedule %s: %s", target, err)
}

func (LogObserver) ProjectMessage(msg string) {
	log.Noticef("%s", msg)
}
