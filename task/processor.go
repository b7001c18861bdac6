package task

// Processor holds exactly the state specific to the running hart: which
// task is currently executing, and the run loop's own saved kernel-side
// register context (the "idle"/scheduler-frame context every switchTo call
// eventually switches back into once a task yields or exits).
//
// spec.md §3 folds this into "task manager / scheduler state"; this module
// keeps it a separate type from Manager, grounded on
// original_source/os/src/processor/mod.rs's ProcessorLocal — collapsed here
// from its per-hart array (CPU_NUM-sized) down to one package-level instance
// since spec.md's Non-goals exclude SMP and this kernel targets exactly one
// hart.
type Processor struct {
	current      *Task
	schedulerCtx SwitchContext
}

var theProcessor Processor

// CurrentTask returns the task currently running on this hart, or nil
// before the first task has been dispatched.
func CurrentTask() *Task { return theProcessor.current }

func setCurrentTask(t *Task) { theProcessor.current = t }
