// Package loop is the cooperative scheduling substrate the other engines
// hang off of. Everything runs on one goroutine: writes batch effect reruns
// into a single task, async transition results settle as tasks, and the host
// decides when a turn happens.
package loop

type Task func()

// Loop is a FIFO task queue. Tasks posted while a turn is running execute on
// the next turn, which is what gives the graph its one-turn batching window.
type Loop struct {
	tasks []Task
}

func New() *Loop {
	return &Loop{}
}

func (l *Loop) Post(t Task) {
	if t == nil {
		return
	}
	l.tasks = append(l.tasks, t)
}

// Len reports how many tasks are currently queued.
func (l *Loop) Len() int {
	return len(l.tasks)
}

// Turn runs every task that was queued when the turn started and reports
// whether any ran. Tasks posted by those tasks wait for the next turn.
func (l *Loop) Turn() bool {
	if len(l.tasks) == 0 {
		return false
	}
	batch := l.tasks
	l.tasks = nil
	for _, t := range batch {
		t()
	}
	return true
}

// Drain spins turns until the queue is idle and returns the number of turns
// it took.
func (l *Loop) Drain() int {
	turns := 0
	for l.Turn() {
		turns++
	}
	return turns
}
