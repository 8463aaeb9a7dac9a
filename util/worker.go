package util

import (
	"sync"

	"github.com/fafadexs1/chatflow/logger"
	"go.uber.org/zap"
)

type Action any

// Worker is a single-goroutine consumer of queued actions, used for the
// fire-and-forget parts of the system (memory consolidation writes, cache
// repopulation) so they never block a reply already sent to the user.
type Worker struct {
	name       string
	stop       chan struct{}
	wg         *sync.WaitGroup
	handler    func(Action) error
	actionChan chan Action
}

func NewWorker(name string, wg *sync.WaitGroup, handler func(Action) error, capacity int) *Worker {
	return &Worker{
		actionChan: make(chan Action, capacity),
		name:       name,
		wg:         wg,
		stop:       make(chan struct{}),
		handler:    handler,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case action := <-w.actionChan:
				err := w.handler(action)
				if err != nil {
					logger.Error("error in executing action in worker", zap.String("worker", w.name), zap.Error(err))
				}
			case <-w.stop:
				logger.Info("stopping worker", zap.String("worker", w.name))
				return
			}
		}
	}()
}

// TrySend queues an action without blocking; a full queue drops the action,
// trading completeness for responsiveness.
func (w *Worker) TrySend(action Action) bool {
	select {
	case w.actionChan <- action:
		return true
	default:
		return false
	}
}

func (w *Worker) Stop() {
	w.stop <- struct{}{}
}
