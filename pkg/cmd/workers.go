package cmd

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/cockroach/pkg/util/caller"
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/cockroach/pkg/util/stop"
	"github.com/cockroachdb/cockroach/pkg/util/syncutil"
)

// workerRegistry tracks the background workers, for the benefit of
// showRunning.
type workerRegistry struct {
	syncutil.Mutex
	mu struct {
		numWorkers int
		workers    map[string]int
	}
}

var registry = func() *workerRegistry {
	w := workerRegistry{}
	w.mu.workers = make(map[string]int)
	return &w
}()

func (r *workerRegistry) add(name string, delta int) {
	r.Lock()
	defer r.Unlock()
	r.mu.workers[name] += delta
	r.mu.numWorkers += delta
	if r.mu.workers[name] == 0 {
		delete(r.mu.workers, name)
	}
}

func (r *workerRegistry) String() string {
	r.Lock()
	defer r.Unlock()
	if r.mu.numWorkers == 0 {
		return "(no running worker)"
	}
	names := make([]string, 0, len(r.mu.workers))
	for w := range r.mu.workers {
		names = append(names, w)
	}
	sort.Strings(names)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d running workers:", r.mu.numWorkers)
	for _, w := range names {
		fmt.Fprintf(&buf, "\n%-6d %s", r.mu.workers[w], w)
	}
	return buf.String()
}

// showRunning describes the workers and stopper tasks still running.
func showRunning(stopper *stop.Stopper) string {
	var buf bytes.Buffer
	buf.WriteString("currently running:\n")
	fmt.Fprintln(&buf, registry.String())
	tasks := stopper.RunningTasks()
	if len(tasks) == 0 {
		fmt.Fprint(&buf, "(no running task)")
	} else {
		fmt.Fprintf(&buf, "%d running tasks:\n%s", len(tasks), tasks.String())
	}
	return buf.String()
}

// runWorker runs w under the stopper and registers it under the name
// of its caller.
func runWorker(ctx context.Context, stopper *stop.Stopper, w func(context.Context)) {
	fullName := getTaskName(1, ctx)
	if log.V(1) {
		log.Info(ctx, "adding worker")
	}
	registry.add(fullName, 1)
	stopper.RunWorker(ctx, func(ctx context.Context) {
		defer registry.add(fullName, -1)
		w(ctx)
		if log.V(1) {
			log.Info(ctx, "removing worker")
		}
	})
}

func getTaskName(depth int, ctx context.Context) string {
	var buf strings.Builder
	f, l, _ := caller.Lookup(depth + 1)
	fmt.Fprintf(&buf, "%s:%d ", filepath.Base(f), l)
	log.FormatTags(ctx, &buf)
	return buf.String()
}
